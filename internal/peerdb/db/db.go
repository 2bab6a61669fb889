// Package db is the peer store: a thin layer over a pooled SQL connection that reads
// and writes the peer table and answers relay allow-list membership.
//
// A *Store is safe for concurrent use. Every operation borrows one connection from
// the pool and returns it before the call completes, so copies of the pointer
// share the pool without further coordination.
package db

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"github.com/tansive/peerstore/internal/common/apperrors"
	"github.com/tansive/peerstore/internal/common/logtrace"
	"github.com/tansive/peerstore/internal/peerdb/config"
	"github.com/tansive/peerstore/internal/peerdb/db/dberror"
	"github.com/tansive/peerstore/internal/peerdb/db/dbmanager"
)

const probeDelay = 200 * time.Millisecond

// Store is a handle to the peer database.
type Store struct {
	pool         dbmanager.Pool
	dialect      dbmanager.Dialect
	queryTimeout time.Duration
}

// Open connects to the database named by cfg.URL. File-backed targets are created
// when missing. One connection is borrowed and pinged before Open returns; with
// ConnectAttempts > 1 the probe is retried with back-off.
func Open(ctx context.Context, cfg config.DBConfig) (*Store, apperrors.Error) {
	ctx = logtrace.WithOp(ctx, "open")

	target, err := dbmanager.ParseTarget(cfg.URL)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("invalid connection locator")
		return nil, dberror.ErrConnection.MsgErr("invalid connection locator", err)
	}
	if target.File != "" {
		ensureFile(ctx, target.File)
	}

	log.Ctx(ctx).Debug().
		Int(config.EnvMaxConnections, config.MaxDatabaseConnections()).
		Int("max_open_conns", cfg.Pool.MaxOpenConns).
		Str("dialect", target.Dialect.Name()).
		Msg("opening peer store")

	pool, aerr := dbmanager.NewPool(ctx, target, cfg.Pool)
	if aerr != nil {
		return nil, aerr
	}

	if aerr := probe(ctx, pool, cfg.ConnectAttempts); aerr != nil {
		pool.Close()
		return nil, aerr.Prefix(target.Dialect.Name())
	}

	s := &Store{
		pool:         pool,
		dialect:      target.Dialect,
		queryTimeout: cfg.QueryTimeout,
	}
	if aerr := s.createTables(ctx); aerr != nil {
		pool.Close()
		return nil, aerr
	}
	return s, nil
}

func probe(ctx context.Context, pool dbmanager.Pool, attempts uint) apperrors.Error {
	if attempts == 0 {
		attempts = 1
	}
	err := retry.Do(func() error {
		conn, err := pool.Conn(ctx)
		if err != nil {
			return err
		}
		defer conn.Close(ctx)
		if err := conn.Conn().PingContext(ctx); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("liveness probe failed")
			return dberror.ErrConnection.MsgErr("liveness probe failed", err)
		}
		return nil
	},
		retry.Attempts(attempts),
		retry.Delay(probeDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err == nil {
		return nil
	}
	var aerr apperrors.Error
	if errors.As(err, &aerr) && errors.Is(aerr, dberror.ErrConnection) {
		return aerr
	}
	return dberror.ErrConnection.Err(err)
}

func ensureFile(ctx context.Context, path string) {
	if _, err := os.Stat(path); err == nil {
		return
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("file", path).Msg("unable to create database file")
		return
	}
	f.Close()
}

// createTables is intentionally empty: the schema is managed outside the store.
// See ApplySchema for an explicit operator action.
func (s *Store) createTables(ctx context.Context) apperrors.Error {
	return nil
}

// AcquireConn borrows a connection from the pool. The caller must Close it.
func (s *Store) AcquireConn(ctx context.Context) (dbmanager.PooledConn, apperrors.Error) {
	return s.pool.Conn(logtrace.WithOp(ctx, "acquire_conn"))
}

// Dialect returns the dialect of the underlying engine.
func (s *Store) Dialect() dbmanager.Dialect {
	return s.dialect
}

// Stats returns a snapshot of pool usage.
func (s *Store) Stats() dbmanager.Stats {
	return s.pool.Stats()
}

// Close closes the pool. Operations after Close fail with dberror.ErrConnection.
func (s *Store) Close() error {
	return s.pool.Close()
}

// opContext tags the logger with op and applies the configured query timeout.
func (s *Store) opContext(ctx context.Context, op string) (context.Context, context.CancelFunc) {
	ctx = logtrace.WithOp(ctx, op)
	if s.queryTimeout > 0 {
		return context.WithTimeout(ctx, s.queryTimeout)
	}
	return context.WithCancel(ctx)
}
