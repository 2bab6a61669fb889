// Package dbmanager owns the database connection pool. It hands out single
// connections, applies per-session parameters and keeps request/return counters so
// leaked connections show up in Stats.
package dbmanager

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/tansive/peerstore/internal/common/apperrors"
	"github.com/tansive/peerstore/internal/peerdb/config"
	"github.com/tansive/peerstore/internal/peerdb/db/dberror"
)

// Pool is a bounded set of reusable connections shared by concurrent callers.
type Pool interface {
	// Conn borrows a connection. The caller must Close it.
	Conn(ctx context.Context) (PooledConn, apperrors.Error)
	Dialect() Dialect
	Stats() Stats
	// Close closes the pool; borrowed connections are closed when returned.
	Close() error
}

// PooledConn is a connection borrowed from a Pool. It is not safe for concurrent use.
type PooledConn interface {
	// Conn returns the underlying *sql.Conn. Do not close this directly.
	Conn() *sql.Conn
	Dialect() Dialect
	// Rebind converts '?' placeholders for the pool's dialect.
	Rebind(query string) string
	// Close returns the connection to the pool. Calling it more than once is harmless.
	Close(ctx context.Context)
}

// Stats is a snapshot of pool usage.
type Stats struct {
	Requests        uint64 `json:"requests" yaml:"requests"`
	Returns         uint64 `json:"returns" yaml:"returns"`
	MaxOpen         int    `json:"max_open" yaml:"max_open"`
	OpenConnections int    `json:"open_connections" yaml:"open_connections"`
	InUse           int    `json:"in_use" yaml:"in_use"`
	Idle            int    `json:"idle" yaml:"idle"`
	WaitCount       int64  `json:"wait_count" yaml:"wait_count"`
}

type sqlPool struct {
	db           *sql.DB
	dialect      Dialect
	opts         config.PoolConfig
	connRequests uint64
	connReturns  uint64
}

type sqlConn struct {
	conn     *sql.Conn
	pool     *sqlPool
	closeOne sync.Once
}

// NewPool opens a pool for target. No connection is made until the first Conn call.
func NewPool(ctx context.Context, target Target, opts config.PoolConfig) (Pool, apperrors.Error) {
	db, err := sql.Open(target.Dialect.DriverName(), target.DSN)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("dialect", target.Dialect.Name()).Msg("failed to open db")
		return nil, dberror.ErrConnection.MsgErr("failed to open database", err)
	}

	if target.Memory {
		opts.MaxOpenConns = 1
		opts.MaxIdleConns = 1
		opts.ConnMaxLifetime = 0
		opts.ConnMaxIdleTime = 0
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	return &sqlPool{
		db:      db,
		dialect: target.Dialect,
		opts:    opts,
	}, nil
}

func (p *sqlPool) Dialect() Dialect {
	return p.dialect
}

// Conn borrows a connection, waiting at most AcquireTimeout when one is configured.
func (p *sqlPool) Conn(ctx context.Context) (PooledConn, apperrors.Error) {
	acquireCtx := ctx
	if p.opts.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, p.opts.AcquireTimeout)
		defer cancel()
	}

	conn, err := p.db.Conn(acquireCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			log.Ctx(ctx).Error().Err(err).Dur("acquire_timeout", p.opts.AcquireTimeout).Msg("timed out waiting for connection")
			return nil, dberror.ErrPoolExhausted.Err(err)
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to obtain connection")
		return nil, dberror.ErrConnection.MsgErr("failed to obtain database connection", err)
	}

	for _, stmt := range p.dialect.SessionParams(p.opts.StatementTimeout) {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			conn.Close()
			log.Ctx(ctx).Error().Err(err).Str("stmt", stmt).Msg("failed to set session parameter")
			return nil, dberror.ErrConnection.MsgErr("failed to initialize session", err)
		}
	}

	atomic.AddUint64(&p.connRequests, 1)
	return &sqlConn{conn: conn, pool: p}, nil
}

func (p *sqlPool) Stats() Stats {
	s := p.db.Stats()
	return Stats{
		Requests:        atomic.LoadUint64(&p.connRequests),
		Returns:         atomic.LoadUint64(&p.connReturns),
		MaxOpen:         s.MaxOpenConnections,
		OpenConnections: s.OpenConnections,
		InUse:           s.InUse,
		Idle:            s.Idle,
		WaitCount:       s.WaitCount,
	}
}

func (p *sqlPool) Close() error {
	return p.db.Close()
}

func (c *sqlConn) Conn() *sql.Conn {
	return c.conn
}

func (c *sqlConn) Dialect() Dialect {
	return c.pool.dialect
}

func (c *sqlConn) Rebind(query string) string {
	return c.pool.dialect.Rebind(query)
}

func (c *sqlConn) Close(ctx context.Context) {
	c.closeOne.Do(func() {
		if err := c.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			log.Ctx(ctx).Error().Err(err).Msg("failed to return connection")
		}
		atomic.AddUint64(&c.pool.connReturns, 1)
	})
}
