package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tansive/peerstore/internal/common/apperrors"
	"github.com/tansive/peerstore/internal/common/uuid"
	"github.com/tansive/peerstore/internal/peerdb/db/dberror"
	"github.com/tansive/peerstore/internal/peerdb/db/models"
)

const guidLen = 16

func (s *Store) peerColumns() string {
	return fmt.Sprintf("guid, id, uuid, pk, %s, status, info", s.dialect.Quote("user"))
}

// GetPeer returns the peer whose id equals id, or nil when there is none.
// Ids are not unique; when several rows match, one of them is returned.
func (s *Store) GetPeer(ctx context.Context, id string) (*models.Peer, apperrors.Error) {
	ctx, cancel := s.opContext(ctx, "get_peer")
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM peer WHERE id = ? LIMIT 1`, s.peerColumns())
	return s.getPeer(ctx, query, id)
}

// GetPeerByGuid returns the peer with the given guid, or nil when there is none.
func (s *Store) GetPeerByGuid(ctx context.Context, guid []byte) (*models.Peer, apperrors.Error) {
	ctx, cancel := s.opContext(ctx, "get_peer_by_guid")
	defer cancel()

	if len(guid) != guidLen {
		return nil, dberror.ErrInvalidInput.Msg("guid must be 16 bytes")
	}
	query := fmt.Sprintf(`SELECT %s FROM peer WHERE guid = ?`, s.peerColumns())
	return s.getPeer(ctx, query, guid)
}

func (s *Store) getPeer(ctx context.Context, query string, arg any) (*models.Peer, apperrors.Error) {
	conn, aerr := s.pool.Conn(ctx)
	if aerr != nil {
		return nil, aerr
	}
	defer conn.Close(ctx)

	var (
		peer   models.Peer
		info   sql.NullString
		status sql.NullInt64
	)
	err := conn.Conn().QueryRowContext(ctx, conn.Rebind(query), arg).
		Scan(&peer.Guid, &peer.ID, &peer.UUID, &peer.PK, &peer.User, &status, &info)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to fetch peer")
		return nil, dberror.ErrQuery.MsgErr("failed to fetch peer", err)
	}

	peer.Info = info.String
	if status.Valid {
		v := status.Int64
		peer.Status = &v
	}
	return &peer, nil
}

// InsertPeer stores a new peer under a freshly generated guid and returns the guid.
// The user and status columns are left NULL. No check is made that id is unused.
func (s *Store) InsertPeer(ctx context.Context, id string, uuidBytes, pk []byte, info string) ([]byte, apperrors.Error) {
	ctx, cancel := s.opContext(ctx, "insert_peer")
	defer cancel()

	guid, err := uuid.NewGuid()
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to generate guid")
		return nil, dberror.ErrDatabase.MsgErr("failed to generate guid", err)
	}

	conn, aerr := s.pool.Conn(ctx)
	if aerr != nil {
		return nil, aerr
	}
	defer conn.Close(ctx)

	query := `INSERT INTO peer (guid, id, uuid, pk, info) VALUES (?, ?, ?, ?, ?)`
	_, err = conn.Conn().ExecContext(ctx, conn.Rebind(query), guid, id, nonNil(uuidBytes), nonNil(pk), info)
	if err != nil {
		if s.dialect.IsDuplicateKey(err) {
			log.Ctx(ctx).Error().Err(err).Str("guid", uuid.GuidString(guid)).Msg("guid collision")
			return nil, dberror.ErrAlreadyExists.MsgErr("peer already exists", err)
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to insert peer")
		return nil, dberror.ErrQuery.MsgErr("failed to insert peer", err)
	}
	return guid, nil
}

// UpdatePK replaces id, pk and info of the peer with the given guid. Updating a
// guid that does not exist succeeds without changing anything.
func (s *Store) UpdatePK(ctx context.Context, guid []byte, id string, pk []byte, info string) apperrors.Error {
	ctx, cancel := s.opContext(ctx, "update_pk")
	defer cancel()

	conn, aerr := s.pool.Conn(ctx)
	if aerr != nil {
		return aerr
	}
	defer conn.Close(ctx)

	query := `UPDATE peer SET id = ?, pk = ?, info = ? WHERE guid = ?`
	result, err := conn.Conn().ExecContext(ctx, conn.Rebind(query), id, nonNil(pk), info, guid)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to update peer key")
		return dberror.ErrQuery.MsgErr("failed to update peer key", err)
	}
	logNoMatch(ctx, result, guid)
	return nil
}

// UpdatePeer applies update to the peer with the given guid inside one transaction.
// Fields that are not set, and a note that is blank after trimming, are left alone.
func (s *Store) UpdatePeer(ctx context.Context, update models.PeerUpdate, guid []byte) (err apperrors.Error) {
	ctx, cancel := s.opContext(ctx, "update_peer")
	defer cancel()

	conn, aerr := s.pool.Conn(ctx)
	if aerr != nil {
		return aerr
	}
	defer conn.Close(ctx)

	tx, errStd := conn.Conn().BeginTx(ctx, nil)
	if errStd != nil {
		log.Ctx(ctx).Error().Err(errStd).Msg("failed to begin transaction")
		return dberror.ErrTransaction.MsgErr("failed to begin transaction", errStd)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				log.Ctx(ctx).Error().Err(rollbackErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if note, ok := update.NoteValue(); ok {
		result, errStd := tx.ExecContext(ctx, conn.Rebind(`UPDATE peer SET note = ? WHERE guid = ?`), note, guid)
		if errStd != nil {
			log.Ctx(ctx).Error().Err(errStd).Msg("failed to update peer note")
			return dberror.ErrQuery.MsgErr("failed to update peer note", errStd)
		}
		logNoMatch(ctx, result, guid)
	}

	if errStd := tx.Commit(); errStd != nil {
		log.Ctx(ctx).Error().Err(errStd).Msg("failed to commit transaction")
		return dberror.ErrTransaction.MsgErr("failed to commit transaction", errStd)
	}
	return nil
}

func logNoMatch(ctx context.Context, result sql.Result, guid []byte) {
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		log.Ctx(ctx).Debug().Str("guid", uuid.GuidString(guid)).Msg("no peer matched guid")
	}
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
