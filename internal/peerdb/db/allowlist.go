package db

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/tansive/peerstore/internal/common/apperrors"
	"github.com/tansive/peerstore/internal/peerdb/db/dberror"
)

// ExistsInRelayAllowList reports whether identifier is on the relay allow-list.
func (s *Store) ExistsInRelayAllowList(ctx context.Context, identifier string) (bool, apperrors.Error) {
	ctx, cancel := s.opContext(ctx, "exists_in_relay_allow_list")
	defer cancel()

	conn, aerr := s.pool.Conn(ctx)
	if aerr != nil {
		return false, aerr
	}
	defer conn.Close(ctx)

	var count int64
	query := conn.Rebind(`SELECT COUNT(*) FROM allow_relay_list WHERE identifier = ?`)
	if err := conn.Conn().QueryRowContext(ctx, query, identifier).Scan(&count); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to query relay allow-list")
		return false, dberror.ErrQuery.MsgErr("failed to query relay allow-list", err)
	}
	return count > 0, nil
}
