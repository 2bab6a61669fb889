package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tansive/peerstore/internal/common/apperrors"
	"github.com/tansive/peerstore/internal/peerdb/db/dberror"
	"github.com/tansive/peerstore/internal/peerdb/db/dbmanager"
)

// Schema returns the DDL statements the store expects to have been applied, one
// statement per element. Open never runs them.
func Schema(d dbmanager.Dialect) []string {
	user := d.Quote("user")
	switch d.Name() {
	case dbmanager.MySQL:
		return []string{
			`CREATE TABLE IF NOT EXISTS peer (
	guid BINARY(16) NOT NULL PRIMARY KEY,
	id VARCHAR(100) NOT NULL,
	uuid VARBINARY(255) NOT NULL,
	pk VARBINARY(1024) NOT NULL,
	` + user + ` BINARY(16) NULL,
	info TEXT NOT NULL,
	status BIGINT NULL,
	note VARCHAR(300) NULL,
	INDEX idx_peer_id (id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS allow_relay_list (
	identifier VARCHAR(100) NOT NULL,
	INDEX idx_allow_relay_list_identifier (identifier)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		}
	case dbmanager.PostgreSQL:
		return []string{
			`CREATE TABLE IF NOT EXISTS peer (
	guid BYTEA NOT NULL PRIMARY KEY,
	id TEXT NOT NULL,
	uuid BYTEA NOT NULL,
	pk BYTEA NOT NULL,
	` + user + ` BYTEA NULL,
	info TEXT NOT NULL,
	status BIGINT NULL,
	note TEXT NULL
)`,
			`CREATE INDEX IF NOT EXISTS idx_peer_id ON peer (id)`,
			`CREATE TABLE IF NOT EXISTS allow_relay_list (
	identifier TEXT NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS idx_allow_relay_list_identifier ON allow_relay_list (identifier)`,
		}
	default:
		return []string{
			`CREATE TABLE IF NOT EXISTS peer (
	guid BLOB NOT NULL PRIMARY KEY,
	id TEXT NOT NULL,
	uuid BLOB NOT NULL,
	pk BLOB NOT NULL,
	` + user + ` BLOB NULL,
	info TEXT NOT NULL,
	status INTEGER NULL,
	note TEXT NULL
)`,
			`CREATE INDEX IF NOT EXISTS idx_peer_id ON peer (id)`,
			`CREATE TABLE IF NOT EXISTS allow_relay_list (
	identifier TEXT NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS idx_allow_relay_list_identifier ON allow_relay_list (identifier)`,
		}
	}
}

// SchemaSQL renders Schema as a script.
func SchemaSQL(d dbmanager.Dialect) string {
	return strings.Join(Schema(d), ";\n\n") + ";\n"
}

// ApplySchema runs the DDL returned by Schema. Every statement is idempotent.
func (s *Store) ApplySchema(ctx context.Context) apperrors.Error {
	ctx, cancel := s.opContext(ctx, "apply_schema")
	defer cancel()

	conn, aerr := s.pool.Conn(ctx)
	if aerr != nil {
		return aerr
	}
	defer conn.Close(ctx)

	for i, stmt := range Schema(s.dialect) {
		if _, err := conn.Conn().ExecContext(ctx, stmt); err != nil {
			log.Ctx(ctx).Error().Err(err).Int("statement", i+1).Msg("failed to apply schema")
			return dberror.ErrQuery.MsgErr("failed to apply schema", err).Suffix(fmt.Sprintf("statement %d", i+1))
		}
	}
	return nil
}
