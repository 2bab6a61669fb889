package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tansive/peerstore/internal/peerdb/db/dberror"
)

func TestExistsInRelayAllowList(t *testing.T) {
	ctx, s := newStore(t)

	ok, err := s.ExistsInRelayAllowList(ctx, "x")
	require.Nil(t, err)
	assert.False(t, ok)

	conn, err := s.AcquireConn(ctx)
	require.Nil(t, err)
	for i := 0; i < 2; i++ {
		_, errStd := conn.Conn().ExecContext(ctx, conn.Rebind("INSERT INTO allow_relay_list (identifier) VALUES (?)"), "x")
		require.NoError(t, errStd)
	}
	conn.Close(ctx)

	ok, err = s.ExistsInRelayAllowList(ctx, "x")
	require.Nil(t, err)
	assert.True(t, ok)

	ok, err = s.ExistsInRelayAllowList(ctx, "y")
	require.Nil(t, err)
	assert.False(t, ok)
}

func TestExistsInRelayAllowListWithoutSchema(t *testing.T) {
	ctx, s := newStore(t, true)

	_, err := s.ExistsInRelayAllowList(ctx, "x")
	require.NotNil(t, err)
	assert.ErrorIs(t, err, dberror.ErrQuery)
}
