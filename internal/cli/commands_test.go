package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tansive/peerstore/internal/common/apperrors"
	"github.com/tansive/peerstore/internal/peerdb/config"
	"github.com/tansive/peerstore/internal/peerdb/db/dberror"
	"gopkg.in/yaml.v3"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func newTestDB(t *testing.T) string {
	t.Helper()
	t.Setenv(config.EnvDatabaseURL, "")
	t.Setenv(config.EnvLogLevel, "error")
	url := "sqlite://" + filepath.Join(t.TempDir(), "peers.db")
	_, err := runCmd(t, "schema", "--apply", "--url", url)
	require.NoError(t, err)
	return url
}

func TestPeerCommands(t *testing.T) {
	url := newTestDB(t)

	out, err := runCmd(t, "insert", "100", "--url", url, "--pk", "cHVibGljLWtleQ==", "--info", `{"os":"linux"}`, "-o", "json")
	require.NoError(t, err)
	var inserted map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &inserted))
	guid := inserted["guid"]
	require.Len(t, guid, 36)
	assert.Equal(t, "100", inserted["id"])

	out, err = runCmd(t, "get", "100", "--url", url, "-o", "json")
	require.NoError(t, err)
	var view peerView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, guid, view.Guid)
	assert.Equal(t, "cHVibGljLWtleQ==", view.PK)
	assert.Equal(t, `{"os":"linux"}`, view.Info)

	out, err = runCmd(t, "get", "--guid", guid, "--url", url, "-o", "yaml")
	require.NoError(t, err)
	view = peerView{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &view))
	assert.Equal(t, "100", view.ID)

	out, err = runCmd(t, "update-pk", guid, "200", "--url", url, "--pk", "bmV3LWtleQ==")
	require.NoError(t, err)
	assert.Contains(t, out, "peer key updated")

	out, err = runCmd(t, "get", "200", "--url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "pk:     bmV3LWtleQ==")
	assert.Contains(t, out, "guid:   "+guid)

	out, err = runCmd(t, "update", guid, "--url", url, "--payload", `{"note":"office"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "peer updated")

	out, err = runCmd(t, "update", guid, "--url", url, "--payload", `{"note":"  "}`)
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to update")

	out, err = runCmd(t, "update", guid, "--url", url, "--payload", `{"note":7,"Note":"x","alias":"y"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to update")
}

func TestGetMissingPeer(t *testing.T) {
	url := newTestDB(t)

	_, err := runCmd(t, "get", "nobody", "--url", url)
	require.Error(t, err)
	assert.ErrorIs(t, err, dberror.ErrNotFound)
	assert.EqualError(t, err, "peer not found: nobody")
	assert.Equal(t, dberror.ExitNotFound, apperrors.ExitCodeOf(err, 1))
}

func TestInvalidInput(t *testing.T) {
	url := newTestDB(t)

	_, err := runCmd(t, "update", "not-a-guid", "--url", url)
	assert.ErrorIs(t, err, dberror.ErrInvalidInput)

	_, err = runCmd(t, "insert", "1", "--url", url, "--pk", "***")
	assert.ErrorIs(t, err, dberror.ErrInvalidInput)

	_, err = runCmd(t, "update", "3f1c2a8e-6a1b-4c47-9b0c-2b8f5d1e7a90", "--url", url, "--payload", "[1]")
	assert.ErrorIs(t, err, dberror.ErrInvalidInput)
	assert.Equal(t, dberror.ExitInvalid, apperrors.ExitCodeOf(err, 1))

	_, err = runCmd(t, "get", "1", "--url", url, "-o", "xml")
	assert.ErrorContains(t, err, "unsupported output format")
}

func TestAllowedCommand(t *testing.T) {
	url := newTestDB(t)

	out, err := runCmd(t, "allowed", "x", "--url", url, "-o", "json")
	require.NoError(t, err)
	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, false, result["allowed"])
	assert.Equal(t, "x", result["identifier"])

	out, err = runCmd(t, "allowed", "x", "--url", url)
	require.NoError(t, err)
	assert.Contains(t, out, "not allowed: x")
}

func TestSchemaCommand(t *testing.T) {
	t.Setenv(config.EnvDatabaseURL, "")

	out, err := runCmd(t, "schema", "--dialect", "mysql")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS peer")
	assert.Contains(t, out, "`user` BINARY(16) NULL")

	out, err = runCmd(t, "schema", "--url", "postgres://u@localhost/peers", "-o", "json")
	require.NoError(t, err)
	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "postgresql", result["dialect"])

	_, err = runCmd(t, "schema", "--dialect", "oracle")
	assert.Error(t, err)
}

func TestPingCommand(t *testing.T) {
	url := newTestDB(t)

	out, err := runCmd(t, "ping", "--url", url, "-o", "json")
	require.NoError(t, err)
	var result struct {
		Dialect string `json:"dialect"`
		Pool    struct {
			Requests uint64 `json:"requests"`
			Returns  uint64 `json:"returns"`
		} `json:"pool"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "sqlite", result.Dialect)
	assert.Equal(t, result.Pool.Requests, result.Pool.Returns)

	_, err = runCmd(t, "ping", "--url", "redis://localhost")
	assert.ErrorIs(t, err, dberror.ErrConnection)
}
