package apperrors

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	t.Run("sentinel chain", func(t *testing.T) {
		ErrBase := New("base error")
		assert.Equal(t, "base error", ErrBase.Error())
		assert.Equal(t, "msg", ErrBase.New("msg").Error())
		assert.ErrorIs(t, ErrBase, ErrBase)

		ErrFirst := ErrBase.New("first level")
		assert.Equal(t, "first level", ErrFirst.Error())
		assert.ErrorIs(t, ErrFirst, ErrBase)
		assert.NotErrorIs(t, ErrBase, ErrFirst)

		ErrOther := New("another error")
		wrapped := ErrFirst.Err(ErrOther.Msg("another error msg"))
		assert.Equal(t, "first level", wrapped.Error())
		assert.ErrorIs(t, wrapped, ErrBase)
		assert.ErrorIs(t, wrapped, ErrFirst)
		assert.ErrorIs(t, wrapped, ErrOther)
	})

	t.Run("driver causes", func(t *testing.T) {
		ErrQuery := New("query failed")
		cause := errors.Wrap(sql.ErrConnDone, "exec")
		err := ErrQuery.Msg("unable to insert peer").Err(cause)

		assert.Equal(t, "unable to insert peer", err.Error())
		assert.ErrorIs(t, err, ErrQuery)
		assert.ErrorIs(t, err, sql.ErrConnDone)

		goErr := fmt.Errorf("plain")
		err = ErrQuery.MsgErr("msg", goErr, nil)
		assert.Equal(t, "msg", err.Error())
		assert.ErrorIs(t, err, goErr)
		assert.Len(t, err.UnwrapAll(), 2)
	})

	t.Run("causes survive derivation", func(t *testing.T) {
		ErrQuery := New("query failed")
		cause := fmt.Errorf("boom")
		err := ErrQuery.Err(cause).Msg("outer")
		assert.ErrorIs(t, err, cause)
	})

	t.Run("as reaches attached cause", func(t *testing.T) {
		type codeErr struct{ error }
		cause := codeErr{fmt.Errorf("code 1062")}
		err := New("query failed").Err(cause)

		var target codeErr
		require.True(t, errors.As(err, &target))
		assert.Equal(t, "code 1062", target.Error())
	})

	t.Run("expand and decorate", func(t *testing.T) {
		ErrDb := New("db error").SetExpandError(true)
		err := ErrDb.New("query failed").Err(fmt.Errorf("syntax error"))
		assert.Equal(t, "query failed; syntax error", err.ErrorAll())
		assert.Equal(t, "query failed", New("query failed").Err(fmt.Errorf("x")).ErrorAll())

		assert.Equal(t, "peer: query failed", ErrDb.New("query failed").Prefix("peer").Error())
		assert.Equal(t, "query failed: abc", ErrDb.New("query failed").Suffix("abc").Error())
	})

	t.Run("exit codes", func(t *testing.T) {
		ErrConn := New("connection failed").SetExitCode(3)
		derived := ErrConn.New("pool exhausted")
		assert.Equal(t, 3, derived.ExitCode())
		assert.Equal(t, 3, ExitCodeOf(derived, 1))
		assert.Equal(t, 3, ExitCodeOf(fmt.Errorf("wrapped: %w", derived), 1))
		assert.Equal(t, 1, ExitCodeOf(fmt.Errorf("plain"), 1))
		assert.Equal(t, 1, ExitCodeOf(New("no code"), 1))
	})
}
