package dberror

import (
	"github.com/tansive/peerstore/internal/common/apperrors"
)

// Exit codes used by the CLI for each error family.
const (
	ExitDatabase    = 2
	ExitConnection  = 3
	ExitQuery       = 4
	ExitTransaction = 5
	ExitInvalid     = 6
	ExitNotFound    = 7
)

var (
	ErrDatabase      apperrors.Error = apperrors.New("db error").SetExpandError(true).SetExitCode(ExitDatabase)
	ErrConnection    apperrors.Error = ErrDatabase.New("connection error").SetExitCode(ExitConnection)
	ErrPoolExhausted apperrors.Error = ErrConnection.New("connection pool exhausted")
	ErrQuery         apperrors.Error = ErrDatabase.New("query error").SetExitCode(ExitQuery)
	ErrNotFound      apperrors.Error = ErrQuery.New("not found").SetExitCode(ExitNotFound)
	ErrAlreadyExists apperrors.Error = ErrQuery.New("already exists")
	ErrTransaction   apperrors.Error = ErrDatabase.New("transaction error").SetExitCode(ExitTransaction)
	ErrInvalidInput  apperrors.Error = ErrDatabase.New("invalid input").SetExitCode(ExitInvalid)
)
