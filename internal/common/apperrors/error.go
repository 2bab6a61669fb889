// Package apperrors provides chainable errors for the peer store. An Error carries a
// message, the sentinel it was derived from and any causes attached to it, so callers
// can classify failures with errors.Is while the original driver error stays reachable.
package apperrors

// Error is the error type returned across package boundaries. Every method returns a
// new Error and leaves the receiver untouched, so sentinels can be shared freely.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // derives a fresh error from the receiver
	Msg(msg string) Error                  // new message, receiver kept in the chain
	MsgErr(msg string, err ...error) Error // new message plus extra causes
	Err(err ...error) Error                // same message plus extra causes
	SetExpandError(bool) Error             // ErrorAll includes causes when set
	SetExitCode(int) Error                 // process exit code used by the CLI
	ExitCode() int
	Prefix(string) Error
	Suffix(string) Error
	ErrorAll() string   // message followed by the messages of all causes
	UnwrapAll() []error // all causes in the order they were attached
}
