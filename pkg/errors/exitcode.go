package errors

import "errors"

// Exit codes per error class, stable for scripting against the CLI.
const (
	ExitOK                 = 0
	ExitFailure            = 1
	ExitResolutionConflict = 2
	ExitNotFound           = 3
	ExitChecksumMismatch   = 4
	ExitTransactionIO      = 5
	ExitStateCorrupt       = 6
	ExitFileConflict       = 7
)

// ExitCode maps an error to the process exit code for its class.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrResolutionConflict):
		return ExitResolutionConflict
	case errors.Is(err, ErrPackageNotFound):
		return ExitNotFound
	case errors.Is(err, ErrChecksumMismatch):
		return ExitChecksumMismatch
	case errors.Is(err, ErrStateCorrupt):
		return ExitStateCorrupt
	case errors.Is(err, ErrTransactionIO):
		return ExitTransactionIO
	case errors.Is(err, ErrFileConflict):
		return ExitFileConflict
	default:
		return ExitFailure
	}
}
