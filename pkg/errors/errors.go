// Package errors defines the error taxonomy shared across the application
// and helpers for wrapping errors with context. Callers classify errors with
// errors.Is against the sentinels below; the CLI maps them to exit codes.
package errors

import "fmt"

// Common error types.
var (
	// ErrPackageNotFound is returned when a requested or dependency name is
	// absent from every configured index.
	ErrPackageNotFound = fmt.Errorf("package not found")

	// ErrResolutionConflict is returned when the version constraints of a
	// request are unsatisfiable. It is always wrapped by a ConflictError
	// carrying the conflicting constraint set.
	ErrResolutionConflict = fmt.Errorf("resolution conflict")

	// ErrFileConflict is returned when two packages would own the same path,
	// or when a removal is blocked by a remaining dependent.
	ErrFileConflict = fmt.Errorf("file conflict")

	// ErrChecksumMismatch is returned when a fetched artifact or a staged
	// file fails integrity verification.
	ErrChecksumMismatch = fmt.Errorf("checksum mismatch")

	// ErrTransactionIO is returned on filesystem failures during staging or
	// committing; the transaction rolls back before it is surfaced.
	ErrTransactionIO = fmt.Errorf("transaction I/O failure")

	// ErrStateCorrupt is returned when the state store is unreadable or
	// inconsistent with the actual filesystem contents. Mutating operations
	// refuse to run until the state is reconciled.
	ErrStateCorrupt = fmt.Errorf("state store corrupt")

	// Config errors.
	ErrEmptyConfigPath = fmt.Errorf("config file path cannot be empty")
	ErrConfigParse     = fmt.Errorf("failed to parse config")
	ErrInvalidPath     = fmt.Errorf("invalid path")

	// ErrValidation covers malformed user input (names, constraints).
	ErrValidation = fmt.Errorf("validation failed")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
