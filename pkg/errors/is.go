package errors

import "errors"

// Is reports whether any error in err's chain matches target. Re-exported
// so callers of this package do not need a second errors import.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool { return errors.As(err, target) }
