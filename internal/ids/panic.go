package ids

import "github.com/pkg/errors"

// InvariantError wraps an internal invariant violation with a context
// message and the underlying cause, per spec §7 ("wraps an underlying
// cause with a context message, surfaced as a single PANIC"). Callers at
// the top of the build pass the resulting error's Error() string to
// logger.Log.AddPanic.
func InvariantError(context string, cause error) error {
	return errors.Wrapf(cause, "internal invariant violated: %s", context)
}

// Invariantf is InvariantError for call sites that have a message but no
// underlying Go error to wrap.
func Invariantf(format string, args ...any) error {
	return errors.Errorf("internal invariant violated: "+format, args...)
}
