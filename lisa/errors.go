package lisa

import "errors"

// Errors reported by archives and converters. They are wrapped with context
// and should be matched with errors.Is.
var (
	// ErrCorruptArchive means the store could not be opened or carries no
	// version tag.
	ErrCorruptArchive = errors.New("corrupt archive")

	ErrUnknownQuantity      = errors.New("unknown quantity")
	ErrRoleNotApplicable    = errors.New("role not applicable")
	ErrComponentUnavailable = errors.New("component unavailable")
	ErrParameterNotFound    = errors.New("parameter not found")

	// ErrNoUnitSpecified is returned for an explicitly empty unit. Use Raw
	// to ask for unscaled values.
	ErrNoUnitSpecified   = errors.New("no unit specified")
	ErrInvalidUnit       = errors.New("invalid unit")
	ErrIllegalConversion = errors.New("illegal conversion")
	ErrConversionFailure = errors.New("conversion failure")

	// ErrNodeNotFound is returned by a Store for a path that does not exist.
	ErrNodeNotFound = errors.New("node not found")
)
