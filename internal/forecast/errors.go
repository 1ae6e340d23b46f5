package forecast

import "errors"

var (
	// ErrUnknownVariable is returned for a variable id outside the catalogue.
	ErrUnknownVariable = errors.New("unknown variable")
	// ErrOutOfRange is returned for a day index outside [0, NumDays).
	ErrOutOfRange = errors.New("day index out of range")
	// ErrShapeMismatch is returned when values do not fit the lat/lon axes.
	ErrShapeMismatch = errors.New("grid shape mismatch")
	// ErrMissingField is returned when the source lacks a required field.
	ErrMissingField = errors.New("missing field")
)
