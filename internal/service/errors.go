package service

import "errors"

// Error classes surfaced to handlers, which map them to HTTP status via
// errors.Is. Wrapped messages carry the detail.
var (
	// ErrValidation covers bad input: missing fields, mismatched
	// password confirmation, duplicate ids, out-of-set rubric values.
	ErrValidation = errors.New("validation error")

	// ErrPermission covers acting outside one's role or failing a
	// re-authentication check. The operation is aborted with no
	// partial mutation.
	ErrPermission = errors.New("permission denied")

	// ErrPolicy covers legal requests against records in a state that
	// forbids them, such as editing a terminal suggestion.
	ErrPolicy = errors.New("policy violation")

	// ErrNotFound covers missing records and unknown or expired
	// confirmation tokens.
	ErrNotFound = errors.New("not found")

	// ErrConflict covers duplicate creation.
	ErrConflict = errors.New("conflict")
)
