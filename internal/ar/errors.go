package ar

import "errors"

var (
	// ErrInvalidStreamID is returned when a stream id contains characters
	// that could cause path traversal (anything but [a-zA-Z0-9_-]).
	ErrInvalidStreamID = errors.New("ar: invalid stream id")

	// ErrStreamIDRequired is returned by Append when neither the event nor
	// the explicit stream id argument identifies the target stream.
	ErrStreamIDRequired = errors.New("ar: stream id must be specified either on the event or as an argument")

	// ErrLockTimeout is returned when the advisory file lock could not be
	// acquired within the configured timeout.
	ErrLockTimeout = errors.New("ar: timed out acquiring stream lock")
)
