package htlc

import "errors"

var (
	// ErrInvalidInput is returned when constructor arguments fail
	// validation: empty asset_id, zero amount, malformed hex, or an
	// invalid compressed public key.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidState is returned when a mutation is attempted that
	// is not a legal transition from the record's current status.
	ErrInvalidState = errors.New("invalid state transition")
)
