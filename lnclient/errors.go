package lnclient

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork is returned for transport-level failures: dial
	// errors, timeouts, context cancellation. Retryable.
	ErrNetwork = errors.New("ln node network error")

	// ErrParse is returned when a 2xx response body does not match
	// the expected schema. Indicates a bug or a node/client version
	// skew, never a transient condition.
	ErrParse = errors.New("ln node response parse error")

	// ErrProtocol is returned when the remote node reports a
	// Succeeded payment status without a preimage. A well-behaved
	// node never does this; treat it as an alarm, not a retry signal.
	ErrProtocol = errors.New("ln node protocol violation: succeeded payment missing preimage")
)

// RemoteError wraps a non-2xx HTTP response from the LN node, carrying
// both the status code and the raw response body so callers can
// inspect node-specific error text.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("ln node returned status %d: %s", e.StatusCode, e.Body)
}

// Is allows errors.Is(err, ErrRemote)-style matching against the
// sentinel below without callers needing the concrete status/body.
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}

// ErrRemote is the sentinel matched by errors.Is against any
// *RemoteError, regardless of its status code or body.
var ErrRemote = errors.New("ln node returned non-2xx status")
