package coordinator

import (
	"errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// ErrKind enumerates the coordinator's error taxonomy. Every error a
// Coordinator swap operation returns is, or wraps, one of these
// sentinels so callers can dispatch with errors.Is; New's config
// errors are plain errors.
type ErrKind uint8

const (
	KindNotFound ErrKind = iota
	KindDuplicate
	KindInvalidInput
	KindInvalidState
	KindHashMismatch
	KindInvalidPreimage
	KindNetwork
	KindRemoteError
	KindParseError
	KindPaymentFailed
	KindPaymentPending
	KindProtocolError
	KindWalletError
)

func (k ErrKind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindDuplicate:
		return "Duplicate"
	case KindInvalidInput:
		return "InvalidInput"
	case KindInvalidState:
		return "InvalidState"
	case KindHashMismatch:
		return "HashMismatch"
	case KindInvalidPreimage:
		return "InvalidPreimage"
	case KindNetwork:
		return "Network"
	case KindRemoteError:
		return "RemoteError"
	case KindParseError:
		return "ParseError"
	case KindPaymentFailed:
		return "PaymentFailed"
	case KindPaymentPending:
		return "PaymentPending"
	case KindProtocolError:
		return "ProtocolError"
	case KindWalletError:
		return "WalletError"
	default:
		return "Unknown"
	}
}

var (
	ErrNotFound         = errors.New("swap not found")
	ErrDuplicate        = errors.New("swap already active")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidState     = errors.New("operation not legal for current swap state")
	ErrHashMismatch     = errors.New("ln invoice payment_hash does not match htlc payment_hash")
	ErrInvalidPreimage  = errors.New("preimage does not verify against payment_hash")
	ErrNetwork          = errors.New("ln node transport error")
	ErrRemoteError      = errors.New("ln node returned non-2xx status")
	ErrParseError       = errors.New("ln node response did not match schema")
	ErrPaymentFailed    = errors.New("ln payment failed")
	ErrPaymentPending   = errors.New("ln payment has not reached a terminal state")
	ErrProtocolError    = errors.New("ln node reported succeeded without a preimage")
	ErrWalletError      = errors.New("rgb wallet operation failed")
)

func sentinelFor(kind ErrKind) error {
	switch kind {
	case KindNotFound:
		return ErrNotFound
	case KindDuplicate:
		return ErrDuplicate
	case KindInvalidInput:
		return ErrInvalidInput
	case KindInvalidState:
		return ErrInvalidState
	case KindHashMismatch:
		return ErrHashMismatch
	case KindInvalidPreimage:
		return ErrInvalidPreimage
	case KindNetwork:
		return ErrNetwork
	case KindRemoteError:
		return ErrRemoteError
	case KindParseError:
		return ErrParseError
	case KindPaymentFailed:
		return ErrPaymentFailed
	case KindPaymentPending:
		return ErrPaymentPending
	case KindProtocolError:
		return ErrProtocolError
	case KindWalletError:
		return ErrWalletError
	default:
		return errors.New("unknown coordinator error")
	}
}

// Error is the coordinator's public error type. It carries a
// stack-captured cause via go-errors so operators can log a useful
// trace, while still unwrapping to the plain sentinel for errors.Is
// matching by callers that don't care about the trace.
type Error struct {
	Kind  ErrKind
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return sentinelFor(e.Kind)
}

// newErr builds an *Error, wrapping cause (if any) with go-errors so
// the resulting value carries a captured stack trace.
func newErr(kind ErrKind, msg string, cause error) *Error {
	var wrapped error
	if cause != nil {
		wrapped = goerrors.WrapPrefix(cause, msg, 1)
	}
	return &Error{Kind: kind, Msg: msg, cause: wrapped}
}
