package htlc

import (
	"crypto/sha256"
	"crypto/subtle"
)

// VerifyPreimage reports whether SHA-256(candidate) equals
// paymentHash, using a constant-time comparison so that timing does
// not leak how many leading bytes of a guessed preimage were correct.
// It does not mutate any state; callers are responsible for applying
// the resulting state transition only when this returns true.
func VerifyPreimage(paymentHash PaymentHash, candidate Preimage) bool {
	sum := sha256.Sum256(candidate[:])
	return subtle.ConstantTimeCompare(sum[:], paymentHash[:]) == 1
}
