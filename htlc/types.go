// Package htlc implements the dual-path hash-time-locked contract that
// binds an on-chain RGB asset output to the payment hash of an
// off-chain Lightning invoice.
package htlc

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/lntypes"
)

// PaymentHash is the SHA-256 of a 32-byte preimage. It is the shared
// identity between the on-chain HTLC and the off-chain LN invoice.
type PaymentHash = lntypes.Hash

// Preimage is the 32-byte secret revealed by LN settlement. Its
// SHA-256 must equal the PaymentHash it redeems.
type Preimage = lntypes.Preimage

// SwapId is the deterministic identifier of a swap, defined as
// SHA-256(PaymentHash) rendered as lowercase hex. It is stable for the
// life of the swap and suitable as a map key.
type SwapId string

// DeriveSwapId computes the SwapId for a given payment hash.
func DeriveSwapId(paymentHash PaymentHash) SwapId {
	sum := chainhash.HashB(paymentHash[:])
	return SwapId(hex.EncodeToString(sum))
}

// ParsePaymentHash validates that hexStr decodes to exactly 32 bytes
// and returns the resulting PaymentHash.
func ParsePaymentHash(hexStr string) (PaymentHash, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return PaymentHash{}, fmt.Errorf("%w: payment_hash is not valid hex: %v",
			ErrInvalidInput, err)
	}
	if len(raw) != 32 {
		return PaymentHash{}, fmt.Errorf("%w: payment_hash must be 32 bytes, got %d",
			ErrInvalidInput, len(raw))
	}
	var h PaymentHash
	copy(h[:], raw)
	return h, nil
}

// Status is the lifecycle state of an HtlcRecord.
type Status uint8

const (
	// StatusCreated is the initial state immediately after
	// construction, before an RGB scripted-receive invoice exists.
	StatusCreated Status = iota

	// StatusAwaitingFunding is entered once a recipient_id has been
	// assigned and the coordinator is waiting for the user to fund
	// the HTLC on-chain.
	StatusAwaitingFunding

	// StatusFunded is entered once the wallet facade reports a
	// settled transfer matching the HTLC's recipient_id, asset_id,
	// and amount.
	StatusFunded

	// StatusPaymentInProgress is entered while the LP's LN payment
	// to the counterparty's invoice is outstanding.
	StatusPaymentInProgress

	// StatusClaimed is terminal: the preimage has been verified and
	// the on-chain claim path may be spent.
	StatusClaimed

	// StatusRefunded is terminal: the operator has reclaimed the
	// funds via the timelock path.
	StatusRefunded

	// StatusExpired means the HTLC never became funded within its
	// invoice expiry window. The only transition out of it is the
	// operator's MarkRefunded.
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "Created"
	case StatusAwaitingFunding:
		return "AwaitingFunding"
	case StatusFunded:
		return "Funded"
	case StatusPaymentInProgress:
		return "PaymentInProgress"
	case StatusClaimed:
		return "Claimed"
	case StatusRefunded:
		return "Refunded"
	case StatusExpired:
		return "Expired"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// DefaultTimelockBlocks is the default relative CSV delay applied to
// the refund path when the caller does not override it.
const DefaultTimelockBlocks uint32 = 144
