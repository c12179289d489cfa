package lnclient

import (
	"encoding/hex"
	"fmt"

	"github.com/lightninglabs/rgbln-swap/htlc"
)

// Invoice is the caller-supplied RGB-LN invoice description used when
// constructing an HTLC offer. It mirrors the wire LnInvoice DTO.
type Invoice struct {
	PaymentHash string `json:"payment_hash"`
	AmountAsset uint64 `json:"amount_asset"`
	AssetId     string `json:"asset_id"`
	Description string `json:"description"`
	Expiry      uint64 `json:"expiry"`
}

// DecodeInvoiceResponse is the response of POST /decodelninvoice.
type DecodeInvoiceResponse struct {
	PaymentHash string  `json:"payment_hash"`
	AmtMsat     uint64  `json:"amt_msat"`
	ExpiresAt   *uint64 `json:"expires_at,omitempty"`
}

// PaymentStatusKind is the tagged-variant discriminator for a
// payment's terminal/non-terminal status.
type PaymentStatusKind string

const (
	PaymentSucceeded PaymentStatusKind = "Succeeded"
	PaymentPending   PaymentStatusKind = "Pending"
	PaymentFailed    PaymentStatusKind = "Failed"
)

// PayInvoiceResponse is the response of POST /sendpayment.
type PayInvoiceResponse struct {
	Status        PaymentStatusKind `json:"status"`
	PaymentHash   string            `json:"payment_hash"`
	PaymentSecret string            `json:"payment_secret"`
}

// PaymentDetails is the `payment` object nested in the response of
// POST /getpayment.
type PaymentDetails struct {
	AmtMsat      uint64            `json:"amt_msat"`
	AssetAmount  uint64            `json:"asset_amount"`
	AssetId      string            `json:"asset_id"`
	PaymentHash  string            `json:"payment_hash"`
	Inbound      bool              `json:"inbound"`
	Status       PaymentStatusKind `json:"status"`
	CreatedAt    uint64            `json:"created_at"`
	UpdatedAt    uint64            `json:"updated_at"`
	PayeePubkey  string            `json:"payee_pubkey"`
	PreimageHex  *string           `json:"preimage,omitempty"`
}

// GetPaymentResponse is the response of POST /getpayment.
type GetPaymentResponse struct {
	Payment PaymentDetails `json:"payment"`
}

// Preimage returns the verified-length preimage reported by the node.
// It returns ErrProtocol if the node reports Succeeded without a
// preimage (spec.md §9's mandated anomaly), or ErrParse if a present
// preimage field is not valid 32-byte hex. Callers MUST still run the
// result through htlc.VerifyPreimage against the swap's payment hash
// before trusting it — this method only guards against a missing or
// malformed field, not a dishonest one.
func (d PaymentDetails) Preimage() (htlc.Preimage, error) {
	if d.PreimageHex == nil {
		if d.Status == PaymentSucceeded {
			return htlc.Preimage{}, ErrProtocol
		}
		return htlc.Preimage{}, fmt.Errorf("%w: payment status %q has no preimage", ErrParse, d.Status)
	}

	raw, err := hex.DecodeString(*d.PreimageHex)
	if err != nil || len(raw) != 32 {
		return htlc.Preimage{}, fmt.Errorf("%w: preimage field is not 32-byte hex", ErrParse)
	}

	var p htlc.Preimage
	copy(p[:], raw)
	return p, nil
}
