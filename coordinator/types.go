package coordinator

import "github.com/lightninglabs/rgbln-swap/htlc"

// Offer is returned by CreateAtomicSwap: everything the user needs to
// fund the HTLC and track the swap.
type Offer struct {
	SwapId         htlc.SwapId `json:"swap_id"`
	HtlcAddress    string      `json:"htlc_address"`
	RecipientId    string      `json:"recipient_id"`
	RgbInvoice     string      `json:"rgb_invoice"`
	PaymentHash    string      `json:"payment_hash"`
	TimelockBlocks uint32      `json:"timelock_blocks"`
}

// FundingStatus is the result of CheckHtlcFunding.
type FundingStatus string

const (
	FundingPending FundingStatus = "Pending"
	FundingFunded  FundingStatus = "Funded"
)

// PaymentResult is returned by PayInvoice.
type PaymentResult struct {
	Success  bool    `json:"success"`
	Preimage *string `json:"preimage,omitempty"`
	Error    *string `json:"error,omitempty"`
}

// ClaimResult is returned by ClaimHtlcAtomic.
type ClaimResult struct {
	SwapId        htlc.SwapId `json:"swap_id"`
	AmountClaimed uint64      `json:"amount_claimed"`
	AssetId       string      `json:"asset_id"`
	PreimageHex   string      `json:"preimage_hex"`
	ClaimTxid     string      `json:"claim_txid"`
}

// RefundInfo is returned by GetRefundInfo.
type RefundInfo struct {
	SwapId         htlc.SwapId `json:"swap_id"`
	HtlcAddress    string      `json:"htlc_address"`
	HtlcScriptHex  string      `json:"htlc_script"`
	TimelockBlocks uint32      `json:"timelock_blocks"`
	CanRefund      bool        `json:"can_refund"`
}
