// Package rgbwallet declares the capability set the swap coordinator
// requires of an RGB-asset-aware wallet. The coordinator is written
// against this interface only; any concrete implementation (a real
// RGB wallet, or the in-memory fake in this package used for tests)
// may satisfy it.
package rgbwallet

import "context"

// AssignmentKind distinguishes a fungible asset amount from a
// non-fungible (NFT-style) unit assignment.
type AssignmentKind uint8

const (
	AssignmentFungible AssignmentKind = iota
	AssignmentNonFungible
)

// Assignment describes what is being committed to a scripted-receive
// invoice.
type Assignment struct {
	Kind   AssignmentKind
	Amount uint64 // meaningful only when Kind == AssignmentFungible
}

// ScriptReceiveRequest asks the wallet to generate an RGB invoice that
// commits to a specific witness script, so the asset can only land in
// outputs locked by that script.
type ScriptReceiveRequest struct {
	Script          []byte
	AssetId         string
	Assignment      Assignment
	ExpirySeconds   uint64
	ProxyURLs       []string
	MinConfirmations uint32
}

// ScriptReceiveResult is returned by ScriptReceive.
type ScriptReceiveResult struct {
	RecipientId string

	// BatchTransferIdx is the wallet's opaque handle for the batch
	// transfer backing this invoice, used to look the transfer back
	// up without scanning by recipient id.
	BatchTransferIdx uint32
	RgbInvoice       string
}

// TransferStatus mirrors the wallet's transfer lifecycle vocabulary.
type TransferStatus string

const (
	TransferWaitingCounterparty TransferStatus = "WaitingCounterparty"
	TransferSettled             TransferStatus = "Settled"
	TransferFailed              TransferStatus = "Failed"
)

// Transfer is one entry returned by ListTransfers.
type Transfer struct {
	RecipientId *string
	AssetId     string
	Amount      uint64
	Status      TransferStatus
}

// TransferUpdate is one entry returned by Refresh, describing a
// transfer whose state changed as a result of the refresh.
type TransferUpdate struct {
	RecipientId string
	NewStatus   TransferStatus
}

// AssetBalance is the observability result of GetAssetBalance.
type AssetBalance struct {
	Settled uint64
	Future  uint64
}

// AssetInfo is one entry returned by ListAssets.
type AssetInfo struct {
	AssetId string
	Name    string
	Total   uint64
}

// Unspent is one entry returned by ListUnspents.
type Unspent struct {
	Outpoint string
	Value    uint64
}

// Online represents a chain-backed wallet session opened by GoOnline.
type Online struct {
	SessionId string
}

// Facade is the capability set the coordinator consumes from an
// RGB-asset-aware wallet. The coordinator assumes only these
// operations and the transfer/status vocabulary above.
type Facade interface {
	// ScriptReceive generates an RGB invoice committing to req.Script.
	ScriptReceive(ctx context.Context, req ScriptReceiveRequest) (ScriptReceiveResult, error)

	// Refresh pulls new chain/wallet state, optionally scoped to a
	// single asset id and a transfer id filter.
	Refresh(ctx context.Context, online Online, assetId *string, filter []string, force bool) ([]TransferUpdate, error)

	// ListTransfers lists known transfers, optionally scoped to an
	// asset id.
	ListTransfers(ctx context.Context, assetId *string) ([]Transfer, error)

	// ListAssets lists all assets known to the wallet.
	ListAssets(ctx context.Context) ([]AssetInfo, error)

	// ListUnspents lists the wallet's unspent outputs.
	ListUnspents(ctx context.Context) ([]Unspent, error)

	// GetAssetBalance reports the settled/future balance of one
	// asset.
	GetAssetBalance(ctx context.Context, assetId string) (AssetBalance, error)

	// GoOnline opens a chain-backed wallet session.
	GoOnline(ctx context.Context, skipConsistencyCheck bool, indexerURL string) (Online, error)
}
