package rgbwallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-memory Facade implementation. It is not a real RGB
// wallet: it exists so tests and examples can exercise the
// coordinator without a live wallet/indexer. Transfers are advanced
// from WaitingCounterparty to Settled by calling SettleTransfer, which
// a test stands in for the user actually funding the HTLC address
// on-chain and the wallet observing it.
type Memory struct {
	mu sync.Mutex

	assetId string
	balance AssetBalance

	// transfers keyed by recipient id.
	transfers map[string]*Transfer

	// nextBatchIdx hands out a fresh batch transfer handle per
	// ScriptReceive call, mimicking a real wallet's batch bookkeeping.
	nextBatchIdx uint32
}

// NewMemory constructs an empty in-memory wallet for a single asset.
func NewMemory(assetId string) *Memory {
	return &Memory{
		assetId:   assetId,
		transfers: make(map[string]*Transfer),
	}
}

var _ Facade = (*Memory)(nil)

// ScriptReceive allocates a fresh recipient id and records a pending
// transfer awaiting settlement.
func (m *Memory) ScriptReceive(_ context.Context, req ScriptReceiveRequest) (ScriptReceiveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(req.Script) == 0 {
		return ScriptReceiveResult{}, fmt.Errorf("script must not be empty")
	}

	recipientID := uuid.NewString()
	m.transfers[recipientID] = &Transfer{
		RecipientId: &recipientID,
		AssetId:     req.AssetId,
		Amount:      req.Assignment.Amount,
		Status:      TransferWaitingCounterparty,
	}

	m.nextBatchIdx++
	batchIdx := m.nextBatchIdx

	return ScriptReceiveResult{
		RecipientId:      recipientID,
		BatchTransferIdx: batchIdx,
		RgbInvoice:       "rgb-invoice:" + recipientID,
	}, nil
}

// SettleTransfer marks a previously issued recipient id's transfer as
// Settled, simulating the user funding the HTLC address and the
// wallet observing confirmation. Tests call this to drive
// check_htlc_funding from Pending to Funded. If amount or assetID
// differ from what ScriptReceive recorded, the mismatch is preserved
// so that the coordinator's funding re-validation (spec.md §9) can be
// exercised directly.
func (m *Memory) SettleTransfer(recipientID string, amount uint64, assetID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transfers[recipientID]
	if !ok {
		return
	}
	t.Status = TransferSettled
	t.Amount = amount
	t.AssetId = assetID
}

// Refresh is a no-op in this fake: state is mutated directly via
// SettleTransfer rather than pulled from a simulated chain backend.
func (m *Memory) Refresh(_ context.Context, _ Online, _ *string, _ []string, _ bool) ([]TransferUpdate, error) {
	return nil, nil
}

// ListTransfers returns all known transfers, optionally scoped to an
// asset id.
func (m *Memory) ListTransfers(_ context.Context, assetId *string) ([]Transfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Transfer, 0, len(m.transfers))
	for _, t := range m.transfers {
		if assetId != nil && t.AssetId != *assetId {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

// ListAssets returns the single asset this fake wallet tracks.
func (m *Memory) ListAssets(_ context.Context) ([]AssetInfo, error) {
	return []AssetInfo{{AssetId: m.assetId}}, nil
}

// ListUnspents always returns an empty list: this fake does not model
// UTXOs.
func (m *Memory) ListUnspents(_ context.Context) ([]Unspent, error) {
	return nil, nil
}

// GetAssetBalance returns the tracked balance for assetId.
func (m *Memory) GetAssetBalance(_ context.Context, assetId string) (AssetBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if assetId != m.assetId {
		return AssetBalance{}, nil
	}
	return m.balance, nil
}

// GoOnline returns a fixed session id; there is no real chain backend
// behind this fake.
func (m *Memory) GoOnline(_ context.Context, _ bool, _ string) (Online, error) {
	return Online{SessionId: "memory-session"}, nil
}
