package htlc

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
)

// Record is the central per-swap entity: it holds the HTLC's
// immutable parameters (script, address, payment hash) alongside its
// mutable lifecycle state. All mutation methods enforce the state
// machine documented on Status; illegal transitions return
// ErrInvalidState and leave the record unchanged.
type Record struct {
	mu sync.Mutex

	SwapId       SwapId
	PaymentHash  PaymentHash
	AssetId      string
	Amount       uint64
	LpPubKey     []byte
	UserPubKey   []byte
	TimelockBlks uint32
	Script       []byte
	Address      string
	Network      Network

	status           Status
	recipientID      *string
	batchTransferIdx *uint32
	preimage         *Preimage
}

// NewRecord validates its arguments and constructs a Record in
// StatusCreated. swap_id, htlc_script, and htlc_address are derived
// deterministically from (paymentHash, lpPubKey, userPubKey,
// timelockBlocks); two calls with equal inputs yield byte-identical
// scripts and addresses.
func NewRecord(
	paymentHash PaymentHash,
	amount uint64,
	assetID string,
	lpPubKey, userPubKey []byte,
	timelockBlocks uint32,
	network Network,
) (*Record, error) {
	if assetID == "" {
		return nil, fmt.Errorf("%w: asset_id must not be empty", ErrInvalidInput)
	}
	if amount == 0 {
		return nil, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	}

	script, err := BuildScript(paymentHash, lpPubKey, userPubKey, timelockBlocks)
	if err != nil {
		return nil, err
	}

	addr, err := DeriveAddress(script, network)
	if err != nil {
		return nil, err
	}

	return &Record{
		SwapId:       DeriveSwapId(paymentHash),
		PaymentHash:  paymentHash,
		AssetId:      assetID,
		Amount:       amount,
		LpPubKey:     append([]byte(nil), lpPubKey...),
		UserPubKey:   append([]byte(nil), userPubKey...),
		TimelockBlks: timelockBlocks,
		Script:       script,
		Address:      addr.EncodeAddress(),
		Network:      network,
		status:       StatusCreated,
	}, nil
}

// Snapshot is an immutable, by-value view of a Record's current
// lifecycle fields, safe to read without holding the record's lock
// after it is returned.
type Snapshot struct {
	SwapId           SwapId
	Status           Status
	RecipientID      *string
	BatchTransferIdx *uint32
	Preimage         *Preimage
}

// Status returns the record's current lifecycle status.
func (r *Record) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Snapshot returns a consistent point-in-time view of the mutable
// fields.
func (r *Record) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		SwapId:           r.SwapId,
		Status:           r.status,
		RecipientID:      r.recipientID,
		BatchTransferIdx: r.batchTransferIdx,
		Preimage:         r.preimage,
	}
}

// RecipientID returns the assigned RGB scripted-receive recipient id,
// if any.
func (r *Record) RecipientID() *string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recipientID
}

// BatchTransferIdx returns the wallet's opaque batch transfer handle
// for this swap's scripted-receive invoice, if one has been recorded.
func (r *Record) BatchTransferIdx() *uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batchTransferIdx
}

// SetBatchTransferIdx records the wallet's opaque batch transfer
// handle. Like recipient_id, it is set exactly once.
func (r *Record) SetBatchTransferIdx(idx uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.batchTransferIdx != nil {
		return fmt.Errorf("%w: batch_transfer_idx already set", ErrInvalidState)
	}
	r.batchTransferIdx = &idx
	return nil
}

// Preimage returns the verified preimage, populated only once the
// record has reached StatusClaimed.
func (r *Record) Preimage() *Preimage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.preimage
}

func (r *Record) transitionErr(from []Status, to Status) error {
	for _, s := range from {
		if r.status == s {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot move to %s from %s", ErrInvalidState, to, r.status)
}

// MarkAwaitingFunding assigns recipientID and transitions
// Created -> AwaitingFunding. recipient_id is set exactly once.
func (r *Record) MarkAwaitingFunding(recipientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.transitionErr([]Status{StatusCreated}, StatusAwaitingFunding); err != nil {
		return err
	}
	r.recipientID = &recipientID
	r.status = StatusAwaitingFunding
	return nil
}

// MarkFunded transitions AwaitingFunding -> Funded. It is idempotent:
// calling it again once already Funded is a no-op success, matching
// the monotonicity invariant required of check_htlc_funding.
func (r *Record) MarkFunded() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status == StatusFunded {
		return nil
	}
	if err := r.transitionErr([]Status{StatusAwaitingFunding}, StatusFunded); err != nil {
		return err
	}
	r.status = StatusFunded
	return nil
}

// MarkExpired transitions AwaitingFunding -> Expired: the HTLC never
// became funded within its invoice expiry window.
func (r *Record) MarkExpired() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.transitionErr([]Status{StatusAwaitingFunding}, StatusExpired); err != nil {
		return err
	}
	r.status = StatusExpired
	return nil
}

// MarkPaymentInProgress transitions Funded -> PaymentInProgress,
// required before attempting the LN leg of the swap.
func (r *Record) MarkPaymentInProgress() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.transitionErr([]Status{StatusFunded}, StatusPaymentInProgress); err != nil {
		return err
	}
	r.status = StatusPaymentInProgress
	return nil
}

// RevertToFunded transitions PaymentInProgress -> Funded. This is the
// sole backward transition permitted by the state machine: it fires
// when the LN payment finally reports Failed (or, before any payment
// was attempted, the invoice fails to decode or a HashMismatch is
// detected) and no preimage was observed.
func (r *Record) RevertToFunded() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.transitionErr([]Status{StatusPaymentInProgress}, StatusFunded); err != nil {
		return err
	}
	r.status = StatusFunded
	return nil
}

// MarkClaimed verifies preimage against the record's payment hash and,
// only if it matches, atomically sets the preimage field and
// transitions to Claimed. The record must currently be Funded or
// PaymentInProgress. A preimage that fails VerifyPreimage yields
// ErrInvalidInput and leaves the record unchanged; callers such as the
// coordinator check VerifyPreimage first, and this method re-checks so
// that no caller can force a Claimed state with an unverified preimage.
func (r *Record) MarkClaimed(preimage Preimage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.transitionErr([]Status{StatusFunded, StatusPaymentInProgress}, StatusClaimed); err != nil {
		return err
	}
	if !VerifyPreimage(r.PaymentHash, preimage) {
		return fmt.Errorf("%w: sha256(preimage) does not match payment_hash", ErrInvalidInput)
	}

	r.preimage = &preimage
	r.status = StatusClaimed
	return nil
}

// MarkRefunded transitions any state other than Claimed or Refunded
// (Expired included) to Refunded. It is the operator action taken once
// the refund timelock has matured.
func (r *Record) MarkRefunded() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.status {
	case StatusClaimed, StatusRefunded:
		return fmt.Errorf("%w: cannot refund from %s", ErrInvalidState, r.status)
	}
	r.status = StatusRefunded
	return nil
}

// CanRefund reports whether the refund path remains available, i.e.
// the record has not reached Claimed.
func (r *Record) CanRefund() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status != StatusClaimed
}

// DecodeAddress re-parses the stored address string, useful for
// callers that need the btcutil.Address type rather than its string
// encoding (e.g. the signer when building a claim transaction).
func (r *Record) DecodeAddress() (btcutil.Address, error) {
	params, err := r.Network.Params()
	if err != nil {
		return nil, err
	}
	return btcutil.DecodeAddress(r.Address, params)
}
