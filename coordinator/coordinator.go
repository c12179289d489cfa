// Package coordinator implements the swap state machine (C6): it
// orchestrates create -> await-funding -> pay-ln -> claim/refund,
// binding an on-chain RGB HTLC to an off-chain Lightning payment via
// the htlc and lnclient packages.
package coordinator

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/lightninglabs/rgbln-swap/htlc"
	"github.com/lightninglabs/rgbln-swap/lnclient"
	"github.com/lightninglabs/rgbln-swap/rgbwallet"
)

// Coordinator holds the ActiveSwaps map and orchestrates the swap
// lifecycle. All exported methods are safe for concurrent use;
// operations on distinct swap ids proceed independently, operations
// on the same swap id serialize through a per-id mutex.
type Coordinator struct {
	cfg *Config

	mu    sync.RWMutex
	swaps map[htlc.SwapId]*htlc.Record
	locks map[htlc.SwapId]*sync.Mutex
}

// New constructs a Coordinator, validating cfg and loading any
// previously persisted swaps from cfg.Store.
func New(cfg *Config) (*Coordinator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	c := &Coordinator{
		cfg:   cfg,
		swaps: make(map[htlc.SwapId]*htlc.Record),
		locks: make(map[htlc.SwapId]*sync.Mutex),
	}

	if cfg.Store != nil {
		recs, err := cfg.Store.All(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted swaps: %w", err)
		}
		for _, rec := range recs {
			c.swaps[rec.SwapId] = rec
		}
		log.Infof("coordinator: restored %d persisted swaps", len(recs))
	}

	return c, nil
}

func (c *Coordinator) lockFor(id htlc.SwapId) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.locks[id]
	if !ok {
		l = &sync.Mutex{}
		c.locks[id] = l
	}
	return l
}

func (c *Coordinator) peek(id htlc.SwapId) (*htlc.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.swaps[id]
	return rec, ok
}

func (c *Coordinator) getRecord(id htlc.SwapId) (*htlc.Record, error) {
	rec, ok := c.peek(id)
	if !ok {
		return nil, newErr(KindNotFound, fmt.Sprintf("swap %s", id), nil)
	}
	return rec, nil
}

func (c *Coordinator) persist(ctx context.Context, rec *htlc.Record) {
	if c.cfg.Store == nil {
		return
	}
	if err := c.cfg.Store.Put(ctx, rec); err != nil {
		log.Warnf("coordinator: failed to persist swap %s: %v", rec.SwapId, err)
	}
}

// classifyLNError maps an lnclient error into the coordinator's error
// taxonomy (spec.md §7).
func classifyLNError(err error) *Error {
	var remoteErr *lnclient.RemoteError
	switch {
	case errors.As(err, &remoteErr):
		return newErr(KindRemoteError, fmt.Sprintf("ln node status %d", remoteErr.StatusCode), err)
	case errors.Is(err, lnclient.ErrParse):
		return newErr(KindParseError, "ln node response did not match schema", err)
	case errors.Is(err, lnclient.ErrProtocol):
		return newErr(KindProtocolError, "ln node reported succeeded without a preimage", err)
	case errors.Is(err, lnclient.ErrNetwork):
		return newErr(KindNetwork, "ln node transport error", err)
	default:
		return newErr(KindNetwork, "ln client error", err)
	}
}

// CreateAtomicSwap constructs a new HTLC bound to invoice.PaymentHash,
// commits it to an RGB scripted-receive invoice via the wallet
// facade, and registers it in ActiveSwaps.
//
// Not idempotent: it allocates a fresh recipient_id on every call.
// Callers must deduplicate by swap_id before retrying.
func (c *Coordinator) CreateAtomicSwap(ctx context.Context, invoice lnclient.Invoice, userPubKey []byte) (*Offer, error) {
	if invoice.AssetId == "" {
		return nil, newErr(KindInvalidInput, "asset_id must not be empty", nil)
	}

	paymentHash, err := htlc.ParsePaymentHash(invoice.PaymentHash)
	if err != nil {
		return nil, newErr(KindInvalidInput, "invalid payment_hash", err)
	}

	swapId := htlc.DeriveSwapId(paymentHash)
	lock := c.lockFor(swapId)
	lock.Lock()
	defer lock.Unlock()

	if _, exists := c.peek(swapId); exists {
		return nil, newErr(KindDuplicate, fmt.Sprintf("swap %s already active", swapId), nil)
	}

	rec, err := htlc.NewRecord(
		paymentHash, invoice.AmountAsset, invoice.AssetId,
		c.cfg.LpPubKey, userPubKey, c.cfg.DefaultTimelockBlocks, c.cfg.Network,
	)
	if err != nil {
		return nil, newErr(KindInvalidInput, "failed to construct htlc record", err)
	}

	result, err := c.cfg.Wallet.ScriptReceive(ctx, rgbwallet.ScriptReceiveRequest{
		Script:  rec.Script,
		AssetId: rec.AssetId,
		Assignment: rgbwallet.Assignment{
			Kind:   rgbwallet.AssignmentFungible,
			Amount: rec.Amount,
		},
		ExpirySeconds:    c.cfg.InvoiceExpirySeconds,
		ProxyURLs:        []string{c.cfg.ProxyURL},
		MinConfirmations: c.cfg.MinConfirmations,
	})
	if err != nil {
		return nil, newErr(KindWalletError, "script_receive failed", err)
	}

	if err := rec.MarkAwaitingFunding(result.RecipientId); err != nil {
		return nil, newErr(KindInvalidState, "failed to mark awaiting funding", err)
	}
	if err := rec.SetBatchTransferIdx(result.BatchTransferIdx); err != nil {
		return nil, newErr(KindInvalidState, "failed to record batch transfer idx", err)
	}

	c.mu.Lock()
	c.swaps[swapId] = rec
	c.mu.Unlock()

	c.persist(ctx, rec)

	log.Infof("coordinator: created swap %s asset=%s amount=%d", swapId, rec.AssetId, rec.Amount)

	return &Offer{
		SwapId:         swapId,
		HtlcAddress:    rec.Address,
		RecipientId:    result.RecipientId,
		RgbInvoice:     result.RgbInvoice,
		PaymentHash:    invoice.PaymentHash,
		TimelockBlocks: rec.TimelockBlks,
	}, nil
}

// CheckHtlcFunding polls the wallet facade for a settled transfer
// matching the HTLC's recipient_id, re-validating the credited
// asset_id and amount against the HTLC record before accepting it as
// Funded (spec.md §9's mandated anti-spoofing fix: the original
// implementation matched on recipient_id alone). Idempotent and
// monotone: once Funded, every later call returns Funded without
// touching the wallet.
func (c *Coordinator) CheckHtlcFunding(ctx context.Context, online rgbwallet.Online, swapId htlc.SwapId) (FundingStatus, error) {
	rec, err := c.getRecord(swapId)
	if err != nil {
		return "", err
	}

	lock := c.lockFor(swapId)
	lock.Lock()
	defer lock.Unlock()

	switch rec.Status() {
	case htlc.StatusFunded, htlc.StatusPaymentInProgress, htlc.StatusClaimed, htlc.StatusRefunded:
		return FundingFunded, nil
	}

	recipientID := rec.RecipientID()
	if recipientID == nil {
		return FundingPending, nil
	}

	if _, err := c.cfg.Wallet.Refresh(ctx, online, &rec.AssetId, nil, false); err != nil {
		return "", newErr(KindWalletError, "wallet refresh failed", err)
	}

	transfers, err := c.cfg.Wallet.ListTransfers(ctx, &rec.AssetId)
	if err != nil {
		return "", newErr(KindWalletError, "list_transfers failed", err)
	}

	for _, t := range transfers {
		if t.RecipientId == nil || *t.RecipientId != *recipientID {
			continue
		}
		if t.Status != rgbwallet.TransferSettled {
			return FundingPending, nil
		}

		if t.AssetId != rec.AssetId || t.Amount != rec.Amount {
			log.Warnf("coordinator: swap %s funding anomaly: expected asset=%s amount=%d, got asset=%s amount=%d",
				swapId, rec.AssetId, rec.Amount, t.AssetId, t.Amount)
			return FundingPending, nil
		}

		if err := rec.MarkFunded(); err != nil {
			return "", newErr(KindInvalidState, "failed to mark funded", err)
		}
		c.persist(ctx, rec)
		log.Infof("coordinator: swap %s funded", swapId)
		return FundingFunded, nil
	}

	return FundingPending, nil
}

// PayInvoice forwards the LN leg of the swap. Requires the record to
// currently be Funded or already PaymentInProgress: the latter is the
// re-poll path for a payment left pending by a previous call (spec.md
// §8 scenario S4 — "caller may re-invoke"). On a decode_invoice
// failure, a HashMismatch, or a terminal LN Failed status it reverts
// the record to Funded so the caller may retry; on any error after the
// payment was submitted (network, remote, parse, protocol, invalid
// preimage) the record is left PaymentInProgress because the payment
// may already be in flight at the LN layer — recovery is via
// re-polling, never a blind resend.
func (c *Coordinator) PayInvoice(ctx context.Context, swapId htlc.SwapId, lnInvoice string) (*PaymentResult, error) {
	rec, err := c.getRecord(swapId)
	if err != nil {
		return nil, err
	}

	lock := c.lockFor(swapId)
	lock.Lock()
	defer lock.Unlock()

	switch rec.Status() {
	case htlc.StatusFunded:
		if err := rec.MarkPaymentInProgress(); err != nil {
			return nil, newErr(KindInvalidState, "failed to mark payment in progress", err)
		}
		c.persist(ctx, rec)

		decoded, err := c.cfg.LNClient.DecodeInvoice(ctx, lnInvoice)
		if err != nil {
			// Nothing irreversible has happened yet; safe to roll back.
			_ = rec.RevertToFunded()
			c.persist(ctx, rec)
			return nil, classifyLNError(err)
		}

		wantHash := hex.EncodeToString(rec.PaymentHash[:])
		if decoded.PaymentHash != wantHash {
			_ = rec.RevertToFunded()
			c.persist(ctx, rec)
			return nil, newErr(KindHashMismatch,
				fmt.Sprintf("invoice payment_hash %s does not match htlc payment_hash %s", decoded.PaymentHash, wantHash),
				nil)
		}

		payResp, err := c.cfg.LNClient.PayInvoice(ctx, lnInvoice)
		if err != nil {
			// The payment may have been submitted despite the transport
			// error; do not revert, recovery is via get_payment polling.
			return nil, classifyLNError(err)
		}

		return c.pollPayment(ctx, swapId, rec, payResp.PaymentHash)

	case htlc.StatusPaymentInProgress:
		// A previous call left the LN leg pending; re-poll rather than
		// re-decode/re-send (pay_invoice is not idempotent at the LN
		// layer — spec.md §5).
		return c.pollPayment(ctx, swapId, rec, hex.EncodeToString(rec.PaymentHash[:]))

	default:
		return nil, newErr(KindInvalidState,
			fmt.Sprintf("pay_invoice requires Funded or PaymentInProgress, got %s", rec.Status()), nil)
	}
}

// pollPayment fetches the current status of a submitted LN payment and
// dispatches on it. Factored out of PayInvoice so that both the
// initial send and a later re-poll of an already-PaymentInProgress
// record share the exact same terminal-status handling.
func (c *Coordinator) pollPayment(ctx context.Context, swapId htlc.SwapId, rec *htlc.Record, paymentHashHex string) (*PaymentResult, error) {
	details, err := c.cfg.LNClient.GetPayment(ctx, paymentHashHex)
	if err != nil {
		return nil, classifyLNError(err)
	}

	switch details.Payment.Status {
	case lnclient.PaymentSucceeded:
		preimage, err := details.Payment.Preimage()
		if err != nil {
			return nil, classifyLNError(err)
		}
		// Mandated fix (spec.md §9): never trust a remote "Succeeded"
		// status without independently verifying the preimage.
		if !htlc.VerifyPreimage(rec.PaymentHash, preimage) {
			log.Warnf("coordinator: swap %s ln node returned a preimage that fails verification", swapId)
			return nil, newErr(KindInvalidPreimage, "ln-reported preimage does not verify against payment_hash", nil)
		}
		preimageHex := preimage.String()
		return &PaymentResult{Success: true, Preimage: &preimageHex}, nil

	case lnclient.PaymentPending:
		msg := "Payment is pending"
		return &PaymentResult{Success: false, Error: &msg}, nil

	case lnclient.PaymentFailed:
		if err := rec.RevertToFunded(); err != nil {
			return nil, newErr(KindInvalidState, "failed to revert after payment failure", err)
		}
		c.persist(ctx, rec)
		return nil, newErr(KindPaymentFailed, "ln payment failed", nil)

	default:
		return nil, newErr(KindParseError, fmt.Sprintf("unrecognized payment status %q", details.Payment.Status), nil)
	}
}

// ClaimHtlcAtomic verifies preimage and, only if it matches, commits
// the record to Claimed. The record must currently be Funded or
// PaymentInProgress.
func (c *Coordinator) ClaimHtlcAtomic(ctx context.Context, swapId htlc.SwapId, preimage htlc.Preimage) (*ClaimResult, error) {
	rec, err := c.getRecord(swapId)
	if err != nil {
		return nil, err
	}

	lock := c.lockFor(swapId)
	lock.Lock()
	defer lock.Unlock()

	switch rec.Status() {
	case htlc.StatusFunded, htlc.StatusPaymentInProgress:
	default:
		return nil, newErr(KindInvalidState, fmt.Sprintf("claim requires Funded or PaymentInProgress, got %s", rec.Status()), nil)
	}

	if !htlc.VerifyPreimage(rec.PaymentHash, preimage) {
		return nil, newErr(KindInvalidPreimage, "preimage does not verify against payment_hash", nil)
	}

	if err := rec.MarkClaimed(preimage); err != nil {
		return nil, newErr(KindInvalidState, "failed to mark claimed", err)
	}
	c.persist(ctx, rec)

	log.Infof("coordinator: swap %s claimed", swapId)

	return &ClaimResult{
		SwapId:        swapId,
		AmountClaimed: rec.Amount,
		AssetId:       rec.AssetId,
		PreimageHex:   preimage.String(),
		// A full implementation constructs and broadcasts the P2WSH
		// spend (see package signer); this revision surfaces the
		// verified preimage and script as a signed-intent precursor.
		ClaimTxid: "placeholder_txid",
	}, nil
}

// CompleteAtomicSwap is the happy-path composite: PayInvoice followed
// by ClaimHtlcAtomic with the resulting preimage. It returns a
// PaymentPending error if the LN leg does not terminate within this
// call; the caller is expected to poll (e.g. by calling PayInvoice
// again, or CompleteAtomicSwap again) until it does.
func (c *Coordinator) CompleteAtomicSwap(ctx context.Context, swapId htlc.SwapId, lnInvoice string) (*ClaimResult, error) {
	payResult, err := c.PayInvoice(ctx, swapId, lnInvoice)
	if err != nil {
		return nil, err
	}

	if !payResult.Success {
		msg := "ln payment has not reached a terminal state"
		if payResult.Error != nil {
			msg = *payResult.Error
		}
		return nil, newErr(KindPaymentPending, msg, nil)
	}

	raw, err := hex.DecodeString(*payResult.Preimage)
	if err != nil || len(raw) != 32 {
		return nil, newErr(KindProtocolError, "ln reported a malformed preimage", err)
	}
	var preimage htlc.Preimage
	copy(preimage[:], raw)

	return c.ClaimHtlcAtomic(ctx, swapId, preimage)
}

// GetRefundInfo returns the data needed to spend the ELSE branch. It
// does not mutate the record.
func (c *Coordinator) GetRefundInfo(_ context.Context, swapId htlc.SwapId) (*RefundInfo, error) {
	rec, err := c.getRecord(swapId)
	if err != nil {
		return nil, err
	}

	return &RefundInfo{
		SwapId:         swapId,
		HtlcAddress:    rec.Address,
		HtlcScriptHex:  hex.EncodeToString(rec.Script),
		TimelockBlocks: rec.TimelockBlks,
		CanRefund:      rec.CanRefund(),
	}, nil
}
