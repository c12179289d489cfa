// Package signer provides the claim/refund transaction abstraction
// that spec.md §9 calls out as a follow-up: a complete implementation
// must scan for the HTLC's on-chain UTXO, build a P2WSH spend with the
// IF-branch witness, sign it with the LP's key, and broadcast. Signing
// key material is explicitly out of scope for the coordinator itself,
// so it is abstracted here as a Signer capability the coordinator's
// caller may supply when it is ready to move beyond the placeholder
// claim_txid.
package signer

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightninglabs/rgbln-swap/htlc"
	"github.com/lightningnetwork/lnd/keychain"
)

// Signer produces a claim-path signature over the HTLC's funding
// output for the given record. Key management is external: an
// implementation typically wraps an HD wallet or remote signer keyed
// by KeyDescriptor.
type Signer interface {
	SignClaimWitness(
		ctx context.Context,
		rec *htlc.Record,
		fundingOutpoint wire.OutPoint,
		fundingValue btcutil.Amount,
		keyDesc keychain.KeyDescriptor,
		sigHashes *txscript.TxSigHashes,
		tx *wire.MsgTx,
	) ([]byte, error)
}

// BuildClaimTx assembles (but does not sign or broadcast) the
// transaction that spends the HTLC's funding output via the claim
// path: one input from fundingOutpoint, one output paying destScript
// the funding value net of a flat fee.
func BuildClaimTx(fundingOutpoint wire.OutPoint, fundingValue btcutil.Amount, destScript []byte, fee btcutil.Amount) (*wire.MsgTx, error) {
	if fee >= fundingValue {
		return nil, fmt.Errorf("fee %d must be less than funding value %d", fee, fundingValue)
	}

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: fundingOutpoint,
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(&wire.TxOut{
		Value:    int64(fundingValue - fee),
		PkScript: destScript,
	})
	return tx, nil
}

// AssembleClaimWitness builds the exact claim-path witness stack
// spec.md §9 specifies: <sig> <preimage> 0x01 <script>. The constant
// 0x01 selects the OP_IF true branch at script evaluation time.
func AssembleClaimWitness(sig []byte, preimage htlc.Preimage, script []byte) wire.TxWitness {
	return wire.TxWitness{
		sig,
		append([]byte(nil), preimage[:]...),
		{0x01},
		script,
	}
}

// AssembleRefundWitness builds the ELSE-branch witness stack:
// <sig> 0x00 <script>. An empty vector (rather than 0x01) selects the
// OP_IF false branch.
func AssembleRefundWitness(sig []byte, script []byte) wire.TxWitness {
	return wire.TxWitness{
		sig,
		{},
		script,
	}
}
