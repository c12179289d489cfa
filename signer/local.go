package signer

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightninglabs/rgbln-swap/htlc"
	"github.com/lightningnetwork/lnd/keychain"
)

// LocalSigner signs directly with an in-memory private key. It is
// meant for tests and single-operator deployments; production
// deployments should implement Signer against a remote/HSM-backed
// signer keyed by keychain.KeyLocator instead.
type LocalSigner struct {
	priv *btcec.PrivateKey
}

// NewLocalSigner wraps a raw private key for claim-path signing.
func NewLocalSigner(priv *btcec.PrivateKey) *LocalSigner {
	return &LocalSigner{priv: priv}
}

var _ Signer = (*LocalSigner)(nil)

// SignClaimWitness computes a SIGHASH_ALL witness-v0 signature over
// tx's single input spending fundingOutpoint/fundingValue under the
// IF branch of rec.Script.
func (s *LocalSigner) SignClaimWitness(
	_ context.Context,
	rec *htlc.Record,
	fundingOutpoint wire.OutPoint,
	fundingValue btcutil.Amount,
	_ keychain.KeyDescriptor,
	sigHashes *txscript.TxSigHashes,
	tx *wire.MsgTx,
) ([]byte, error) {
	if len(tx.TxIn) == 0 || tx.TxIn[0].PreviousOutPoint != fundingOutpoint {
		return nil, fmt.Errorf("tx does not spend the expected funding outpoint")
	}

	sigHash, err := txscript.CalcWitnessSigHash(
		rec.Script, sigHashes, txscript.SigHashAll, tx, 0, int64(fundingValue),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute witness sighash: %w", err)
	}

	sig := ecdsa.Sign(s.priv, sigHash)
	return append(sig.Serialize(), byte(txscript.SigHashAll)), nil
}
