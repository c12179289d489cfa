package signer

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightninglabs/rgbln-swap/htlc"
	"github.com/lightningnetwork/lnd/keychain"
	"github.com/stretchr/testify/require"
)

func testPrivKey(seed byte) *btcec.PrivateKey {
	var raw [32]byte
	for i := range raw {
		raw[i] = seed + byte(i)
	}
	raw[0] |= 0x01
	priv, _ := btcec.PrivKeyFromBytes(raw[:])
	return priv
}

func testRecord(t *testing.T, lpPriv *btcec.PrivateKey) *htlc.Record {
	t.Helper()
	ph, err := htlc.ParsePaymentHash("f4d376425855e2354bf30e17904f4624f6f9aa297973cca0445cdf4cef718b2a")
	require.NoError(t, err)

	userPriv := testPrivKey(0x02)
	rec, err := htlc.NewRecord(
		ph, 13, "rgb:asset",
		lpPriv.PubKey().SerializeCompressed(),
		userPriv.PubKey().SerializeCompressed(),
		144, htlc.NetworkRegtest,
	)
	require.NoError(t, err)
	return rec
}

func TestBuildClaimTx_RejectsFeeAboveValue(t *testing.T) {
	t.Parallel()

	outpoint := wire.OutPoint{Hash: chainhash.Hash{}, Index: 0}
	_, err := BuildClaimTx(outpoint, 1000, []byte{0x00, 0x14}, 1000)
	require.Error(t, err)
}

func TestBuildClaimTx_PaysDestScriptNetOfFee(t *testing.T) {
	t.Parallel()

	outpoint := wire.OutPoint{Hash: chainhash.Hash{}, Index: 0}
	tx, err := BuildClaimTx(outpoint, 100_000, []byte{0x00, 0x14}, 500)
	require.NoError(t, err)
	require.Len(t, tx.TxOut, 1)
	require.Equal(t, int64(99_500), tx.TxOut[0].Value)
	require.Equal(t, outpoint, tx.TxIn[0].PreviousOutPoint)
}

func TestLocalSigner_ProducesVerifiableSignature(t *testing.T) {
	t.Parallel()

	lpPriv := testPrivKey(0x01)
	rec := testRecord(t, lpPriv)

	outpoint := wire.OutPoint{Hash: chainhash.Hash{1, 2, 3}, Index: 0}
	fundingValue := btcutil.Amount(50_000)

	tx, err := BuildClaimTx(outpoint, fundingValue, []byte{0x00, 0x14, 0x01}, 1_000)
	require.NoError(t, err)

	prevOutFetcher := txscript.NewCannedPrevOutputFetcher(rec.Script, int64(fundingValue))
	sigHashes := txscript.NewTxSigHashes(tx, prevOutFetcher)

	s := NewLocalSigner(lpPriv)
	sig, err := s.SignClaimWitness(context.Background(), rec, outpoint, fundingValue, keychain.KeyDescriptor{}, sigHashes, tx)
	require.NoError(t, err)
	require.NotEmpty(t, sig)

	sigHash, err := txscript.CalcWitnessSigHash(rec.Script, sigHashes, txscript.SigHashAll, tx, 0, int64(fundingValue))
	require.NoError(t, err)

	parsedSig, err := ecdsa.ParseDERSignature(sig[:len(sig)-1])
	require.NoError(t, err)
	require.True(t, parsedSig.Verify(sigHash, lpPriv.PubKey()))

	var preimage htlc.Preimage
	for i := range preimage {
		preimage[i] = byte(i)
	}
	witness := AssembleClaimWitness(sig, preimage, rec.Script)
	require.Len(t, witness, 4)
	require.Equal(t, []byte{0x01}, witness[2])
	require.Equal(t, rec.Script, []byte(witness[3]))
}

func TestAssembleRefundWitness_SelectsElseBranch(t *testing.T) {
	t.Parallel()

	witness := AssembleRefundWitness([]byte{0xAA}, []byte{0xBB})
	require.Len(t, witness, 3)
	require.Empty(t, witness[1])
}
