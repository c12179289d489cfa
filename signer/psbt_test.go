package signer

import (
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightninglabs/rgbln-swap/htlc"
	"github.com/stretchr/testify/require"
)

func TestBuildClaimPsbt_CarriesWitnessUtxoAndScript(t *testing.T) {
	t.Parallel()

	lpPriv := testPrivKey(0x01)
	rec := testRecord(t, lpPriv)

	outpoint := wire.OutPoint{Hash: chainhash.Hash{4, 5, 6}, Index: 1}
	fundingValue := btcutil.Amount(75_000)

	packet, err := BuildClaimPsbt(outpoint, fundingValue, rec.Script, []byte{0x00, 0x14, 0xAA}, 1_000)
	require.NoError(t, err)
	require.Len(t, packet.Inputs, 1)
	require.Equal(t, int64(fundingValue), packet.Inputs[0].WitnessUtxo.Value)
	scriptHash := sha256.Sum256(rec.Script)
	require.Equal(t, append([]byte{0x00, 0x20}, scriptHash[:]...), packet.Inputs[0].WitnessUtxo.PkScript)
	require.Equal(t, rec.Script, []byte(packet.Inputs[0].WitnessScript))
	require.Equal(t, int64(74_000), packet.UnsignedTx.TxOut[0].Value)
}

func TestFinalizeClaimPsbt_PopulatesFinalScriptWitness(t *testing.T) {
	t.Parallel()

	lpPriv := testPrivKey(0x01)
	rec := testRecord(t, lpPriv)

	outpoint := wire.OutPoint{Hash: chainhash.Hash{7, 8, 9}, Index: 0}
	fundingValue := btcutil.Amount(60_000)

	packet, err := BuildClaimPsbt(outpoint, fundingValue, rec.Script, []byte{0x00, 0x14, 0xBB}, 500)
	require.NoError(t, err)

	var preimage htlc.Preimage
	for i := range preimage {
		preimage[i] = byte(i + 1)
	}
	sig := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	require.NoError(t, FinalizeClaimPsbt(packet, sig, preimage, rec.Script))
	require.NotEmpty(t, packet.Inputs[0].FinalScriptWitness)
	require.Len(t, packet.UnsignedTx.TxIn[0].Witness, 4)
}

func TestFinalizeClaimPsbt_RejectsMultiInputPacket(t *testing.T) {
	t.Parallel()

	lpPriv := testPrivKey(0x01)
	rec := testRecord(t, lpPriv)

	outpoint := wire.OutPoint{Hash: chainhash.Hash{1}, Index: 0}
	packet, err := BuildClaimPsbt(outpoint, 10_000, rec.Script, []byte{0x00, 0x14, 0xCC}, 500)
	require.NoError(t, err)

	packet.Inputs = append(packet.Inputs, packet.Inputs[0])

	var preimage htlc.Preimage
	require.Error(t, FinalizeClaimPsbt(packet, []byte{0x01}, preimage, rec.Script))
}
