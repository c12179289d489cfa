package signer

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightninglabs/rgbln-swap/htlc"
)

// BuildClaimPsbt wraps BuildClaimTx's output in an unsigned PSBT
// packet carrying the funding output as WitnessUtxo (its value and the
// P2WSH output script of fundingScript) and fundingScript as the
// witness script, the shape a remote or hardware signer needs to
// produce a claim-path signature without access to the chain itself.
func BuildClaimPsbt(
	fundingOutpoint wire.OutPoint,
	fundingValue btcutil.Amount,
	fundingScript []byte,
	destScript []byte,
	fee btcutil.Amount,
) (*psbt.Packet, error) {
	tx, err := BuildClaimTx(fundingOutpoint, fundingValue, destScript, fee)
	if err != nil {
		return nil, err
	}

	packet, err := psbt.NewFromUnsignedTx(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap claim tx in psbt: %w", err)
	}

	scriptHash := sha256.Sum256(fundingScript)
	packet.Inputs[0] = psbt.PInput{
		WitnessUtxo: &wire.TxOut{
			Value:    int64(fundingValue),
			PkScript: append([]byte{txscript.OP_0, txscript.OP_DATA_32}, scriptHash[:]...),
		},
		WitnessScript: fundingScript,
	}

	return packet, nil
}

// FinalizeClaimPsbt installs the claim-path witness produced by a
// Signer into packet's sole input and finalizes it, following the
// sign-then-finalize split used throughout the HD wallet's PSBT
// signing flow.
func FinalizeClaimPsbt(packet *psbt.Packet, sig []byte, preimage htlc.Preimage, script []byte) error {
	if len(packet.Inputs) != 1 {
		return fmt.Errorf("expected a single-input claim psbt, got %d", len(packet.Inputs))
	}

	witness := AssembleClaimWitness(sig, preimage, script)
	packet.UnsignedTx.TxIn[0].Witness = witness

	serialized, err := serializeWitness(witness)
	if err != nil {
		return fmt.Errorf("failed to serialize claim witness: %w", err)
	}
	packet.Inputs[0].FinalScriptWitness = serialized

	return nil
}

// serializeWitness encodes a witness stack in the wire format a PSBT's
// final_scriptwitness field expects: a compact-size item count
// followed by each item as a compact-size-prefixed byte string.
func serializeWitness(w wire.TxWitness) ([]byte, error) {
	var buf bytes.Buffer
	if err := wire.WriteVarInt(&buf, 0, uint64(len(w))); err != nil {
		return nil, err
	}
	for _, item := range w {
		if err := wire.WriteVarBytes(&buf, 0, item); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
