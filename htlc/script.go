package htlc

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// Network identifies the Bitcoin network the HTLC address is derived
// for. It controls only the address HRP/version bytes; script bytes
// are network-independent.
type Network string

const (
	NetworkMainnet Network = "Mainnet"
	NetworkTestnet Network = "Testnet"
	NetworkSignet  Network = "Signet"
	NetworkRegtest Network = "Regtest"
)

// Params returns the chaincfg.Params for the network, or an error for
// an unrecognized value.
func (n Network) Params() (*chaincfg.Params, error) {
	switch n {
	case NetworkMainnet:
		return &chaincfg.MainNetParams, nil
	case NetworkTestnet:
		return &chaincfg.TestNet3Params, nil
	case NetworkSignet:
		return &chaincfg.SigNetParams, nil
	case NetworkRegtest:
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("%w: unknown network %q", ErrInvalidInput, n)
	}
}

// ParsePubKey validates that raw is a 33-byte compressed secp256k1
// public key.
func ParsePubKey(raw []byte) (*btcec.PublicKey, error) {
	if len(raw) != 33 {
		return nil, fmt.Errorf("%w: public key must be 33-byte compressed, got %d bytes",
			ErrInvalidInput, len(raw))
	}
	pub, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid public key: %v", ErrInvalidInput, err)
	}
	return pub, nil
}

// BuildScript assembles the dual-path witness script:
//
//	OP_IF
//	  OP_SHA256 <payment_hash:32> OP_EQUALVERIFY
//	  <lp_pubkey:33> OP_CHECKSIG
//	OP_ELSE
//	  <timelock_blocks:int> OP_CHECKSEQUENCEVERIFY OP_DROP
//	  <user_pubkey:33> OP_CHECKSIG
//	OP_ENDIF
//
// Two calls with equal inputs produce byte-identical output:
// txscript.ScriptBuilder uses minimal push/integer encoding
// deterministically, and no wall-clock or randomness is consulted.
func BuildScript(paymentHash PaymentHash, lpPubKey, userPubKey []byte, timelockBlocks uint32) ([]byte, error) {
	if _, err := ParsePubKey(lpPubKey); err != nil {
		return nil, fmt.Errorf("lp_pubkey: %w", err)
	}
	if _, err := ParsePubKey(userPubKey); err != nil {
		return nil, fmt.Errorf("user_pubkey: %w", err)
	}

	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_IF)
	builder.AddOp(txscript.OP_SHA256)
	builder.AddData(paymentHash[:])
	builder.AddOp(txscript.OP_EQUALVERIFY)
	builder.AddData(lpPubKey)
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ELSE)
	builder.AddInt64(int64(timelockBlocks))
	builder.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	builder.AddData(userPubKey)
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ENDIF)

	script, err := builder.Script()
	if err != nil {
		return nil, fmt.Errorf("failed to assemble htlc script: %w", err)
	}
	return script, nil
}

// DeriveAddress computes the P2WSH address for script on the given
// network: SHA-256(script) wrapped as a segwit v0 witness program.
func DeriveAddress(script []byte, network Network) (btcutil.Address, error) {
	params, err := network.Params()
	if err != nil {
		return nil, err
	}

	scriptHash := sha256.Sum256(script)
	addr, err := btcutil.NewAddressWitnessScriptHash(scriptHash[:], params)
	if err != nil {
		return nil, fmt.Errorf("failed to derive p2wsh address: %w", err)
	}
	return addr, nil
}
