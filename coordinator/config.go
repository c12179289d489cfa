package coordinator

import (
	"context"
	"fmt"

	"github.com/btcsuite/btclog"
	"github.com/lightninglabs/rgbln-swap/htlc"
	"github.com/lightninglabs/rgbln-swap/lnclient"
	"github.com/lightninglabs/rgbln-swap/rgbwallet"
)

// log is the package-level subsystem logger, disabled until UseLogger
// is called by an embedding application.
var log = btclog.Disabled

// UseLogger installs a subsystem logger for the coordinator package.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// LNClient is the subset of lnclient.Client the coordinator depends
// on. Declaring it here (rather than depending on the concrete type)
// keeps the coordinator testable against a fake.
type LNClient interface {
	DecodeInvoice(ctx context.Context, invoice string) (*lnclient.DecodeInvoiceResponse, error)
	PayInvoice(ctx context.Context, invoice string) (*lnclient.PayInvoiceResponse, error)
	GetPayment(ctx context.Context, paymentHashHex string) (*lnclient.GetPaymentResponse, error)
}

var _ LNClient = (*lnclient.Client)(nil)

// SwapStore is the optional durable persistence capability described
// in spec.md §6 ("a straightforward addition, key by swap_id"). The
// Coordinator treats its in-memory ActiveSwaps map as authoritative;
// when a store is configured it is a write-through snapshot target,
// not a cache.
type SwapStore interface {
	Put(ctx context.Context, rec *htlc.Record) error
	All(ctx context.Context) ([]*htlc.Record, error)
}

// Config holds the Coordinator's configuration.
type Config struct {
	// LNClient decodes, pays, and polls RGB-LN invoices.
	LNClient LNClient

	// Wallet is the RGB-asset-aware wallet facade.
	Wallet rgbwallet.Facade

	// Store is an optional durable persistence backend. If nil, swap
	// state lives only in memory for the process lifetime.
	Store SwapStore

	// Network controls the HRP of derived HTLC addresses.
	Network htlc.Network

	// LpPubKey is this coordinator's own secp256k1 compressed public
	// key, used as the claim-path key in every HTLC it constructs.
	LpPubKey []byte

	// ProxyURL is the RGB relay URL passed to script_receive.
	ProxyURL string

	// DefaultTimelockBlocks is the relative CSV delay applied to new
	// HTLCs. Default: 144.
	DefaultTimelockBlocks uint32

	// InvoiceExpirySeconds is the expiry passed to script_receive.
	// Default: 86400.
	InvoiceExpirySeconds uint64

	// MinConfirmations is the confirmation depth passed to
	// script_receive. Default: 1.
	MinConfirmations uint32
}

// DefaultConfig returns a Config with the constants spec.md §6
// enumerates: default_timelock_blocks=144, invoice_expiry_seconds=86400.
// LNClient, Wallet, Network, LpPubKey, and ProxyURL must still be set
// by the caller.
func DefaultConfig() *Config {
	return &Config{
		DefaultTimelockBlocks: htlc.DefaultTimelockBlocks,
		InvoiceExpirySeconds:  86400,
		MinConfirmations:      1,
	}
}

// Validate checks that all required collaborators are present.
func (c *Config) Validate() error {
	if c.LNClient == nil {
		return fmt.Errorf("ln client required")
	}
	if c.Wallet == nil {
		return fmt.Errorf("wallet required")
	}
	if len(c.LpPubKey) != 33 {
		return fmt.Errorf("lp_pubkey must be a 33-byte compressed public key")
	}
	if c.ProxyURL == "" {
		return fmt.Errorf("proxy_url required")
	}
	if _, err := c.Network.Params(); err != nil {
		return fmt.Errorf("invalid network: %w", err)
	}
	if c.DefaultTimelockBlocks == 0 {
		return fmt.Errorf("default_timelock_blocks must be set (spec default 144)")
	}
	if c.InvoiceExpirySeconds == 0 {
		return fmt.Errorf("invoice_expiry_seconds must be set (spec default 86400)")
	}
	return nil
}
