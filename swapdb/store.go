// Package swapdb provides the optional durable persistence layer
// spec.md §6 calls out as "a straightforward addition, key by
// swap_id." It follows the Config/Validate/New shape used throughout
// this codebase's other packages, adapted from the teacher's sqlite
// store factory.
package swapdb

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/lightninglabs/rgbln-swap/htlc"

	_ "modernc.org/sqlite"
)

// Config holds configuration for the sqlite-backed swap store.
type Config struct {
	// DBPath is the filesystem path of the sqlite database. Use
	// ":memory:" for an ephemeral, process-local store (handy for
	// tests).
	DBPath string
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path required")
	}
	return nil
}

// SqliteSwapStore is a coordinator.SwapStore backed by sqlite. Schema
// migrations are out of scope: a single table with an idempotent
// CREATE TABLE IF NOT EXISTS is sufficient for one row shape.
type SqliteSwapStore struct {
	db *sql.DB
}

// New opens (creating if necessary) the sqlite database at
// cfg.DBPath and ensures the swaps table exists.
func New(cfg *Config) (*SqliteSwapStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS swaps (
	swap_id TEXT PRIMARY KEY,
	payment_hash TEXT NOT NULL,
	asset_id TEXT NOT NULL,
	amount INTEGER NOT NULL,
	lp_pubkey TEXT NOT NULL,
	user_pubkey TEXT NOT NULL,
	timelock_blocks INTEGER NOT NULL,
	network TEXT NOT NULL,
	status INTEGER NOT NULL,
	recipient_id TEXT,
	batch_transfer_idx INTEGER,
	preimage TEXT
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create swaps table: %w", err)
	}

	return &SqliteSwapStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SqliteSwapStore) Close() error {
	return s.db.Close()
}

// Put upserts rec's current snapshot, keyed by swap_id.
func (s *SqliteSwapStore) Put(ctx context.Context, rec *htlc.Record) error {
	snap := rec.Snapshot()

	var recipientID sql.NullString
	if snap.RecipientID != nil {
		recipientID = sql.NullString{String: *snap.RecipientID, Valid: true}
	}
	var batchTransferIdx sql.NullInt64
	if snap.BatchTransferIdx != nil {
		batchTransferIdx = sql.NullInt64{Int64: int64(*snap.BatchTransferIdx), Valid: true}
	}
	var preimageHex sql.NullString
	if snap.Preimage != nil {
		preimageHex = sql.NullString{String: snap.Preimage.String(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO swaps (swap_id, payment_hash, asset_id, amount, lp_pubkey, user_pubkey, timelock_blocks, network, status, recipient_id, batch_transfer_idx, preimage)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(swap_id) DO UPDATE SET
	status = excluded.status,
	recipient_id = excluded.recipient_id,
	batch_transfer_idx = excluded.batch_transfer_idx,
	preimage = excluded.preimage;`,
		string(snap.SwapId), hex.EncodeToString(rec.PaymentHash[:]), rec.AssetId, rec.Amount,
		hex.EncodeToString(rec.LpPubKey), hex.EncodeToString(rec.UserPubKey),
		rec.TimelockBlks, string(rec.Network), uint8(snap.Status), recipientID, batchTransferIdx, preimageHex,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert swap %s: %w", snap.SwapId, err)
	}
	return nil
}

// Get loads a single swap by id, or nil if it is not present.
func (s *SqliteSwapStore) Get(ctx context.Context, swapID htlc.SwapId) (*htlc.Record, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT payment_hash, asset_id, amount, lp_pubkey, user_pubkey, timelock_blocks, network, status, recipient_id, batch_transfer_idx, preimage
FROM swaps WHERE swap_id = ?;`, string(swapID))

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// All loads every persisted swap, used to repopulate ActiveSwaps at
// startup.
func (s *SqliteSwapStore) All(ctx context.Context) ([]*htlc.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT payment_hash, asset_id, amount, lp_pubkey, user_pubkey, timelock_blocks, network, status, recipient_id, batch_transfer_idx, preimage
FROM swaps;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query swaps: %w", err)
	}
	defer rows.Close()

	var out []*htlc.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes a swap's persisted snapshot, e.g. once it reaches a
// terminal state and the operator no longer needs durability for it.
func (s *SqliteSwapStore) Delete(ctx context.Context, swapID htlc.SwapId) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM swaps WHERE swap_id = ?;`, string(swapID))
	if err != nil {
		return fmt.Errorf("failed to delete swap %s: %w", swapID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reconstructs an htlc.Record from a persisted row. The
// script and address are rederived from the stored parameters rather
// than stored redundantly, preserving the invariant that they are a
// pure function of (payment_hash, lp_pubkey, user_pubkey,
// timelock_blocks).
func scanRecord(row rowScanner) (*htlc.Record, error) {
	var (
		paymentHashHex, assetID, lpPubKeyHex, userPubKeyHex, network string
		amount                                                       uint64
		timelockBlocks                                               uint32
		status                                                       uint8
		recipientID, preimageHex                                     sql.NullString
		batchTransferIdx                                             sql.NullInt64
	)

	if err := row.Scan(&paymentHashHex, &assetID, &amount, &lpPubKeyHex, &userPubKeyHex,
		&timelockBlocks, &network, &status, &recipientID, &batchTransferIdx, &preimageHex); err != nil {
		return nil, err
	}

	paymentHash, err := htlc.ParsePaymentHash(paymentHashHex)
	if err != nil {
		return nil, fmt.Errorf("corrupt persisted payment_hash: %w", err)
	}
	lpPubKey, err := hex.DecodeString(lpPubKeyHex)
	if err != nil {
		return nil, fmt.Errorf("corrupt persisted lp_pubkey: %w", err)
	}
	userPubKey, err := hex.DecodeString(userPubKeyHex)
	if err != nil {
		return nil, fmt.Errorf("corrupt persisted user_pubkey: %w", err)
	}

	rec, err := htlc.NewRecord(paymentHash, amount, assetID, lpPubKey, userPubKey, timelockBlocks, htlc.Network(network))
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct htlc record: %w", err)
	}

	// Replay the persisted status by walking the same transitions the
	// coordinator would have applied; this keeps reconstruction going
	// through the same invariant checks as live operation rather than
	// poking the private status field directly.
	target := htlc.Status(status)
	if target == htlc.StatusCreated {
		return rec, nil
	}
	if recipientID.Valid {
		if err := rec.MarkAwaitingFunding(recipientID.String); err != nil {
			return nil, err
		}
	}
	if batchTransferIdx.Valid {
		if err := rec.SetBatchTransferIdx(uint32(batchTransferIdx.Int64)); err != nil {
			return nil, err
		}
	}
	if target == htlc.StatusAwaitingFunding {
		return rec, nil
	}
	if target == htlc.StatusExpired {
		if err := rec.MarkExpired(); err != nil {
			return nil, err
		}
		return rec, nil
	}

	if err := rec.MarkFunded(); err != nil {
		return nil, err
	}
	if target == htlc.StatusFunded {
		return rec, nil
	}
	if target == htlc.StatusRefunded {
		if err := rec.MarkRefunded(); err != nil {
			return nil, err
		}
		return rec, nil
	}

	if err := rec.MarkPaymentInProgress(); err != nil {
		return nil, err
	}
	if target == htlc.StatusPaymentInProgress {
		return rec, nil
	}

	if target == htlc.StatusClaimed {
		if !preimageHex.Valid {
			return nil, fmt.Errorf("corrupt persisted swap: status Claimed but preimage missing")
		}
		raw, err := hex.DecodeString(preimageHex.String)
		if err != nil || len(raw) != 32 {
			return nil, fmt.Errorf("corrupt persisted preimage")
		}
		var preimage htlc.Preimage
		copy(preimage[:], raw)
		if err := rec.MarkClaimed(preimage); err != nil {
			return nil, err
		}
	}

	return rec, nil
}
