package htlc

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRecord(t *testing.T) *Record {
	t.Helper()
	ph := mustPaymentHash(t, s1PaymentHash)
	lp := testPubKey(t, 0x01)
	user := testPubKey(t, 0x02)

	rec, err := NewRecord(ph, 13, "rgb:AxBwL0~H-EAIs51Q-p1rNBjG-NYkBmNb-gt~mV4o-bFC7GPg", lp, user, 144, NetworkRegtest)
	require.NoError(t, err)
	return rec
}

func TestNewRecord_SwapIdMatchesShaOfPaymentHash(t *testing.T) {
	t.Parallel()

	rec := newTestRecord(t)
	require.Equal(t, DeriveSwapId(rec.PaymentHash), rec.SwapId)
	require.Equal(t, StatusCreated, rec.Status())
}

func TestNewRecord_RejectsBoundaryInputs(t *testing.T) {
	t.Parallel()

	ph := mustPaymentHash(t, s1PaymentHash)
	lp := testPubKey(t, 0x01)
	user := testPubKey(t, 0x02)

	_, err := NewRecord(ph, 0, "rgb:asset", lp, user, 144, NetworkRegtest)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewRecord(ph, 13, "", lp, user, 144, NetworkRegtest)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRecord_ZeroTimelockBuildsButElseIsImmediatelySpendable(t *testing.T) {
	t.Parallel()

	ph := mustPaymentHash(t, s1PaymentHash)
	lp := testPubKey(t, 0x01)
	user := testPubKey(t, 0x02)

	rec, err := NewRecord(ph, 13, "rgb:asset", lp, user, 0, NetworkRegtest)
	require.NoError(t, err)
	require.Equal(t, uint32(0), rec.TimelockBlks)

	// The ELSE branch starts at offset 72 (after OP_IF, OP_SHA256, the
	// 33-byte hash push, OP_EQUALVERIFY, the 34-byte key push,
	// OP_CHECKSIG and OP_ELSE): a CSV delay of OP_0 means no wait.
	require.Equal(t, []byte{0x00, 0xb2}, rec.Script[72:74])
}

func TestRecord_HappyPathTransitions(t *testing.T) {
	t.Parallel()

	rec := newTestRecord(t)

	require.NoError(t, rec.MarkAwaitingFunding("recipient-1"))
	require.Equal(t, StatusAwaitingFunding, rec.Status())
	require.Equal(t, "recipient-1", *rec.RecipientID())

	require.NoError(t, rec.MarkFunded())
	require.Equal(t, StatusFunded, rec.Status())

	// check_htlc_funding monotonicity: calling MarkFunded again is a
	// harmless no-op, never regresses.
	require.NoError(t, rec.MarkFunded())
	require.Equal(t, StatusFunded, rec.Status())

	require.NoError(t, rec.MarkPaymentInProgress())
	require.Equal(t, StatusPaymentInProgress, rec.Status())

	preimageRaw, err := hex.DecodeString(s1Preimage)
	require.NoError(t, err)
	var preimage Preimage
	copy(preimage[:], preimageRaw)

	require.NoError(t, rec.MarkClaimed(preimage))
	require.Equal(t, StatusClaimed, rec.Status())
	require.NotNil(t, rec.Preimage())
	require.Equal(t, preimage, *rec.Preimage())
	require.False(t, rec.CanRefund())
}

func TestRecord_RevertToFundedOnPaymentFailure(t *testing.T) {
	t.Parallel()

	rec := newTestRecord(t)
	require.NoError(t, rec.MarkAwaitingFunding("r1"))
	require.NoError(t, rec.MarkFunded())
	require.NoError(t, rec.MarkPaymentInProgress())

	require.NoError(t, rec.RevertToFunded())
	require.Equal(t, StatusFunded, rec.Status())
}

func TestRecord_IllegalTransitionsRejected(t *testing.T) {
	t.Parallel()

	rec := newTestRecord(t)

	// Cannot mark funded before awaiting funding.
	require.ErrorIs(t, rec.MarkFunded(), ErrInvalidState)

	// Cannot claim a brand-new record.
	var zero Preimage
	require.Error(t, rec.MarkClaimed(zero))

	require.NoError(t, rec.MarkAwaitingFunding("r1"))

	// recipient_id is set exactly once; re-entering AwaitingFunding
	// from itself is not a legal transition.
	require.ErrorIs(t, rec.MarkAwaitingFunding("r2"), ErrInvalidState)
}

func TestRecord_BatchTransferIdxSetExactlyOnce(t *testing.T) {
	t.Parallel()

	rec := newTestRecord(t)
	require.Nil(t, rec.BatchTransferIdx())

	require.NoError(t, rec.SetBatchTransferIdx(7))
	require.NotNil(t, rec.BatchTransferIdx())
	require.Equal(t, uint32(7), *rec.BatchTransferIdx())

	require.ErrorIs(t, rec.SetBatchTransferIdx(8), ErrInvalidState)
}

func TestRecord_ClaimedIsNeverReversed(t *testing.T) {
	t.Parallel()

	rec := newTestRecord(t)
	require.NoError(t, rec.MarkAwaitingFunding("r1"))
	require.NoError(t, rec.MarkFunded())
	require.NoError(t, rec.MarkPaymentInProgress())

	preimageRaw, err := hex.DecodeString(s1Preimage)
	require.NoError(t, err)
	var preimage Preimage
	copy(preimage[:], preimageRaw)
	require.NoError(t, rec.MarkClaimed(preimage))

	require.Error(t, rec.MarkRefunded())
	require.Error(t, rec.RevertToFunded())
	require.Equal(t, StatusClaimed, rec.Status())
}

func TestRecord_MarkClaimed_RejectsInvalidPreimage(t *testing.T) {
	t.Parallel()

	rec := newTestRecord(t)
	require.NoError(t, rec.MarkAwaitingFunding("r1"))
	require.NoError(t, rec.MarkFunded())

	var zero Preimage
	err := rec.MarkClaimed(zero)
	require.Error(t, err)
	// Atomicity: a rejected claim must not have mutated status or
	// preimage (invariant 7 holds jointly or neither).
	require.Equal(t, StatusFunded, rec.Status())
	require.Nil(t, rec.Preimage())
}

func TestRecord_RefundInfoAvailableUntilClaimed(t *testing.T) {
	t.Parallel()

	rec := newTestRecord(t)
	require.True(t, rec.CanRefund())

	require.NoError(t, rec.MarkAwaitingFunding("r1"))
	require.True(t, rec.CanRefund())

	require.NoError(t, rec.MarkFunded())
	require.NoError(t, rec.MarkRefunded())
	require.Equal(t, StatusRefunded, rec.Status())
	require.True(t, rec.CanRefund())
}

func TestVerifyPreimage_RoundTripLaw(t *testing.T) {
	t.Parallel()

	var preimage Preimage
	for i := range preimage {
		preimage[i] = byte(i * 7)
	}
	sum := sha256.Sum256(preimage[:])

	var paymentHash PaymentHash
	copy(paymentHash[:], sum[:])

	require.True(t, VerifyPreimage(paymentHash, preimage))
}

func TestVerifyPreimage_RejectsWrongPreimage(t *testing.T) {
	t.Parallel()

	ph := mustPaymentHash(t, s1PaymentHash)
	var wrong Preimage // all zero bytes, per spec S3
	require.False(t, VerifyPreimage(ph, wrong))
}

func TestVerifyPreimage_S1Fixture(t *testing.T) {
	t.Parallel()

	ph := mustPaymentHash(t, s1PaymentHash)

	preimageRaw, err := hex.DecodeString(s1Preimage)
	require.NoError(t, err)
	var preimage Preimage
	copy(preimage[:], preimageRaw)

	require.True(t, VerifyPreimage(ph, preimage))
}
