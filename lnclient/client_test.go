package lnclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(&Config{BaseURL: srv.URL, RetryAttempts: 1, RateLimit: 1000})
	require.NoError(t, err)
	return c
}

func TestDecodeInvoice_Success(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/decodelninvoice", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NotEmpty(t, body["invoice"])

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(DecodeInvoiceResponse{
			PaymentHash: "f4d376425855e2354bf30e17904f4624f6f9aa297973cca0445cdf4cef718b2a",
			AmtMsat:     13000,
		})
	})

	resp, err := client.DecodeInvoice(context.Background(), "lnbc...")
	require.NoError(t, err)
	require.Equal(t, uint64(13000), resp.AmtMsat)
}

func TestDecodeInvoice_BearerHeaderSentWhenConfigured(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(DecodeInvoiceResponse{PaymentHash: "ab"})
	}))
	t.Cleanup(srv.Close)

	client, err := New(&Config{BaseURL: srv.URL, APIKey: "secret-token"})
	require.NoError(t, err)

	_, err = client.DecodeInvoice(context.Background(), "lnbc...")
	require.NoError(t, err)
}

func TestDecodeInvoice_NonSuccessIsRemoteError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("invoice malformed"))
	})

	_, err := client.DecodeInvoice(context.Background(), "bogus")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrRemote)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	require.Equal(t, http.StatusBadRequest, remoteErr.StatusCode)
	require.Equal(t, "invoice malformed", remoteErr.Body)
}

func TestDecodeInvoice_EmptyBodyNonSuccess(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.DecodeInvoice(context.Background(), "x")
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	require.Equal(t, "", remoteErr.Body)
}

func TestDecodeInvoice_MalformedJSONIsParseError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{not json"))
	})

	_, err := client.DecodeInvoice(context.Background(), "x")
	require.ErrorIs(t, err, ErrParse)
}

func TestPayInvoice_NeverRetries(t *testing.T) {
	t.Parallel()

	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("node busy"))
	})

	_, err := client.PayInvoice(context.Background(), "lnbc...")
	require.Error(t, err)
	require.Equal(t, 1, calls, "pay_invoice must not be retried by the transport layer")
}

func TestGetPayment_RetriesOn5xxThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		preimage := "86a85cd1cb86c51186d190972c9f8413f436911fc0de241b6df20877ebbadecc"
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(GetPaymentResponse{
			Payment: PaymentDetails{
				Status:      PaymentSucceeded,
				PreimageHex: &preimage,
			},
		})
	})

	resp, err := client.GetPayment(context.Background(), "f4d3...")
	require.NoError(t, err)
	require.Equal(t, PaymentSucceeded, resp.Payment.Status)
	require.Equal(t, 2, calls)
}

func TestPaymentDetails_Preimage_SucceededWithoutPreimageIsProtocolError(t *testing.T) {
	t.Parallel()

	details := PaymentDetails{Status: PaymentSucceeded}
	_, err := details.Preimage()
	require.ErrorIs(t, err, ErrProtocol)
}

func TestPaymentDetails_Preimage_MalformedHexIsParseError(t *testing.T) {
	t.Parallel()

	bad := "not-hex"
	details := PaymentDetails{Status: PaymentSucceeded, PreimageHex: &bad}
	_, err := details.Preimage()
	require.ErrorIs(t, err, ErrParse)
}

func TestPaymentDetails_Preimage_Valid(t *testing.T) {
	t.Parallel()

	preimage := "86a85cd1cb86c51186d190972c9f8413f436911fc0de241b6df20877ebbadecc"
	details := PaymentDetails{Status: PaymentSucceeded, PreimageHex: &preimage}
	p, err := details.Preimage()
	require.NoError(t, err)
	require.Equal(t, preimage, p.String())
}
