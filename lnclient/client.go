// Package lnclient implements a thin blocking HTTP client for an
// RGB-LN-capable Lightning node: decode an invoice, pay an invoice,
// and poll a payment by hash. Adapted from the mempool.space REST
// client's request/retry shape, with pay_invoice deliberately left
// non-retrying because it is not idempotent at the LN layer.
package lnclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/btcsuite/btclog"
	"golang.org/x/time/rate"
)

// log is the package-level subsystem logger, disabled until UseLogger
// is called by an embedding application.
var log = btclog.Disabled

// UseLogger installs a subsystem logger for the lnclient package.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// Config holds configuration for the LN node HTTP client.
type Config struct {
	// BaseURL is the HTTP root of the RGB-LN node, e.g.
	// "http://localhost:3000".
	BaseURL string

	// APIKey, if non-empty, is sent as an "Authorization: Bearer"
	// header on every request.
	APIKey string

	// Timeout is the per-attempt HTTP request timeout.
	// Default: 30 seconds.
	Timeout time.Duration

	// RetryAttempts bounds retries for idempotent calls
	// (decode_invoice, get_payment) only. pay_invoice never retries
	// regardless of this setting. Default: 3.
	RetryAttempts int

	// RetryDelay is the base delay between retry attempts; it backs
	// off linearly with attempt number. Default: 1 second.
	RetryDelay time.Duration

	// RateLimit is the number of requests per second allowed against
	// the node. Default: 10.
	RateLimit int
}

// DefaultConfig returns a Config with the defaults documented above.
// BaseURL must still be set by the caller.
func DefaultConfig() *Config {
	return &Config{
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
		RateLimit:     10,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url required")
	}
	return nil
}

// Client is an HTTP client for an RGB-LN node's decode/pay/getpayment
// API, with rate limiting and bounded retries on idempotent calls.
type Client struct {
	cfg *Config

	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// New constructs a Client, applying DefaultConfig() for any zero
// fields and validating the result.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	merged := *DefaultConfig()
	if cfg.BaseURL != "" {
		merged.BaseURL = cfg.BaseURL
	}
	if cfg.APIKey != "" {
		merged.APIKey = cfg.APIKey
	}
	if cfg.Timeout != 0 {
		merged.Timeout = cfg.Timeout
	}
	if cfg.RetryAttempts != 0 {
		merged.RetryAttempts = cfg.RetryAttempts
	}
	if cfg.RetryDelay != 0 {
		merged.RetryDelay = cfg.RetryDelay
	}
	if cfg.RateLimit != 0 {
		merged.RateLimit = cfg.RateLimit
	}

	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		cfg: &merged,
		httpClient: &http.Client{
			Timeout: merged.Timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(merged.RateLimit), merged.RateLimit),
	}, nil
}

// doRequest POSTs body (already JSON-encoded) to path and returns the
// raw response body on a 2xx status. When retryable is true,
// transport failures, 429s, and 5xxs are retried with linear backoff
// (RetryDelay times the attempt number, doubled for 429/5xx) up to
// cfg.RetryAttempts; when false (used for
// the non-idempotent pay_invoice call) a single attempt is made.
func (c *Client) doRequest(ctx context.Context, path string, body []byte, retryable bool) ([]byte, error) {
	url := c.cfg.BaseURL + path

	attempts := 1
	if retryable {
		attempts = c.cfg.RetryAttempts + 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %v", ErrNetwork, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: failed to build request: %v", ErrNetwork, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrNetwork, err)
			if retryable && attempt < attempts-1 {
				log.Warnf("lnclient: request to %s failed, retrying: %v", path, err)
				time.Sleep(c.cfg.RetryDelay * time.Duration(attempt+1))
				continue
			}
			return nil, lastErr
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, fmt.Errorf("%w: failed to read response body: %v", ErrNetwork, readErr)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, nil
		}

		remoteErr := &RemoteError{StatusCode: resp.StatusCode, Body: string(respBody)}
		switch {
		case resp.StatusCode == 429 || resp.StatusCode >= 500:
			lastErr = remoteErr
			if retryable && attempt < attempts-1 {
				log.Warnf("lnclient: %s returned %d, retrying", path, resp.StatusCode)
				time.Sleep(c.cfg.RetryDelay * time.Duration(attempt+1) * 2)
				continue
			}
			return nil, lastErr
		default:
			return nil, remoteErr
		}
	}

	return nil, fmt.Errorf("request to %s failed after %d attempts: %w", path, attempts, lastErr)
}

// DecodeInvoice decodes an RGB-LN invoice string, returning its
// payment hash and amount. Idempotent; retried on transient failure.
func (c *Client) DecodeInvoice(ctx context.Context, invoice string) (*DecodeInvoiceResponse, error) {
	reqBody, err := json.Marshal(map[string]string{"invoice": invoice})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode request: %v", ErrParse, err)
	}

	respBody, err := c.doRequest(ctx, "/decodelninvoice", reqBody, true)
	if err != nil {
		return nil, err
	}

	var decoded DecodeInvoiceResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &decoded, nil
}

// PayInvoice submits payment of an RGB-LN invoice. This operation is
// NOT idempotent at the LN layer and is never retried by this client:
// a transport failure after the node has already forwarded the HTLC
// must be resolved by polling GetPayment, not by resending the
// request.
func (c *Client) PayInvoice(ctx context.Context, invoice string) (*PayInvoiceResponse, error) {
	reqBody, err := json.Marshal(map[string]string{"invoice": invoice})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode request: %v", ErrParse, err)
	}

	respBody, err := c.doRequest(ctx, "/sendpayment", reqBody, false)
	if err != nil {
		return nil, err
	}

	var paid PayInvoiceResponse
	if err := json.Unmarshal(respBody, &paid); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &paid, nil
}

// GetPayment polls the status of a previously submitted payment by
// its payment hash. Idempotent; retried on transient failure.
func (c *Client) GetPayment(ctx context.Context, paymentHashHex string) (*GetPaymentResponse, error) {
	reqBody, err := json.Marshal(map[string]string{"payment_hash": paymentHashHex})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode request: %v", ErrParse, err)
	}

	respBody, err := c.doRequest(ctx, "/getpayment", reqBody, true)
	if err != nil {
		return nil, err
	}

	var got GetPaymentResponse
	if err := json.Unmarshal(respBody, &got); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &got, nil
}
