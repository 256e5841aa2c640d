package providers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/datapeak/curator/internal/tracing"
)

// ErrUnavailable wraps any transport or remote failure from a ledger adapter.
// Callers decide what to do with it; adapters never substitute canned values.
var ErrUnavailable = errors.New("ledger unavailable")

// PrimaryLedger records approvals and mints reward tokens.
type PrimaryLedger interface {
	RecordApproval(ctx context.Context, submissionID string) (txRef string, err error)
	Mint(ctx context.Context, address, amount, reason string) (txRef string, err error)
}

// SecondaryLedger maintains the per-user reputation counter.
type SecondaryLedger interface {
	IncreaseReputation(ctx context.Context, address string, delta int64, reason string) (txRef string, err error)
}

// ledgerClient is the shared HTTP machinery for both adapters. Requests are
// JSON POSTs signed with HMAC-SHA256 over "<unix-ts>.<body>".
type ledgerClient struct {
	baseURL string
	secret  string
	timeout time.Duration
	http    *http.Client
}

func newLedgerClient(baseURL, secret string, timeout time.Duration) *ledgerClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ledgerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
	}
}

type txResponse struct {
	TxRef string `json:"txRef"`
	Error string `json:"error,omitempty"`
}

func (c *ledgerClient) post(ctx context.Context, path string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrUnavailable, err)
	}

	// Hard per-call deadline: a hung ledger must surface as a retryable
	// failure, not block a relay worker indefinitely.
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.sign(req, body)
	tracing.InjectHeaders(ctx, req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var out txResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && resp.StatusCode < 300 {
		return "", fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := out.Error
		if msg == "" {
			msg = resp.Status
		}
		return "", fmt.Errorf("%w: %s: %s", ErrUnavailable, path, msg)
	}
	if out.TxRef == "" {
		return "", fmt.Errorf("%w: %s: empty transaction reference", ErrUnavailable, path)
	}
	return out.TxRef, nil
}

func (c *ledgerClient) sign(req *http.Request, body []byte) {
	if strings.TrimSpace(c.secret) == "" {
		return
	}
	ts := time.Now().UTC().Unix()
	mac := hmac.New(sha256.New, []byte(c.secret))
	_, _ = mac.Write([]byte(fmt.Sprintf("%d.", ts)))
	_, _ = mac.Write(body)
	req.Header.Set("X-Curator-Timestamp", fmt.Sprintf("%d", ts))
	req.Header.Set("X-Curator-Signature", hex.EncodeToString(mac.Sum(nil)))
}

type httpPrimaryLedger struct{ *ledgerClient }

// NewHTTPPrimaryLedger builds the primary-ledger adapter against the
// configured gateway endpoint.
func NewHTTPPrimaryLedger(baseURL, secret string, timeout time.Duration) PrimaryLedger {
	return &httpPrimaryLedger{newLedgerClient(baseURL, secret, timeout)}
}

func (l *httpPrimaryLedger) RecordApproval(ctx context.Context, submissionID string) (string, error) {
	return l.post(ctx, "/approvals", map[string]any{
		"submissionId": submissionID,
	})
}

func (l *httpPrimaryLedger) Mint(ctx context.Context, address, amount, reason string) (string, error) {
	return l.post(ctx, "/mint", map[string]any{
		"address": address,
		"amount":  amount, // whole units; the gateway converts to minor units
		"reason":  reason,
	})
}

type httpSecondaryLedger struct{ *ledgerClient }

// NewHTTPSecondaryLedger builds the secondary-ledger adapter.
func NewHTTPSecondaryLedger(baseURL, secret string, timeout time.Duration) SecondaryLedger {
	return &httpSecondaryLedger{newLedgerClient(baseURL, secret, timeout)}
}

func (l *httpSecondaryLedger) IncreaseReputation(ctx context.Context, address string, delta int64, reason string) (string, error) {
	return l.post(ctx, "/reputation/increase", map[string]any{
		"address": address,
		"delta":   delta,
		"reason":  reason,
	})
}
