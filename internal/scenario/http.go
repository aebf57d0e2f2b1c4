package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dsr-ph/dsr-loadtest/pkg/config"
)

// TokenSource holds the bearer token acquired during setup. It is written
// once by the orchestrator and read concurrently by every virtual user.
type TokenSource struct {
	mu    sync.RWMutex
	token string
}

// Set stores the token
func (t *TokenSource) Set(token string) {
	t.mu.Lock()
	t.token = token
	t.mu.Unlock()
}

// Get returns the current token
func (t *TokenSource) Get() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token
}

// Client issues scenario requests against the target system
type Client struct {
	target config.TargetConfig
	http   *http.Client
	tokens *TokenSource
}

// NewClient creates a scenario client for the target
func NewClient(target config.TargetConfig, tokens *TokenSource) *Client {
	return &Client{
		target: target,
		http: &http.Client{
			Timeout: target.RequestTimeout,
		},
		tokens: tokens,
	}
}

// Do performs one request and classifies the result. wantStatus of 0 accepts
// any 2xx response.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}, wantStatus int) (Outcome, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return Outcome{}, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.target.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, c.target.BaseURL+path, reqBody)
	if err != nil {
		return Outcome{}, fmt.Errorf("build request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens.Get(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)

	if err != nil {
		return Outcome{
			Success:   false,
			Duration:  duration,
			ErrorKind: classifyTransportError(err),
		}, nil
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	outcome := Outcome{
		Duration:   duration,
		StatusCode: resp.StatusCode,
	}

	switch {
	case resp.StatusCode >= 500:
		outcome.ErrorKind = ErrorKindServer5xx
	case wantStatus != 0 && resp.StatusCode != wantStatus:
		outcome.ErrorKind = ErrorKindAssertion
	case wantStatus == 0 && (resp.StatusCode < 200 || resp.StatusCode >= 300):
		outcome.ErrorKind = ErrorKindAssertion
	default:
		outcome.Success = true
	}

	return outcome, nil
}

func classifyTransportError(err error) ErrorKind {
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return ErrorKindTimeout
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return ErrorKindTimeout
	}
	return ErrorKindNetwork
}

// Default weights approximate the production traffic mix: registration-heavy
// with a tail of payment and grievance work.
var defaultWeights = map[string]float64{
	"household_registration": 4,
	"eligibility_check":      3,
	"payment_disbursement":   2,
	"grievance_filing":       1,
	"analytics_query":        1,
}

// Builtin returns the built-in scenario set for the social-registry target.
// Weight overrides replace the defaults per scenario name.
func Builtin(client *Client, overrides map[string]float64) []Definition {
	weight := func(name string) float64 {
		if w, ok := overrides[name]; ok {
			return w
		}
		return defaultWeights[name]
	}

	return []Definition{
		{
			Name:   "household_registration",
			Weight: weight("household_registration"),
			Execute: func(ctx context.Context) (Outcome, error) {
				body := map[string]interface{}{
					"household_ref": uuid.New().String(),
					"region":        "NCR",
					"member_count":  4,
				}
				return client.Do(ctx, http.MethodPost, client.target.ServicePath(config.ServiceRegistration), body, 0)
			},
		},
		{
			Name:   "eligibility_check",
			Weight: weight("eligibility_check"),
			Execute: func(ctx context.Context) (Outcome, error) {
				path := client.target.ServicePath(config.ServiceEligibility) + "?household_ref=" + uuid.New().String()
				return client.Do(ctx, http.MethodGet, path, nil, 0)
			},
		},
		{
			Name:   "payment_disbursement",
			Weight: weight("payment_disbursement"),
			Execute: func(ctx context.Context) (Outcome, error) {
				body := map[string]interface{}{
					"beneficiary_ref": uuid.New().String(),
					"amount":          1400.00,
					"channel":         "gcash",
				}
				return client.Do(ctx, http.MethodPost, client.target.ServicePath(config.ServicePayment), body, 0)
			},
		},
		{
			Name:   "grievance_filing",
			Weight: weight("grievance_filing"),
			Execute: func(ctx context.Context) (Outcome, error) {
				body := map[string]interface{}{
					"case_ref": uuid.New().String(),
					"category": "payment_dispute",
				}
				return client.Do(ctx, http.MethodPost, client.target.ServicePath(config.ServiceGrievance), body, 0)
			},
		},
		{
			Name:   "analytics_query",
			Weight: weight("analytics_query"),
			Execute: func(ctx context.Context) (Outcome, error) {
				return client.Do(ctx, http.MethodGet, client.target.ServicePath(config.ServiceAnalytics), nil, 0)
			},
		},
	}
}
