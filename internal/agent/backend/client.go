// Package backend talks to the remote collection service over HTTP. Every
// call is bounded by the client timeout; any transport error or non-success
// response is reported as a delivery failure and left to the sync engine's
// retry discipline.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/webtrail/internal/common"
)

// Client is the collection-backend interface consumed by the sync engine.
type Client interface {
	// CreatePage submits one captured record (page data or highlight) and
	// returns the backend-assigned identifier.
	CreatePage(ctx context.Context, payload json.RawMessage) (int64, error)

	// ReportTimeSpent adds dwell seconds to an already-synced page.
	ReportTimeSpent(ctx context.Context, backendID int64, seconds int) error

	// Ping checks backend reachability.
	Ping(ctx context.Context) error
}

// HTTPClient implements Client against the collection service's JSON API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient returns a client for the service at baseURL (no trailing
// slash). timeout bounds every request; a delivery attempt that exceeds it
// fails, it is never left dangling.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// collectResponse is the body returned by POST /collect.
type collectResponse struct {
	Success bool  `json:"success"`
	PageID  int64 `json:"page_id"`
}

func (c *HTTPClient) CreatePage(ctx context.Context, payload json.RawMessage) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/collect", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrorDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("%w: %s: %s", common.ErrorDeliveryFailed, resp.Status, string(b))
	}

	var body collectResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("%w: bad response body: %v", common.ErrorDeliveryFailed, err)
	}
	if !body.Success {
		return 0, fmt.Errorf("%w: backend reported failure", common.ErrorDeliveryFailed)
	}

	return body.PageID, nil
}

func (c *HTTPClient) ReportTimeSpent(ctx context.Context, backendID int64, seconds int) error {
	payload, err := json.Marshal(map[string]int{"seconds": seconds})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/v1/pages/%d/time-spent", c.baseURL, backendID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s", common.ErrorDeliveryFailed, resp.Status)
	}
	return nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return nil
}

// WaitReady polls the backend until it answers the health check or ctx is
// cancelled, backing off between probes. Used at startup so the first sweep
// does not race a backend that is still coming up; the agent runs fine if it
// never succeeds.
func WaitReady(ctx context.Context, c Client, maxWait time.Duration) error {
	b := retry.NewFibonacci(500 * time.Millisecond)
	b = retry.WithCappedDuration(5*time.Second, b)
	b = retry.WithMaxDuration(maxWait, b)

	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := c.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
