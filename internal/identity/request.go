package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

// getJSON GETs path, retrying transient failures, and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	body, err := c.retry(ctx, path, func() ([]byte, error) {
		return c.fetch(ctx, http.MethodGet, path)
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// fetch sends one request and returns the body of a 2xx response.
func (c *Client) fetch(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.secretKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.secretKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, newAPIError(resp, body)
	}
	return body, nil
}

// retry runs attempt until it succeeds, fails permanently, or runs out of
// retries. Waits double each time with +/-50% jitter, and never undercut a
// Retry-After from the provider.
func (c *Client) retry(ctx context.Context, path string, attempt func() ([]byte, error)) ([]byte, error) {
	backoff := c.retryBackoff
	var lastErr error

	for n := 0; n <= c.maxRetries; n++ {
		body, err := attempt()
		if err == nil {
			return body, nil
		}
		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return nil, err
		}
		if n == c.maxRetries {
			break
		}

		wait := backoff/2 + time.Duration(rand.Int63n(int64(backoff)+1))
		if apiErr.RetryAfter > wait {
			wait = apiErr.RetryAfter
		}
		c.logger.Debug("retrying identity request",
			"attempt", n+1,
			"status", apiErr.StatusCode,
			"backoff", wait,
			"path", path,
		)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
		backoff *= 2
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
