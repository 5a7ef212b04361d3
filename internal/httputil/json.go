// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody bounds how much of an error response is kept for diagnostics.
const maxErrorBody = 512

// maxResponseBody bounds how much of a successful response is decoded.
// Tests lower it.
var maxResponseBody int64 = 8 << 20

// StatusError reports a non-200 provider response.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s API returned HTTP %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s API returned HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Request describes one JSON GET against a provider.
type Request struct {
	// Provider names the API in error messages.
	Provider  string
	URL       string
	UserAgent string
	Header    http.Header
}

// GetJSON performs a GET with 429 retries and decodes a 200 response body
// into dst. Any other status becomes a *StatusError.
func GetJSON(ctx context.Context, client *http.Client, r Request, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.UserAgent != "" {
		req.Header.Set("User-Agent", r.UserAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return fmt.Errorf("%s API request: %w", r.Provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Provider: r.Provider, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(dst); err != nil {
		return fmt.Errorf("parsing %s response: %w", r.Provider, err)
	}
	return nil
}
