// Package fetcher retrieves remote JSON with per-host rate limiting.
package fetcher

import (
	"context"
	"io"
	"net/http"
)

// Fetcher defines the interface for talking to the price API.
type Fetcher interface {
	// Download fetches the URL and returns the response body. Non-200
	// statuses are errors.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// Do sends an arbitrary request and returns the response whatever its
	// status, after retries are exhausted.
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

var _ Fetcher = (*HTTPFetcher)(nil)
