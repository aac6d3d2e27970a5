package ics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Source is a single ICS feed subscription for one user's calendar.
type Source struct {
	ID         string
	URL        string
	OwnerEmail string
}

// Fetcher retrieves ICS payloads over HTTP.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates an ICS fetcher with the given request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch downloads the raw ICS body for one source.
func (f *Fetcher) Fetch(ctx context.Context, src Source) ([]byte, error) {
	if src.URL == "" {
		return nil, fmt.Errorf("ics source %s has no URL", src.ID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build ics request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch ics %s: %w", src.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch ics %s: unexpected status %s", src.ID, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ics body: %w", err)
	}
	return body, nil
}
