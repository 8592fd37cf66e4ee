// Package scrape handles listing page downloading and ad extraction.
package scrape

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryPolicy bounds the fetch retry loop. Between attempts (not before
// the first) the fetcher sleeps a uniformly random duration in
// [MinDelay, MaxDelay).
type RetryPolicy struct {
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy matches the sites' tolerance: three attempts with a
// 2-5 second randomized pause between them.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	MinDelay:    2 * time.Second,
	MaxDelay:    5 * time.Second,
}

// Browser user agents rotated across requests.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:90.0) Gecko/20100101 Firefox/90.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Safari/605.1.15",
}

// Fetcher downloads listing pages with bounded retries.
type Fetcher struct {
	client  HTTPClient
	policy  RetryPolicy
	timeout time.Duration
}

// New creates a Fetcher with the given HTTP client and the default retry
// policy.
func New(client HTTPClient) *Fetcher {
	return NewWithPolicy(client, DefaultRetryPolicy)
}

// NewWithPolicy creates a Fetcher with a custom retry policy (useful for
// testing).
func NewWithPolicy(client HTTPClient, policy RetryPolicy) *Fetcher {
	return &Fetcher{
		client:  client,
		policy:  policy,
		timeout: 10 * time.Second,
	}
}

// Fetch downloads the page at url and returns its markup. Network errors
// and non-2xx responses are retried per the policy; exhausting all
// attempts returns the last error.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var markup string

	backoff := retry.WithMaxRetries(uint64(f.policy.MaxAttempts-1), retry.BackoffFunc(func() (time.Duration, bool) {
		spread := f.policy.MaxDelay - f.policy.MinDelay
		if spread <= 0 {
			return f.policy.MinDelay, false
		}
		return f.policy.MinDelay + time.Duration(rand.Int63n(int64(spread))), false
	}))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		body, err := f.fetchOnce(ctx, url)
		if err != nil {
			return retry.RetryableError(err)
		}
		markup = body
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	return markup, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "az-AZ,az;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// FetchBytes downloads a binary resource (ad photos) without retries.
func (f *Fetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}
