package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/nao1215/voiceline/internal/model"
)

// Default fetch settings.
const (
	// DefaultUserAgent identifies voiceline in wiki access logs.
	DefaultUserAgent = "voiceline/1.0 (+https://github.com/nao1215/voiceline)"

	// DefaultMaxBodySize is the largest response body accepted.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB
)

var (
	// ErrNotHTML is returned when a source responds with a non-HTML content type.
	ErrNotHTML = errors.New("response is not HTML")

	// ErrBodyTooLarge is returned when a response body exceeds the fetcher's
	// limit. The page is never scanned partially.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
)

// StatusError is returned when a source responds with a non-2xx status.
type StatusError struct {
	// URL is the requested address.
	URL string

	// StatusCode is the HTTP status received.
	StatusCode int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s from %s",
		e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// Fetcher retrieves source pages one at a time.
type Fetcher struct {
	// client performs the HTTP requests.
	client *http.Client

	// userAgent is the User-Agent header to send.
	userAgent string

	// maxBodySize is the largest body accepted.
	maxBodySize int64
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the largest response body accepted. Larger bodies
// fail with ErrBodyTooLarge.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// NewFetcher creates a Fetcher using the given HTTP client.
// A nil client falls back to http.DefaultClient.
func NewFetcher(client *http.Client, opts ...FetcherOption) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}

	f := &Fetcher{
		client:      client,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch downloads a source page.
// Transport failures, non-2xx statuses, oversized bodies and non-HTML
// content are errors; there is no retry. The page is returned alongside
// the error whenever the server answered, so callers can record its status.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*model.Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid source URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid source URL %q: scheme must be http or https", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	page := &model.Page{
		URL:         pageURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Headers:     resp.Header,
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return page, &StatusError{URL: pageURL, StatusCode: resp.StatusCode}
	}
	if !page.IsHTML() {
		return page, fmt.Errorf("%s: %w (content type %q)", pageURL, ErrNotHTML, page.ContentType)
	}

	// One byte past the limit tells a body of exactly maxBodySize apart
	// from a longer one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return page, fmt.Errorf("failed to read body of %s: %w", pageURL, err)
	}
	if int64(len(body)) > f.maxBodySize {
		return page, fmt.Errorf("%s: %w (limit %d bytes)", pageURL, ErrBodyTooLarge, f.maxBodySize)
	}

	page.Raw = body
	page.ComputeHash()

	return page, nil
}
