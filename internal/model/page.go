package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Page is a fetched source page.
// The raw body is kept so the scanner can parse it and so the history
// database can detect when a wiki page changed between runs.
type Page struct {
	// URL is the source address the page was fetched from.
	URL string `json:"url"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// Headers contains all HTTP response headers.
	Headers map[string][]string `json:"headers,omitempty"`

	// ContentType is the MIME type of the response.
	ContentType string `json:"content_type"`

	// Title is the page title extracted from the <title> tag.
	Title string `json:"title,omitempty"`

	// Raw contains the complete response body.
	Raw []byte `json:"-"`

	// Hash is the SHA-256 hash of Raw.
	Hash string `json:"hash"`
}

// ComputeHash calculates and sets the SHA-256 hash of the page's raw content.
func (p *Page) ComputeHash() {
	if len(p.Raw) == 0 {
		p.Hash = ""
		return
	}

	hash := sha256.Sum256(p.Raw)
	p.Hash = hex.EncodeToString(hash[:])
}

// GetHeader returns the first value of the specified header, or "".
func (p *Page) GetHeader(name string) string {
	if values, ok := p.Headers[name]; ok && len(values) > 0 {
		return values[0]
	}
	return ""
}

// IsHTML reports whether the content type indicates HTML.
// An empty content type is treated as HTML because some wiki mirrors omit it.
func (p *Page) IsHTML() bool {
	if p.ContentType == "" {
		return true
	}
	ct := strings.ToLower(p.ContentType)
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}
