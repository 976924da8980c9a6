package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// MaskValue replaces every redacted value or fragment.
const MaskValue = "***REDACTED***"

// secretKeys are attribute keys whose values are always masked.
// Keys are compared in lower case.
var secretKeys = map[string]struct{}{
	"authorization":       {},
	"proxy-authorization": {},
	"cookie":              {},
	"set-cookie":          {},
	"x-goog-api-key":      {},
	"api_key":             {},
	"apikey":              {},
	"private_key":         {},
	"private_key_id":      {},
	"client_email":        {},
	"client_id":           {},
	"service_account":     {},
}

// secretKeyFragments mask any key that contains one of them. The bare word
// "key" is not one of them: "tab_key" is not a secret.
var secretKeyFragments = []string{
	"password", "secret", "token", "auth", "credential", "private",
}

// wholeValuePatterns mask the entire value when they match anywhere in it.
var wholeValuePatterns = []*regexp.Regexp{
	// Signed JWT assertions exchanged for access tokens.
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	regexp.MustCompile(`(?i)^(bearer|basic)\s+\S+`),
	regexp.MustCompile(`(?i)-----BEGIN[A-Z ]*(PRIVATE|SECRET) KEY-----`),
	regexp.MustCompile(`"type"\s*:\s*"service_account"`),
}

// fragment is a secret that can hide inside a longer string such as an API
// error message or a URL.
type fragment struct {
	pattern     *regexp.Regexp
	replacement string
}

var fragments = []fragment{
	// OAuth access tokens issued by Google.
	{regexp.MustCompile(`ya29\.[A-Za-z0-9_.-]+`), MaskValue},
	// Google API keys.
	{regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`), MaskValue},
	// user:password in proxy and request URLs.
	{regexp.MustCompile(`(://)[^/@\s:]+:[^/@\s]+@`), "${1}" + MaskValue + "@"},
	// Credentials passed as query parameters.
	{regexp.MustCompile(`([?&](?:access_token|key)=)[^&\s"]+`), "${1}" + MaskValue},
}

// SecureHandler wraps an slog.Handler and redacts secrets from the message
// and every attribute before the record reaches the wrapped handler.
type SecureHandler struct {
	next slog.Handler
}

// NewSecureHandler wraps next. A nil next wraps slog.Default().Handler().
func NewSecureHandler(next slog.Handler) *SecureHandler {
	if next == nil {
		next = slog.Default().Handler()
	}
	return &SecureHandler{next: next}
}

// Enabled implements slog.Handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, redactFragments(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redactAttr(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		redacted = append(redacted, redactAttr(a))
	}
	return &SecureHandler{next: h.next.WithAttrs(redacted)}
}

// WithGroup implements slog.Handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{next: h.next.WithGroup(name)}
}

// redactAttr returns a with secrets masked, descending into groups.
// LogValuer values are resolved first so that they cannot bypass masking.
func redactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		members := a.Value.Group()
		redacted := make([]slog.Attr, 0, len(members))
		for _, m := range members {
			redacted = append(redacted, redactAttr(m))
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
	}

	if isSecretKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		s := a.Value.String()
		if r := RedactString(s); r != s {
			return slog.String(a.Key, r)
		}
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			msg := err.Error()
			if r := RedactString(msg); r != msg {
				return slog.String(a.Key, r)
			}
		}
	}
	return a
}

// isSecretKey reports whether values logged under key must be masked.
func isSecretKey(key string) bool {
	key = strings.ToLower(key)
	if _, ok := secretKeys[key]; ok {
		return true
	}
	for _, f := range secretKeyFragments {
		if strings.Contains(key, f) {
			return true
		}
	}
	return false
}

// RedactString masks s entirely when it is a secret, and otherwise masks
// the secret fragments inside it.
func RedactString(s string) string {
	for _, p := range wholeValuePatterns {
		if p.MatchString(s) {
			return MaskValue
		}
	}
	return redactFragments(s)
}

func redactFragments(s string) string {
	for _, f := range fragments {
		s = f.pattern.ReplaceAllString(s, f.replacement)
	}
	return s
}

// Options configures New.
type Options struct {
	// Verbose lowers the level from Warn to Debug.
	Verbose bool

	// JSON selects slog's JSON handler instead of the text handler.
	JSON bool
}

// New returns a logger writing to w through a SecureHandler.
func New(w io.Writer, opts Options) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var next slog.Handler
	if opts.JSON {
		next = slog.NewJSONHandler(w, handlerOpts)
	} else {
		next = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(NewSecureHandler(next))
}
