package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// personalKeys contains attribute keys that carry personal data recovered
// from or fed into an attack. Their values are masked unless reveal is on.
var personalKeys = map[string]bool{
	// Quasi-identifiers
	"first_name":    true,
	"last_name":     true,
	"first_initial": true,
	"dob":           true,
	"year_of_birth": true,
	"zip":           true,
	"gender":        true,
	"email":         true,
	"address":       true,

	// Recovered material
	"plaintext":   true,
	"values":      true,
	"tuple":       true,
	"profile_key": true,
	"old":         true,
	"new":         true,
}

// personalPatterns contains regex patterns that indicate personal values.
// Values matching these patterns are masked regardless of key name.
var personalPatterns = []*regexp.Regexp{
	// Email addresses
	regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[A-Za-z]{2,}$`),

	// Calendar dates (YYYY-MM-DD, YYYY/MM/DD, DD.MM.YYYY)
	regexp.MustCompile(`^\d{4}[-/]\d{2}[-/]\d{2}$`),
	regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`),
}

// MaskValue is the string used to replace personal values.
const MaskValue = "***REDACTED***"

// SecureHandler wraps an slog.Handler to mask personal data.
// It intercepts log records and masks attribute values that match personal
// key names or value patterns before passing them to the underlying handler.
// Digests are never masked: they are what the operator already holds.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because every package logs through a plain *slog.Logger and never needs
// to know whether masking is enabled.
type SecureHandler struct {
	// handler is the underlying slog handler that receives sanitized records.
	handler slog.Handler
	// reveal disables masking (the operator asked to see recovered values).
	reveal bool
}

// Option configures a SecureHandler.
type Option func(*SecureHandler)

// WithReveal turns masking off when reveal is true.
func WithReveal(reveal bool) Option {
	return func(h *SecureHandler) {
		h.reveal = reveal
	}
}

// NewSecureHandler creates a new SecureHandler wrapping the given handler.
// If handler is nil, the returned SecureHandler will use slog.Default().Handler().
func NewSecureHandler(handler slog.Handler, opts ...Option) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	h := &SecureHandler{handler: handler}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Enabled reports whether the handler handles records at the given level.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and passes it to the underlying handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.reveal {
		return h.handler.Handle(ctx, r)
	}

	sanitized := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(h.sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs returns a new handler with the given attributes added.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if h.reveal {
		return &SecureHandler{handler: h.handler.WithAttrs(attrs), reveal: true}
	}
	sanitizedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitizedAttrs[i] = h.sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(sanitizedAttrs)}
}

// WithGroup returns a new handler with the given group name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name), reveal: h.reveal}
}

// sanitizeAttr masks a single attribute, recursively handling groups.
// A group whose key is personal is masked as a whole.
func (h *SecureHandler) sanitizeAttr(a slog.Attr) slog.Attr {
	keyLower := strings.ToLower(a.Key)
	if isPersonalKey(keyLower) {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		attrs := a.Value.Group()
		sanitizedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			sanitizedAttrs[i] = h.sanitizeAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitizedAttrs...)}
	case slog.KindString:
		if isPersonalValue(a.Value.String()) {
			return slog.String(a.Key, MaskValue)
		}
	}
	return a
}

// isPersonalKey reports whether key names personal data, either exactly or
// as a suffix such as "recovered_email".
func isPersonalKey(key string) bool {
	if personalKeys[key] {
		return true
	}
	for k := range personalKeys {
		if strings.HasSuffix(key, "_"+k) {
			return true
		}
	}
	return false
}

// isPersonalValue checks if a value matches personal data patterns.
func isPersonalValue(value string) bool {
	for _, pattern := range personalPatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// NewSecureLogger creates a new slog.Logger writing text records that mask
// personal data.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
//   - opts: handler options such as WithReveal
func NewSecureLogger(w io.Writer, verbose bool, opts ...Option) *slog.Logger {
	textHandler := slog.NewTextHandler(w, handlerOptions(verbose))
	return slog.New(NewSecureHandler(textHandler, opts...))
}

// NewSecureJSONLogger creates a new slog.Logger with masking that outputs
// JSON format. Useful for structured log aggregation.
func NewSecureJSONLogger(w io.Writer, verbose bool, opts ...Option) *slog.Logger {
	jsonHandler := slog.NewJSONHandler(w, handlerOptions(verbose))
	return slog.New(NewSecureHandler(jsonHandler, opts...))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
