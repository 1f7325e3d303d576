// Package redact scrubs personally identifiable information from
// candidate answers before they leave the process, e.g. when an answer
// is forwarded to a third-party evaluation provider.
package redact

import (
	"regexp"
	"strings"
	"sync/atomic"
)

var enabled atomic.Bool

var (
	emailRe = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	// A leading + or internal separators distinguish phone numbers from
	// bare numeric identifiers, which idRe handles.
	phoneRe = regexp.MustCompile(`\+\d[\d\s\-]{6,}\d|\b\d{1,4}[\s\-]\d[\d\s\-]{4,}\d\b`)
	idRe    = regexp.MustCompile(`\b\d{9,}\b`)
)

// SetEnabled toggles answer scrubbing process-wide.
func SetEnabled(v bool) {
	enabled.Store(v)
}

// Enabled reports whether scrubbing is active.
func Enabled() bool {
	return enabled.Load()
}

// Scrub replaces emails, phone numbers and long numeric identifiers
// with placeholder tokens. When scrubbing is disabled the input is
// returned unchanged.
func Scrub(in string) string {
	if !enabled.Load() || strings.TrimSpace(in) == "" {
		return in
	}
	out := emailRe.ReplaceAllString(in, "[REDACTED_EMAIL]")
	out = phoneRe.ReplaceAllString(out, "[REDACTED_PHONE]")
	out = idRe.ReplaceAllString(out, "[REDACTED_ID]")
	return out
}
