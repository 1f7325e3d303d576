package redact

import (
	"strings"
	"testing"
)

func TestScrubDisabled(t *testing.T) {
	SetEnabled(false)
	in := "reach me at jane@example.com or +1 415 555 0134"
	if got := Scrub(in); got != in {
		t.Fatalf("expected no scrubbing, got %q", got)
	}
}

func TestScrubEnabled(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)

	in := "reach me at jane@example.com or +1 415 555 0134, employee id 123456789"
	got := Scrub(in)
	for _, want := range []string{"[REDACTED_EMAIL]", "[REDACTED_PHONE]", "[REDACTED_ID]"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
	if strings.Contains(got, "jane@example.com") {
		t.Fatalf("email survived scrubbing: %q", got)
	}
}

func TestScrubBareNumberIsIdentifier(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)

	got := Scrub("my employee id is 987654321")
	if !strings.Contains(got, "[REDACTED_ID]") {
		t.Fatalf("expected identifier token in %q", got)
	}
	if strings.Contains(got, "[REDACTED_PHONE]") {
		t.Fatalf("bare digit run tagged as phone: %q", got)
	}

	got = Scrub("call 415-555-0134 after lunch")
	if !strings.Contains(got, "[REDACTED_PHONE]") {
		t.Fatalf("expected phone token in %q", got)
	}
}
