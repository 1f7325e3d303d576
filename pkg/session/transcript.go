package session

import "strings"

// Transcript accumulates speech-recognition output for the open turn. It
// keeps an append-only list of finalized segments plus one in-progress
// interim segment that is overwritten, never appended. Not safe for
// concurrent use; the session event loop is the only caller.
type Transcript struct {
	finalized    []string
	interim      string
	minPhraseLen int
}

// NewTranscript returns an empty accumulator. Phrases shorter than
// minPhraseLen are kept but treated as noise for silence tracking.
func NewTranscript(minPhraseLen int) *Transcript {
	if minPhraseLen <= 0 {
		minPhraseLen = 8
	}
	return &Transcript{minPhraseLen: minPhraseLen}
}

// Interim replaces the in-progress segment. It reports whether the phrase
// is long enough to count as real speech activity.
func (t *Transcript) Interim(text string) bool {
	t.interim = text
	return t.countsAsActivity(text)
}

// SpeechStart confirms the pending interim: new speech beginning means the
// previous phrase is complete, so it moves into the finalized segments.
func (t *Transcript) SpeechStart() bool {
	pending := strings.TrimSpace(t.interim)
	if pending != "" {
		t.finalized = append(t.finalized, pending)
		t.interim = ""
	}
	return t.countsAsActivity(pending)
}

// SpeechEnd is informational only. The authoritative text for the phrase
// arrives as a later Finalize call, not here.
func (t *Transcript) SpeechEnd() {}

// Finalize appends a confirmed phrase and clears the interim segment.
func (t *Transcript) Finalize(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed != "" {
		t.finalized = append(t.finalized, trimmed)
	}
	t.interim = ""
	return t.countsAsActivity(trimmed)
}

// Assemble returns the effective answer: finalized segments space-joined,
// followed by any still-pending interim so no speech is dropped.
func (t *Transcript) Assemble() string {
	parts := make([]string, 0, len(t.finalized)+1)
	parts = append(parts, t.finalized...)
	if pending := strings.TrimSpace(t.interim); pending != "" {
		parts = append(parts, pending)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Segments returns a copy of the finalized segments in speech order.
func (t *Transcript) Segments() []string {
	out := make([]string, len(t.finalized))
	copy(out, t.finalized)
	return out
}

// Reset clears both buffers for the next turn.
func (t *Transcript) Reset() {
	t.finalized = t.finalized[:0]
	t.interim = ""
}

func (t *Transcript) countsAsActivity(phrase string) bool {
	return len(strings.TrimSpace(phrase)) >= t.minPhraseLen
}
