package session

import (
	"time"

	"github.com/MananS02/Interview/pkg/protocol"
)

// Trigger is the cause that closes an open turn.
type Trigger string

const (
	TriggerManual   Trigger = "manual"
	TriggerSilence  Trigger = "silence"
	TriggerDeadline Trigger = "deadline"
)

// Question is one scripted interview question.
type Question struct {
	Content      string
	Type         protocol.QuestionType
	TimerSeconds int
	AudioCue     string
}

// Turn holds the state of a single question/answer exchange. It is created
// when a question is delivered and discarded once the turn is submitted.
// Only the session event loop touches it.
type Turn struct {
	Index        int
	Question     Question
	TimerSeconds int
	Deadline     time.Time
	OpenedAt     time.Time

	// gen ties timer fires to this turn; stale fires are dropped.
	gen uint64

	closed       bool
	trigger      Trigger
	awaitingCue  bool
	lastCodeEdit time.Time
}

// Open reports whether the turn still accepts a submission trigger.
func (t *Turn) Open() bool { return t != nil && !t.closed }

// Remaining returns the time left on the answer deadline, never negative.
func (t *Turn) Remaining() time.Duration {
	if t == nil || t.Deadline.IsZero() {
		return 0
	}
	d := time.Until(t.Deadline)
	if d < 0 {
		return 0
	}
	return d
}

// TimerBand is a presentation hint derived from remaining answer time.
type TimerBand string

const (
	BandNormal  TimerBand = "normal"
	BandWarning TimerBand = "warning"
	BandDanger  TimerBand = "danger"
)

const (
	warningBandThreshold = 30 * time.Second
	dangerBandThreshold  = 10 * time.Second
)

// Band classifies the remaining time for display purposes.
func Band(remaining time.Duration) TimerBand {
	switch {
	case remaining <= dangerBandThreshold:
		return BandDanger
	case remaining <= warningBandThreshold:
		return BandWarning
	default:
		return BandNormal
	}
}
