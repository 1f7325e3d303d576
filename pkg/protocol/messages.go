// Package protocol defines the wire messages exchanged with the candidate
// client over the interview channel, and the speech-recognition stream
// format. Each direction is a closed tagged-variant type; unknown inbound
// message types decode into an explicit Unknown variant rather than being
// dropped.
package protocol

import (
	"encoding/json"
	"fmt"
)

// QuestionType distinguishes free-text turns from structured coding turns.
type QuestionType string

const (
	QuestionText   QuestionType = "text"
	QuestionCoding QuestionType = "coding"
)

// Severity is the proctoring escalation level of a single violation entry.
type Severity string

const (
	SeverityWarning     Severity = "warning"
	SeverityViolation   Severity = "violation"
	SeverityTermination Severity = "termination"
)

// Violation is one proctoring event reported by the frame analyzer.
type Violation struct {
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
	Timestamp string   `json:"timestamp,omitempty"`
	Terminate bool     `json:"terminate,omitempty"`
}

// Inbound is the closed set of messages the session can receive.
type Inbound interface{ inbound() }

// TextResponse is a manual or programmatic answer submission.
type TextResponse struct {
	Content           string `json:"content"`
	TimeoutSubmission bool   `json:"timeout_submission,omitempty"`
}

// EndInterview is a candidate-initiated termination request.
type EndInterview struct{}

// PlaybackComplete reports that the question audio cue finished playing.
type PlaybackComplete struct{}

// ActivityKind tags a candidate input activity signal.
type ActivityKind string

const (
	ActivityTyping   ActivityKind = "typing"
	ActivityCodeEdit ActivityKind = "code_edit"
)

// Activity is a typed-input keystroke signal used for silence tracking.
type Activity struct {
	Kind ActivityKind `json:"kind"`
}

// ProctorResult carries one frame-analysis result. An empty Violations
// slice is meaningful: it clears any previously shown warning.
type ProctorResult struct {
	Violations     []Violation `json:"violations"`
	ViolationCount int         `json:"violation_count"`
	MaxViolations  int         `json:"max_violations"`
	SessionActive  bool        `json:"session_active"`
}

// Unknown preserves messages with an unrecognized type tag.
type Unknown struct {
	Type string
	Raw  json.RawMessage
}

func (TextResponse) inbound()     {}
func (EndInterview) inbound()     {}
func (PlaybackComplete) inbound() {}
func (Activity) inbound()         {}
func (ProctorResult) inbound()    {}
func (Unknown) inbound()          {}

// Outbound is the closed set of messages the session can send.
type Outbound interface{ outbound() }

// Question delivers the next question to the candidate.
type Question struct {
	Content        string       `json:"content"`
	QuestionType   QuestionType `json:"question_type,omitempty"`
	TimerSeconds   int          `json:"timer_seconds,omitempty"`
	AudioCue       string       `json:"audio_cue,omitempty"`
	StartRecording bool         `json:"start_recording,omitempty"`
	StopRecording  bool         `json:"stop_recording,omitempty"`
}

// AnswerEvaluation reports the scored evaluation of one answer.
type AnswerEvaluation struct {
	OverallScore           float64 `json:"overall_score"`
	TechnicalAccuracy      float64 `json:"technical_accuracy"`
	CommunicationClarity   float64 `json:"communication_clarity"`
	Relevance              float64 `json:"relevance"`
	Depth                  float64 `json:"depth"`
	Feedback               string  `json:"feedback"`
	Strengths              string  `json:"strengths"`
	Weaknesses             string  `json:"weaknesses"`
	AverageScore           float64 `json:"average_score"`
	TotalQuestionsAnswered int     `json:"total_questions_answered"`
}

// Transcription echoes finalized candidate speech back to the client.
type Transcription struct {
	Content string `json:"content"`
}

// ProcessingQuestion signals that the next question is being prepared.
type ProcessingQuestion struct {
	Content string `json:"content,omitempty"`
}

// ProcessingResponse acknowledges a received answer.
type ProcessingResponse struct {
	Content string `json:"content,omitempty"`
}

// EvaluationError reports a failed evaluation dispatch.
type EvaluationError struct {
	Content string `json:"content,omitempty"`
}

// ErrorMessage is a generic recoverable error surfaced to the client.
type ErrorMessage struct {
	Content       string `json:"content"`
	StopRecording bool   `json:"stop_recording,omitempty"`
}

// ProctorWarning surfaces (or clears) a transient proctoring hint.
type ProctorWarning struct {
	Violations     []Violation `json:"violations,omitempty"`
	ViolationCount int         `json:"violation_count"`
	MaxViolations  int         `json:"max_violations"`
	Clear          bool        `json:"clear,omitempty"`
}

// TimerSync publishes the remaining answer time with a presentation band
// ("normal", "warning", "danger"). The display layer acts on it; the
// session does not.
type TimerSync struct {
	RemainingSeconds int    `json:"remaining_seconds"`
	Band             string `json:"band"`
}

// InterviewConcluded is the terminal message of a session.
type InterviewConcluded struct {
	Content           string  `json:"content"`
	FinalAverageScore float64 `json:"final_average_score,omitempty"`
	TotalQuestions    int     `json:"total_questions,omitempty"`
	StopRecording     bool    `json:"stop_recording,omitempty"`
}

func (Question) outbound()           {}
func (AnswerEvaluation) outbound()   {}
func (Transcription) outbound()      {}
func (ProcessingQuestion) outbound() {}
func (ProcessingResponse) outbound() {}
func (EvaluationError) outbound()    {}
func (ErrorMessage) outbound()       {}
func (ProctorWarning) outbound()     {}
func (TimerSync) outbound()          {}
func (InterviewConcluded) outbound() {}

type envelope struct {
	Type string `json:"type"`
}

// Decode parses a raw inbound payload into its variant. A missing or
// unrecognized type tag yields Unknown, never an error, so callers can
// log and continue.
func Decode(raw []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	switch env.Type {
	case "text_response":
		var m TextResponse
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode text_response: %w", err)
		}
		return m, nil
	case "end_interview":
		return EndInterview{}, nil
	case "playback_complete":
		return PlaybackComplete{}, nil
	case "activity":
		var m Activity
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode activity: %w", err)
		}
		return m, nil
	case "proctoring_result":
		var wrapper struct {
			Result ProctorResult `json:"result"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, fmt.Errorf("decode proctoring_result: %w", err)
		}
		return wrapper.Result, nil
	default:
		return Unknown{Type: env.Type, Raw: append(json.RawMessage(nil), raw...)}, nil
	}
}

// Encode serializes an outbound variant with its type tag.
func Encode(msg Outbound) ([]byte, error) {
	switch v := msg.(type) {
	case Question:
		return json.Marshal(struct {
			Type string `json:"type"`
			Question
		}{"question", v})
	case AnswerEvaluation:
		return json.Marshal(struct {
			Type string `json:"type"`
			AnswerEvaluation
		}{"answer_evaluation", v})
	case Transcription:
		return json.Marshal(struct {
			Type string `json:"type"`
			Transcription
		}{"transcription", v})
	case ProcessingQuestion:
		return json.Marshal(struct {
			Type string `json:"type"`
			ProcessingQuestion
		}{"processing_question", v})
	case ProcessingResponse:
		return json.Marshal(struct {
			Type string `json:"type"`
			ProcessingResponse
		}{"processing_response", v})
	case EvaluationError:
		return json.Marshal(struct {
			Type string `json:"type"`
			EvaluationError
		}{"evaluation_error", v})
	case ErrorMessage:
		return json.Marshal(struct {
			Type string `json:"type"`
			ErrorMessage
		}{"error", v})
	case ProctorWarning:
		return json.Marshal(struct {
			Type string `json:"type"`
			ProctorWarning
		}{"proctoring_warning", v})
	case TimerSync:
		return json.Marshal(struct {
			Type string `json:"type"`
			TimerSync
		}{"timer_sync", v})
	case InterviewConcluded:
		return json.Marshal(struct {
			Type string `json:"type"`
			InterviewConcluded
		}{"interview_concluded", v})
	default:
		return nil, fmt.Errorf("encode: unsupported outbound message %T", msg)
	}
}
