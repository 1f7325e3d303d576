package stt

import (
	"context"

	"github.com/MananS02/Interview/pkg/frames"
)

// StreamingSTT defines the contract for any speech-recognition vendor
// implementation.
type StreamingSTT interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Start initializes the recognition connection.
	Start(ctx context.Context) error
	// Close shuts down the recognition connection.
	Close() error
	// SendAudio sends candidate microphone audio to the service.
	SendAudio(frame frames.AudioFrame) error
	// Flush forces the service to finalize any pending transcript.
	Flush() error
	// Results returns a channel of transcript/control frames.
	Results() <-chan frames.Frame
}

// Config contains vendor-agnostic recognition configuration.
type Config struct {
	SessionID  string
	TraceID    string
	SampleRate int
	Language   string
	Prompt     string
}
