// Package mock contains in-memory providers for local testing.
package mock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MananS02/Interview/pkg/adapters/stt"
	"github.com/MananS02/Interview/pkg/frames"
)

type STTConfig struct {
	SessionID         string
	TraceID           string
	Transcript        string
	InterimTranscript string
	EmitInterim       bool
	EmitVAD           bool
}

// StreamingSTT is a scriptable recognizer. SendAudio replays the configured
// sequence once; the Emit helpers let tests drive arbitrary event orders.
type StreamingSTT struct {
	cfg     STTConfig
	out     chan frames.Frame
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	started bool
	emitted bool
	flushes int
}

func NewSTT(cfg STTConfig) *StreamingSTT {
	if cfg.Transcript == "" {
		cfg.Transcript = "mock transcript"
	}
	return &StreamingSTT{cfg: cfg, out: make(chan frames.Frame, 64)}
}

func (s *StreamingSTT) Name() string { return "mock_stt" }

func (s *StreamingSTT) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return nil
}

func (s *StreamingSTT) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	if s.out != nil {
		close(s.out)
		s.out = nil
	}
	s.started = false
	return nil
}

func (s *StreamingSTT) SendAudio(frame frames.AudioFrame) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.New("not started")
	}
	if s.emitted {
		s.mu.Unlock()
		return nil
	}
	s.emitted = true
	s.mu.Unlock()

	if s.cfg.EmitVAD {
		s.EmitSpeechStart()
	}
	if s.cfg.EmitInterim {
		interim := s.cfg.InterimTranscript
		if interim == "" {
			interim = s.cfg.Transcript
		}
		s.EmitInterim(interim)
	}
	s.EmitFinal(s.cfg.Transcript)
	if s.cfg.EmitVAD {
		s.EmitSpeechEnd()
	}
	return nil
}

func (s *StreamingSTT) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return errors.New("not started")
	}
	s.flushes++
	return nil
}

// Flushes reports how many flush requests the session received.
func (s *StreamingSTT) Flushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

func (s *StreamingSTT) Results() <-chan frames.Frame { return s.out }

func (s *StreamingSTT) EmitInterim(text string) {
	s.emit(frames.NewTextFrame(s.cfg.SessionID, time.Now().UnixNano(), text, s.meta(map[string]string{
		frames.MetaIsFinal: "false",
	})))
}

func (s *StreamingSTT) EmitFinal(text string) {
	s.emit(frames.NewTextFrame(s.cfg.SessionID, time.Now().UnixNano(), text, s.meta(map[string]string{
		frames.MetaIsFinal: "true",
	})))
}

func (s *StreamingSTT) EmitSpeechStart() {
	s.emit(frames.NewControlFrame(s.cfg.SessionID, time.Now().UnixNano(), frames.ControlSpeechStart, s.meta(map[string]string{
		frames.MetaReason: "speech_started",
	})))
}

func (s *StreamingSTT) EmitSpeechEnd() {
	s.emit(frames.NewControlFrame(s.cfg.SessionID, time.Now().UnixNano(), frames.ControlSpeechEnd, s.meta(map[string]string{
		frames.MetaReason: "speech_ended",
	})))
}

func (s *StreamingSTT) EmitError(msg string) {
	s.emit(frames.NewSystemFrame(s.cfg.SessionID, time.Now().UnixNano(), "recognition_error", s.meta(map[string]string{
		frames.MetaReason: msg,
	})))
}

func (s *StreamingSTT) meta(extra map[string]string) map[string]string {
	out := map[string]string{frames.MetaSource: "stt"}
	if s.cfg.TraceID != "" {
		out[frames.MetaTraceID] = s.cfg.TraceID
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func (s *StreamingSTT) emit(f frames.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out == nil {
		return
	}
	select {
	case s.out <- f:
	default:
	}
}

var _ stt.StreamingSTT = (*StreamingSTT)(nil)
