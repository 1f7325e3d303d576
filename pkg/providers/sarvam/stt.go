// Package sarvam implements the streaming recognition adapter against the
// Sarvam speech-to-text-translate websocket API.
package sarvam

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MananS02/Interview/pkg/adapters/stt"
	"github.com/MananS02/Interview/pkg/errorsx"
	"github.com/MananS02/Interview/pkg/frames"
	"github.com/MananS02/Interview/pkg/logging"
	"github.com/MananS02/Interview/pkg/protocol"
	"github.com/MananS02/Interview/pkg/resilience"
)

const (
	defaultEndpoint = "wss://api.sarvam.ai/speech-to-text-translate/ws"
	defaultModel    = "saaras:v2.5"
	defaultEncoding = "audio/wav"
	apiKeyHeader    = "Api-Subscription-Key"
)

type Config struct {
	APIKey     string
	Endpoint   string
	Model      string
	SampleRate int
	Prompt     string
	SessionID  string
	TraceID    string
}

type StreamingSTT struct {
	cfg    Config
	conn   *websocket.Conn
	out    chan frames.Frame
	sendCh chan any
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
	retry  resilience.RetryPolicy
}

func New(cfg Config) *StreamingSTT {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	logger := logging.NewComponentLogger(slog.Default(), "sarvam_stt")
	return &StreamingSTT{
		cfg:    cfg,
		out:    make(chan frames.Frame, 256),
		sendCh: make(chan any, 256),
		logger: logger,
		retry:  resilience.NewRetryPolicy(3, 200*time.Millisecond),
	}
}

func (s *StreamingSTT) Name() string { return "sarvam_streaming" }

func (s *StreamingSTT) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	endpoint, err := s.streamURL()
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonRecognitionConnect)
	}
	header := http.Header{}
	header.Set(apiKeyHeader, s.cfg.APIKey)

	dialErr := s.retry.Do(func() error {
		conn, _, err := websocket.DefaultDialer.DialContext(s.ctx, endpoint, header)
		if err != nil {
			return err
		}
		s.conn = conn
		return nil
	})
	if dialErr != nil {
		s.logger.Error("sarvam_connect_failed",
			slog.String("error", dialErr.Error()),
			slog.String("session_id", s.cfg.SessionID))
		return errorsx.Wrap(dialErr, errorsx.ReasonRecognitionConnect)
	}

	s.logger.Info("sarvam_connected",
		slog.String("session_id", s.cfg.SessionID),
		slog.String("model", s.cfg.Model),
		slog.Int("sample_rate", s.cfg.SampleRate))

	if err := s.conn.WriteJSON(protocol.NewSpeechConfig(s.cfg.Prompt)); err != nil {
		_ = s.conn.Close()
		return errorsx.Wrap(err, errorsx.ReasonRecognitionConnect)
	}

	go s.writeLoop()
	go s.readLoop()
	return nil
}

func (s *StreamingSTT) streamURL() (string, error) {
	u, err := url.Parse(s.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("model", s.cfg.Model)
	q.Set("sample_rate", fmt.Sprintf("%d", s.cfg.SampleRate))
	q.Set("vad_signals", "true")
	q.Set("flush_signal", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *StreamingSTT) Close() error {
	s.logger.Info("closing sarvam connection",
		slog.String("session_id", s.cfg.SessionID))
	if s.cancel != nil {
		s.cancel()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
	return nil
}

func (s *StreamingSTT) SendAudio(frame frames.AudioFrame) error {
	msg := protocol.SpeechAudio{Audio: protocol.SpeechAudioPayload{
		Data:            base64.StdEncoding.EncodeToString(frame.RawPayload()),
		SampleRate:      frame.Rate(),
		Encoding:        defaultEncoding,
		InputAudioCodec: "pcm_s16le",
	}}
	select {
	case s.sendCh <- msg:
		return nil
	default:
		s.logger.Warn("sarvam_send_queue_full",
			slog.String("session_id", s.cfg.SessionID))
		return errorsx.New("send queue full", errorsx.ReasonRecognitionSend)
	}
}

func (s *StreamingSTT) Flush() error {
	select {
	case s.sendCh <- protocol.NewSpeechFlush():
		return nil
	default:
		return errorsx.New("send queue full", errorsx.ReasonRecognitionSend)
	}
}

func (s *StreamingSTT) Results() <-chan frames.Frame { return s.out }

func (s *StreamingSTT) writeLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.sendCh:
			if err := s.conn.WriteJSON(msg); err != nil {
				if s.ctx.Err() == nil {
					s.logger.Error("sarvam_write_error",
						slog.String("error", err.Error()),
						slog.String("session_id", s.cfg.SessionID))
				}
				return
			}
		}
	}
}

func (s *StreamingSTT) readLoop() {
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if s.ctx.Err() == nil {
				s.logger.Error("sarvam_read_error",
					slog.String("error", err.Error()),
					slog.String("session_id", s.cfg.SessionID))
				s.emit(frames.NewSystemFrame(s.cfg.SessionID, time.Now().UnixNano(), "recognition_error", s.meta(map[string]string{
					frames.MetaReason: err.Error(),
				})))
			}
			return
		}
		ev, err := protocol.DecodeSpeechEvent(raw)
		if err != nil {
			s.logger.Debug("sarvam_unhandled_event",
				slog.String("session_id", s.cfg.SessionID),
				slog.String("data", string(raw)))
			continue
		}
		switch v := ev.(type) {
		case protocol.SpeechData:
			if v.Transcript == "" {
				continue
			}
			meta := s.meta(map[string]string{frames.MetaSource: "stt"})
			if v.Final {
				meta[frames.MetaIsFinal] = "true"
			} else {
				meta[frames.MetaIsFinal] = "false"
			}
			s.logger.Debug("transcript_received",
				slog.String("session_id", s.cfg.SessionID),
				slog.String("transcript", v.Transcript),
				slog.Bool("is_final", v.Final))
			s.emit(frames.NewTextFrame(s.cfg.SessionID, time.Now().UnixNano(), v.Transcript, meta))
		case protocol.SpeechSignal:
			code := frames.ControlSpeechStart
			reason := "speech_started"
			if v.Signal == protocol.SignalEndSpeech {
				code = frames.ControlSpeechEnd
				reason = "speech_ended"
			}
			s.logger.Debug("speech_signal",
				slog.String("session_id", s.cfg.SessionID),
				slog.String("signal", string(v.Signal)))
			s.emit(frames.NewControlFrame(s.cfg.SessionID, time.Now().UnixNano(), code, s.meta(map[string]string{
				frames.MetaSource: "stt",
				frames.MetaReason: reason,
			})))
		case protocol.SpeechError:
			s.logger.Error("sarvam_service_error",
				slog.String("session_id", s.cfg.SessionID),
				slog.String("error", v.Message))
			s.emit(frames.NewSystemFrame(s.cfg.SessionID, time.Now().UnixNano(), "recognition_error", s.meta(map[string]string{
				frames.MetaReason: v.Message,
			})))
		}
	}
}

func (s *StreamingSTT) meta(extra map[string]string) map[string]string {
	out := make(map[string]string, len(extra)+1)
	for k, v := range extra {
		out[k] = v
	}
	if s.cfg.TraceID != "" {
		out[frames.MetaTraceID] = s.cfg.TraceID
	}
	return out
}

func (s *StreamingSTT) emit(f frames.Frame) {
	select {
	case s.out <- f:
	default:
		s.logger.Warn("sarvam_out_channel_full",
			slog.String("session_id", s.cfg.SessionID))
	}
}

var _ stt.StreamingSTT = (*StreamingSTT)(nil)
