package protocol

import (
	"encoding/json"
	"fmt"
)

// Speech-recognition stream protocol. The client sends a config message on
// connect, base64 PCM16LE audio frames while recording, and a flush message
// to force finalization when recording stops. The service answers with
// interim/final transcript payloads, speech boundary signals, and errors.

// SignalType marks a voice-activity boundary in the recognition stream.
type SignalType string

const (
	SignalStartSpeech SignalType = "START_SPEECH"
	SignalEndSpeech   SignalType = "END_SPEECH"
)

// SpeechConfig is sent once when the recognition stream opens.
type SpeechConfig struct {
	Type   string `json:"type"`
	Prompt string `json:"prompt,omitempty"`
}

func NewSpeechConfig(prompt string) SpeechConfig {
	return SpeechConfig{Type: "config", Prompt: prompt}
}

// SpeechAudio carries one audio chunk to the recognition service.
type SpeechAudio struct {
	Audio SpeechAudioPayload `json:"audio"`
}

type SpeechAudioPayload struct {
	Data            string `json:"data"`
	SampleRate      int    `json:"sample_rate"`
	Encoding        string `json:"encoding"`
	InputAudioCodec string `json:"input_audio_codec"`
}

// SpeechFlush forces the service to finalize any pending transcript.
type SpeechFlush struct {
	Type string `json:"type"`
}

func NewSpeechFlush() SpeechFlush {
	return SpeechFlush{Type: "flush"}
}

// SpeechEvent is the closed set of messages received on the stream.
type SpeechEvent interface{ speechEvent() }

// SpeechData is a transcript payload. Final marks text the service will
// not revise further.
type SpeechData struct {
	Transcript string
	Final      bool
}

// SpeechSignal is a voice-activity boundary event.
type SpeechSignal struct {
	Signal SignalType
}

// SpeechError is an error reported by the recognition service.
type SpeechError struct {
	Message string
}

func (SpeechData) speechEvent()   {}
func (SpeechSignal) speechEvent() {}
func (SpeechError) speechEvent()  {}

// DecodeSpeechEvent parses one frame of the recognition stream.
func DecodeSpeechEvent(raw []byte) (SpeechEvent, error) {
	var env struct {
		Type string `json:"type"`
		Data struct {
			Transcript string `json:"transcript"`
			IsFinal    bool   `json:"is_final"`
			SignalType string `json:"signal_type"`
			Error      string `json:"error"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode speech event: %w", err)
	}
	switch env.Type {
	case "data":
		return SpeechData{Transcript: env.Data.Transcript, Final: env.Data.IsFinal}, nil
	case "events":
		return SpeechSignal{Signal: SignalType(env.Data.SignalType)}, nil
	case "error":
		return SpeechError{Message: env.Data.Error}, nil
	default:
		return nil, fmt.Errorf("decode speech event: unknown type %q", env.Type)
	}
}
