package interview

import (
	"fmt"
	"strings"
	"time"

	"github.com/MananS02/Interview/pkg/adapters/stt"
	"github.com/MananS02/Interview/pkg/configutil"
	"github.com/MananS02/Interview/pkg/evaluation"
	"github.com/MananS02/Interview/pkg/providers/deepgram"
	mockstt "github.com/MananS02/Interview/pkg/providers/mock"
	"github.com/MananS02/Interview/pkg/providers/sarvam"
	"github.com/MananS02/Interview/pkg/transports"
	lktransport "github.com/MananS02/Interview/pkg/transports/livekit"
	mocktransport "github.com/MananS02/Interview/pkg/transports/mock"
	"github.com/MananS02/Interview/pkg/transports/wsfallback"
)

type RecognizerFactory func(cfg Config, sessionID, traceID string) (stt.StreamingSTT, error)
type EvaluatorFactory func(cfg Config) (evaluation.Evaluator, error)
type TransportFactory func(vendor VendorConfig) (transports.Transport, error)

// ProviderRegistry maps provider names from the config to constructors.
type ProviderRegistry struct {
	stt        map[string]RecognizerFactory
	eval       map[string]EvaluatorFactory
	transports map[string]TransportFactory
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		stt:        make(map[string]RecognizerFactory),
		eval:       make(map[string]EvaluatorFactory),
		transports: make(map[string]TransportFactory),
	}
}

func (r *ProviderRegistry) RegisterSTT(name string, factory RecognizerFactory) {
	r.stt[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) RegisterEvaluator(name string, factory EvaluatorFactory) {
	r.eval[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) RegisterTransport(name string, factory TransportFactory) {
	r.transports[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) BuildRecognizer(cfg Config, sessionID, traceID string) (stt.StreamingSTT, error) {
	fn := r.stt[strings.ToLower(strings.TrimSpace(cfg.Recognition.Provider))]
	if fn == nil {
		return nil, fmt.Errorf("recognition provider not registered: %s", cfg.Recognition.Provider)
	}
	return fn(cfg, sessionID, traceID)
}

func (r *ProviderRegistry) BuildEvaluator(cfg Config) (evaluation.Evaluator, error) {
	fn := r.eval[strings.ToLower(strings.TrimSpace(cfg.Evaluation.Provider))]
	if fn == nil {
		return nil, fmt.Errorf("evaluation provider not registered: %s", cfg.Evaluation.Provider)
	}
	return fn(cfg)
}

func (r *ProviderRegistry) BuildTransport(vendor VendorConfig) (transports.Transport, error) {
	fn := r.transports[strings.ToLower(strings.TrimSpace(vendor.Provider))]
	if fn == nil {
		return nil, fmt.Errorf("transport provider not registered: %s", vendor.Provider)
	}
	return fn(vendor)
}

// DefaultProviders returns a registry with every built-in provider wired.
func DefaultProviders() *ProviderRegistry {
	r := NewProviderRegistry()

	r.RegisterSTT("sarvam", func(cfg Config, sessionID, traceID string) (stt.StreamingSTT, error) {
		var settings struct {
			APIKey     string `mapstructure:"api_key"`
			Endpoint   string `mapstructure:"endpoint"`
			Model      string `mapstructure:"model"`
			SampleRate int    `mapstructure:"sample_rate"`
			Prompt     string `mapstructure:"prompt"`
		}
		if err := configutil.DecodeSettings(cfg.Recognition.Settings, &settings); err != nil {
			return nil, fmt.Errorf("sarvam settings: %w", err)
		}
		if err := configutil.RequireString(settings.APIKey, "recognition.settings.api_key"); err != nil {
			return nil, err
		}
		return sarvam.New(sarvam.Config{
			APIKey:     settings.APIKey,
			Endpoint:   settings.Endpoint,
			Model:      settings.Model,
			SampleRate: settings.SampleRate,
			Prompt:     settings.Prompt,
			SessionID:  sessionID,
			TraceID:    traceID,
		}), nil
	})

	r.RegisterSTT("deepgram", func(cfg Config, sessionID, traceID string) (stt.StreamingSTT, error) {
		var settings struct {
			APIKey         string `mapstructure:"api_key"`
			Model          string `mapstructure:"model"`
			Language       string `mapstructure:"language"`
			SampleRate     int    `mapstructure:"sample_rate"`
			Encoding       string `mapstructure:"encoding"`
			Interim        bool   `mapstructure:"interim"`
			UtteranceEndMS int    `mapstructure:"utterance_end_ms"`
		}
		if err := configutil.DecodeSettings(cfg.Recognition.Settings, &settings); err != nil {
			return nil, fmt.Errorf("deepgram settings: %w", err)
		}
		if err := configutil.RequireString(settings.APIKey, "recognition.settings.api_key"); err != nil {
			return nil, err
		}
		return deepgram.New(deepgram.Config{
			APIKey:         settings.APIKey,
			Model:          settings.Model,
			Language:       settings.Language,
			SampleRate:     settings.SampleRate,
			Encoding:       settings.Encoding,
			Interim:        settings.Interim,
			UtteranceEndMS: settings.UtteranceEndMS,
			SessionID:      sessionID,
			TraceID:        traceID,
		}), nil
	})

	r.RegisterSTT("mock", func(cfg Config, sessionID, traceID string) (stt.StreamingSTT, error) {
		return mockstt.NewSTT(mockstt.STTConfig{SessionID: sessionID, TraceID: traceID}), nil
	})

	r.RegisterEvaluator("openrouter", func(cfg Config) (evaluation.Evaluator, error) {
		if err := configutil.RequireString(cfg.Evaluation.APIKey, "evaluation.api_key"); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(cfg.Evaluation.Model, "evaluation.model"); err != nil {
			return nil, err
		}
		return evaluation.NewOpenRouter(evaluation.OpenRouterConfig{
			APIKey:  cfg.Evaluation.APIKey,
			BaseURL: cfg.Evaluation.BaseURL,
			Model:   cfg.Evaluation.Model,
			Timeout: time.Duration(cfg.Evaluation.TimeoutSeconds) * time.Second,
		}), nil
	})

	r.RegisterEvaluator("mock", func(cfg Config) (evaluation.Evaluator, error) {
		return evaluation.NewMockEvaluator(), nil
	})

	r.RegisterTransport("livekit", func(vendor VendorConfig) (transports.Transport, error) {
		var settings lktransport.Config
		if err := configutil.DecodeSettings(vendor.Settings, &settings); err != nil {
			return nil, fmt.Errorf("livekit settings: %w", err)
		}
		if err := configutil.RequireString(settings.URL, "transports.primary.settings.url"); err != nil {
			return nil, err
		}
		return lktransport.New(settings), nil
	})

	r.RegisterTransport("websocket", func(vendor VendorConfig) (transports.Transport, error) {
		var settings wsfallback.Config
		if err := configutil.DecodeSettings(vendor.Settings, &settings); err != nil {
			return nil, fmt.Errorf("websocket settings: %w", err)
		}
		return wsfallback.New(settings), nil
	})

	r.RegisterTransport("mock", func(vendor VendorConfig) (transports.Transport, error) {
		return mocktransport.New(), nil
	})

	return r
}
