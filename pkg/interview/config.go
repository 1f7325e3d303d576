package interview

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/MananS02/Interview/pkg/protocol"
	"github.com/MananS02/Interview/pkg/session"
)

// Config is the full process configuration loaded from file plus
// INTERVIEW_-prefixed environment overrides.
type Config struct {
	Environment string           `mapstructure:"environment"`
	LogLevel    string           `mapstructure:"log_level"`
	Session     SessionConfig    `mapstructure:"session"`
	Questions   []QuestionConfig `mapstructure:"questions"`
	Recognition VendorConfig     `mapstructure:"recognition"`
	Evaluation  EvaluationConfig `mapstructure:"evaluation"`
	Transports  TransportsConfig `mapstructure:"transports"`
	Report      ReportConfig     `mapstructure:"report"`
}

// VendorConfig selects a provider plus free-form provider settings.
type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

// TransportsConfig names the primary data channel and the fallback duplex
// socket, each with its own settings.
type TransportsConfig struct {
	Primary  VendorConfig `mapstructure:"primary"`
	Fallback VendorConfig `mapstructure:"fallback"`
}

type SessionConfig struct {
	CandidateName        string `mapstructure:"candidate_name"`
	TextTimerSeconds     int    `mapstructure:"text_timer_seconds"`
	CodingTimerSeconds   int    `mapstructure:"coding_timer_seconds"`
	MaxQuestions         int    `mapstructure:"max_questions"`
	SilenceWindowSeconds int    `mapstructure:"silence_window_seconds"`
	CodeEditGraceSeconds int    `mapstructure:"code_edit_grace_seconds"`
	MinPhraseLength      int    `mapstructure:"min_phrase_length"`
	MaxViolations        int    `mapstructure:"max_violations"`
	ConcludeWaitSeconds  int    `mapstructure:"conclude_wait_seconds"`
	SkipGreeting         bool   `mapstructure:"skip_greeting"`
}

type QuestionConfig struct {
	Content      string `mapstructure:"content"`
	Type         string `mapstructure:"type"`
	TimerSeconds int    `mapstructure:"timer_seconds"`
	AudioCue     string `mapstructure:"audio_cue"`
}

type EvaluationConfig struct {
	Provider       string `mapstructure:"provider"`
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	ResumeSummary  string `mapstructure:"resume_summary"`
	RedactPII      bool   `mapstructure:"redact_pii"`
}

type ReportConfig struct {
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("INTERVIEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("session.text_timer_seconds", 120)
	v.SetDefault("session.coding_timer_seconds", 300)
	v.SetDefault("session.max_questions", 7)
	v.SetDefault("session.silence_window_seconds", 30)
	v.SetDefault("session.code_edit_grace_seconds", 10)
	v.SetDefault("session.min_phrase_length", 8)
	v.SetDefault("session.max_violations", 3)
	v.SetDefault("session.conclude_wait_seconds", 10)
	v.SetDefault("recognition.provider", "sarvam")
	v.SetDefault("evaluation.provider", "openrouter")
	v.SetDefault("evaluation.timeout_seconds", 60)
	v.SetDefault("transports.primary.provider", "livekit")
	v.SetDefault("transports.fallback.provider", "websocket")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Recognition.Provider) == "" {
		return fmt.Errorf("recognition.provider is required")
	}
	if strings.TrimSpace(c.Evaluation.Provider) == "" {
		return fmt.Errorf("evaluation.provider is required")
	}
	if strings.TrimSpace(c.Transports.Fallback.Provider) == "" {
		return fmt.Errorf("transports.fallback.provider is required")
	}
	if len(c.Questions) == 0 {
		return fmt.Errorf("at least one question is required")
	}
	for i, q := range c.Questions {
		if strings.TrimSpace(q.Content) == "" {
			return fmt.Errorf("questions[%d].content is empty", i)
		}
		switch q.Type {
		case "", "text", "coding":
		default:
			return fmt.Errorf("questions[%d].type %q is not one of text, coding", i, q.Type)
		}
	}
	return nil
}

// SessionQuestions converts the scripted questions into session form.
func (c *Config) SessionQuestions() []session.Question {
	out := make([]session.Question, 0, len(c.Questions))
	for _, q := range c.Questions {
		qt := protocol.QuestionText
		if q.Type == "coding" {
			qt = protocol.QuestionCoding
		}
		out = append(out, session.Question{
			Content:      q.Content,
			Type:         qt,
			TimerSeconds: q.TimerSeconds,
			AudioCue:     q.AudioCue,
		})
	}
	return out
}

// SessionConfigFor builds a per-session controller config for sessionID.
func (c *Config) SessionConfigFor(sessionID, traceID string) session.Config {
	return session.Config{
		SessionID:          sessionID,
		TraceID:            traceID,
		CandidateName:      c.Session.CandidateName,
		ResumeSummary:      c.Evaluation.ResumeSummary,
		Questions:          c.SessionQuestions(),
		TextTimerSeconds:   c.Session.TextTimerSeconds,
		CodingTimerSeconds: c.Session.CodingTimerSeconds,
		MaxQuestions:       c.Session.MaxQuestions,
		SilenceWindow:      time.Duration(c.Session.SilenceWindowSeconds) * time.Second,
		CodeEditGrace:      time.Duration(c.Session.CodeEditGraceSeconds) * time.Second,
		MinPhraseLength:    c.Session.MinPhraseLength,
		MaxViolations:      c.Session.MaxViolations,
		ConcludeWait:       time.Duration(c.Session.ConcludeWaitSeconds) * time.Second,
		EvalTimeout:        time.Duration(c.Evaluation.TimeoutSeconds) * time.Second,
		SkipGreeting:       c.Session.SkipGreeting,
	}
}

func expandEnvStrings(cfg *Config) {
	cfg.Evaluation.APIKey = os.ExpandEnv(cfg.Evaluation.APIKey)
	cfg.Evaluation.BaseURL = os.ExpandEnv(cfg.Evaluation.BaseURL)
	cfg.Report.PostgresDSN = os.ExpandEnv(cfg.Report.PostgresDSN)
	cfg.Recognition.Settings = expandSettings(cfg.Recognition.Settings)
	cfg.Transports.Primary.Settings = expandSettings(cfg.Transports.Primary.Settings)
	cfg.Transports.Fallback.Settings = expandSettings(cfg.Transports.Fallback.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	default:
		return v
	}
}
