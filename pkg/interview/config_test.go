package interview

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
recognition:
  provider: mock
evaluation:
  provider: mock
transports:
  fallback:
    provider: websocket
questions:
  - content: "Describe a system you designed."
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Session.TextTimerSeconds != 120 {
		t.Errorf("text timer default = %d, want 120", cfg.Session.TextTimerSeconds)
	}
	if cfg.Session.CodingTimerSeconds != 300 {
		t.Errorf("coding timer default = %d, want 300", cfg.Session.CodingTimerSeconds)
	}
	if cfg.Session.MaxQuestions != 7 {
		t.Errorf("max questions default = %d, want 7", cfg.Session.MaxQuestions)
	}
	if cfg.Session.MaxViolations != 3 {
		t.Errorf("max violations default = %d, want 3", cfg.Session.MaxViolations)
	}
	if cfg.Evaluation.TimeoutSeconds != 60 {
		t.Errorf("evaluation timeout default = %d, want 60", cfg.Evaluation.TimeoutSeconds)
	}
}

func TestLoadConfigRejectsEmptyQuestions(t *testing.T) {
	path := writeConfig(t, `
recognition:
  provider: mock
evaluation:
  provider: mock
questions: []
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for empty question list")
	}
}

func TestLoadConfigRejectsBadQuestionType(t *testing.T) {
	path := writeConfig(t, `
recognition:
  provider: mock
evaluation:
  provider: mock
questions:
  - content: "Reverse a linked list."
    type: whiteboard
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for unknown question type")
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("TEST_EVAL_KEY", "sk-test-123")
	path := writeConfig(t, `
recognition:
  provider: mock
evaluation:
  provider: mock
  api_key: ${TEST_EVAL_KEY}
questions:
  - content: "Explain eventual consistency."
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Evaluation.APIKey != "sk-test-123" {
		t.Errorf("api key = %q, want expanded env value", cfg.Evaluation.APIKey)
	}
}

func TestSessionQuestionsMapsTypes(t *testing.T) {
	cfg := Config{Questions: []QuestionConfig{
		{Content: "text q"},
		{Content: "code q", Type: "coding", TimerSeconds: 300},
	}}
	qs := cfg.SessionQuestions()
	if len(qs) != 2 {
		t.Fatalf("got %d questions, want 2", len(qs))
	}
	if qs[0].Type != "text" {
		t.Errorf("default type = %q, want text", qs[0].Type)
	}
	if qs[1].Type != "coding" || qs[1].TimerSeconds != 300 {
		t.Errorf("coding question mapped wrong: %+v", qs[1])
	}
}
