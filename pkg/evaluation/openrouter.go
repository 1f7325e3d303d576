package evaluation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/MananS02/Interview/pkg/errorsx"
	"github.com/MananS02/Interview/pkg/logging"
	"github.com/MananS02/Interview/pkg/metrics"
	"github.com/MananS02/Interview/pkg/protocol"
	"github.com/MananS02/Interview/pkg/redact"
	"github.com/MananS02/Interview/pkg/resilience"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

type OpenRouterConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// OpenRouterEvaluator scores answers through an OpenAI-compatible chat
// completions endpoint.
type OpenRouterEvaluator struct {
	cfg     OpenRouterConfig
	client  *http.Client
	logger  *slog.Logger
	retry   resilience.RetryPolicy
	breaker *resilience.CircuitBreaker
}

func NewOpenRouter(cfg OpenRouterConfig) *OpenRouterEvaluator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &OpenRouterEvaluator{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logging.NewComponentLogger(slog.Default(), "openrouter_evaluator"),
		retry:   resilience.NewRetryPolicy(2, 500*time.Millisecond),
		breaker: resilience.NewCircuitBreaker(3, 30*time.Second),
	}
}

func (e *OpenRouterEvaluator) Name() string { return "openrouter" }

func (e *OpenRouterEvaluator) Evaluate(ctx context.Context, question, answer, resumeSummary string) (Evaluation, error) {
	if !e.breaker.Allow() {
		return Neutral(), errorsx.New("evaluator circuit open", errorsx.ReasonEvalRateLimit)
	}
	start := time.Now()

	prompt := buildPrompt(question, redact.Scrub(answer), resumeSummary)

	var raw string
	err := e.retry.Do(func() error {
		var err error
		raw, err = e.complete(ctx, prompt)
		return err
	})
	if err != nil {
		e.breaker.OnError(err)
		metrics.EvaluationErrors.Inc()
		e.logger.Error("evaluation_failed",
			slog.String("error", err.Error()))
		return Neutral(), errorsx.Wrap(err, errorsx.ReasonEvaluation)
	}
	e.breaker.OnSuccess()
	metrics.EvaluationDuration.Observe(time.Since(start).Seconds())

	result := Parse(raw)
	e.logger.Info("evaluation_complete",
		slog.Float64("overall_score", result.OverallScore),
		slog.Duration("elapsed", time.Since(start)))
	return result, nil
}

func (e *OpenRouterEvaluator) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model": e.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completions request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", resilience.RateLimitError{Provider: "openrouter"}
	}
	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("completions status %d: %s", resp.StatusCode, errBody)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return parsed.Choices[0].Message.Content, nil
}

const systemPrompt = "You are a professional technical interviewer. Evaluate candidate answers fairly and respond only in the requested format."

func buildPrompt(question, answer, resumeSummary string) string {
	if protocol.HasCodeBlock(answer) {
		explanation, code := protocol.SplitAnswer(answer)
		return fmt.Sprintf(`Evaluate this coding answer. Judge the CODE on correctness, logic, and implementation quality; the explanation is secondary.

Question: %s

Code:
%s

Explanation: %s

Respond exactly in this format:
SCORE: [overall 0-10]
TECHNICAL_ACCURACY: [0-10]
COMMUNICATION: [0-10]
RELEVANCE: [0-10]
DEPTH: [0-10]
STRENGTHS: [2-3 key strengths of the code]
WEAKNESSES: [2-3 weaknesses of the code]
FEEDBACK: [constructive feedback on code quality in 2-3 sentences]`, question, code, explanation)
	}
	return fmt.Sprintf(`Evaluate this interview answer given the candidate's background.

Candidate background: %s

Question: %s

Answer: %s

Scoring guide: 9-10 excellent and complete, 7-8 good with minor gaps, 5-6 partially correct, 3-4 mostly incorrect, 0-2 irrelevant or empty.

Respond exactly in this format:
SCORE: [overall 0-10]
TECHNICAL_ACCURACY: [0-10]
COMMUNICATION: [0-10]
RELEVANCE: [0-10]
DEPTH: [0-10]
STRENGTHS: [2-3 key strengths of the answer]
WEAKNESSES: [2-3 weaknesses of the answer]
FEEDBACK: [constructive feedback in 2-3 sentences]`, resumeSummary, question, answer)
}

var _ Evaluator = (*OpenRouterEvaluator)(nil)
