package evaluation

import (
	"context"
	"sync"
)

// MockEvaluator returns canned evaluations and records the questions it saw.
type MockEvaluator struct {
	mu        sync.Mutex
	result    Evaluation
	err       error
	questions []string
	delay     chan struct{}
}

func NewMockEvaluator() *MockEvaluator {
	return &MockEvaluator{result: Neutral()}
}

func (m *MockEvaluator) Name() string { return "mock" }

// SetResult configures the evaluation returned by subsequent calls.
func (m *MockEvaluator) SetResult(ev Evaluation) {
	m.mu.Lock()
	m.result = ev
	m.mu.Unlock()
}

// SetError makes subsequent calls fail with err.
func (m *MockEvaluator) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// Block makes Evaluate wait until Release is called, for testing bounded
// waits around in-flight evaluations.
func (m *MockEvaluator) Block() {
	m.mu.Lock()
	m.delay = make(chan struct{})
	m.mu.Unlock()
}

func (m *MockEvaluator) Release() {
	m.mu.Lock()
	if m.delay != nil {
		close(m.delay)
		m.delay = nil
	}
	m.mu.Unlock()
}

func (m *MockEvaluator) Evaluate(ctx context.Context, question, answer, resumeSummary string) (Evaluation, error) {
	m.mu.Lock()
	m.questions = append(m.questions, question)
	result, err, delay := m.result, m.err, m.delay
	m.mu.Unlock()

	if delay != nil {
		select {
		case <-delay:
		case <-ctx.Done():
			return Neutral(), ctx.Err()
		}
	}
	if err != nil {
		return Neutral(), err
	}
	return result, nil
}

// Questions returns the questions passed to Evaluate so far.
func (m *MockEvaluator) Questions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.questions))
	copy(out, m.questions)
	return out
}

var _ Evaluator = (*MockEvaluator)(nil)
