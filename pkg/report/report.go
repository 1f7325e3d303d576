// Package report builds and persists the final interview report produced
// when a session concludes.
package report

import (
	"context"
	"sync"
	"time"

	"github.com/MananS02/Interview/pkg/evaluation"
)

// Report is the durable record of a completed interview session.
type Report struct {
	SessionID      string                `json:"session_id"`
	CandidateName  string                `json:"candidate_name"`
	StartedAt      time.Time             `json:"started_at"`
	ConcludedAt    time.Time             `json:"concluded_at"`
	EndReason      string                `json:"end_reason"`
	Turns          []evaluation.Record   `json:"turns"`
	KPIs           evaluation.KPISummary `json:"kpis"`
	ViolationCount int                   `json:"violation_count"`
	Terminated     bool                  `json:"terminated"`
}

// Store persists interview reports.
type Store interface {
	Save(ctx context.Context, r Report) error
	Get(ctx context.Context, sessionID string) (Report, error)
	List(ctx context.Context, limit int) ([]Report, error)
}

// MemoryStore keeps reports in memory. Used in tests and when no database
// is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]Report
	order   []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]Report)}
}

func (s *MemoryStore) Save(_ context.Context, r Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[r.SessionID]; !ok {
		s.order = append(s.order, r.SessionID)
	}
	s.reports[r.SessionID] = r
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[sessionID]
	if !ok {
		return Report{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.order)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Report, 0, n)
	// newest first
	for i := len(s.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.reports[s.order[i]])
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
