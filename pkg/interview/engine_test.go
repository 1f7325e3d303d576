package interview

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/MananS02/Interview/pkg/evaluation"
	"github.com/MananS02/Interview/pkg/protocol"
	"github.com/MananS02/Interview/pkg/report"
	"github.com/MananS02/Interview/pkg/transports"
	mocktransport "github.com/MananS02/Interview/pkg/transports/mock"
)

func testConfig(questions ...QuestionConfig) Config {
	return Config{
		Environment: "test",
		LogLevel:    "error",
		Session: SessionConfig{
			CandidateName:        "Priya",
			TextTimerSeconds:     120,
			CodingTimerSeconds:   300,
			MaxQuestions:         7,
			SilenceWindowSeconds: 30,
			CodeEditGraceSeconds: 10,
			MinPhraseLength:      8,
			MaxViolations:        3,
			ConcludeWaitSeconds:  5,
		},
		Questions:   questions,
		Recognition: VendorConfig{Provider: "mock"},
		Evaluation:  EvaluationConfig{Provider: "mock", TimeoutSeconds: 5},
		Transports: TransportsConfig{
			Primary:  VendorConfig{Provider: "none"},
			Fallback: VendorConfig{Provider: "mock"},
		},
	}
}

func startEngine(t *testing.T, cfg Config) (*Engine, *mocktransport.Transport, *report.MemoryStore) {
	t.Helper()
	mt := mocktransport.New()
	store := report.NewMemoryStore()
	e, err := NewEngine(EngineOptions{
		Config:    cfg,
		Fallback:  mt,
		Evaluator: evaluation.NewMockEvaluator(),
		Reports:   store,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return e, mt, store
}

// awaitSent drains outbound messages until match accepts one.
func awaitSent(t *testing.T, mt *mocktransport.Transport, what string, match func(protocol.Outbound) bool) protocol.Outbound {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case s, ok := <-mt.Sent():
			if !ok {
				t.Fatalf("transport closed waiting for %s", what)
			}
			if match(s.Msg) {
				return s.Msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		}
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestEngineFullInterview(t *testing.T) {
	q1 := "Tell me about a recent project you worked on."
	q2 := "How do you handle errors in a long-running service?"
	cfg := testConfig(
		QuestionConfig{Content: q1, Type: "text"},
		QuestionConfig{Content: q2, Type: "text"},
	)
	e, mt, store := startEngine(t, cfg)

	mt.Push(transports.Packet{Kind: transports.PacketConnected, SessionID: "sess-1", TraceID: "trace-1"})

	greeting := awaitSent(t, mt, "greeting", func(msg protocol.Outbound) bool {
		q, ok := msg.(protocol.Question)
		return ok && strings.Contains(q.Content, "ready to begin")
	})
	if !strings.Contains(greeting.(protocol.Question).Content, "Priya") {
		t.Errorf("greeting does not address the candidate: %q", greeting.(protocol.Question).Content)
	}

	mt.PushMsg("sess-1", protocol.TextResponse{Content: "yes, let's start"})
	awaitSent(t, mt, "first question", func(msg protocol.Outbound) bool {
		q, ok := msg.(protocol.Question)
		return ok && q.Content == q1
	})

	mt.PushMsg("sess-1", protocol.TextResponse{Content: "I built a streaming ingestion pipeline."})
	awaitSent(t, mt, "second question", func(msg protocol.Outbound) bool {
		q, ok := msg.(protocol.Question)
		return ok && q.Content == q2
	})

	mt.PushMsg("sess-1", protocol.TextResponse{Content: "Wrap errors with context and retry transient ones."})
	concluded := awaitSent(t, mt, "conclusion", func(msg protocol.Outbound) bool {
		_, ok := msg.(protocol.InterviewConcluded)
		return ok
	}).(protocol.InterviewConcluded)
	if concluded.TotalQuestions != 2 {
		t.Errorf("TotalQuestions = %d, want 2", concluded.TotalQuestions)
	}
	if !concluded.StopRecording {
		t.Error("conclusion should stop recording")
	}

	eventually(t, "report persisted", func() bool {
		_, err := store.Get(context.Background(), "sess-1")
		return err == nil
	})
	r, err := store.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Get report: %v", err)
	}
	if len(r.Turns) != 2 {
		t.Errorf("report turns = %d, want 2", len(r.Turns))
	}
	if r.EndReason != "completed" {
		t.Errorf("end reason = %q, want completed", r.EndReason)
	}
	if r.Terminated {
		t.Error("completed interview marked terminated")
	}

	eventually(t, "session teardown", func() bool {
		s := e.Stats()
		return s.ActiveSessions == 0 && s.CompletedSessions == 1
	})
	if turns := e.Stats().TotalTurns; turns != 2 {
		t.Errorf("total turns = %d, want 2", turns)
	}

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestEngineCandidateEndsEarly(t *testing.T) {
	cfg := testConfig(QuestionConfig{Content: "Describe your ideal on-call rotation.", Type: "text"})
	cfg.Session.SkipGreeting = true
	e, mt, store := startEngine(t, cfg)

	mt.Push(transports.Packet{Kind: transports.PacketConnected, SessionID: "sess-2", TraceID: "trace-2"})
	awaitSent(t, mt, "first question", func(msg protocol.Outbound) bool {
		_, ok := msg.(protocol.Question)
		return ok
	})

	mt.PushMsg("sess-2", protocol.EndInterview{})
	awaitSent(t, mt, "conclusion", func(msg protocol.Outbound) bool {
		_, ok := msg.(protocol.InterviewConcluded)
		return ok
	})

	eventually(t, "report persisted", func() bool {
		r, err := store.Get(context.Background(), "sess-2")
		return err == nil && r.EndReason == "ended_by_candidate"
	})
	eventually(t, "session teardown", func() bool {
		return e.Stats().ActiveSessions == 0
	})

	if err := e.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
