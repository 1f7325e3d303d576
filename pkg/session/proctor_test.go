package session

import (
	"log/slog"
	"testing"

	"github.com/MananS02/Interview/pkg/protocol"
)

func testMonitor(max int) *Monitor {
	return NewMonitor(max, slog.Default())
}

func TestMonitorWarningDoesNotTerminate(t *testing.T) {
	m := testMonitor(3)
	out, terminate := m.Process(protocol.ProctorResult{
		Violations:    []protocol.Violation{{Severity: protocol.SeverityWarning, Message: "looking away"}},
		SessionActive: true,
	})
	if terminate {
		t.Fatal("warning must not terminate the session")
	}
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1 warning message", len(out))
	}
	if m.ViolationCount() != 0 {
		t.Errorf("ViolationCount() = %d, want 0 after warning", m.ViolationCount())
	}
}

func TestMonitorMirrorsAnalyzerCount(t *testing.T) {
	m := testMonitor(3)
	_, terminate := m.Process(protocol.ProctorResult{
		Violations:     []protocol.Violation{{Severity: protocol.SeverityViolation, Message: "second face"}},
		ViolationCount: 2,
		MaxViolations:  3,
		SessionActive:  true,
	})
	if terminate {
		t.Fatal("below threshold must not terminate")
	}
	if m.ViolationCount() != 2 {
		t.Errorf("ViolationCount() = %d, want 2", m.ViolationCount())
	}

	// Count never regresses.
	_, _ = m.Process(protocol.ProctorResult{ViolationCount: 1, SessionActive: true})
	if m.ViolationCount() != 2 {
		t.Errorf("ViolationCount() = %d, want 2 after stale lower count", m.ViolationCount())
	}
}

func TestMonitorThresholdTerminates(t *testing.T) {
	m := testMonitor(3)
	_, terminate := m.Process(protocol.ProctorResult{
		Violations:     []protocol.Violation{{Severity: protocol.SeverityViolation, Message: "phone detected"}},
		ViolationCount: 3,
		MaxViolations:  3,
		SessionActive:  true,
	})
	if !terminate {
		t.Error("reaching max violations must terminate")
	}
}

func TestMonitorExplicitTermination(t *testing.T) {
	m := testMonitor(3)
	_, terminate := m.Process(protocol.ProctorResult{
		Violations:     []protocol.Violation{{Severity: protocol.SeverityTermination, Message: "identity mismatch"}},
		ViolationCount: 1,
		SessionActive:  true,
	})
	if !terminate {
		t.Error("explicit termination severity must terminate regardless of count")
	}
}

func TestMonitorEmptyResultClearsWarning(t *testing.T) {
	m := testMonitor(3)
	_, _ = m.Process(protocol.ProctorResult{
		Violations:    []protocol.Violation{{Severity: protocol.SeverityWarning, Message: "looking away"}},
		SessionActive: true,
	})

	out, terminate := m.Process(protocol.ProctorResult{SessionActive: true})
	if terminate {
		t.Fatal("clean result must not terminate")
	}
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1 clear message", len(out))
	}
	w, ok := out[0].(protocol.ProctorWarning)
	if !ok || !w.Clear {
		t.Errorf("out[0] = %#v, want ProctorWarning with Clear", out[0])
	}

	// No warning shown: a second clean result emits nothing.
	out, _ = m.Process(protocol.ProctorResult{SessionActive: true})
	if len(out) != 0 {
		t.Errorf("len(out) = %d, want 0 with no stale warning", len(out))
	}
}
