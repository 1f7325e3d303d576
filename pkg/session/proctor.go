package session

import (
	"log/slog"

	"github.com/MananS02/Interview/pkg/metrics"
	"github.com/MananS02/Interview/pkg/protocol"
)

// Monitor tracks proctoring escalation for one session. The frame analyzer
// owns the authoritative violation count; the monitor mirrors it and only
// decides when the session must terminate. Driven solely by the session
// event loop.
type Monitor struct {
	violationCount int
	maxViolations  int
	warningShown   bool
	logger         *slog.Logger
}

func NewMonitor(maxViolations int, logger *slog.Logger) *Monitor {
	if maxViolations <= 0 {
		maxViolations = 3
	}
	return &Monitor{maxViolations: maxViolations, logger: logger}
}

// ViolationCount returns the mirrored analyzer count.
func (m *Monitor) ViolationCount() int { return m.violationCount }

// Process consumes one frame-analysis result. It returns the messages to
// surface to the candidate and whether the session must terminate now.
func (m *Monitor) Process(res protocol.ProctorResult) (out []protocol.Outbound, terminate bool) {
	if res.MaxViolations > 0 {
		m.maxViolations = res.MaxViolations
	}
	// Mirror the analyzer's count, never regress it.
	if res.ViolationCount > m.violationCount {
		m.violationCount = res.ViolationCount
	}

	if len(res.Violations) == 0 {
		// An empty result is meaningful: no stale warning may linger.
		if m.warningShown {
			m.warningShown = false
			out = append(out, protocol.ProctorWarning{
				Clear:          true,
				ViolationCount: m.violationCount,
				MaxViolations:  m.maxViolations,
			})
		}
		if !res.SessionActive {
			terminate = true
		}
		return out, terminate
	}

	var surfaced []protocol.Violation
	for _, v := range res.Violations {
		metrics.Violations.WithLabelValues(string(v.Severity)).Inc()
		switch v.Severity {
		case protocol.SeverityTermination:
			terminate = true
		case protocol.SeverityViolation, protocol.SeverityWarning:
			surfaced = append(surfaced, v)
		}
		if v.Terminate {
			terminate = true
		}
		m.logger.Warn("proctoring_violation",
			slog.String("severity", string(v.Severity)),
			slog.String("message", v.Message),
			slog.Int("violation_count", m.violationCount))
	}

	if len(surfaced) > 0 {
		m.warningShown = true
		out = append(out, protocol.ProctorWarning{
			Violations:     surfaced,
			ViolationCount: m.violationCount,
			MaxViolations:  m.maxViolations,
		})
	}

	if m.violationCount >= m.maxViolations || !res.SessionActive {
		terminate = true
	}
	if terminate {
		metrics.Terminations.Inc()
	}
	return out, terminate
}
