package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "interview_sessions_active",
		Help: "Currently active interview sessions",
	})

	SessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_sessions_total",
		Help: "Total interview sessions started",
	})

	TurnsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_turns_submitted_total",
		Help: "Turn submissions by trigger",
	}, []string{"trigger"})

	QuestionsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_questions_delivered_total",
		Help: "Questions delivered to candidates",
	})

	Violations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_proctoring_violations_total",
		Help: "Proctoring violations by severity",
	}, []string{"severity"})

	Terminations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_proctoring_terminations_total",
		Help: "Sessions terminated by proctoring escalation",
	})

	EvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "interview_evaluation_duration_seconds",
		Help:    "Answer evaluation latency",
		Buckets: []float64{0.5, 1.0, 2.0, 3.0, 5.0, 8.0, 13.0, 21.0},
	})

	EvaluationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_evaluation_errors_total",
		Help: "Failed answer evaluations",
	})

	RecognitionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_recognition_events_total",
		Help: "Recognition stream events by kind",
	}, []string{"kind"})

	TransportDisconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_transport_disconnects_total",
		Help: "Transport disconnects observed across sessions",
	})
)
