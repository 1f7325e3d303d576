// Package evaluation scores candidate answers. Evaluations run as detached
// background tasks; the session controller never blocks on them.
package evaluation

import "context"

// Evaluation is the scored assessment of one answer. Scores are 0..10.
type Evaluation struct {
	OverallScore         float64
	TechnicalAccuracy    float64
	CommunicationClarity float64
	Relevance            float64
	Depth                float64
	Strengths            string
	Weaknesses           string
	Feedback             string
}

// Record pairs an answer with its evaluation for the session history.
type Record struct {
	Question   string
	Answer     string
	Evaluation Evaluation
	Timestamp  string
}

// Evaluator scores a single answer against its question.
type Evaluator interface {
	Name() string
	Evaluate(ctx context.Context, question, answer, resumeSummary string) (Evaluation, error)
}

// Neutral returns the balanced fallback used when scoring fails: the
// candidate is neither rewarded nor punished for an evaluator outage.
func Neutral() Evaluation {
	return Evaluation{
		OverallScore:         5.0,
		TechnicalAccuracy:    5.0,
		CommunicationClarity: 5.0,
		Relevance:            5.0,
		Depth:                5.0,
		Feedback:             "The answer could not be evaluated automatically.",
	}
}
