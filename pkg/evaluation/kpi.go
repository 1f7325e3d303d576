package evaluation

// KPISummary aggregates per-dimension averages across evaluated turns.
type KPISummary struct {
	OverallScore         float64 `json:"overall_score"`
	TechnicalAccuracy    float64 `json:"technical_accuracy"`
	CommunicationClarity float64 `json:"communication_clarity"`
	Relevance            float64 `json:"relevance"`
	Depth                float64 `json:"depth"`
	TurnsEvaluated       int     `json:"turns_evaluated"`
}

// Summarize averages the scored dimensions of the given records. An empty
// slice yields a zero summary.
func Summarize(records []Record) KPISummary {
	if len(records) == 0 {
		return KPISummary{}
	}
	var s KPISummary
	for _, r := range records {
		s.OverallScore += r.Evaluation.OverallScore
		s.TechnicalAccuracy += r.Evaluation.TechnicalAccuracy
		s.CommunicationClarity += r.Evaluation.CommunicationClarity
		s.Relevance += r.Evaluation.Relevance
		s.Depth += r.Evaluation.Depth
	}
	n := float64(len(records))
	s.OverallScore /= n
	s.TechnicalAccuracy /= n
	s.CommunicationClarity /= n
	s.Relevance /= n
	s.Depth /= n
	s.TurnsEvaluated = len(records)
	return s
}
