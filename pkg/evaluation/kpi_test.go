package evaluation

import "testing"

func TestSummarizeAverages(t *testing.T) {
	records := []Record{
		{Evaluation: Evaluation{OverallScore: 8, TechnicalAccuracy: 9, CommunicationClarity: 7, Relevance: 8, Depth: 6}},
		{Evaluation: Evaluation{OverallScore: 4, TechnicalAccuracy: 5, CommunicationClarity: 5, Relevance: 4, Depth: 4}},
	}
	s := Summarize(records)
	if s.OverallScore != 6 {
		t.Errorf("OverallScore = %v, want 6", s.OverallScore)
	}
	if s.TechnicalAccuracy != 7 {
		t.Errorf("TechnicalAccuracy = %v, want 7", s.TechnicalAccuracy)
	}
	if s.Depth != 5 {
		t.Errorf("Depth = %v, want 5", s.Depth)
	}
	if s.TurnsEvaluated != 2 {
		t.Errorf("TurnsEvaluated = %d, want 2", s.TurnsEvaluated)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s != (KPISummary{}) {
		t.Errorf("expected zero summary, got %+v", s)
	}
}
