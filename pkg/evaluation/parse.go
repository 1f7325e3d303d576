package evaluation

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	scoreRe     = regexp.MustCompile(`(?i)SCORE:\s*(\d+(?:\.\d+)?)`)
	technicalRe = regexp.MustCompile(`(?i)TECHNICAL_ACCURACY:\s*(\d+(?:\.\d+)?)`)
	commRe      = regexp.MustCompile(`(?i)COMMUNICATION:\s*(\d+(?:\.\d+)?)`)
	relevanceRe = regexp.MustCompile(`(?i)RELEVANCE:\s*(\d+(?:\.\d+)?)`)
	depthRe     = regexp.MustCompile(`(?i)DEPTH:\s*(\d+(?:\.\d+)?)`)
)

// Parse extracts an Evaluation from the marker-formatted model response.
// Missing scores fall back to the neutral 5.0 and every score is clamped
// to the 0..10 range.
func Parse(raw string) Evaluation {
	return Evaluation{
		OverallScore:         clamp(extractScore(scoreRe, raw)),
		TechnicalAccuracy:    clamp(extractScore(technicalRe, raw)),
		CommunicationClarity: clamp(extractScore(commRe, raw)),
		Relevance:            clamp(extractScore(relevanceRe, raw)),
		Depth:                clamp(extractScore(depthRe, raw)),
		Strengths:            extractSection(raw, "STRENGTHS", "WEAKNESSES"),
		Weaknesses:           extractSection(raw, "WEAKNESSES", "FEEDBACK"),
		Feedback:             extractSection(raw, "FEEDBACK", ""),
	}
}

func extractScore(re *regexp.Regexp, raw string) float64 {
	m := re.FindStringSubmatch(raw)
	if m == nil {
		return 5.0
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 5.0
	}
	return v
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

func extractSection(raw, start, end string) string {
	upper := strings.ToUpper(raw)
	i := strings.Index(upper, start+":")
	if i < 0 {
		return ""
	}
	body := raw[i+len(start)+1:]
	if end != "" {
		if j := strings.Index(strings.ToUpper(body), end+":"); j >= 0 {
			body = body[:j]
		}
	}
	return strings.TrimSpace(body)
}
