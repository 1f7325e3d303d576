package session

// Status is the lifecycle state of one interview session.
type Status int

const (
	StatusAwaitingQuestion Status = iota
	StatusRecording
	StatusEvaluating
	StatusConcluding
	StatusEnded
)

// String returns the string representation of a Status.
func (s Status) String() string {
	switch s {
	case StatusAwaitingQuestion:
		return "AWAITING_QUESTION"
	case StatusRecording:
		return "RECORDING"
	case StatusEvaluating:
		return "EVALUATING"
	case StatusConcluding:
		return "CONCLUDING"
	case StatusEnded:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}

// Concluding is reachable from every live state: proctoring termination
// bypasses any open turn.
var validTransitions = map[Status][]Status{
	StatusAwaitingQuestion: {StatusRecording, StatusConcluding},
	StatusRecording:        {StatusEvaluating, StatusConcluding},
	StatusEvaluating:       {StatusRecording, StatusAwaitingQuestion, StatusConcluding},
	StatusConcluding:       {StatusEnded},
	StatusEnded:            {},
}

func transitionValid(from, to Status) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError reports a rejected status transition attempt.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return "invalid session transition from " + e.From.String() + " to " + e.To.String()
}
