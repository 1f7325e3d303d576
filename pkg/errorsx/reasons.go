package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonTransportDisconnected ReasonCode = "transport_disconnected"
	ReasonTransportSend         ReasonCode = "transport_send"

	ReasonAudioCue ReasonCode = "audio_cue"

	ReasonRecognitionConnect ReasonCode = "recognition_connect"
	ReasonRecognitionSend    ReasonCode = "recognition_send"
	ReasonRecognitionStream  ReasonCode = "recognition_stream"

	ReasonTurnAlreadyOpen   ReasonCode = "turn_already_open"
	ReasonTurnAlreadyClosed ReasonCode = "turn_already_closed"

	ReasonProctoringTermination ReasonCode = "proctoring_termination"

	ReasonEvaluation    ReasonCode = "evaluation"
	ReasonEvalRateLimit ReasonCode = "evaluation_rate_limit"
	ReasonReportStore   ReasonCode = "report_store"
)
