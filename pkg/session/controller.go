// Package session implements the per-session interview turn state machine:
// question delivery, transcript assembly, answer submission (manual,
// silence-triggered, or deadline-triggered), and proctoring escalation.
// Each session runs one event-loop goroutine; every external input is
// posted onto a single ordered queue, so a deadline firing concurrently
// with a manual submit can never both close the same turn.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MananS02/Interview/pkg/errorsx"
	"github.com/MananS02/Interview/pkg/evaluation"
	"github.com/MananS02/Interview/pkg/frames"
	"github.com/MananS02/Interview/pkg/metrics"
	"github.com/MananS02/Interview/pkg/protocol"
	"github.com/MananS02/Interview/pkg/report"
)

// No-response placeholders recorded when a turn closes without content.
const (
	Placeholder        = "[No response]"
	PlaceholderTimeout = "[No response - Time expired]"
)

var consentKeywords = []string{"yes", "sure", "ready", "start", "okay", "go ahead", "begin"}

// Sender delivers outbound messages to the candidate. Satisfied by the
// transport implementations.
type Sender interface {
	Send(sessionID string, msg protocol.Outbound) error
}

// Flusher forces the recognition stream to finalize pending speech.
type Flusher interface {
	Flush() error
}

// Config holds the per-session interview script and tuning.
type Config struct {
	SessionID     string
	TraceID       string
	CandidateName string
	ResumeSummary string
	Questions     []Question

	TextTimerSeconds   int
	CodingTimerSeconds int
	MaxQuestions       int
	SilenceWindow      time.Duration
	CodeEditGrace      time.Duration
	MinPhraseLength    int
	MaxViolations      int
	ConcludeWait       time.Duration
	EvalTimeout        time.Duration

	// SkipGreeting starts at question 1 without the consent exchange.
	SkipGreeting bool
}

func (c Config) withDefaults() Config {
	if c.TextTimerSeconds <= 0 {
		c.TextTimerSeconds = 120
	}
	if c.CodingTimerSeconds <= 0 {
		c.CodingTimerSeconds = 300
	}
	if c.MaxQuestions <= 0 {
		c.MaxQuestions = 7
	}
	if c.SilenceWindow <= 0 {
		c.SilenceWindow = 30 * time.Second
	}
	if c.CodeEditGrace <= 0 {
		c.CodeEditGrace = 10 * time.Second
	}
	if c.MinPhraseLength <= 0 {
		c.MinPhraseLength = 8
	}
	if c.MaxViolations <= 0 {
		c.MaxViolations = 3
	}
	if c.ConcludeWait <= 0 {
		c.ConcludeWait = 10 * time.Second
	}
	if c.EvalTimeout <= 0 {
		c.EvalTimeout = 60 * time.Second
	}
	return c
}

// Deps are the collaborators a controller drives. Recognizer and Reports
// may be nil; OnEnded runs once after the session reaches Ended.
type Deps struct {
	Sender     Sender
	Recognizer Flusher
	Evaluator  evaluation.Evaluator
	Reports    report.Store
	Logger     *slog.Logger
	OnEnded    func()
}

type eventKind int

const (
	evMessage eventKind = iota
	evFrame
	evTimer
	evEvalDone
	evBandTick
	evDisconnect
	evReconnect
	evConcludeTimeout
)

type event struct {
	kind    eventKind
	msg     protocol.Inbound
	frame   frames.Frame
	trigger Trigger
	gen     uint64
	turnIdx int
	eval    evaluation.Evaluation
	evalErr error
}

// Controller owns one interview session's state machine. All session state
// below the deps block is touched only by the run goroutine.
type Controller struct {
	cfg  Config
	deps Deps

	events   chan event
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once

	statusSnap atomic.Int32
	turnsSnap  atomic.Int64

	st            Status
	questionIndex int
	turn          *Turn
	turnGen       uint64
	transcript    *Transcript
	answerTimer   countdown
	silenceTimer  countdown
	monitor       *Monitor
	records       []evaluation.Record
	pendingEvals  int
	evaluated     int
	scoreSum      float64
	consented     bool
	suspended     bool
	concluded     bool
	startedAt     time.Time
	endReason     string
	terminated    bool
	concludeTimer *time.Timer
	bandTimers    []*time.Timer
}

func New(cfg Config, deps Deps) *Controller {
	cfg = cfg.withDefaults()
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Logger = deps.Logger.With(slog.String("session_id", cfg.SessionID))
	return &Controller{
		cfg:        cfg,
		deps:       deps,
		events:     make(chan event, 64),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		st:         StatusAwaitingQuestion,
		transcript: NewTranscript(cfg.MinPhraseLength),
		monitor:    NewMonitor(cfg.MaxViolations, deps.Logger),
		consented:  cfg.SkipGreeting,
	}
}

// Start launches the session event loop and sends the opening exchange.
func (c *Controller) Start() error {
	c.startedAt = time.Now()
	metrics.SessionsActive.Inc()
	metrics.SessionsTotal.Inc()
	go c.run()
	return nil
}

// Stop tears the session down immediately: both timers cancelled, loop
// exited. Safe to call more than once.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// Done is closed once the event loop has exited.
func (c *Controller) Done() <-chan struct{} { return c.doneCh }

func (c *Controller) SessionID() string { return c.cfg.SessionID }

// Status returns a snapshot of the session status, safe from any goroutine.
func (c *Controller) Status() Status { return Status(c.statusSnap.Load()) }

// Turns returns the number of submitted turns so far.
func (c *Controller) Turns() int64 { return c.turnsSnap.Load() }

// HandleMessage enqueues an inbound protocol message.
func (c *Controller) HandleMessage(msg protocol.Inbound) {
	c.post(event{kind: evMessage, msg: msg})
}

// HandleFrame enqueues a recognition stream frame.
func (c *Controller) HandleFrame(f frames.Frame) {
	c.post(event{kind: evFrame, frame: f})
}

// HandleDisconnect suspends input processing: timers pause with their
// remaining durations preserved. The session does not terminate.
func (c *Controller) HandleDisconnect() {
	c.post(event{kind: evDisconnect})
}

// HandleReconnect resumes a suspended session.
func (c *Controller) HandleReconnect() {
	c.post(event{kind: evReconnect})
}

func (c *Controller) post(ev event) {
	select {
	case c.events <- ev:
	case <-c.doneCh:
	}
}

func (c *Controller) run() {
	defer close(c.doneCh)
	defer metrics.SessionsActive.Dec()

	c.statusSnap.Store(int32(c.st))
	c.sendOpening()

	for {
		select {
		case <-c.stopCh:
			c.answerTimer.Stop()
			c.silenceTimer.Stop()
			c.stopBandTimers()
			c.stopConcludeTimer()
			c.st = StatusEnded
			c.statusSnap.Store(int32(StatusEnded))
			c.deps.Logger.Info("session_stopped")
			return
		case ev := <-c.events:
			c.handle(ev)
			if c.st == StatusEnded {
				if c.deps.OnEnded != nil {
					go c.deps.OnEnded()
				}
				return
			}
		}
	}
}

func (c *Controller) handle(ev event) {
	switch ev.kind {
	case evMessage:
		c.handleMessage(ev.msg)
	case evFrame:
		c.handleFrame(ev.frame)
	case evTimer:
		c.handleTimer(ev.trigger, ev.gen)
	case evBandTick:
		c.handleBandTick(ev.gen)
	case evEvalDone:
		c.handleEvalDone(ev)
	case evDisconnect:
		c.handleDisconnect()
	case evReconnect:
		c.handleReconnect()
	case evConcludeTimeout:
		if c.st == StatusConcluding && !c.concluded {
			c.deps.Logger.Warn("conclusion_wait_expired",
				slog.Int("pending_evaluations", c.pendingEvals))
			c.finishConclusion()
		}
	}
}

// ---- inbound messages ----

func (c *Controller) handleMessage(msg protocol.Inbound) {
	switch m := msg.(type) {
	case protocol.TextResponse:
		c.handleTextResponse(m)
	case protocol.EndInterview:
		c.beginConclusion("ended_by_candidate", false)
	case protocol.PlaybackComplete:
		c.handlePlaybackComplete()
	case protocol.Activity:
		c.handleActivity(m)
	case protocol.ProctorResult:
		c.handleProctorResult(m)
	case protocol.Unknown:
		c.deps.Logger.Warn("unknown_message_type", slog.String("type", m.Type))
	}
}

func (c *Controller) handleTextResponse(msg protocol.TextResponse) {
	if !c.consented {
		c.handleConsent(msg.Content)
		return
	}
	if c.st != StatusRecording || !c.turn.Open() {
		c.deps.Logger.Warn("response_without_open_turn",
			slog.String("status", c.st.String()),
			slog.String("reason", string(errorsx.ReasonTurnAlreadyClosed)))
		return
	}

	trigger := TriggerManual
	if msg.TimeoutSubmission {
		trigger = TriggerDeadline
	}

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		content = c.transcript.Assemble()
	}

	if trigger == TriggerManual && (content == "" || content == Placeholder) {
		c.reAskCurrent()
		return
	}
	c.submitTurn(content, trigger)
}

func (c *Controller) handleConsent(content string) {
	if isAffirmative(content) {
		c.consented = true
		c.deps.Logger.Info("consent_received")
		c.deliverNext()
		return
	}
	c.send(protocol.Question{
		Content:      "No rush. Say \"ready\" whenever you'd like to begin.",
		QuestionType: protocol.QuestionText,
	})
}

func isAffirmative(content string) bool {
	lowered := strings.ToLower(content)
	for _, kw := range consentKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func (c *Controller) handlePlaybackComplete() {
	if !c.turn.Open() || !c.turn.awaitingCue {
		return
	}
	c.turn.awaitingCue = false
	c.openRecording()
}

func (c *Controller) handleActivity(msg protocol.Activity) {
	if !c.turn.Open() {
		return
	}
	if msg.Kind == protocol.ActivityCodeEdit {
		c.turn.lastCodeEdit = time.Now()
	}
	c.resetSilence()
}

func (c *Controller) handleProctorResult(res protocol.ProctorResult) {
	out, terminate := c.monitor.Process(res)
	for _, msg := range out {
		c.send(msg)
	}
	if terminate && c.st != StatusConcluding && c.st != StatusEnded {
		c.deps.Logger.Error("proctoring_termination",
			slog.Int("violation_count", c.monitor.ViolationCount()),
			slog.String("reason", string(errorsx.ReasonProctoringTermination)))
		c.beginConclusion("terminated", true)
	}
}

// ---- recognition frames ----

func (c *Controller) handleFrame(f frames.Frame) {
	switch fr := f.(type) {
	case frames.TextFrame:
		c.handleTextFrame(fr)
	case frames.ControlFrame:
		c.handleControlFrame(fr)
	case frames.SystemFrame:
		c.handleSystemFrame(fr)
	}
}

func (c *Controller) handleTextFrame(f frames.TextFrame) {
	if c.st != StatusRecording || !c.turn.Open() {
		return
	}
	if f.IsFinal() {
		metrics.RecognitionEvents.WithLabelValues("final").Inc()
		counts := c.transcript.Finalize(f.Text())
		c.send(protocol.Transcription{Content: f.Text()})
		if counts {
			c.resetSilence()
		}
		return
	}
	metrics.RecognitionEvents.WithLabelValues("interim").Inc()
	if c.transcript.Interim(f.Text()) {
		c.resetSilence()
	}
}

func (c *Controller) handleControlFrame(f frames.ControlFrame) {
	switch f.Code() {
	case frames.ControlSpeechStart:
		metrics.RecognitionEvents.WithLabelValues("speech_start").Inc()
		if c.st == StatusRecording && c.turn.Open() {
			c.transcript.SpeechStart()
			c.resetSilence()
		}
	case frames.ControlSpeechEnd:
		metrics.RecognitionEvents.WithLabelValues("speech_end").Inc()
		c.transcript.SpeechEnd()
	case frames.ControlPlaybackComplete:
		c.handlePlaybackComplete()
	}
}

func (c *Controller) handleSystemFrame(f frames.SystemFrame) {
	switch f.Name() {
	case "recognition_error":
		metrics.RecognitionEvents.WithLabelValues("error").Inc()
		c.deps.Logger.Warn("recognition_error",
			slog.String("detail", f.Meta()[frames.MetaReason]))
		c.send(protocol.ErrorMessage{
			Content: "Speech recognition is temporarily unavailable. You can type your answer instead.",
		})
	case "audio_cue_error":
		// Never block the candidate on a failed cue: proceed as if the
		// playback had completed.
		c.deps.Logger.Warn("audio_cue_failed",
			slog.String("reason", string(errorsx.ReasonAudioCue)))
		c.handlePlaybackComplete()
	}
}

// ---- timers ----

func (c *Controller) handleTimer(trigger Trigger, gen uint64) {
	if c.suspended || !c.turn.Open() || gen != c.turn.gen {
		return
	}
	switch trigger {
	case TriggerDeadline:
		c.submitTurn(c.transcript.Assemble(), TriggerDeadline)
	case TriggerSilence:
		if c.turn.Question.Type == protocol.QuestionCoding {
			return
		}
		if grace := c.cfg.CodeEditGrace - time.Since(c.turn.lastCodeEdit); grace > 0 {
			c.startSilence(grace)
			return
		}
		c.submitTurn(c.transcript.Assemble(), TriggerSilence)
	}
}

func (c *Controller) startAnswerTimer(d time.Duration) {
	gen := c.turn.gen
	c.answerTimer.Start(d, func() {
		c.post(event{kind: evTimer, trigger: TriggerDeadline, gen: gen})
	})
	c.scheduleBandTicks(d, gen)
}

// scheduleBandTicks arms one notification at each band boundary the turn
// will cross. The ticks are display hints only; a stale tick after the
// turn closed is dropped by the generation check.
func (c *Controller) scheduleBandTicks(d time.Duration, gen uint64) {
	c.stopBandTimers()
	for _, threshold := range []time.Duration{warningBandThreshold, dangerBandThreshold} {
		if d <= threshold {
			continue
		}
		c.bandTimers = append(c.bandTimers, time.AfterFunc(d-threshold, func() {
			c.post(event{kind: evBandTick, gen: gen})
		}))
	}
}

func (c *Controller) stopBandTimers() {
	for _, t := range c.bandTimers {
		t.Stop()
	}
	c.bandTimers = nil
}

func (c *Controller) handleBandTick(gen uint64) {
	if c.suspended || !c.turn.Open() || gen != c.turn.gen {
		return
	}
	remaining := c.turn.Remaining()
	c.send(protocol.TimerSync{
		RemainingSeconds: int(remaining / time.Second),
		Band:             string(Band(remaining)),
	})
}

func (c *Controller) startSilence(d time.Duration) {
	gen := c.turn.gen
	c.silenceTimer.Start(d, func() {
		c.post(event{kind: evTimer, trigger: TriggerSilence, gen: gen})
	})
}

func (c *Controller) resetSilence() {
	if !c.turn.Open() || c.turn.awaitingCue || c.suspended {
		return
	}
	if c.turn.Question.Type == protocol.QuestionCoding {
		return
	}
	c.startSilence(c.cfg.SilenceWindow)
}

// ---- turn lifecycle ----

func (c *Controller) sendOpening() {
	if c.consented {
		c.deliverNext()
		return
	}
	greeting := fmt.Sprintf(
		"Hello%s, welcome to your interview. You'll be asked up to %d questions: "+
			"text answers have a %d second timer and coding answers %d seconds. "+
			"Are you ready to begin?",
		greetingName(c.cfg.CandidateName), c.questionCount(),
		c.cfg.TextTimerSeconds, c.cfg.CodingTimerSeconds)
	c.send(protocol.Question{Content: greeting, QuestionType: protocol.QuestionText})
}

func greetingName(name string) string {
	if name == "" {
		return ""
	}
	return " " + name
}

func (c *Controller) questionCount() int {
	n := len(c.cfg.Questions)
	if n > c.cfg.MaxQuestions {
		n = c.cfg.MaxQuestions
	}
	return n
}

func (c *Controller) deliverNext() {
	if c.questionIndex >= c.questionCount() {
		c.beginConclusion("completed", false)
		return
	}
	q := c.cfg.Questions[c.questionIndex]
	c.questionIndex++
	if err := c.deliverQuestion(q); err != nil {
		c.deps.Logger.Error("question_delivery_failed", slog.String("error", err.Error()))
	}
}

// deliverQuestion opens a new turn. It rejects the call if a turn is
// already open.
func (c *Controller) deliverQuestion(q Question) error {
	if c.turn.Open() {
		return errorsx.New("turn already open", errorsx.ReasonTurnAlreadyOpen)
	}
	if err := c.transition(StatusRecording, "question delivered"); err != nil {
		return err
	}

	secs := q.TimerSeconds
	if secs <= 0 {
		if q.Type == protocol.QuestionCoding {
			secs = c.cfg.CodingTimerSeconds
		} else {
			secs = c.cfg.TextTimerSeconds
		}
	}

	c.turnGen++
	now := time.Now()
	c.turn = &Turn{
		Index:        c.questionIndex,
		Question:     q,
		TimerSeconds: secs,
		Deadline:     now.Add(time.Duration(secs) * time.Second),
		OpenedAt:     now,
		gen:          c.turnGen,
		awaitingCue:  q.AudioCue != "",
	}
	c.transcript.Reset()
	metrics.QuestionsDelivered.Inc()

	c.send(protocol.Question{
		Content:        q.Content,
		QuestionType:   q.Type,
		TimerSeconds:   secs,
		AudioCue:       q.AudioCue,
		StartRecording: !c.turn.awaitingCue,
	})

	c.startAnswerTimer(time.Duration(secs) * time.Second)
	if !c.turn.awaitingCue {
		c.openRecording()
	}
	c.deps.Logger.Info("question_delivered",
		slog.Int("question_index", c.turn.Index),
		slog.String("question_type", string(q.Type)),
		slog.Int("timer_seconds", secs))
	return nil
}

// openRecording arms the silence timer once any audio cue has finished.
// Coding turns run on the answer deadline alone.
func (c *Controller) openRecording() {
	if c.turn.Question.Type != protocol.QuestionCoding {
		c.startSilence(c.cfg.SilenceWindow)
	}
}

// reAskCurrent repeats the current question after an empty manual
// submission, without recording a turn.
func (c *Controller) reAskCurrent() {
	c.turn.closed = true
	c.turn = nil
	c.answerTimer.Stop()
	c.silenceTimer.Stop()
	c.stopBandTimers()
	c.transcript.Reset()
	if err := c.transition(StatusEvaluating, "empty response"); err != nil {
		return
	}
	c.send(protocol.ProcessingQuestion{Content: "I didn't catch that. Let me repeat the question."})
	c.questionIndex--
	c.deliverNext()
}

// submitTurn closes the open turn. Exactly one trigger wins: a second call
// for an already-closed turn is a no-op error with no state mutation.
func (c *Controller) submitTurn(content string, trigger Trigger) error {
	if !c.turn.Open() {
		return errorsx.New("turn already closed", errorsx.ReasonTurnAlreadyClosed)
	}
	turn := c.turn
	turn.closed = true
	turn.trigger = trigger

	// Cancellation is synchronous with the submit: no stale fire can close
	// this turn, and the generation check drops any already-queued one.
	c.answerTimer.Stop()
	c.silenceTimer.Stop()
	c.stopBandTimers()
	if c.deps.Recognizer != nil {
		_ = c.deps.Recognizer.Flush()
	}

	if err := c.transition(StatusEvaluating, "turn submitted: "+string(trigger)); err != nil {
		return err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		if trigger == TriggerDeadline {
			content = PlaceholderTimeout
		} else {
			content = Placeholder
		}
	}

	metrics.TurnsSubmitted.WithLabelValues(string(trigger)).Inc()
	c.turnsSnap.Add(1)
	c.deps.Logger.Info("turn_submitted",
		slog.Int("question_index", turn.Index),
		slog.String("trigger", string(trigger)),
		slog.Int("answer_length", len(content)))

	c.send(protocol.ProcessingResponse{})

	idx := len(c.records)
	c.records = append(c.records, evaluation.Record{
		Question:  turn.Question.Content,
		Answer:    content,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	c.dispatchEvaluation(idx, turn.Question.Content, content)

	c.transcript.Reset()
	c.turn = nil

	c.deliverNext()
	return nil
}

// ---- evaluation ----

// dispatchEvaluation runs the evaluator in a detached goroutine so the
// event loop never waits on external-service latency.
func (c *Controller) dispatchEvaluation(idx int, question, answer string) {
	c.pendingEvals++
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.EvalTimeout)
		defer cancel()
		ev, err := c.deps.Evaluator.Evaluate(ctx, question, answer, c.cfg.ResumeSummary)
		c.post(event{kind: evEvalDone, turnIdx: idx, eval: ev, evalErr: err})
	}()
}

func (c *Controller) handleEvalDone(ev event) {
	c.pendingEvals--
	if ev.turnIdx < len(c.records) {
		c.records[ev.turnIdx].Evaluation = ev.eval
	}
	c.evaluated++
	c.scoreSum += ev.eval.OverallScore

	if ev.evalErr != nil {
		c.deps.Logger.Warn("evaluation_failed",
			slog.Int("question_index", ev.turnIdx+1),
			slog.String("error", ev.evalErr.Error()))
		c.send(protocol.EvaluationError{Content: "Evaluation is delayed for this answer."})
	} else {
		c.send(protocol.AnswerEvaluation{
			OverallScore:           ev.eval.OverallScore,
			TechnicalAccuracy:      ev.eval.TechnicalAccuracy,
			CommunicationClarity:   ev.eval.CommunicationClarity,
			Relevance:              ev.eval.Relevance,
			Depth:                  ev.eval.Depth,
			Feedback:               ev.eval.Feedback,
			Strengths:              ev.eval.Strengths,
			Weaknesses:             ev.eval.Weaknesses,
			AverageScore:           c.scoreSum / float64(c.evaluated),
			TotalQuestionsAnswered: c.evaluated,
		})
	}

	if c.st == StatusConcluding && !c.concluded && c.pendingEvals == 0 {
		c.finishConclusion()
	}
}

// ---- conclusion ----

// beginConclusion moves the session to Concluding, bypassing any open
// turn, and finishes once pending evaluations land or the wait expires.
func (c *Controller) beginConclusion(reason string, terminated bool) {
	if c.st == StatusConcluding || c.st == StatusEnded {
		return
	}
	if err := c.transition(StatusConcluding, reason); err != nil {
		return
	}
	c.endReason = reason
	c.terminated = terminated

	if c.turn != nil {
		c.turn.closed = true
		c.turn = nil
	}
	c.answerTimer.Stop()
	c.silenceTimer.Stop()
	c.stopBandTimers()
	if c.deps.Recognizer != nil {
		_ = c.deps.Recognizer.Flush()
	}

	if c.pendingEvals == 0 {
		c.finishConclusion()
		return
	}
	c.concludeTimer = time.AfterFunc(c.cfg.ConcludeWait, func() {
		c.post(event{kind: evConcludeTimeout})
	})
}

func (c *Controller) stopConcludeTimer() {
	if c.concludeTimer != nil {
		c.concludeTimer.Stop()
		c.concludeTimer = nil
	}
}

func (c *Controller) finishConclusion() {
	c.concluded = true
	c.stopConcludeTimer()

	kpis := evaluation.Summarize(c.records)
	content := "Thank you, your interview is complete. Your report will be available shortly."
	if c.terminated {
		content = "The interview has been terminated due to proctoring violations."
	}
	c.send(protocol.InterviewConcluded{
		Content:           content,
		FinalAverageScore: kpis.OverallScore,
		TotalQuestions:    len(c.records),
		StopRecording:     true,
	})

	c.persistReport(kpis)

	if err := c.transition(StatusEnded, c.endReason); err == nil {
		c.deps.Logger.Info("session_ended",
			slog.String("end_reason", c.endReason),
			slog.Int("turns", len(c.records)),
			slog.Int("violations", c.monitor.ViolationCount()))
	}
}

func (c *Controller) persistReport(kpis evaluation.KPISummary) {
	if c.deps.Reports == nil {
		return
	}
	r := report.Report{
		SessionID:      c.cfg.SessionID,
		CandidateName:  c.cfg.CandidateName,
		StartedAt:      c.startedAt,
		ConcludedAt:    time.Now(),
		EndReason:      c.endReason,
		Turns:          append([]evaluation.Record(nil), c.records...),
		KPIs:           kpis,
		ViolationCount: c.monitor.ViolationCount(),
		Terminated:     c.terminated,
	}
	logger := c.deps.Logger
	store := c.deps.Reports
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		defer cancel()
		if err := store.Save(ctx, r); err != nil {
			logger.Error("report_save_failed",
				slog.String("reason", string(errorsx.ReasonReportStore)),
				slog.String("error", err.Error()))
			return
		}
		logger.Info("report_saved", slog.Int("turns", len(r.Turns)))
	}()
}

// ---- suspension ----

func (c *Controller) handleDisconnect() {
	if c.suspended || c.st == StatusEnded {
		return
	}
	c.suspended = true
	c.answerTimer.Pause()
	c.silenceTimer.Pause()
	metrics.TransportDisconnects.Inc()
	c.deps.Logger.Warn("transport_suspended",
		slog.String("reason", string(errorsx.ReasonTransportDisconnected)),
		slog.Duration("answer_remaining", c.answerTimer.Remaining()))
}

func (c *Controller) handleReconnect() {
	if !c.suspended {
		return
	}
	c.suspended = false
	if c.turn.Open() {
		gen := c.turn.gen
		c.answerTimer.Resume(func() {
			c.post(event{kind: evTimer, trigger: TriggerDeadline, gen: gen})
		})
		c.silenceTimer.Resume(func() {
			c.post(event{kind: evTimer, trigger: TriggerSilence, gen: gen})
		})
	}
	c.deps.Logger.Info("transport_resumed")
}

// ---- helpers ----

func (c *Controller) transition(to Status, reason string) error {
	if !transitionValid(c.st, to) {
		err := &InvalidTransitionError{From: c.st, To: to}
		c.deps.Logger.Error("invalid_transition",
			slog.String("from", c.st.String()),
			slog.String("to", to.String()),
			slog.String("reason", reason))
		return err
	}
	c.deps.Logger.Debug("session_state_changed",
		slog.String("from", c.st.String()),
		slog.String("to", to.String()),
		slog.String("reason", reason))
	c.st = to
	c.statusSnap.Store(int32(to))
	return nil
}

func (c *Controller) send(msg protocol.Outbound) {
	if err := c.deps.Sender.Send(c.cfg.SessionID, msg); err != nil {
		c.deps.Logger.Warn("send_failed",
			slog.String("reason", string(errorsx.ReasonTransportSend)),
			slog.String("error", err.Error()))
	}
}
