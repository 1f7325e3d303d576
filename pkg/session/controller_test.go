package session

import (
	"sync"
	"testing"
	"time"

	"github.com/MananS02/Interview/pkg/errorsx"
	"github.com/MananS02/Interview/pkg/evaluation"
	"github.com/MananS02/Interview/pkg/frames"
	"github.com/MananS02/Interview/pkg/protocol"
	"github.com/MananS02/Interview/pkg/report"
)

// captureSender records every outbound message and exposes them on a
// channel for ordered assertions.
type captureSender struct {
	mu   sync.Mutex
	msgs []protocol.Outbound
	ch   chan protocol.Outbound
}

func newCaptureSender() *captureSender {
	return &captureSender{ch: make(chan protocol.Outbound, 128)}
}

func (s *captureSender) Send(_ string, msg protocol.Outbound) error {
	s.mu.Lock()
	s.msgs = append(s.msgs, msg)
	s.mu.Unlock()
	select {
	case s.ch <- msg:
	default:
	}
	return nil
}

func (s *captureSender) sent() []protocol.Outbound {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.Outbound, len(s.msgs))
	copy(out, s.msgs)
	return out
}

func waitFor[T protocol.Outbound](t *testing.T, ch <-chan protocol.Outbound, timeout time.Duration) T {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case msg := <-ch:
			if v, ok := msg.(T); ok {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

func newTestController(cfg Config, sender *captureSender, eval evaluation.Evaluator) *Controller {
	if cfg.SessionID == "" {
		cfg.SessionID = "test-session"
	}
	return New(cfg, Deps{
		Sender:    sender,
		Evaluator: eval,
		Reports:   report.NewMemoryStore(),
	})
}

func textQuestion(content string, seconds int) Question {
	return Question{Content: content, Type: protocol.QuestionText, TimerSeconds: seconds}
}

func stopTimers(t *testing.T, c *Controller) {
	t.Helper()
	t.Cleanup(func() {
		c.answerTimer.Stop()
		c.silenceTimer.Stop()
		c.stopBandTimers()
		c.stopConcludeTimer()
	})
}

// ---- state machine ----

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusAwaitingQuestion, StatusRecording, true},
		{StatusRecording, StatusEvaluating, true},
		{StatusEvaluating, StatusRecording, true},
		{StatusEvaluating, StatusConcluding, true},
		{StatusRecording, StatusConcluding, true},
		{StatusConcluding, StatusEnded, true},
		{StatusAwaitingQuestion, StatusEvaluating, false},
		{StatusEnded, StatusRecording, false},
		{StatusConcluding, StatusRecording, false},
	}
	for _, tc := range cases {
		if got := transitionValid(tc.from, tc.to); got != tc.ok {
			t.Errorf("transitionValid(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

// ---- turn lifecycle (synchronous, loop not started) ----

func TestDeliverQuestionRejectsOpenTurn(t *testing.T) {
	c := newTestController(Config{
		SkipGreeting: true,
		Questions:    []Question{textQuestion("q1", 120), textQuestion("q2", 120)},
	}, newCaptureSender(), evaluation.NewMockEvaluator())
	stopTimers(t, c)

	if err := c.deliverQuestion(textQuestion("q1", 120)); err != nil {
		t.Fatalf("first deliverQuestion: %v", err)
	}
	err := c.deliverQuestion(textQuestion("q2", 120))
	if err == nil {
		t.Fatal("second deliverQuestion must be rejected while a turn is open")
	}
	if !errorsx.HasReason(err, errorsx.ReasonTurnAlreadyOpen) {
		t.Errorf("err = %v, want reason %s", err, errorsx.ReasonTurnAlreadyOpen)
	}
}

func TestSubmitTurnIdempotent(t *testing.T) {
	mock := evaluation.NewMockEvaluator()
	c := newTestController(Config{
		SkipGreeting: true,
		Questions:    []Question{textQuestion("q1", 120), textQuestion("q2", 120)},
	}, newCaptureSender(), mock)
	stopTimers(t, c)

	if err := c.deliverQuestion(textQuestion("q1", 120)); err != nil {
		t.Fatalf("deliverQuestion: %v", err)
	}
	firstGen := c.turn.gen
	if err := c.submitTurn("my answer", TriggerManual); err != nil {
		t.Fatalf("submitTurn: %v", err)
	}

	// A stale deadline fire for the closed turn is dropped.
	c.handleTimer(TriggerDeadline, firstGen)

	time.Sleep(50 * time.Millisecond)
	if got := len(mock.Questions()); got != 1 {
		t.Errorf("evaluation dispatches = %d, want exactly 1", got)
	}
	if len(c.records) != 1 {
		t.Errorf("records = %d, want 1", len(c.records))
	}
	if c.records[0].Answer != "my answer" {
		t.Errorf("recorded answer = %q", c.records[0].Answer)
	}
}

func TestSubmitClosedTurnReturnsReasonedError(t *testing.T) {
	c := newTestController(Config{
		SkipGreeting: true,
		Questions:    []Question{textQuestion("q1", 120)},
	}, newCaptureSender(), evaluation.NewMockEvaluator())
	stopTimers(t, c)

	err := c.submitTurn("anything", TriggerManual)
	if err == nil || !errorsx.HasReason(err, errorsx.ReasonTurnAlreadyClosed) {
		t.Errorf("err = %v, want reason %s", err, errorsx.ReasonTurnAlreadyClosed)
	}
}

func TestDeadlinePlaceholderRecorded(t *testing.T) {
	c := newTestController(Config{
		SkipGreeting: true,
		Questions:    []Question{textQuestion("q1", 120)},
	}, newCaptureSender(), evaluation.NewMockEvaluator())
	stopTimers(t, c)

	if err := c.deliverQuestion(textQuestion("q1", 120)); err != nil {
		t.Fatalf("deliverQuestion: %v", err)
	}
	if err := c.submitTurn("", TriggerDeadline); err != nil {
		t.Fatalf("submitTurn: %v", err)
	}
	if c.records[0].Answer != PlaceholderTimeout {
		t.Errorf("answer = %q, want %q", c.records[0].Answer, PlaceholderTimeout)
	}
}

func TestSilenceTimerDisabledForCodingTurn(t *testing.T) {
	c := newTestController(Config{
		SkipGreeting: true,
		Questions:    []Question{{Content: "write code", Type: protocol.QuestionCoding, TimerSeconds: 300}},
	}, newCaptureSender(), evaluation.NewMockEvaluator())
	stopTimers(t, c)

	if err := c.deliverQuestion(c.cfg.Questions[0]); err != nil {
		t.Fatalf("deliverQuestion: %v", err)
	}
	if c.silenceTimer.Running() {
		t.Error("silence timer must not run during a coding turn")
	}

	// Even a directly injected silence fire is ignored.
	c.handleTimer(TriggerSilence, c.turn.gen)
	if !c.turn.Open() {
		t.Error("silence fire must not close a coding turn")
	}
}

func TestAudioCueDefersRecording(t *testing.T) {
	sender := newCaptureSender()
	q := Question{Content: "q1", Type: protocol.QuestionText, TimerSeconds: 120, AudioCue: "q1.mp3"}
	c := newTestController(Config{
		SkipGreeting: true,
		Questions:    []Question{q},
	}, sender, evaluation.NewMockEvaluator())
	stopTimers(t, c)

	if err := c.deliverQuestion(q); err != nil {
		t.Fatalf("deliverQuestion: %v", err)
	}
	if !c.turn.awaitingCue {
		t.Fatal("turn with an audio cue must wait for playback")
	}
	if c.silenceTimer.Running() {
		t.Error("silence timer must not arm before the cue finishes")
	}
	var sent protocol.Question
	for _, msg := range sender.sent() {
		if qm, ok := msg.(protocol.Question); ok {
			sent = qm
		}
	}
	if sent.StartRecording {
		t.Error("question with a pending cue must not start recording")
	}
	if sent.AudioCue != "q1.mp3" {
		t.Errorf("audio cue = %q, want q1.mp3", sent.AudioCue)
	}

	c.handlePlaybackComplete()
	if c.turn.awaitingCue {
		t.Error("playback completion must clear the cue wait")
	}
	if !c.silenceTimer.Running() {
		t.Error("silence timer must arm once the cue finishes")
	}
}

func TestAudioCueErrorProceedsWithoutCue(t *testing.T) {
	q := Question{Content: "q1", Type: protocol.QuestionText, TimerSeconds: 120, AudioCue: "q1.mp3"}
	c := newTestController(Config{
		SkipGreeting: true,
		Questions:    []Question{q},
	}, newCaptureSender(), evaluation.NewMockEvaluator())
	stopTimers(t, c)

	if err := c.deliverQuestion(q); err != nil {
		t.Fatalf("deliverQuestion: %v", err)
	}
	c.handleFrame(frames.NewSystemFrame("test-session", 0, "audio_cue_error", nil))
	if c.turn.awaitingCue {
		t.Error("failed cue must not keep the turn waiting")
	}
	if !c.silenceTimer.Running() {
		t.Error("recording must open when the cue fails")
	}
}

func TestCodeEditGraceDefersSilenceFire(t *testing.T) {
	c := newTestController(Config{
		SkipGreeting:  true,
		Questions:     []Question{textQuestion("q1", 120)},
		SilenceWindow: 30 * time.Second,
		CodeEditGrace: 10 * time.Second,
	}, newCaptureSender(), evaluation.NewMockEvaluator())
	stopTimers(t, c)

	c.deliverNext()
	c.handleActivity(protocol.Activity{Kind: protocol.ActivityCodeEdit})

	// A silence fire inside the grace window re-arms instead of closing.
	c.handleTimer(TriggerSilence, c.turn.gen)
	if !c.turn.Open() {
		t.Fatal("silence fire within the code-edit grace must not close the turn")
	}
	if !c.silenceTimer.Running() {
		t.Error("silence timer must be re-armed for the remaining grace")
	}

	// With the grace elapsed the same fire submits the turn.
	c.turn.lastCodeEdit = time.Now().Add(-time.Minute)
	c.handleTimer(TriggerSilence, c.turn.gen)
	if c.turn != nil && c.turn.Open() {
		t.Error("silence fire after the grace window must close the turn")
	}
}

func TestTimerBandPublished(t *testing.T) {
	sender := newCaptureSender()
	c := newTestController(Config{
		SkipGreeting: true,
		Questions:    []Question{textQuestion("q1", 120)},
	}, sender, evaluation.NewMockEvaluator())
	stopTimers(t, c)

	if err := c.deliverQuestion(textQuestion("q1", 120)); err != nil {
		t.Fatalf("deliverQuestion: %v", err)
	}
	if len(c.bandTimers) != 2 {
		t.Fatalf("band timers = %d, want one per threshold", len(c.bandTimers))
	}

	c.handleBandTick(c.turn.gen)
	var sync protocol.TimerSync
	found := false
	for _, msg := range sender.sent() {
		if ts, ok := msg.(protocol.TimerSync); ok {
			sync = ts
			found = true
		}
	}
	if !found {
		t.Fatal("expected a timer_sync message")
	}
	if sync.Band != string(BandNormal) {
		t.Errorf("band = %q, want %q with ~120s remaining", sync.Band, BandNormal)
	}
	if sync.RemainingSeconds <= 0 || sync.RemainingSeconds > 120 {
		t.Errorf("remaining = %d, want within (0, 120]", sync.RemainingSeconds)
	}

	// A tick from a previous turn generation is dropped.
	before := len(sender.sent())
	c.handleBandTick(c.turn.gen + 1)
	if len(sender.sent()) != before {
		t.Error("stale band tick must not publish")
	}
}

func TestProctorTerminationForcesEnded(t *testing.T) {
	c := newTestController(Config{
		SkipGreeting:  true,
		MaxViolations: 3,
		Questions:     []Question{textQuestion("q1", 120)},
	}, newCaptureSender(), evaluation.NewMockEvaluator())
	stopTimers(t, c)

	if err := c.deliverQuestion(textQuestion("q1", 120)); err != nil {
		t.Fatalf("deliverQuestion: %v", err)
	}

	c.handleProctorResult(protocol.ProctorResult{
		Violations:     []protocol.Violation{{Severity: protocol.SeverityViolation, Message: "phone detected"}},
		ViolationCount: 3,
		MaxViolations:  3,
		SessionActive:  true,
	})

	if c.st != StatusEnded {
		t.Errorf("status = %s, want ENDED regardless of open turn", c.st)
	}
	if c.turn.Open() {
		t.Error("open turn must be discarded on termination")
	}
	if c.answerTimer.Running() {
		t.Error("answer timer must be cancelled on termination")
	}
}

func TestEmptyManualResponseReAsksQuestion(t *testing.T) {
	sender := newCaptureSender()
	c := newTestController(Config{
		SkipGreeting: true,
		Questions:    []Question{textQuestion("q1", 120)},
	}, sender, evaluation.NewMockEvaluator())
	stopTimers(t, c)

	c.deliverNext()
	c.handleTextResponse(protocol.TextResponse{Content: "   "})

	if len(c.records) != 0 {
		t.Errorf("records = %d, want 0 after re-ask", len(c.records))
	}
	if !c.turn.Open() || c.turn.Question.Content != "q1" {
		t.Error("the same question must be reopened after an empty manual response")
	}

	var questions int
	for _, msg := range sender.sent() {
		if q, ok := msg.(protocol.Question); ok && q.Content == "q1" {
			questions++
		}
	}
	if questions != 2 {
		t.Errorf("question q1 delivered %d times, want 2", questions)
	}
}

func TestDisconnectPausesTimers(t *testing.T) {
	c := newTestController(Config{
		SkipGreeting: true,
		Questions:    []Question{textQuestion("q1", 120)},
	}, newCaptureSender(), evaluation.NewMockEvaluator())
	stopTimers(t, c)

	if err := c.deliverQuestion(textQuestion("q1", 120)); err != nil {
		t.Fatalf("deliverQuestion: %v", err)
	}
	c.handleDisconnect()
	if !c.suspended {
		t.Fatal("controller must be suspended on disconnect")
	}
	if c.answerTimer.Running() {
		t.Error("answer timer must be paused while suspended")
	}
	remaining := c.answerTimer.Remaining()
	if remaining <= 0 || remaining > 120*time.Second {
		t.Errorf("paused remaining = %v, want preserved countdown", remaining)
	}

	c.handleReconnect()
	if c.suspended {
		t.Error("controller must resume on reconnect")
	}
	if !c.answerTimer.Running() {
		t.Error("answer timer must restart with the remaining duration")
	}
}

func TestCountdownPauseResume(t *testing.T) {
	var cd countdown
	fired := make(chan struct{}, 1)

	cd.Start(60*time.Millisecond, func() { fired <- struct{}{} })
	cd.Pause()

	select {
	case <-fired:
		t.Fatal("paused countdown must not fire")
	case <-time.After(150 * time.Millisecond):
	}

	cd.Resume(func() { fired <- struct{}{} })
	select {
	case <-fired:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("resumed countdown never fired")
	}
}

// ---- event loop integration ----

func TestConsentGate(t *testing.T) {
	sender := newCaptureSender()
	c := newTestController(Config{
		CandidateName: "Priya",
		Questions:     []Question{textQuestion("first question", 120)},
	}, sender, evaluation.NewMockEvaluator())
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	greeting := waitFor[protocol.Question](t, sender.ch, time.Second)
	if greeting.TimerSeconds != 0 {
		t.Errorf("greeting must carry no deadline timer, got %d", greeting.TimerSeconds)
	}

	// A non-affirmative reply re-prompts without opening a turn.
	c.HandleMessage(protocol.TextResponse{Content: "what is this?"})
	reprompt := waitFor[protocol.Question](t, sender.ch, time.Second)
	if reprompt.Content == "first question" {
		t.Fatal("question must not be delivered before consent")
	}

	c.HandleMessage(protocol.TextResponse{Content: "I'm ready"})
	q := waitFor[protocol.Question](t, sender.ch, time.Second)
	if q.Content != "first question" {
		t.Errorf("question after consent = %q, want %q", q.Content, "first question")
	}
}

func TestEndToEndTwoQuestionInterview(t *testing.T) {
	sender := newCaptureSender()
	mock := evaluation.NewMockEvaluator()
	mock.SetResult(evaluation.Evaluation{OverallScore: 8, TechnicalAccuracy: 8, CommunicationClarity: 8, Relevance: 8, Depth: 8, Feedback: "good"})

	c := newTestController(Config{
		SkipGreeting: true,
		Questions: []Question{
			textQuestion("question one", 120),
			textQuestion("question two", 1),
		},
	}, sender, mock)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	q1 := waitFor[protocol.Question](t, sender.ch, time.Second)
	if q1.Content != "question one" {
		t.Fatalf("first question = %q", q1.Content)
	}

	c.HandleMessage(protocol.TextResponse{Content: "answer one"})

	q2 := waitFor[protocol.Question](t, sender.ch, time.Second)
	if q2.Content != "question two" {
		t.Fatalf("second question = %q", q2.Content)
	}

	// Let the 1s answer timer for question two expire with no input.
	concluded := waitFor[protocol.InterviewConcluded](t, sender.ch, 5*time.Second)
	if concluded.TotalQuestions != 2 {
		t.Errorf("TotalQuestions = %d, want 2", concluded.TotalQuestions)
	}

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session loop never exited")
	}

	if got := c.Status(); got != StatusEnded {
		t.Errorf("final status = %s, want ENDED", got)
	}
	if len(c.records) != 2 {
		t.Fatalf("records = %d, want 2", len(c.records))
	}
	if c.records[0].Answer != "answer one" {
		t.Errorf("first answer = %q", c.records[0].Answer)
	}
	if c.records[1].Answer != PlaceholderTimeout {
		t.Errorf("second answer = %q, want %q", c.records[1].Answer, PlaceholderTimeout)
	}
}

func TestSilenceTriggerSubmitsTranscript(t *testing.T) {
	sender := newCaptureSender()
	c := newTestController(Config{
		SkipGreeting:  true,
		SilenceWindow: 100 * time.Millisecond,
		Questions:     []Question{textQuestion("only question", 120)},
	}, sender, evaluation.NewMockEvaluator())
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	waitFor[protocol.Question](t, sender.ch, time.Second)

	c.HandleFrame(frames.NewTextFrame("test-session", 1, "distributed consensus is hard", map[string]string{
		frames.MetaIsFinal: "true",
	}))
	waitFor[protocol.Transcription](t, sender.ch, time.Second)

	// No further activity: the silence window closes the turn.
	waitFor[protocol.InterviewConcluded](t, sender.ch, 3*time.Second)

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session loop never exited")
	}
	if len(c.records) != 1 {
		t.Fatalf("records = %d, want 1", len(c.records))
	}
	if c.records[0].Answer != "distributed consensus is hard" {
		t.Errorf("answer = %q, want the finalized transcript", c.records[0].Answer)
	}
}
