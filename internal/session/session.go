// Package session holds the per-assessment state machine. A session moves
// through setup, loading, active, submitting and results, with a failed
// state reachable from the two asynchronous phases. All transitions run
// under the session mutex, and async completions carry an epoch so that
// anything finishing after a reset or retake is silently dropped.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/interviewace/interviewace/internal/capture"
	"github.com/interviewace/interviewace/internal/model"
	"github.com/interviewace/interviewace/internal/supply"
)

// Supplier produces the question set for a session.
type Supplier interface {
	Generate(ctx context.Context, cfg model.SessionConfig) ([]model.Question, error)
	ResetUsed()
}

// Evaluator grades a finished answer set.
type Evaluator interface {
	Evaluate(ctx context.Context, questions []model.Question, answers model.AnswerMap) (*model.AggregateResult, error)
}

// ResultSink receives every completed result, typically to persist it.
type ResultSink func(userID int64, cfg model.SessionConfig, res *model.AggregateResult)

// Error codes surfaced to the API layer and translated there.
const (
	CodeGenerationFailed   = "generation_failed"
	CodeGenerationMismatch = "generation_mismatch"
	CodeEvaluationFailed   = "evaluation_failed"
)

var (
	ErrWrongPhase      = errors.New("session: operation not valid in current phase")
	ErrUnknownQuestion = errors.New("session: answer for unknown question")
	ErrBusy            = errors.New("session: operation already in flight")
)

// Session is a monitor: every exported method takes the mutex, applies one
// transition, and releases it. Goroutines started for generation and
// evaluation re-enter through finishGeneration/finishEvaluation.
type Session struct {
	ID     string
	UserID int64

	supplier Supplier
	eval     Evaluator
	sink     ResultSink
	capture  *capture.Controller

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	mu        sync.Mutex
	phase     model.Phase
	cfg       model.SessionConfig
	questions []model.Question
	known     map[string]bool
	answers   model.AnswerMap
	index     int
	remaining int
	elapsed   int
	errCode   string
	result    *model.AggregateResult

	// epoch bumps on reset and retake; completions from an older epoch
	// are stale and discarded.
	epoch        uint64
	genInFlight  bool
	evalInFlight bool
}

// Snapshot is a consistent copy of the session for handlers. ExpectedAnswer
// is stripped from questions until the session has reached results.
type Snapshot struct {
	ID        string
	Phase     model.Phase
	Config    model.SessionConfig
	Questions []model.Question
	Answers   model.AnswerMap
	Index     int
	Remaining int
	Elapsed   int
	ErrorCode string
	Result    *model.AggregateResult
	Capture   capture.Mode
}

func New(id string, userID int64, supplier Supplier, eval Evaluator, sink ResultSink) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:       id,
		UserID:   userID,
		supplier: supplier,
		eval:     eval,
		sink:     sink,
		capture:  &capture.Controller{},
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		phase:    model.PhaseSetup,
		answers:  model.AnswerMap{},
	}
}

// Close stops the session permanently: the ticker goroutine exits and any
// in-flight remote call is cancelled.
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)
		s.cancel()
	})
}

// Done is closed when the session is torn down.
func (s *Session) Done() <-chan struct{} { return s.done }

// Configure validates the setup and kicks off question loading.
func (s *Session) Configure(cfg model.SessionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != model.PhaseSetup {
		return ErrWrongPhase
	}
	s.cfg = cfg
	s.startGenerationLocked()
	return nil
}

// startGenerationLocked moves to loading and launches the supplier in the
// background. Caller holds s.mu.
func (s *Session) startGenerationLocked() {
	s.phase = model.PhaseLoading
	s.questions = nil
	s.known = nil
	s.answers = model.AnswerMap{}
	s.index = 0
	s.result = nil
	s.errCode = ""
	s.genInFlight = true
	epoch := s.epoch
	cfg := s.cfg
	go func() {
		qs, err := s.supplier.Generate(s.ctx, cfg)
		s.finishGeneration(epoch, qs, err)
	}()
}

func (s *Session) finishGeneration(epoch uint64, qs []model.Question, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.phase != model.PhaseLoading {
		slog.Debug("discarding stale generation result", "session", s.ID)
		return
	}
	s.genInFlight = false
	if err != nil {
		slog.Error("question generation failed", "session", s.ID, "error", err)
		s.phase = model.PhaseFailed
		s.errCode = classifyGeneration(err)
		return
	}
	s.questions = qs
	s.known = make(map[string]bool, len(qs))
	for _, q := range qs {
		s.known[q.ID] = true
	}
	s.remaining = s.cfg.TimeLimitSec
	s.elapsed = 0
	s.phase = model.PhaseActive
}

func classifyGeneration(err error) string {
	if errors.Is(err, supply.ErrDistributionMismatch) {
		return CodeGenerationMismatch
	}
	return CodeGenerationFailed
}

// Tick advances the countdown by one second. When it hits zero the session
// auto-submits; the phase change to submitting makes a second expiry tick a
// no-op, so the submit fires exactly once.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != model.PhaseActive {
		return
	}
	s.elapsed++
	s.remaining--
	if s.remaining <= 0 {
		s.remaining = 0
		slog.Info("time limit reached, auto-submitting", "session", s.ID)
		s.submitLocked()
	}
}

// RecordAnswer upserts the answer for a question in the current set. Only
// valid while active; answers for unknown question IDs are rejected so the
// answer map's keys stay a subset of the question IDs.
func (s *Session) RecordAnswer(questionID, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != model.PhaseActive {
		return ErrWrongPhase
	}
	if !s.known[questionID] {
		return ErrUnknownQuestion
	}
	s.answers[questionID] = answer
	return nil
}

// Next advances to the following question, clamped at the last one.
func (s *Session) Next() error { return s.move(1) }

// Previous steps back one question, clamped at the first.
func (s *Session) Previous() error { return s.move(-1) }

func (s *Session) move(delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != model.PhaseActive {
		return ErrWrongPhase
	}
	prev := s.index
	s.index += delta
	if s.index < 0 {
		s.index = 0
	}
	if max := len(s.questions) - 1; s.index > max {
		s.index = max
	}
	// Capture is per question; leaving one stops whatever was running.
	if s.index != prev {
		s.capture.Stop()
	}
	return nil
}

// Submit finishes the attempt and starts evaluation in the background.
func (s *Session) Submit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != model.PhaseActive {
		return ErrWrongPhase
	}
	if s.evalInFlight {
		return ErrBusy
	}
	s.submitLocked()
	return nil
}

// submitLocked is shared by Submit and the timer expiry path. Caller holds
// s.mu and has verified the session is active.
func (s *Session) submitLocked() {
	s.capture.Stop()
	s.phase = model.PhaseSubmitting
	s.evalInFlight = true
	epoch := s.epoch
	questions := s.questions
	answers := s.answers.Clone()
	elapsed := s.elapsed
	go func() {
		res, err := s.eval.Evaluate(s.ctx, questions, answers)
		s.finishEvaluation(epoch, elapsed, res, err)
	}()
}

func (s *Session) finishEvaluation(epoch uint64, elapsed int, res *model.AggregateResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.phase != model.PhaseSubmitting {
		slog.Debug("discarding stale evaluation result", "session", s.ID)
		return
	}
	s.evalInFlight = false
	if err != nil {
		slog.Error("evaluation failed", "session", s.ID, "error", err)
		s.phase = model.PhaseFailed
		s.errCode = CodeEvaluationFailed
		return
	}
	res.TimeSpentSec = elapsed
	s.result = res
	s.phase = model.PhaseResults
	if s.sink != nil {
		go s.sink(s.UserID, s.cfg, res)
	}
}

// Resume returns a failed session to active with questions, answers and the
// remaining time intact. Only valid when the failure happened after the
// question set was loaded, i.e. during evaluation.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != model.PhaseFailed || len(s.questions) == 0 {
		return ErrWrongPhase
	}
	s.errCode = ""
	s.phase = model.PhaseActive
	return nil
}

// Retry re-runs question loading after a generation failure.
func (s *Session) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != model.PhaseFailed || len(s.questions) != 0 {
		return ErrWrongPhase
	}
	s.epoch++
	s.startGenerationLocked()
	return nil
}

// Retake starts a new attempt with the same configuration. The recently-used
// question set is kept so the next attempt avoids repeats, unless fresh is
// set, which clears it.
func (s *Session) Retake(fresh bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != model.PhaseResults && s.phase != model.PhaseFailed {
		return ErrWrongPhase
	}
	if fresh {
		s.supplier.ResetUsed()
	}
	s.capture.Stop()
	s.epoch++
	s.startGenerationLocked()
	return nil
}

// Reset abandons the current attempt and returns to setup. In-flight remote
// completions become stale and are discarded when they arrive.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capture.Stop()
	s.epoch++
	s.phase = model.PhaseSetup
	s.questions = nil
	s.known = nil
	s.answers = model.AnswerMap{}
	s.index = 0
	s.remaining = 0
	s.elapsed = 0
	s.errCode = ""
	s.result = nil
	s.genInFlight = false
	s.evalInFlight = false
}

// SetCapture switches the answer-capture mode while active. Off stops
// whatever is running; live and record are mutually exclusive, and starting
// one implicitly stops the other.
func (s *Session) SetCapture(m capture.Mode) (capture.Mode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != model.PhaseActive {
		return capture.ModeOff, ErrWrongPhase
	}
	if m == capture.ModeOff {
		return s.capture.Stop(), nil
	}
	return s.capture.Start(m)
}

// Snapshot copies the observable state. While the session has not reached
// results, ExpectedAnswer is blanked on every question so the API never
// leaks answers to an active candidate.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:        s.ID,
		Phase:     s.phase,
		Config:    s.cfg,
		Answers:   s.answers.Clone(),
		Index:     s.index,
		Remaining: s.remaining,
		Elapsed:   s.elapsed,
		ErrorCode: s.errCode,
		Result:    s.result,
		Capture:   s.capture.Active(),
	}
	snap.Questions = make([]model.Question, len(s.questions))
	copy(snap.Questions, s.questions)
	if s.phase != model.PhaseResults {
		for i := range snap.Questions {
			snap.Questions[i].ExpectedAnswer = ""
		}
	}
	return snap
}

// Phase returns the current phase.
func (s *Session) Phase() model.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}
