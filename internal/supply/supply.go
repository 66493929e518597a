// Package supply produces bounded, de-duplicated question sets: remote
// generation first, with bounded retries for transient overload, then the
// local fallback bank.
package supply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/interviewace/interviewace/internal/genai"
	"github.com/interviewace/interviewace/internal/model"
)

var (
	// ErrRemoteUnavailable marks a remote generation failure after retries
	// were exhausted or a non-retryable transport error occurred.
	ErrRemoteUnavailable = errors.New("question generator unavailable")
	// ErrMalformedResponse marks an unparseable or schema-invalid payload.
	ErrMalformedResponse = errors.New("malformed generator response")
	// ErrDistributionMismatch marks a response whose per-kind counts do not
	// match the request. Wrong-sized sets are never truncated or padded.
	ErrDistributionMismatch = errors.New("question distribution mismatch")
	// ErrBankExhausted marks a fallback pool too small for the exact counts.
	ErrBankExhausted = errors.New("fallback bank exhausted")
)

// Generator is the remote question source.
type Generator interface {
	GenerateQuestions(ctx context.Context, cfg model.SessionConfig, excludeIDs []string) ([]model.Question, error)
}

// Bank is the local fallback question pool, filtered by kind, topic and
// difficulty. An empty topic or DifficultyAny matches everything.
type Bank interface {
	QuestionsFor(kind model.Kind, topic string, difficulty model.Difficulty) ([]model.Question, error)
}

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 500 * time.Millisecond
)

// Supply owns the recently-used-question set and the remote/fallback
// generation flow for one session.
type Supply struct {
	gen  Generator
	bank Bank
	used *UsedSet

	maxRetries int
	baseDelay  time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates a question supply backed by the given generator and bank.
func New(gen Generator, bank Bank) *Supply {
	return &Supply{
		gen:        gen,
		bank:       bank,
		used:       NewUsedSet(),
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		sleep:      sleepCtx,
	}
}

// Used exposes the recently-used set.
func (s *Supply) Used() *UsedSet {
	return s.used
}

// ResetUsed clears the recently-used set; the "take a fresh assessment"
// action.
func (s *Supply) ResetUsed() {
	s.used.Reset()
}

// Generate returns exactly cfg.TotalQuestions() questions matching the
// requested per-kind distribution, or an error. Every returned identifier
// is recorded in the used set, on the remote and the fallback path alike.
func (s *Supply) Generate(ctx context.Context, cfg model.SessionConfig) ([]model.Question, error) {
	questions, remoteErr := s.generateRemote(ctx, cfg)
	if remoteErr == nil {
		s.record(questions)
		return questions, nil
	}
	slog.Warn("remote generation failed, using fallback bank", "error", remoteErr)

	questions, bankErr := s.fromBank(cfg)
	if bankErr != nil {
		return nil, errors.Join(remoteErr, bankErr)
	}
	s.record(questions)
	return questions, nil
}

func (s *Supply) record(questions []model.Question) {
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	s.used.Add(ids...)
}

func (s *Supply) generateRemote(ctx context.Context, cfg model.SessionConfig) ([]model.Question, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.baseDelay << (attempt - 1)
			delay += time.Duration(rand.Int64N(int64(s.baseDelay)))
			slog.Debug("retrying question generation", "attempt", attempt, "delay", delay)
			if err := s.sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
			}
		}

		questions, err := s.gen.GenerateQuestions(ctx, cfg, s.used.IDs())
		if err == nil {
			if err := checkDistribution(cfg, questions); err != nil {
				return nil, err
			}
			return questions, nil
		}

		switch {
		case errors.Is(err, genai.ErrOverloaded):
			lastErr = err
			continue
		case errors.Is(err, genai.ErrMalformed):
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
		}
	}
	return nil, fmt.Errorf("%w: retries exhausted: %v", ErrRemoteUnavailable, lastErr)
}

// checkDistribution enforces the exact per-kind counts of the request.
func checkDistribution(cfg model.SessionConfig, questions []model.Question) error {
	if len(questions) != cfg.TotalQuestions() {
		return fmt.Errorf("%w: got %d questions, want %d", ErrDistributionMismatch, len(questions), cfg.TotalQuestions())
	}
	got := map[model.Kind]int{}
	for _, q := range questions {
		got[q.Kind]++
	}
	for _, kind := range model.Kinds {
		if got[kind] != cfg.CountFor(kind) {
			return fmt.Errorf("%w: got %d %s questions, want %d", ErrDistributionMismatch, got[kind], kind, cfg.CountFor(kind))
		}
	}
	return nil
}

// fromBank selects questions from the local pool, skipping recently-used
// identifiers and recycling only once the pool is exhausted.
func (s *Supply) fromBank(cfg model.SessionConfig) ([]model.Question, error) {
	var selected []model.Question
	for _, kind := range model.Kinds {
		need := cfg.CountFor(kind)
		if need == 0 {
			continue
		}

		pool, err := s.bank.QuestionsFor(kind, cfg.Topic, cfg.Difficulty)
		if err != nil {
			return nil, fmt.Errorf("query fallback bank: %w", err)
		}
		if len(pool) < need {
			return nil, fmt.Errorf("%w: %d %s questions available, need %d", ErrBankExhausted, len(pool), kind, need)
		}

		rand.Shuffle(len(pool), func(i, j int) {
			pool[i], pool[j] = pool[j], pool[i]
		})

		fresh := s.unused(pool)
		if len(fresh) < need {
			s.used.EvictOldestHalf()
			fresh = s.unused(pool)
		}
		if len(fresh) < need {
			// Pool exhausted for this run; recycle.
			fresh = pool
		}
		selected = append(selected, fresh[:need]...)
	}
	return selected, nil
}

func (s *Supply) unused(pool []model.Question) []model.Question {
	var out []model.Question
	for _, q := range pool {
		if !s.used.Contains(q.ID) {
			out = append(out, q)
		}
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
