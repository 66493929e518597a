// Package evaluator turns a question set plus answer map into a graded
// aggregate result: remote grading first, local heuristic scoring when the
// remote grader fails or returns malformed data.
package evaluator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/interviewace/interviewace/internal/model"
)

// Grader is the remote answer grader.
type Grader interface {
	EvaluateAnswers(ctx context.Context, questions []model.Question, answers model.AnswerMap) (*model.AggregateResult, error)
}

// Evaluator grades submitted sessions. It never mutates its inputs.
type Evaluator struct {
	grader Grader
}

// New creates an evaluator backed by the given remote grader. A nil grader
// means every evaluation uses the local heuristic scorer.
func New(grader Grader) *Evaluator {
	return &Evaluator{grader: grader}
}

// Evaluate grades the full question set. Missing answers are treated as the
// empty string, never nil. A remote failure or malformed response degrades
// to the deterministic heuristic scorer; the result then carries the
// Fallback flag.
func (e *Evaluator) Evaluate(ctx context.Context, questions []model.Question, answers model.AnswerMap) (*model.AggregateResult, error) {
	if len(questions) == 0 {
		return nil, errors.New("nothing to evaluate")
	}

	normalized := normalizeAnswers(questions, answers)

	if e.grader != nil {
		result, err := e.grader.EvaluateAnswers(ctx, questions, normalized)
		if err == nil {
			return result, nil
		}
		slog.Warn("remote grading failed, using heuristic scorer", "error", err)
	}

	return scoreLocally(questions, normalized), nil
}

// normalizeAnswers clones the answer map with an entry, possibly empty, for
// every question. The caller's map is left untouched.
func normalizeAnswers(questions []model.Question, answers model.AnswerMap) model.AnswerMap {
	out := make(model.AnswerMap, len(questions))
	for _, q := range questions {
		out[q.ID] = answers[q.ID]
	}
	return out
}
