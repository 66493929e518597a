package evaluator

import (
	"fmt"
	"math"
	"strings"

	"github.com/interviewace/interviewace/internal/model"
)

// controlFlowKeywords are the structural signals accepted as evidence that
// a coding answer contains actual code.
var controlFlowKeywords = map[string]bool{
	"for":      true,
	"while":    true,
	"if":       true,
	"else":     true,
	"switch":   true,
	"return":   true,
	"func":     true,
	"function": true,
	"def":      true,
}

var stopwords = map[string]bool{
	"the": true, "and": true, "that": true, "this": true, "with": true,
	"from": true, "your": true, "have": true, "will": true, "are": true,
	"for": true, "not": true, "its": true, "when": true, "which": true,
}

// scoreLocally is the deterministic fallback scorer. It is an
// approximation, not a grader: exact match for multiple choice, keyword and
// structure heuristics for everything else.
func scoreLocally(questions []model.Question, answers model.AnswerMap) *model.AggregateResult {
	result := &model.AggregateResult{
		TotalQuestions: len(questions),
		Fallback:       true,
	}

	var missedTopics []string
	for _, q := range questions {
		answer := answers[q.ID]
		correct := heuristicCorrect(q, answer)

		fb := model.QuestionFeedback{
			QuestionID: q.ID,
			IsCorrect:  correct,
		}
		if correct {
			result.CorrectCount++
			fb.Score = 100
			fb.Feedback = "Your answer matches the expected response."
		} else {
			fb.Feedback = "Your answer did not match the expected response. Compare it with the reference answer."
			fb.CorrectAnswer = q.ExpectedAnswer
			if q.Topic != "" {
				missedTopics = append(missedTopics, q.Topic)
			}
		}
		if q.Kind == model.KindCoding {
			structured := hasControlFlow(answer)
			fb.CodeAnalysis = &model.CodeAnalysis{
				Syntax:    structured,
				Logic:     correct,
				TestCases: false,
			}
		}
		result.PerQuestion = append(result.PerQuestion, fb)
	}

	result.OverallScore = int(math.Round(float64(result.CorrectCount) / float64(len(questions)) * 100))
	result.OverallFeedback = fmt.Sprintf(
		"You answered %d of %d questions correctly (%d%%). This result was produced by the offline scorer; detailed AI feedback was unavailable.",
		result.CorrectCount, len(questions), result.OverallScore,
	)

	for _, topic := range uniqueStrings(missedTopics, 3) {
		result.FocusAreas = append(result.FocusAreas, topic)
		result.RecommendedTopics = append(result.RecommendedTopics, "Review "+topic)
	}

	return result
}

// heuristicCorrect decides correctness for one answer without any remote
// help. It must stay deterministic: same inputs, same verdict.
func heuristicCorrect(q model.Question, answer string) bool {
	if strings.TrimSpace(answer) == "" {
		return false
	}
	switch q.Kind {
	case model.KindMCQ:
		return strings.TrimSpace(answer) == strings.TrimSpace(q.ExpectedAnswer)
	case model.KindCoding:
		return hasControlFlow(answer) || keywordOverlapOK(answer, q.ExpectedAnswer)
	default:
		return keywordOverlapOK(answer, q.ExpectedAnswer)
	}
}

func hasControlFlow(answer string) bool {
	for _, tok := range tokenize(answer) {
		if controlFlowKeywords[tok] {
			return true
		}
	}
	return false
}

// keywordOverlapOK checks that the answer shares enough significant
// vocabulary with the expected answer. The threshold scales with the amount
// of content in the expected answer: one shared keyword per three expected.
func keywordOverlapOK(answer, expected string) bool {
	expectedKW := keywords(expected)
	if len(expectedKW) == 0 {
		return strings.TrimSpace(answer) != ""
	}

	got := make(map[string]bool)
	for _, kw := range keywords(answer) {
		got[kw] = true
	}

	shared := 0
	for _, kw := range expectedKW {
		if got[kw] {
			shared++
		}
	}

	need := (len(expectedKW) + 2) / 3
	if need < 1 {
		need = 1
	}
	return shared >= need
}

// keywords extracts significant, de-duplicated lowercase terms.
func keywords(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tok := range tokenize(s) {
		if len(tok) <= 3 || stopwords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
}

func uniqueStrings(in []string, limit int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}
