package genai

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/interviewace/interviewace/internal/model"
)

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"padded", "  {\"a\":1}\n\n", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanJSONResponse(tt.in); got != tt.want {
				t.Errorf("cleanJSONResponse() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWireQuestionValidation(t *testing.T) {
	valid := wireQuestion{
		ID:             "q1",
		Kind:           "mcq",
		Prompt:         "Pick one",
		Options:        []string{"a", "b"},
		ExpectedAnswer: "a",
		Difficulty:     "easy",
		Topic:          "javascript",
	}

	tests := []struct {
		name    string
		mutate  func(*wireQuestion)
		wantErr bool
	}{
		{"valid", func(*wireQuestion) {}, false},
		{"missing id", func(q *wireQuestion) { q.ID = " " }, true},
		{"missing prompt", func(q *wireQuestion) { q.Prompt = "" }, true},
		{"unknown kind", func(q *wireQuestion) { q.Kind = "essay" }, true},
		{"mcq single option", func(q *wireQuestion) { q.Options = []string{"a"} }, true},
		{"mcq no expected answer", func(q *wireQuestion) { q.ExpectedAnswer = "" }, true},
		{"coding without options ok", func(q *wireQuestion) {
			q.Kind = "coding"
			q.Options = nil
			q.ExpectedAnswer = ""
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wq := valid
			tt.mutate(&wq)
			_, err := wq.toQuestion()
			if (err != nil) != tt.wantErr {
				t.Errorf("toQuestion() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWireQuestionDefaults(t *testing.T) {
	wq := wireQuestion{ID: "v1", Kind: "voice", Prompt: "Explain", Difficulty: "IMPOSSIBLE"}
	q, err := wq.toQuestion()
	if err != nil {
		t.Fatalf("toQuestion: %v", err)
	}
	if q.Difficulty != model.DifficultyMedium {
		t.Errorf("bad difficulty should default to medium, got %q", q.Difficulty)
	}
	if !q.VoiceEnabled {
		t.Error("voice questions must be voice-enabled")
	}
}

func TestWireEvaluationRequiresFullCoverage(t *testing.T) {
	questions := []model.Question{
		{ID: "q1", Kind: model.KindMCQ},
		{ID: "q2", Kind: model.KindMCQ},
	}
	we := wireEvaluation{
		OverallScore: 150, // clamped
		PerQuestion: []wireFeedback{
			{ID: "q1", IsCorrect: true, Score: 120},
		},
	}

	if _, err := we.toResult(questions); !errors.Is(err, ErrMalformed) {
		t.Fatalf("missing feedback should be ErrMalformed, got %v", err)
	}

	we.PerQuestion = append(we.PerQuestion, wireFeedback{ID: "q2", Score: -5})
	res, err := we.toResult(questions)
	if err != nil {
		t.Fatalf("toResult: %v", err)
	}
	if res.OverallScore != 100 {
		t.Errorf("overall score not clamped: %d", res.OverallScore)
	}
	if res.PerQuestion[0].Score != 100 || res.PerQuestion[1].Score != 0 {
		t.Errorf("per-question scores not clamped: %+v", res.PerQuestion)
	}
	if res.CorrectCount != 1 {
		t.Errorf("expected 1 correct, got %d", res.CorrectCount)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"rate limited", &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}, true},
		{"server error", &openai.APIError{HTTPStatusCode: http.StatusServiceUnavailable}, true},
		{"bad request", &openai.APIError{HTTPStatusCode: http.StatusBadRequest}, false},
		{"request error 502", &openai.RequestError{HTTPStatusCode: http.StatusBadGateway, Err: errors.New("bad gateway")}, true},
		{"plain error", errors.New("dial tcp: connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if errors.Is(got, ErrOverloaded) != tt.retryable {
				t.Errorf("classify(%v) retryable = %v, want %v", tt.err, errors.Is(got, ErrOverloaded), tt.retryable)
			}
			if !tt.retryable && !strings.Contains(got.Error(), "generative API call") {
				t.Errorf("permanent errors should be wrapped, got %q", got.Error())
			}
		})
	}
}
