// Package genai is the client for the remote generative endpoint that
// produces interview questions and grades submitted answers. The endpoint
// is untrusted: every payload is schema-validated before it crosses into
// the domain types.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/interviewace/interviewace/internal/genai/prompts"
	"github.com/interviewace/interviewace/internal/model"
)

var (
	// ErrOverloaded marks transient remote failures (429/5xx class) that
	// callers may retry.
	ErrOverloaded = errors.New("generative endpoint overloaded")
	// ErrMalformed marks a response whose structure does not match the
	// expected shape. Retrying the same request is pointless.
	ErrMalformed = errors.New("malformed generative response")
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new generative endpoint client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping verifies the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("generative endpoint unreachable: %w", err)
	}
	return nil
}

// GenerateQuestions asks the endpoint for a question set matching cfg,
// excluding the given recently-used identifiers. The per-kind distribution
// of the returned set is NOT verified here; that contract belongs to the
// caller, which decides between hard failure and fallback.
func (c *Client) GenerateQuestions(ctx context.Context, cfg model.SessionConfig, excludeIDs []string) ([]model.Question, error) {
	seed := strconv.FormatInt(time.Now().UnixMilli(), 36) + "-" + strconv.FormatUint(rand.Uint64()%0xffffff, 36)
	prompt, err := prompts.BuildGeneratePrompt(cfg, seed, excludeIDs)
	if err != nil {
		return nil, fmt.Errorf("build generate prompt: %w", err)
	}

	raw, err := c.complete(ctx, prompt, 0.7)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Questions []wireQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(cleanJSONResponse(raw)), &payload); err != nil {
		slog.Debug("unparseable generation payload", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	questions := make([]model.Question, 0, len(payload.Questions))
	seen := make(map[string]bool, len(payload.Questions))
	for i, wq := range payload.Questions {
		q, err := wq.toQuestion()
		if err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", ErrMalformed, i, err)
		}
		if seen[q.ID] {
			return nil, fmt.Errorf("%w: duplicate question id %q", ErrMalformed, q.ID)
		}
		seen[q.ID] = true
		questions = append(questions, q)
	}
	return questions, nil
}

// EvaluateAnswers submits the full question set and answer map for grading.
// Every submitted question must be covered by the response, otherwise the
// payload is rejected as malformed.
func (c *Client) EvaluateAnswers(ctx context.Context, questions []model.Question, answers model.AnswerMap) (*model.AggregateResult, error) {
	prompt, err := prompts.BuildEvaluatePrompt(questions, answers)
	if err != nil {
		return nil, fmt.Errorf("build evaluate prompt: %w", err)
	}

	raw, err := c.complete(ctx, prompt, 0.2)
	if err != nil {
		return nil, err
	}

	var payload wireEvaluation
	if err := json.Unmarshal([]byte(cleanJSONResponse(raw)), &payload); err != nil {
		slog.Debug("unparseable evaluation payload", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return payload.toResult(questions)
}

func (c *Client) complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrMalformed)
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps transport errors onto the retryable/permanent taxonomy.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500 {
			return fmt.Errorf("%w: %v", ErrOverloaded, err)
		}
		return fmt.Errorf("generative API call: %w", err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500 {
			return fmt.Errorf("%w: %v", ErrOverloaded, err)
		}
	}
	return fmt.Errorf("generative API call: %w", err)
}

// cleanJSONResponse strips markdown code fences some models wrap around
// JSON payloads even in JSON mode.
func cleanJSONResponse(response string) string {
	response = strings.ReplaceAll(response, "```json", "")
	response = strings.ReplaceAll(response, "```", "")
	return strings.TrimSpace(response)
}

type wireQuestion struct {
	ID             string   `json:"id"`
	Kind           string   `json:"kind"`
	Prompt         string   `json:"prompt"`
	Options        []string `json:"options"`
	ExpectedAnswer string   `json:"expectedAnswer"`
	Difficulty     string   `json:"difficulty"`
	Topic          string   `json:"topic"`
	VoiceEnabled   bool     `json:"voiceEnabled"`
	CodeTemplate   string   `json:"codeTemplate"`
}

func (wq wireQuestion) toQuestion() (model.Question, error) {
	var q model.Question
	if strings.TrimSpace(wq.ID) == "" {
		return q, errors.New("missing id")
	}
	if strings.TrimSpace(wq.Prompt) == "" {
		return q, errors.New("missing prompt")
	}
	kind := model.Kind(wq.Kind)
	switch kind {
	case model.KindMCQ:
		if len(wq.Options) < 2 {
			return q, errors.New("mcq question needs at least two options")
		}
		if strings.TrimSpace(wq.ExpectedAnswer) == "" {
			return q, errors.New("mcq question needs an expected answer")
		}
	case model.KindCoding, model.KindVoice:
		// expected answer is advisory for these kinds
	default:
		return q, fmt.Errorf("unknown kind %q", wq.Kind)
	}

	difficulty := model.Difficulty(strings.ToLower(wq.Difficulty))
	switch difficulty {
	case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
	default:
		difficulty = model.DifficultyMedium
	}

	return model.Question{
		ID:             wq.ID,
		Kind:           kind,
		Prompt:         wq.Prompt,
		Options:        wq.Options,
		ExpectedAnswer: wq.ExpectedAnswer,
		Difficulty:     difficulty,
		Topic:          wq.Topic,
		VoiceEnabled:   kind == model.KindVoice || wq.VoiceEnabled,
		CodeTemplate:   wq.CodeTemplate,
	}, nil
}

type wireEvaluation struct {
	OverallScore      int            `json:"overallScore"`
	OverallFeedback   string         `json:"overallFeedback"`
	PerQuestion       []wireFeedback `json:"perQuestion"`
	FocusAreas        []string       `json:"focusAreas"`
	RecommendedTopics []string       `json:"recommendedTopics"`
}

type wireFeedback struct {
	ID            string               `json:"id"`
	IsCorrect     bool                 `json:"isCorrect"`
	Score         int                  `json:"score"`
	Feedback      string               `json:"feedback"`
	CorrectAnswer string               `json:"correctAnswer"`
	CodeAnalysis  *model.CodeAnalysis  `json:"codeAnalysis"`
	VoiceAnalysis *model.VoiceAnalysis `json:"voiceAnalysis"`
}

func (we wireEvaluation) toResult(questions []model.Question) (*model.AggregateResult, error) {
	byID := make(map[string]wireFeedback, len(we.PerQuestion))
	for _, fb := range we.PerQuestion {
		byID[fb.ID] = fb
	}

	result := &model.AggregateResult{
		OverallScore:      clampScore(we.OverallScore),
		OverallFeedback:   we.OverallFeedback,
		FocusAreas:        we.FocusAreas,
		RecommendedTopics: we.RecommendedTopics,
		TotalQuestions:    len(questions),
	}

	for _, q := range questions {
		fb, ok := byID[q.ID]
		if !ok {
			return nil, fmt.Errorf("%w: no feedback for question %q", ErrMalformed, q.ID)
		}
		if fb.IsCorrect {
			result.CorrectCount++
		}
		result.PerQuestion = append(result.PerQuestion, model.QuestionFeedback{
			QuestionID:    q.ID,
			IsCorrect:     fb.IsCorrect,
			Score:         clampScore(fb.Score),
			Feedback:      fb.Feedback,
			CorrectAnswer: fb.CorrectAnswer,
			CodeAnalysis:  fb.CodeAnalysis,
			VoiceAnalysis: fb.VoiceAnalysis,
		})
	}
	return result, nil
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
