package model

import (
	"context"
	"fmt"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleCandidate is a regular practicing user.
	UserRoleCandidate UserRole = "candidate"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64
	Email        string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Kind represents a question kind.
type Kind string

const (
	KindMCQ    Kind = "mcq"
	KindCoding Kind = "coding"
	KindVoice  Kind = "voice"
)

// Kinds lists every question kind in request order.
var Kinds = []Kind{KindMCQ, KindCoding, KindVoice}

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	// DifficultyAny matches every difficulty in filters.
	DifficultyAny Difficulty = "all"
)

// Question is a single interview question. Immutable once generated.
type Question struct {
	ID             string     `json:"id"`
	Kind           Kind       `json:"kind"`
	Prompt         string     `json:"prompt"`
	Options        []string   `json:"options,omitempty"`
	ExpectedAnswer string     `json:"expectedAnswer,omitempty"`
	Difficulty     Difficulty `json:"difficulty"`
	Topic          string     `json:"topic"`
	VoiceEnabled   bool       `json:"voiceEnabled,omitempty"`
	CodeTemplate   string     `json:"codeTemplate,omitempty"`
}

// SessionConfig holds the setup parameters for one assessment session.
// Read-only for the session's lifetime.
type SessionConfig struct {
	Topic        string     `json:"topic"`
	Difficulty   Difficulty `json:"difficulty"`
	CountMCQ     int        `json:"countMCQ"`
	CountCoding  int        `json:"countCoding"`
	CountVoice   int        `json:"countVoice"`
	TimeLimitSec int        `json:"timeLimitSec"`
}

// TotalQuestions returns the authoritative target question count.
func (c SessionConfig) TotalQuestions() int {
	return c.CountMCQ + c.CountCoding + c.CountVoice
}

// CountFor returns the requested count for a question kind.
func (c SessionConfig) CountFor(k Kind) int {
	switch k {
	case KindMCQ:
		return c.CountMCQ
	case KindCoding:
		return c.CountCoding
	case KindVoice:
		return c.CountVoice
	}
	return 0
}

// Validate checks the configuration before a session is created.
func (c SessionConfig) Validate() error {
	if c.CountMCQ < 0 || c.CountCoding < 0 || c.CountVoice < 0 {
		return fmt.Errorf("question counts must not be negative")
	}
	if c.TotalQuestions() == 0 {
		return fmt.Errorf("at least one question is required")
	}
	if c.TimeLimitSec <= 0 {
		return fmt.Errorf("time limit must be positive")
	}
	return nil
}

// AnswerMap maps question IDs to submitted answer text.
type AnswerMap map[string]string

// Clone returns a copy so callers can hand out snapshots safely.
func (a AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// CodeAnalysis holds structural findings for a coding answer.
type CodeAnalysis struct {
	Syntax     bool   `json:"syntax"`
	Logic      bool   `json:"logic"`
	Efficiency string `json:"efficiency,omitempty"`
	TestCases  bool   `json:"testCases"`
}

// VoiceAnalysis holds transcription findings for a spoken answer.
type VoiceAnalysis struct {
	TranscriptionAccuracy int      `json:"transcriptionAccuracy"`
	ContentMatch          int      `json:"contentMatch"`
	SpeechErrors          []string `json:"speechErrors,omitempty"`
}

// QuestionFeedback is the graded result for one question.
// Produced once after submission, never mutated.
type QuestionFeedback struct {
	QuestionID    string         `json:"questionId"`
	IsCorrect     bool           `json:"isCorrect"`
	Score         int            `json:"score"`
	Feedback      string         `json:"feedback"`
	CorrectAnswer string         `json:"correctAnswer,omitempty"`
	CodeAnalysis  *CodeAnalysis  `json:"codeAnalysis,omitempty"`
	VoiceAnalysis *VoiceAnalysis `json:"voiceAnalysis,omitempty"`
}

// AggregateResult is the overall graded outcome of a session.
type AggregateResult struct {
	OverallScore      int                `json:"overallScore"`
	OverallFeedback   string             `json:"overallFeedback"`
	PerQuestion       []QuestionFeedback `json:"perQuestion"`
	FocusAreas        []string           `json:"focusAreas,omitempty"`
	RecommendedTopics []string           `json:"recommendedTopics,omitempty"`
	CorrectCount      int                `json:"correctCount"`
	TotalQuestions    int                `json:"totalQuestions"`
	TimeSpentSec      int                `json:"timeSpentSec"`
	// Fallback marks results produced by the local heuristic scorer
	// rather than the remote grader.
	Fallback bool `json:"fallback"`
}

// ResultRecord is a persisted assessment outcome, one row per completed
// session.
type ResultRecord struct {
	ID           string           `json:"id"`
	UserID       int64            `json:"-"`
	Topic        string           `json:"topic"`
	Difficulty   Difficulty       `json:"difficulty"`
	Score        int              `json:"score"`
	Correct      int              `json:"correct"`
	Total        int              `json:"total"`
	TimeSpentSec int              `json:"timeSpentSec"`
	Fallback     bool             `json:"fallback"`
	Detail       *AggregateResult `json:"detail,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// Phase represents the session state machine phase.
type Phase string

const (
	PhaseSetup      Phase = "setup"
	PhaseLoading    Phase = "loading"
	PhaseActive     Phase = "active"
	PhaseSubmitting Phase = "submitting"
	PhaseResults    Phase = "results"
	PhaseFailed     Phase = "failed"
)
