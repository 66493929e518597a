// Package prompts builds the text sent to the generative endpoint for
// question generation and answer evaluation.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/interviewace/interviewace/internal/model"
)

//go:embed templates/*.txt
var templateFS embed.FS

// maxAnswerRunes bounds how much of a single answer is forwarded to the grader.
const maxAnswerRunes = 10000

var (
	candidateAnswerRegex    = regexp.MustCompile(`(?i)</?\s*candidate-answer\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

var (
	loadOnce     sync.Once
	loadErr      error
	generateTmpl *template.Template
	evaluateTmpl *template.Template
)

// GenerateData holds template data for the question generation prompt.
type GenerateData struct {
	Total       int
	CountMCQ    int
	CountCoding int
	CountVoice  int
	Topic       string
	Difficulty  string
	Seed        string
	ExcludeIDs  []string
}

// EvalEntry is one question/answer pair in the evaluation prompt.
type EvalEntry struct {
	ID             string
	Kind           string
	Topic          string
	Difficulty     string
	Prompt         string
	Options        string
	ExpectedAnswer string
	Answer         string
}

// EvalData holds template data for the evaluation prompt.
type EvalData struct {
	Entries []EvalEntry
}

func load() error {
	loadOnce.Do(func() {
		parse := func(name string) *template.Template {
			content, err := templateFS.ReadFile("templates/" + name)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", name, err)
				return nil
			}
			tmpl, err := template.New(name).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", name, err)
				return nil
			}
			return tmpl
		}
		generateTmpl = parse("generate.txt")
		if loadErr != nil {
			return
		}
		evaluateTmpl = parse("evaluate.txt")
	})
	return loadErr
}

// BuildGeneratePrompt renders the question generation prompt.
func BuildGeneratePrompt(cfg model.SessionConfig, seed string, excludeIDs []string) (string, error) {
	if err := load(); err != nil {
		return "", err
	}

	topic := cfg.Topic
	if topic == "" || strings.EqualFold(topic, "all") {
		topic = "general software engineering (JavaScript, Go, web development, algorithms)"
	}
	difficulty := string(cfg.Difficulty)
	if difficulty == "" || difficulty == string(model.DifficultyAny) {
		difficulty = "a mix of easy, medium and hard"
	}

	data := GenerateData{
		Total:       cfg.TotalQuestions(),
		CountMCQ:    cfg.CountMCQ,
		CountCoding: cfg.CountCoding,
		CountVoice:  cfg.CountVoice,
		Topic:       topic,
		Difficulty:  difficulty,
		Seed:        seed,
		ExcludeIDs:  excludeIDs,
	}

	var buf bytes.Buffer
	if err := generateTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildEvaluatePrompt renders the grading prompt for a full question set.
// Missing answers must already be normalized to the empty string.
func BuildEvaluatePrompt(questions []model.Question, answers model.AnswerMap) (string, error) {
	if err := load(); err != nil {
		return "", err
	}

	entries := make([]EvalEntry, 0, len(questions))
	for _, q := range questions {
		entries = append(entries, EvalEntry{
			ID:             q.ID,
			Kind:           string(q.Kind),
			Topic:          q.Topic,
			Difficulty:     string(q.Difficulty),
			Prompt:         q.Prompt,
			Options:        strings.Join(q.Options, " | "),
			ExpectedAnswer: q.ExpectedAnswer,
			Answer:         SanitizeAnswer(answers[q.ID]),
		})
	}

	var buf bytes.Buffer
	if err := evaluateTmpl.Execute(&buf, EvalData{Entries: entries}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SanitizeAnswer strips prompt-injection markup, trims, and bounds the length
// of a candidate answer before it is embedded in a prompt.
func SanitizeAnswer(answer string) string {
	answer = candidateAnswerRegex.ReplaceAllString(answer, "")
	answer = systemInstructionsRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		answer = string(runes[:maxAnswerRunes]) + "\n\n[Answer truncated due to length]"
	}

	return answer
}
