package store

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/interviewace/interviewace/internal/model"
)

//go:embed seed_questions.json
var seedQuestions []byte

const seedPath = "embedded:seed_questions.json"

// SeedBank loads the built-in fallback questions into the bank. The content
// hash is recorded so an unchanged seed is not re-imported on every start.
func (s *Store) SeedBank() error {
	sum := sha256.Sum256(seedQuestions)
	hash := hex.EncodeToString(sum[:])

	stored, err := s.GetImportedFileHash(seedPath)
	if err != nil {
		return fmt.Errorf("check seed hash: %w", err)
	}
	if stored == hash {
		slog.Debug("seed bank unchanged, skipping import")
		return nil
	}

	var questions []model.Question
	if err := json.Unmarshal(seedQuestions, &questions); err != nil {
		return fmt.Errorf("parse seed questions: %w", err)
	}
	count, err := s.ImportBank(questions)
	if err != nil {
		return fmt.Errorf("import seed questions: %w", err)
	}
	if err := s.SetImportedFileHash(seedPath, hash); err != nil {
		return fmt.Errorf("record seed hash: %w", err)
	}
	slog.Info("seeded question bank", "count", count)
	return nil
}
