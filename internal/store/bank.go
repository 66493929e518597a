package store

import (
	"encoding/json"
	"fmt"

	"github.com/interviewace/interviewace/internal/model"
)

// InsertBankQuestion stores a fallback question. Existing IDs are replaced,
// so re-importing an updated bank file refreshes its questions.
func (s *Store) InsertBankQuestion(q model.Question) error {
	opts, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO bank_questions (id, kind, prompt, options, expected_answer, difficulty, topic, voice_enabled, code_template)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind, prompt = excluded.prompt, options = excluded.options,
			expected_answer = excluded.expected_answer, difficulty = excluded.difficulty,
			topic = excluded.topic, voice_enabled = excluded.voice_enabled,
			code_template = excluded.code_template`,
		q.ID, q.Kind, q.Prompt, string(opts), q.ExpectedAnswer, q.Difficulty, q.Topic, q.VoiceEnabled, q.CodeTemplate,
	)
	return err
}

// QuestionsFor returns the bank pool for one kind, filtered by topic and
// difficulty. Empty topic matches every topic; difficulty "all" or empty
// matches every difficulty.
func (s *Store) QuestionsFor(kind model.Kind, topic string, difficulty model.Difficulty) ([]model.Question, error) {
	query := `SELECT id, kind, prompt, options, expected_answer, difficulty, topic, voice_enabled, code_template
		 FROM bank_questions WHERE kind = ?`
	args := []any{kind}
	if topic != "" {
		query += ` AND topic = ? COLLATE NOCASE`
		args = append(args, topic)
	}
	if difficulty != "" && difficulty != model.DifficultyAny {
		query += ` AND difficulty = ?`
		args = append(args, difficulty)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var opts string
		if err := rows.Scan(&q.ID, &q.Kind, &q.Prompt, &opts, &q.ExpectedAnswer, &q.Difficulty, &q.Topic, &q.VoiceEnabled, &q.CodeTemplate); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
			return nil, fmt.Errorf("question %s: unmarshal options: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ImportBank inserts a batch of bank questions, validating each one.
func (s *Store) ImportBank(questions []model.Question) (int, error) {
	count := 0
	for _, q := range questions {
		if q.ID == "" || q.Prompt == "" {
			return count, fmt.Errorf("question %d: id and prompt are required", count+1)
		}
		switch q.Kind {
		case model.KindMCQ:
			if len(q.Options) < 2 || q.ExpectedAnswer == "" {
				return count, fmt.Errorf("question %s: mcq needs options and an expected answer", q.ID)
			}
		case model.KindCoding, model.KindVoice:
		default:
			return count, fmt.Errorf("question %s: unknown kind %q", q.ID, q.Kind)
		}
		if err := s.InsertBankQuestion(q); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// BankCount returns the number of questions in the fallback bank.
func (s *Store) BankCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM bank_questions`).Scan(&count)
	return count, err
}
