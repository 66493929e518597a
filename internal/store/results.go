package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/interviewace/interviewace/internal/model"
)

// SaveResult persists a completed assessment for the user's history.
func (s *Store) SaveResult(userID int64, cfg model.SessionConfig, res *model.AggregateResult) (string, error) {
	detail, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	id := uuid.NewString()
	_, err = s.db.Exec(
		`INSERT INTO results (id, user_id, topic, difficulty, score, correct, total, time_spent, fallback, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, cfg.Topic, cfg.Difficulty, res.OverallScore, res.CorrectCount,
		res.TotalQuestions, res.TimeSpentSec, res.Fallback, string(detail), time.Now(),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListResultsForUser returns the user's past results, newest first, without
// the per-question detail.
func (s *Store) ListResultsForUser(userID int64) ([]model.ResultRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, topic, difficulty, score, correct, total, time_spent, fallback, created_at
		 FROM results WHERE user_id = ? ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []model.ResultRecord
	for rows.Next() {
		var r model.ResultRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.Topic, &r.Difficulty, &r.Score, &r.Correct, &r.Total, &r.TimeSpentSec, &r.Fallback, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ExportAllResults returns every stored result with full detail, for the
// export subcommand.
func (s *Store) ExportAllResults() ([]model.ResultRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, topic, difficulty, score, correct, total, time_spent, fallback, detail, created_at
		 FROM results ORDER BY created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []model.ResultRecord
	for rows.Next() {
		var r model.ResultRecord
		var detail string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Topic, &r.Difficulty, &r.Score, &r.Correct, &r.Total, &r.TimeSpentSec, &r.Fallback, &detail, &r.CreatedAt); err != nil {
			return nil, err
		}
		var agg model.AggregateResult
		if err := json.Unmarshal([]byte(detail), &agg); err != nil {
			return nil, fmt.Errorf("result %s: unmarshal detail: %w", r.ID, err)
		}
		r.Detail = &agg
		records = append(records, r)
	}
	return records, rows.Err()
}
