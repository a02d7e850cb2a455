package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/spellsync/pkg/models"
)

// ResultRepository handles database operations for session results
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository creates a new repository instance
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

type resultRow struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	Language    string    `db:"language"`
	ListID      string    `db:"list_id"`
	Level       int       `db:"level"`
	TotalWords  int       `db:"total_words"`
	Correct     int       `db:"correct"`
	Score       int       `db:"score"`
	Misspelled  string    `db:"misspelled"`
	DurationMS  int64     `db:"duration_ms"`
	CompletedAt time.Time `db:"completed_at"`
}

// Create inserts a result. Inserting an ID that already exists is a no-op,
// results are immutable.
func (r *ResultRepository) Create(ctx context.Context, result *models.SessionResult) error {
	misspelled := result.Misspelled
	if misspelled == nil {
		misspelled = []string{}
	}
	misspelledJSON, err := json.Marshal(misspelled)
	if err != nil {
		return fmt.Errorf("failed to encode misspelled words: %w", err)
	}

	row := resultRow{
		ID:          result.ID,
		UserID:      result.UserID,
		Language:    result.Language,
		ListID:      result.ListID,
		Level:       result.Level,
		TotalWords:  result.TotalWords,
		Correct:     result.Correct,
		Score:       result.Score,
		Misspelled:  string(misspelledJSON),
		DurationMS:  result.Duration.Milliseconds(),
		CompletedAt: result.CompletedAt.UTC(),
	}
	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO session_results (
			id, user_id, language, list_id, level, total_words, correct, score,
			misspelled, duration_ms, completed_at
		) VALUES (
			:id, :user_id, :language, :list_id, :level, :total_words, :correct, :score,
			:misspelled, :duration_ms, :completed_at
		)
		ON CONFLICT (id) DO NOTHING
	`, row)
	if err != nil {
		return fmt.Errorf("failed to create session result: %w", err)
	}
	return nil
}

// ListByUser returns all results of a user, newest first
func (r *ResultRepository) ListByUser(ctx context.Context, userID string) ([]*models.SessionResult, error) {
	var rows []resultRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT id, user_id, language, list_id, level, total_words, correct, score,
		       misspelled, duration_ms, completed_at
		FROM session_results
		WHERE user_id = ?
		ORDER BY completed_at DESC
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session results: %w", err)
	}

	results := make([]*models.SessionResult, 0, len(rows))
	for _, row := range rows {
		res := &models.SessionResult{
			ID:          row.ID,
			UserID:      row.UserID,
			Language:    row.Language,
			ListID:      row.ListID,
			Level:       row.Level,
			TotalWords:  row.TotalWords,
			Correct:     row.Correct,
			Score:       row.Score,
			Duration:    time.Duration(row.DurationMS) * time.Millisecond,
			CompletedAt: row.CompletedAt,
		}
		if err := json.Unmarshal([]byte(row.Misspelled), &res.Misspelled); err != nil {
			return nil, fmt.Errorf("failed to parse misspelled words: %w", err)
		}
		results = append(results, res)
	}
	return results, nil
}

// Exists reports whether a result with the given ID is stored locally
func (r *ResultRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind("SELECT COUNT(*) FROM session_results WHERE id = ?"), id); err != nil {
		return false, fmt.Errorf("failed to check session result: %w", err)
	}
	return count > 0, nil
}
