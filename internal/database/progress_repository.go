package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/spellsync/pkg/models"
)

// ProgressRepository handles database operations for per-list progress
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository creates a new repository instance
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

type progressRow struct {
	UserID          string    `db:"user_id"`
	Language        string    `db:"language"`
	ListID          string    `db:"list_id"`
	CompletedLevels string    `db:"completed_levels"`
	MasteredWords   string    `db:"mastered_words"`
	LevelScores     string    `db:"level_scores"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (row progressRow) toModel() (*models.Progress, error) {
	p := &models.Progress{
		UserID:    row.UserID,
		Language:  row.Language,
		ListID:    row.ListID,
		UpdatedAt: row.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(row.CompletedLevels), &p.CompletedLevels); err != nil {
		return nil, fmt.Errorf("failed to parse completed levels: %w", err)
	}
	if err := json.Unmarshal([]byte(row.MasteredWords), &p.MasteredWords); err != nil {
		return nil, fmt.Errorf("failed to parse mastered words: %w", err)
	}
	if err := json.Unmarshal([]byte(row.LevelScores), &p.LevelScores); err != nil {
		return nil, fmt.Errorf("failed to parse level scores: %w", err)
	}
	return p, nil
}

func progressToRow(p *models.Progress) (progressRow, error) {
	levels := p.CompletedLevels
	if levels == nil {
		levels = []int{}
	}
	mastered := p.MasteredWords
	if mastered == nil {
		mastered = []string{}
	}
	scores := p.LevelScores
	if scores == nil {
		scores = map[int]int{}
	}

	levelsJSON, err := json.Marshal(levels)
	if err != nil {
		return progressRow{}, err
	}
	masteredJSON, err := json.Marshal(mastered)
	if err != nil {
		return progressRow{}, err
	}
	scoresJSON, err := json.Marshal(scores)
	if err != nil {
		return progressRow{}, err
	}
	return progressRow{
		UserID:          p.UserID,
		Language:        p.Language,
		ListID:          p.ListID,
		CompletedLevels: string(levelsJSON),
		MasteredWords:   string(masteredJSON),
		LevelScores:     string(scoresJSON),
		UpdatedAt:       p.UpdatedAt,
	}, nil
}

// Get returns progress for a specific user and list
func (r *ProgressRepository) Get(ctx context.Context, userID, language, listID string) (*models.Progress, error) {
	var row progressRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT user_id, language, list_id, completed_levels, mastered_words, level_scores, updated_at
		FROM progress
		WHERE user_id = ? AND language = ? AND list_id = ?
	`), userID, language, listID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return row.toModel()
}

// ListByUser returns every progress record of a user
func (r *ProgressRepository) ListByUser(ctx context.Context, userID string) ([]*models.Progress, error) {
	var rows []progressRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT user_id, language, list_id, completed_levels, mastered_words, level_scores, updated_at
		FROM progress
		WHERE user_id = ?
		ORDER BY language, list_id
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}

	result := make([]*models.Progress, 0, len(rows))
	for _, row := range rows {
		p, err := row.toModel()
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}

// Save creates or replaces a progress record. UpdatedAt is stored as given.
func (r *ProgressRepository) Save(ctx context.Context, p *models.Progress) error {
	row, err := progressToRow(p)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}
	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO progress (user_id, language, list_id, completed_levels, mastered_words, level_scores, updated_at)
		VALUES (:user_id, :language, :list_id, :completed_levels, :mastered_words, :level_scores, :updated_at)
		ON CONFLICT (user_id, language, list_id) DO UPDATE SET
			completed_levels = excluded.completed_levels,
			mastered_words = excluded.mastered_words,
			level_scores = excluded.level_scores,
			updated_at = excluded.updated_at
	`, row)
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}
