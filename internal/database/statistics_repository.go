package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/spellsync/pkg/models"
)

// StatisticsRepository handles database operations for statistics
type StatisticsRepository struct {
	db *sqlx.DB
}

// NewStatisticsRepository creates a new repository instance
func NewStatisticsRepository(db *sqlx.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// Get returns statistics for a user
func (r *StatisticsRepository) Get(ctx context.Context, userID string) (*models.Statistics, error) {
	var stats models.Statistics
	err := r.db.GetContext(ctx, &stats, r.db.Rebind(`
		SELECT user_id, total_sessions, total_words, correct_words, current_streak,
		       longest_streak, last_practice_date, updated_at
		FROM statistics
		WHERE user_id = ?
	`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}
	return &stats, nil
}

// Save creates or replaces statistics. UpdatedAt is stored as given.
func (r *StatisticsRepository) Save(ctx context.Context, stats *models.Statistics) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO statistics (
			user_id, total_sessions, total_words, correct_words, current_streak,
			longest_streak, last_practice_date, updated_at
		) VALUES (
			:user_id, :total_sessions, :total_words, :correct_words, :current_streak,
			:longest_streak, :last_practice_date, :updated_at
		)
		ON CONFLICT (user_id) DO UPDATE SET
			total_sessions = excluded.total_sessions,
			total_words = excluded.total_words,
			correct_words = excluded.correct_words,
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			last_practice_date = excluded.last_practice_date,
			updated_at = excluded.updated_at
	`, stats)
	if err != nil {
		return fmt.Errorf("failed to save statistics: %w", err)
	}
	return nil
}
