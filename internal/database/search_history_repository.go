package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/spellsync/pkg/models"
)

// SearchHistoryRepository keeps the recent word searches of a user
type SearchHistoryRepository struct {
	db *sqlx.DB
}

// NewSearchHistoryRepository creates a new repository instance
func NewSearchHistoryRepository(db *sqlx.DB) *SearchHistoryRepository {
	return &SearchHistoryRepository{db: db}
}

// Record stores a query. Repeating a query moves it to the top.
func (r *SearchHistoryRepository) Record(ctx context.Context, userID, query string, at time.Time) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO search_history (user_id, query, searched_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id, query) DO UPDATE SET searched_at = excluded.searched_at
	`), userID, query, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}
	return nil
}

// Recent returns the latest queries, newest first
func (r *SearchHistoryRepository) Recent(ctx context.Context, userID string, limit int) ([]models.SearchHistoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	var entries []models.SearchHistoryEntry
	err := r.db.SelectContext(ctx, &entries, r.db.Rebind(`
		SELECT user_id, query, searched_at FROM search_history
		WHERE user_id = ?
		ORDER BY searched_at DESC
		LIMIT ?
	`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get search history: %w", err)
	}
	return entries, nil
}

// Clear removes the whole search history of a user
func (r *SearchHistoryRepository) Clear(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM search_history WHERE user_id = ?"), userID)
	if err != nil {
		return fmt.Errorf("failed to clear search history: %w", err)
	}
	return nil
}
