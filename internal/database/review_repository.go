package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/spellsync/pkg/models"
)

// ReviewRepository handles the spaced repetition state of words
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new repository instance
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

const reviewColumns = `user_id, language, list_id, word, easiness_factor, interval_days, repetitions,
	last_quality, consecutive_right, last_review_date, next_review_date`

// Get returns the review state of a single word
func (r *ReviewRepository) Get(ctx context.Context, userID, language, listID, word string) (*models.WordReview, error) {
	var rev models.WordReview
	err := r.db.GetContext(ctx, &rev, r.db.Rebind(`
		SELECT `+reviewColumns+` FROM word_reviews
		WHERE user_id = ? AND language = ? AND list_id = ? AND word = ?
	`), userID, language, listID, word)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get word review: %w", err)
	}
	return &rev, nil
}

// ListByList returns review states of every reviewed word in a list
func (r *ReviewRepository) ListByList(ctx context.Context, userID, language, listID string) ([]models.WordReview, error) {
	var reviews []models.WordReview
	err := r.db.SelectContext(ctx, &reviews, r.db.Rebind(`
		SELECT `+reviewColumns+` FROM word_reviews
		WHERE user_id = ? AND language = ? AND list_id = ?
		ORDER BY next_review_date ASC
	`), userID, language, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to list word reviews: %w", err)
	}
	return reviews, nil
}

// Due returns words of a list whose next review is not after the given time
func (r *ReviewRepository) Due(ctx context.Context, userID, language, listID string, before time.Time) ([]models.WordReview, error) {
	var reviews []models.WordReview
	err := r.db.SelectContext(ctx, &reviews, r.db.Rebind(`
		SELECT `+reviewColumns+` FROM word_reviews
		WHERE user_id = ? AND language = ? AND list_id = ? AND next_review_date <= ?
		ORDER BY next_review_date ASC
	`), userID, language, listID, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to get due words: %w", err)
	}
	return reviews, nil
}

// Save creates or updates the review state of a word
func (r *ReviewRepository) Save(ctx context.Context, rev *models.WordReview) error {
	// dates are compared as text on sqlite, so they are always stored in UTC
	row := *rev
	row.LastReviewDate = rev.LastReviewDate.UTC()
	row.NextReviewDate = rev.NextReviewDate.UTC()

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO word_reviews (`+reviewColumns+`) VALUES (
			:user_id, :language, :list_id, :word, :easiness_factor, :interval_days, :repetitions,
			:last_quality, :consecutive_right, :last_review_date, :next_review_date
		)
		ON CONFLICT (user_id, language, list_id, word) DO UPDATE SET
			easiness_factor = excluded.easiness_factor,
			interval_days = excluded.interval_days,
			repetitions = excluded.repetitions,
			last_quality = excluded.last_quality,
			consecutive_right = excluded.consecutive_right,
			last_review_date = excluded.last_review_date,
			next_review_date = excluded.next_review_date
	`, row)
	if err != nil {
		return fmt.Errorf("failed to save word review: %w", err)
	}
	return nil
}
