package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/spellsync/pkg/models"
)

// SettingsRepository handles database operations for user settings
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository creates a new repository instance
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the settings of a user
func (r *SettingsRepository) Get(ctx context.Context, userID string) (*models.Settings, error) {
	var s models.Settings
	err := r.db.GetContext(ctx, &s, r.db.Rebind(`
		SELECT user_id, selected_language, selected_list_id, words_per_level, pass_score,
		       sound_enabled, reminder_enabled, reminder_hour, telegram_chat_id, updated_at
		FROM settings
		WHERE user_id = ?
	`), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &s, nil
}

// Save creates or replaces the settings of a user. UpdatedAt is stored as given.
func (r *SettingsRepository) Save(ctx context.Context, s *models.Settings) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO settings (
			user_id, selected_language, selected_list_id, words_per_level, pass_score,
			sound_enabled, reminder_enabled, reminder_hour, telegram_chat_id, updated_at
		) VALUES (
			:user_id, :selected_language, :selected_list_id, :words_per_level, :pass_score,
			:sound_enabled, :reminder_enabled, :reminder_hour, :telegram_chat_id, :updated_at
		)
		ON CONFLICT (user_id) DO UPDATE SET
			selected_language = excluded.selected_language,
			selected_list_id = excluded.selected_list_id,
			words_per_level = excluded.words_per_level,
			pass_score = excluded.pass_score,
			sound_enabled = excluded.sound_enabled,
			reminder_enabled = excluded.reminder_enabled,
			reminder_hour = excluded.reminder_hour,
			telegram_chat_id = excluded.telegram_chat_id,
			updated_at = excluded.updated_at
	`, s)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// ListForReminder returns settings of users with reminders enabled at the given hour
func (r *SettingsRepository) ListForReminder(ctx context.Context, hour int) ([]models.Settings, error) {
	var list []models.Settings
	err := r.db.SelectContext(ctx, &list, r.db.Rebind(`
		SELECT user_id, selected_language, selected_list_id, words_per_level, pass_score,
		       sound_enabled, reminder_enabled, reminder_hour, telegram_chat_id, updated_at
		FROM settings
		WHERE reminder_enabled = ? AND reminder_hour = ?
	`), true, hour)
	if err != nil {
		return nil, fmt.Errorf("failed to get users for reminder: %w", err)
	}
	return list, nil
}
