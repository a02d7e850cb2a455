package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/example/spellsync/internal/config"
)

// ErrNotFound is returned when a requested record does not exist locally
var ErrNotFound = errors.New("record not found")

// Connect opens the local database and makes sure the schema exists
func Connect(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite3"
	}

	if driver == "sqlite3" && cfg.DSN != ":memory:" && !strings.HasPrefix(cfg.DSN, "file:") {
		// Create data directory if it doesn't exist
		if dir := filepath.Dir(cfg.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	db, err := sqlx.Connect(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite3" {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(db *sqlx.DB) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == "postgres" {
		serial = "BIGSERIAL PRIMARY KEY"
	}

	statements := []struct {
		name  string
		query string
	}{
		{"word_lists", `
			CREATE TABLE IF NOT EXISTS word_lists (
				id TEXT PRIMARY KEY,
				language TEXT NOT NULL,
				name TEXT NOT NULL,
				source TEXT NOT NULL,
				owner_id TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			)`},
		{"list_words", `
			CREATE TABLE IF NOT EXISTS list_words (
				list_id TEXT NOT NULL,
				position INTEGER NOT NULL,
				text TEXT NOT NULL,
				definition TEXT NOT NULL DEFAULT '',
				PRIMARY KEY (list_id, position),
				FOREIGN KEY (list_id) REFERENCES word_lists(id) ON DELETE CASCADE
			)`},
		{"progress", `
			CREATE TABLE IF NOT EXISTS progress (
				user_id TEXT NOT NULL,
				language TEXT NOT NULL,
				list_id TEXT NOT NULL,
				completed_levels TEXT NOT NULL DEFAULT '[]',
				mastered_words TEXT NOT NULL DEFAULT '[]',
				level_scores TEXT NOT NULL DEFAULT '{}',
				updated_at TIMESTAMP NOT NULL,
				PRIMARY KEY (user_id, language, list_id)
			)`},
		{"settings", `
			CREATE TABLE IF NOT EXISTS settings (
				user_id TEXT PRIMARY KEY,
				selected_language TEXT NOT NULL DEFAULT '',
				selected_list_id TEXT NOT NULL DEFAULT '',
				words_per_level INTEGER NOT NULL DEFAULT 10,
				pass_score INTEGER NOT NULL DEFAULT 80,
				sound_enabled BOOLEAN NOT NULL DEFAULT TRUE,
				reminder_enabled BOOLEAN NOT NULL DEFAULT FALSE,
				reminder_hour INTEGER NOT NULL DEFAULT 18,
				telegram_chat_id BIGINT NOT NULL DEFAULT 0,
				updated_at TIMESTAMP NOT NULL
			)`},
		{"statistics", `
			CREATE TABLE IF NOT EXISTS statistics (
				user_id TEXT PRIMARY KEY,
				total_sessions INTEGER NOT NULL DEFAULT 0,
				total_words INTEGER NOT NULL DEFAULT 0,
				correct_words INTEGER NOT NULL DEFAULT 0,
				current_streak INTEGER NOT NULL DEFAULT 0,
				longest_streak INTEGER NOT NULL DEFAULT 0,
				last_practice_date TEXT NOT NULL DEFAULT '',
				updated_at TIMESTAMP NOT NULL
			)`},
		{"session_results", `
			CREATE TABLE IF NOT EXISTS session_results (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				language TEXT NOT NULL,
				list_id TEXT NOT NULL,
				level INTEGER NOT NULL,
				total_words INTEGER NOT NULL,
				correct INTEGER NOT NULL,
				score INTEGER NOT NULL,
				misspelled TEXT NOT NULL DEFAULT '[]',
				duration_ms BIGINT NOT NULL DEFAULT 0,
				completed_at TIMESTAMP NOT NULL
			)`},
		{"search_history", `
			CREATE TABLE IF NOT EXISTS search_history (
				user_id TEXT NOT NULL,
				query TEXT NOT NULL,
				searched_at TIMESTAMP NOT NULL,
				PRIMARY KEY (user_id, query)
			)`},
		{"word_reviews", `
			CREATE TABLE IF NOT EXISTS word_reviews (
				user_id TEXT NOT NULL,
				language TEXT NOT NULL,
				list_id TEXT NOT NULL,
				word TEXT NOT NULL,
				easiness_factor REAL NOT NULL DEFAULT 2.5,
				interval_days INTEGER NOT NULL DEFAULT 0,
				repetitions INTEGER NOT NULL DEFAULT 0,
				last_quality INTEGER NOT NULL DEFAULT 0,
				consecutive_right INTEGER NOT NULL DEFAULT 0,
				last_review_date TIMESTAMP NOT NULL,
				next_review_date TIMESTAMP NOT NULL,
				PRIMARY KEY (user_id, language, list_id, word)
			)`},
		{"pending_operations", `
			CREATE TABLE IF NOT EXISTS pending_operations (
				id ` + serial + `,
				kind TEXT NOT NULL,
				user_id TEXT NOT NULL,
				doc_id TEXT NOT NULL,
				payload TEXT NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				retry_count INTEGER NOT NULL DEFAULT 0,
				last_error TEXT NOT NULL DEFAULT '',
				version INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP NOT NULL
			)`},
	}

	for _, st := range statements {
		if _, err := db.Exec(st.query); err != nil {
			return fmt.Errorf("failed to create %s table: %w", st.name, err)
		}
	}
	return nil
}
