package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/spellsync/pkg/models"
)

// ErrBundledList is returned when trying to delete a list shipped with the app
var ErrBundledList = errors.New("bundled word lists cannot be deleted")

// WordListRepository handles database operations for word lists
type WordListRepository struct {
	db *sqlx.DB
}

// NewWordListRepository creates a new repository instance
func NewWordListRepository(db *sqlx.DB) *WordListRepository {
	return &WordListRepository{db: db}
}

// Save replaces a list and all of its words
func (r *WordListRepository) Save(ctx context.Context, list *models.WordList) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO word_lists (id, language, name, source, owner_id, created_at, updated_at)
		VALUES (:id, :language, :name, :source, :owner_id, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			language = excluded.language,
			name = excluded.name,
			source = excluded.source,
			owner_id = excluded.owner_id,
			updated_at = excluded.updated_at
	`, list)
	if err != nil {
		return fmt.Errorf("failed to save word list: %w", err)
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM list_words WHERE list_id = ?"), list.ID); err != nil {
		return fmt.Errorf("failed to clear list words: %w", err)
	}

	insert := tx.Rebind("INSERT INTO list_words (list_id, position, text, definition) VALUES (?, ?, ?, ?)")
	for i, w := range list.Words {
		if _, err := tx.ExecContext(ctx, insert, list.ID, i, w.Text, w.Definition); err != nil {
			return fmt.Errorf("failed to insert word %q: %w", w.Text, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetByID returns a list with its words in order
func (r *WordListRepository) GetByID(ctx context.Context, id string) (*models.WordList, error) {
	var list models.WordList
	err := r.db.GetContext(ctx, &list, r.db.Rebind(`
		SELECT id, language, name, source, owner_id, created_at, updated_at
		FROM word_lists WHERE id = ?
	`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get word list: %w", err)
	}

	err = r.db.SelectContext(ctx, &list.Words, r.db.Rebind(`
		SELECT text, definition FROM list_words WHERE list_id = ? ORDER BY position
	`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to get list words: %w", err)
	}
	return &list, nil
}

// ListByLanguage returns list headers (without words) for a language.
// An empty language returns every list.
func (r *WordListRepository) ListByLanguage(ctx context.Context, language string) ([]models.WordList, error) {
	query := "SELECT id, language, name, source, owner_id, created_at, updated_at FROM word_lists"
	var args []interface{}
	if language != "" {
		query += " WHERE language = ?"
		args = append(args, language)
	}
	query += " ORDER BY language, name"

	var lists []models.WordList
	if err := r.db.SelectContext(ctx, &lists, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get word lists: %w", err)
	}
	return lists, nil
}

// Languages returns the distinct languages that have at least one list
func (r *WordListRepository) Languages(ctx context.Context) ([]string, error) {
	var langs []string
	err := r.db.SelectContext(ctx, &langs, "SELECT DISTINCT language FROM word_lists ORDER BY language")
	if err != nil {
		return nil, fmt.Errorf("failed to get languages: %w", err)
	}
	return langs, nil
}

// Delete removes a user-created list
func (r *WordListRepository) Delete(ctx context.Context, id string) error {
	var source models.ListSource
	err := r.db.GetContext(ctx, &source, r.db.Rebind("SELECT source FROM word_lists WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get word list: %w", err)
	}
	if source == models.SourceBundled {
		return ErrBundledList
	}

	return r.remove(ctx, id)
}

// DeleteBundled removes a bundled list whose file is gone
func (r *WordListRepository) DeleteBundled(ctx context.Context, id string) error {
	var source models.ListSource
	err := r.db.GetContext(ctx, &source, r.db.Rebind("SELECT source FROM word_lists WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to get word list: %w", err)
	}
	if source != models.SourceBundled {
		return fmt.Errorf("word list %s is not bundled", id)
	}
	return r.remove(ctx, id)
}

func (r *WordListRepository) remove(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM list_words WHERE list_id = ?"), id); err != nil {
		return fmt.Errorf("failed to delete list words: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM word_lists WHERE id = ?"), id); err != nil {
		return fmt.Errorf("failed to delete word list: %w", err)
	}
	return tx.Commit()
}
