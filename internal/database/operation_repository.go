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

// ErrOperationChanged is returned when an operation was replaced by a newer
// payload after it was read
var ErrOperationChanged = errors.New("pending operation changed")

// OperationRepository is the durable storage behind the operation queue
type OperationRepository struct {
	db *sqlx.DB
}

// NewOperationRepository creates a new repository instance
func NewOperationRepository(db *sqlx.DB) *OperationRepository {
	return &OperationRepository{db: db}
}

type operationRow struct {
	ID         int64     `db:"id"`
	Kind       string    `db:"kind"`
	UserID     string    `db:"user_id"`
	DocID      string    `db:"doc_id"`
	Payload    string    `db:"payload"`
	UpdatedAt  time.Time `db:"updated_at"`
	RetryCount int       `db:"retry_count"`
	LastError  string    `db:"last_error"`
	Version    int64     `db:"version"`
	CreatedAt  time.Time `db:"created_at"`
}

func (row operationRow) toModel() models.PendingOperation {
	return models.PendingOperation{
		ID:         row.ID,
		Kind:       models.OperationKind(row.Kind),
		UserID:     row.UserID,
		DocID:      row.DocID,
		Payload:    []byte(row.Payload),
		UpdatedAt:  row.UpdatedAt,
		RetryCount: row.RetryCount,
		LastError:  row.LastError,
		Version:    row.Version,
		CreatedAt:  row.CreatedAt,
	}
}

const operationColumns = "id, kind, user_id, doc_id, payload, updated_at, retry_count, last_error, version, created_at"

// Enqueue appends an operation. When coalesce is set and an operation for
// the same document is already pending, that operation takes the new payload
// instead and keeps its position in the queue.
func (r *OperationRepository) Enqueue(ctx context.Context, op *models.PendingOperation, coalesce bool) error {
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if coalesce {
		var existing struct {
			ID      int64 `db:"id"`
			Version int64 `db:"version"`
		}
		err := tx.GetContext(ctx, &existing, tx.Rebind(`
			SELECT id, version FROM pending_operations
			WHERE kind = ? AND user_id = ? AND doc_id = ?
			ORDER BY id ASC LIMIT 1
		`), string(op.Kind), op.UserID, op.DocID)
		switch {
		case err == nil:
			_, err = tx.ExecContext(ctx, tx.Rebind(`
				UPDATE pending_operations
				SET payload = ?, updated_at = ?, retry_count = 0, last_error = '', version = version + 1
				WHERE id = ?
			`), string(op.Payload), op.UpdatedAt, existing.ID)
			if err != nil {
				return fmt.Errorf("failed to coalesce operation: %w", err)
			}
			op.ID = existing.ID
			op.Version = existing.Version + 1
			op.RetryCount = 0
			op.LastError = ""
			return tx.Commit()
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("failed to look up pending operation: %w", err)
		}
	}

	op.Version = 0
	query := `
		INSERT INTO pending_operations (kind, user_id, doc_id, payload, updated_at, retry_count, last_error, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	args := []interface{}{string(op.Kind), op.UserID, op.DocID, string(op.Payload), op.UpdatedAt, op.RetryCount, op.LastError, op.Version, op.CreatedAt}

	if tx.DriverName() == "postgres" {
		// lib/pq doesn't support LastInsertId
		err = tx.QueryRowxContext(ctx, tx.Rebind(query+" RETURNING id"), args...).Scan(&op.ID)
		if err != nil {
			return fmt.Errorf("failed to enqueue operation: %w", err)
		}
	} else {
		result, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
		if err != nil {
			return fmt.Errorf("failed to enqueue operation: %w", err)
		}
		op.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert ID: %w", err)
		}
	}

	return tx.Commit()
}

// List returns pending operations in FIFO order. An empty userID lists all.
func (r *OperationRepository) List(ctx context.Context, userID string) ([]models.PendingOperation, error) {
	query := "SELECT " + operationColumns + " FROM pending_operations"
	var args []interface{}
	if userID != "" {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY id ASC"

	var rows []operationRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list pending operations: %w", err)
	}

	ops := make([]models.PendingOperation, 0, len(rows))
	for _, row := range rows {
		ops = append(ops, row.toModel())
	}
	return ops, nil
}

// Count returns the number of pending operations
func (r *OperationRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM pending_operations"); err != nil {
		return 0, fmt.Errorf("failed to count pending operations: %w", err)
	}
	return n, nil
}

// HasPending reports whether a document has an operation waiting
func (r *OperationRepository) HasPending(ctx context.Context, kind models.OperationKind, userID, docID string) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`
		SELECT COUNT(*) FROM pending_operations WHERE kind = ? AND user_id = ? AND doc_id = ?
	`), string(kind), userID, docID)
	if err != nil {
		return false, fmt.Errorf("failed to check pending operations: %w", err)
	}
	return n > 0, nil
}

// Delete removes an operation once it has been applied or dropped. Only the
// given version is removed: ErrOperationChanged means a newer payload took its
// place and the operation stays queued.
func (r *OperationRepository) Delete(ctx context.Context, id, version int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM pending_operations WHERE id = ? AND version = ?"), id, version)
	if err != nil {
		return fmt.Errorf("failed to delete operation: %w", err)
	}
	return r.checkAffected(ctx, res, id)
}

// MarkFailed increments the retry counter of one version of an operation and
// stores the error. It returns the new retry count.
func (r *OperationRepository) MarkFailed(ctx context.Context, id, version int64, cause error) (int, error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE pending_operations SET retry_count = retry_count + 1, last_error = ? WHERE id = ? AND version = ?
	`), msg, id, version)
	if err != nil {
		return 0, fmt.Errorf("failed to mark operation as failed: %w", err)
	}
	if err := r.checkAffected(ctx, res, id); err != nil {
		return 0, err
	}

	var count int
	err = r.db.GetContext(ctx, &count, r.db.Rebind("SELECT retry_count FROM pending_operations WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read retry count: %w", err)
	}
	return count, nil
}

// checkAffected tells a missing operation from one that was replaced
func (r *OperationRepository) checkAffected(ctx context.Context, res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}
	var exists int
	err = r.db.GetContext(ctx, &exists, r.db.Rebind("SELECT COUNT(*) FROM pending_operations WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to look up operation: %w", err)
	}
	if exists > 0 {
		return ErrOperationChanged
	}
	return ErrNotFound
}
