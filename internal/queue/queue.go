// Package queue holds local writes that still have to reach the remote store.
//
// Operations are kept in the local database so they survive restarts, and
// are flushed strictly in the order they were made.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/example/spellsync/internal/database"
	"github.com/example/spellsync/internal/remote"
	"github.com/example/spellsync/internal/retry"
	"github.com/example/spellsync/pkg/models"
)

// ErrFlushInProgress is returned when Flush is called while another flush runs
var ErrFlushInProgress = errors.New("flush already in progress")

// ErrInvalidOperation is returned for operations missing a kind, user or document
var ErrInvalidOperation = errors.New("invalid operation")

const DefaultMaxRetries = 3

// Applier pushes one operation to the remote store
type Applier interface {
	Apply(ctx context.Context, op models.PendingOperation) error
}

// ApplierFunc adapts a function to Applier
type ApplierFunc func(ctx context.Context, op models.PendingOperation) error

func (f ApplierFunc) Apply(ctx context.Context, op models.PendingOperation) error {
	return f(ctx, op)
}

// FlushReport summarizes a flush
type FlushReport struct {
	Applied   int
	Failed    int
	Dropped   int
	Remaining int
}

type Queue struct {
	repo       *database.OperationRepository
	logger     *zap.Logger
	policy     retry.Policy
	maxRetries int

	flushing sync.Mutex
}

type Option func(*Queue)

// WithMaxRetries sets how many failed flushes an operation survives
func WithMaxRetries(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxRetries = n
		}
	}
}

// WithRetryPolicy sets the backoff used for each apply attempt
func WithRetryPolicy(p retry.Policy) Option {
	return func(q *Queue) { q.policy = p }
}

func New(repo *database.OperationRepository, logger *zap.Logger, opts ...Option) *Queue {
	q := &Queue{
		repo:       repo,
		logger:     logger,
		policy:     retry.DefaultPolicy(),
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// NewOperation encodes a record as a pending write of the given kind.
// The record's own stamp becomes the operation timestamp.
func NewOperation(kind models.OperationKind, userID, docID string, record models.Timestamped) (models.PendingOperation, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return models.PendingOperation{}, fmt.Errorf("failed to encode %s operation: %w", kind, err)
	}
	return models.PendingOperation{
		Kind:      kind,
		UserID:    userID,
		DocID:     docID,
		Payload:   payload,
		UpdatedAt: record.Stamp(),
	}, nil
}

// Enqueue stores op. Settings, progress and statistics writes replace an
// older pending write for the same document.
func (q *Queue) Enqueue(ctx context.Context, op *models.PendingOperation) error {
	if !op.Kind.Valid() || op.UserID == "" || op.DocID == "" {
		return fmt.Errorf("%w: kind=%q user=%q doc=%q", ErrInvalidOperation, op.Kind, op.UserID, op.DocID)
	}
	if err := q.repo.Enqueue(ctx, op, op.Kind.Coalesces()); err != nil {
		return err
	}
	q.logger.Debug("Operation queued",
		zap.Int64("id", op.ID),
		zap.String("kind", string(op.Kind)),
		zap.String("doc", op.DocID))
	return nil
}

// Pending lists queued operations of a user in flush order
func (q *Queue) Pending(ctx context.Context, userID string) ([]models.PendingOperation, error) {
	return q.repo.List(ctx, userID)
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	return q.repo.Count(ctx)
}

// HasPending reports whether a document still has a write waiting
func (q *Queue) HasPending(ctx context.Context, kind models.OperationKind, userID, docID string) (bool, error) {
	return q.repo.HasPending(ctx, kind, userID, docID)
}

// Flush applies queued operations in order. A connectivity failure stops the
// flush and is returned so that later writes never overtake earlier ones.
func (q *Queue) Flush(ctx context.Context, applier Applier) (FlushReport, error) {
	var report FlushReport
	if !q.flushing.TryLock() {
		return report, ErrFlushInProgress
	}
	defer q.flushing.Unlock()

	ops, err := q.repo.List(ctx, "")
	if err != nil {
		return report, err
	}

	var stopErr error
	for _, op := range ops {
		err := retry.Do(ctx, q.policy, func(ctx context.Context) error {
			err := applier.Apply(ctx, op)
			if err != nil && !remote.IsUnavailable(err) {
				return retry.Permanent(err)
			}
			return err
		})
		if err == nil {
			if err := q.remove(ctx, op); err != nil {
				return report, err
			}
			report.Applied++
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			stopErr = ctxErr
			break
		}

		report.Failed++
		log := q.logger.With(
			zap.Int64("id", op.ID),
			zap.String("kind", string(op.Kind)),
			zap.String("doc", op.DocID),
			zap.Error(err))
		count, markErr := q.repo.MarkFailed(ctx, op.ID, op.Version, err)
		switch {
		case errors.Is(markErr, database.ErrOperationChanged), errors.Is(markErr, database.ErrNotFound):
			// the failed payload is no longer the queued one
			log.Debug("Operation replaced while it was being applied")
		case markErr != nil:
			return report, markErr
		case count >= q.maxRetries:
			if err := q.remove(ctx, op); err != nil {
				return report, err
			}
			report.Dropped++
			log.Warn("Dropping operation after repeated failures", zap.Int("retry_count", count))
		default:
			log.Info("Operation failed, will retry", zap.Int("retry_count", count))
		}

		if remote.IsUnavailable(err) {
			stopErr = err
			break
		}
	}

	remaining, err := q.repo.Count(ctx)
	if err != nil && stopErr == nil {
		stopErr = err
	}
	report.Remaining = remaining
	return report, stopErr
}

// remove deletes the version of op that was read. A newer payload merged in
// meanwhile stays queued for the next flush.
func (q *Queue) remove(ctx context.Context, op models.PendingOperation) error {
	err := q.repo.Delete(ctx, op.ID, op.Version)
	switch {
	case errors.Is(err, database.ErrOperationChanged):
		q.logger.Debug("Operation replaced while it was being applied, keeping it queued",
			zap.Int64("id", op.ID), zap.String("doc", op.DocID))
		return nil
	case errors.Is(err, database.ErrNotFound):
		return nil
	}
	return err
}
