// Package syncer keeps the local store and the remote document store in step.
//
// Writes go to the local database first and are queued. The Engine flushes
// the queue whenever the remote is reachable and reconciles both sides after
// every reconnect.
package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/spellsync/internal/queue"
	"github.com/example/spellsync/internal/remote"
	"github.com/example/spellsync/pkg/models"
)

const defaultProbeInterval = 15 * time.Second

// SyncReport is the outcome of SyncNow
type SyncReport struct {
	Flush     queue.FlushReport
	Reconcile Report
}

type Engine struct {
	userID     string
	queue      *queue.Queue
	remote     remote.DocumentStore
	reconciler *Reconciler
	logger     *zap.Logger

	probeInterval time.Duration

	mu     sync.RWMutex
	online bool

	syncMu sync.Mutex
	nudge  chan struct{}
}

type Option func(*Engine)

func WithProbeInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.probeInterval = d
		}
	}
}

// NewEngine creates an engine for one user. It starts offline; the first
// successful probe counts as a reconnect.
func NewEngine(userID string, q *queue.Queue, store remote.DocumentStore, rec *Reconciler, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		userID:        userID,
		queue:         q,
		remote:        store,
		reconciler:    rec,
		logger:        logger.With(zap.String("user_id", userID)),
		probeInterval: defaultProbeInterval,
		nudge:         make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Online reports the last known connectivity state
func (e *Engine) Online() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.online
}

// setOnline returns the previous state
func (e *Engine) setOnline(online bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.online
	e.online = online
	if prev != online {
		if online {
			e.logger.Info("Remote store reachable")
		} else {
			e.logger.Warn("Remote store unreachable, working offline")
		}
	}
	return prev
}

// Write queues op and asks for a flush. Every synced mutation goes through
// here after it has been stored locally.
func (e *Engine) Write(ctx context.Context, op *models.PendingOperation) error {
	if err := e.queue.Enqueue(ctx, op); err != nil {
		return err
	}
	e.Nudge()
	return nil
}

// Nudge asks Run to flush soon. It never blocks.
func (e *Engine) Nudge() {
	select {
	case e.nudge <- struct{}{}:
	default:
	}
}

// Probe pings the remote store. Coming back online triggers a full sync.
func (e *Engine) Probe(ctx context.Context) bool {
	err := e.remote.Ping(ctx)
	if err != nil {
		e.setOnline(false)
		e.logger.Debug("Probe failed", zap.Error(err))
		return false
	}
	if !e.setOnline(true) {
		if _, err := e.SyncNow(ctx); err != nil {
			e.logger.Error("Sync after reconnect failed", zap.Error(err))
		}
	}
	return e.Online()
}

// Flush pushes queued operations. It waits for a running SyncNow so that a
// nudge never makes a scheduled sync skip reconciliation.
func (e *Engine) Flush(ctx context.Context) (queue.FlushReport, error) {
	e.syncMu.Lock()
	defer e.syncMu.Unlock()
	return e.flush(ctx)
}

func (e *Engine) flush(ctx context.Context) (queue.FlushReport, error) {
	report, err := e.queue.Flush(ctx, queue.ApplierFunc(e.apply))
	if remote.IsUnavailable(err) {
		e.setOnline(false)
	}
	return report, err
}

// SyncNow flushes the queue and reconciles, regardless of the known state
func (e *Engine) SyncNow(ctx context.Context) (SyncReport, error) {
	e.syncMu.Lock()
	defer e.syncMu.Unlock()

	var out SyncReport
	var err error
	out.Flush, err = e.flush(ctx)
	if err != nil {
		return out, err
	}
	out.Reconcile, err = e.reconciler.Reconcile(ctx, e.userID)
	if err != nil {
		if remote.IsUnavailable(err) {
			e.setOnline(false)
		}
		return out, err
	}
	e.setOnline(true)
	return out, nil
}

// Run probes periodically and flushes on nudges until ctx ends
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("Sync engine started", zap.Duration("probe_interval", e.probeInterval))
	e.Probe(ctx)

	ticker := time.NewTicker(e.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Sync engine stopped")
			return nil
		case <-ticker.C:
			e.Probe(ctx)
		case <-e.nudge:
			if !e.Online() {
				continue
			}
			report, err := e.Flush(ctx)
			switch {
			case errors.Is(err, queue.ErrFlushInProgress), errors.Is(err, context.Canceled):
			case err != nil:
				e.logger.Warn("Flush failed", zap.Error(err), zap.Int("remaining", report.Remaining))
			case report.Applied > 0 || report.Dropped > 0:
				e.logger.Debug("Flushed",
					zap.Int("applied", report.Applied),
					zap.Int("dropped", report.Dropped),
					zap.Int("remaining", report.Remaining))
			}
		}
	}
}

// apply writes one queued operation. A coalescing write loses to a remote
// document that is already newer.
func (e *Engine) apply(ctx context.Context, op models.PendingOperation) error {
	ref := remote.RefFor(op)
	stamp := models.NormalizeStamp(op.UpdatedAt)

	if op.Kind.Coalesces() {
		cur, err := e.remote.Get(ctx, ref)
		switch {
		case err == nil:
			if models.NormalizeStamp(cur.UpdatedAt).After(stamp) {
				e.logger.Debug("Remote document is newer, skipping", zap.String("doc", ref.Path()))
				return nil
			}
		case errors.Is(err, remote.ErrNotFound):
		default:
			return err
		}
	}
	return e.remote.Set(ctx, remote.Document{Ref: ref, Data: op.Payload, UpdatedAt: stamp})
}
