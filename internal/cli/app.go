package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/example/spellsync/internal/config"
	"github.com/example/spellsync/internal/database"
	"github.com/example/spellsync/internal/notify"
	"github.com/example/spellsync/internal/practice"
	"github.com/example/spellsync/internal/queue"
	"github.com/example/spellsync/internal/remote"
	"github.com/example/spellsync/internal/retry"
	"github.com/example/spellsync/internal/scheduler"
	"github.com/example/spellsync/internal/syncer"
	"github.com/example/spellsync/internal/wordlist"
)

// App holds every component wired together for one user
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *sqlx.DB
	Repos    *database.Repositories
	Remote   remote.DocumentStore
	Queue    *queue.Queue
	Engine   *syncer.Engine
	Catalog  *wordlist.Catalog
	Practice *practice.Service
}

// OpenApp connects the local database and the remote store. With offline set
// the remote is an unreachable in-memory store, so every write stays queued.
func OpenApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, offline bool) (*App, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	var store remote.DocumentStore
	if offline {
		mem := remote.NewMemoryStore()
		mem.SetOffline(true)
		store = mem
	} else {
		store, err = remote.Open(ctx, cfg.Remote)
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	loc, err := cfg.Location()
	if err != nil {
		db.Close()
		store.Close()
		return nil, err
	}

	repos := database.NewRepositories(db)
	q := queue.New(repos.Operations, logger,
		queue.WithMaxRetries(cfg.Sync.MaxRetries),
		queue.WithRetryPolicy(retry.Policy{
			MaxAttempts:     cfg.Sync.MaxAttempts,
			InitialInterval: cfg.Sync.InitialBackoff,
			MaxInterval:     cfg.Sync.MaxBackoff,
			OnRetry: func(err error, wait time.Duration) {
				logger.Debug("Retrying remote write", zap.Error(err), zap.Duration("wait", wait))
			},
		}))
	engine := syncer.NewEngine(cfg.UserID, q, store, syncer.NewReconciler(repos, store, logger), logger,
		syncer.WithProbeInterval(cfg.Sync.ProbeInterval))
	catalog := wordlist.NewCatalog(repos.WordLists, cfg.WordLists.Dir, logger)
	svc := practice.NewService(cfg.UserID, repos, catalog, engine, cfg.Practice, logger,
		practice.WithLocation(loc))

	return &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Repos:    repos,
		Remote:   store,
		Queue:    q,
		Engine:   engine,
		Catalog:  catalog,
		Practice: svc,
	}, nil
}

// Notifier returns the Telegram notifier when a token is configured and a
// logging one otherwise
func (a *App) Notifier() notify.Notifier {
	if a.Config.Notify.Enabled && a.Config.Notify.TelegramToken != "" {
		tg, err := notify.NewTelegram(a.Config.Notify.TelegramToken, a.Logger)
		if err == nil {
			return tg
		}
		a.Logger.Warn("Telegram unavailable, reminders go to the log", zap.Error(err))
	}
	return notify.NewLog(a.Logger)
}

// Scheduler builds the background job scheduler
func (a *App) Scheduler() (*scheduler.Scheduler, error) {
	loc, err := a.Config.Location()
	if err != nil {
		return nil, err
	}
	return scheduler.New(a.Engine, a.Repos, a.Notifier(), a.Config.Sync.Interval, loc, a.Logger), nil
}

// TrySync pushes local changes when the remote store is reachable. The
// first successful probe runs a full sync; being offline is not an error.
func (a *App) TrySync(ctx context.Context) bool {
	return a.Engine.Probe(ctx)
}

func (a *App) Close() error {
	var errs []error
	if err := a.Remote.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close remote store: %w", err))
	}
	if err := a.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}
	_ = a.Logger.Sync()
	return errors.Join(errs...)
}
