package syncer

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/example/spellsync/internal/config"
	"github.com/example/spellsync/internal/database"
	"github.com/example/spellsync/internal/queue"
	"github.com/example/spellsync/internal/remote"
	"github.com/example/spellsync/internal/retry"
	"github.com/example/spellsync/pkg/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const user = "u1"

type fixture struct {
	repos  *database.Repositories
	store  *remote.MemoryStore
	queue  *queue.Queue
	engine *Engine
	rec    *Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Connect(config.DatabaseConfig{
		Driver: "sqlite3",
		DSN:    filepath.Join(t.TempDir(), "sync.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repos := database.NewRepositories(db)
	store := remote.NewMemoryStore()
	q := queue.New(repos.Operations, zap.NewNop(), queue.WithRetryPolicy(retry.Policy{
		MaxAttempts:     1,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	}))
	rec := NewReconciler(repos, store, zap.NewNop())
	engine := NewEngine(user, q, store, rec, zap.NewNop(), WithProbeInterval(10*time.Millisecond))
	return &fixture{repos: repos, store: store, queue: q, engine: engine, rec: rec}
}

func at(minute int) time.Time {
	return time.Date(2024, 6, 1, 12, minute, 0, 0, time.UTC)
}

func putRemote(t *testing.T, store remote.DocumentStore, collection, id string, v models.Timestamped) {
	t.Helper()
	doc, err := remote.NewDocument(remote.DocRef{UserID: user, Collection: collection, ID: id}, v, v.Stamp())
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), doc))
}

func getRemote(t *testing.T, store remote.DocumentStore, collection, id string, v interface{}) remote.Document {
	t.Helper()
	doc, err := store.Get(context.Background(), remote.DocRef{UserID: user, Collection: collection, ID: id})
	require.NoError(t, err)
	require.NoError(t, doc.Decode(v))
	return doc
}

func TestReconcileLastWriteWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// local settings newer than remote
	require.NoError(t, f.repos.Settings.Save(ctx, &models.Settings{UserID: user, ReminderHour: 8, UpdatedAt: at(10)}))
	putRemote(t, f.store, remote.CollectionSettings, models.SettingsDocID, &models.Settings{UserID: user, ReminderHour: 6, UpdatedAt: at(5)})

	// remote statistics newer than local
	require.NoError(t, f.repos.Statistics.Save(ctx, &models.Statistics{UserID: user, TotalSessions: 1, UpdatedAt: at(1)}))
	putRemote(t, f.store, remote.CollectionStatistics, models.StatisticsDocID, &models.Statistics{UserID: user, TotalSessions: 4, UpdatedAt: at(2)})

	// progress present on one side only, plus one identical pair
	require.NoError(t, f.repos.Progress.Save(ctx, &models.Progress{UserID: user, Language: "en", ListID: "local", UpdatedAt: at(3)}))
	putRemote(t, f.store, remote.CollectionProgress, "en_remote", &models.Progress{UserID: user, Language: "en", ListID: "remote", CompletedLevels: []int{1}, UpdatedAt: at(3)})
	same := &models.Progress{UserID: user, Language: "fr", ListID: "same", UpdatedAt: at(4)}
	require.NoError(t, f.repos.Progress.Save(ctx, same))
	putRemote(t, f.store, remote.CollectionProgress, same.DocID(), same)

	report, err := f.rec.Reconcile(ctx, user)
	require.NoError(t, err)

	assert.Equal(t, CollectionReport{Pushed: 1}, report.Settings)
	assert.Equal(t, CollectionReport{Pulled: 1}, report.Statistics)
	assert.Equal(t, CollectionReport{Pushed: 1, Pulled: 1, Unchanged: 1}, report.Progress)

	var s models.Settings
	getRemote(t, f.store, remote.CollectionSettings, models.SettingsDocID, &s)
	assert.Equal(t, 8, s.ReminderHour)

	stats, err := f.repos.Statistics.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalSessions)

	pulled, err := f.repos.Progress.Get(ctx, user, "en", "remote")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, pulled.CompletedLevels)

	var pushed models.Progress
	getRemote(t, f.store, remote.CollectionProgress, "en_local", &pushed)
	assert.Equal(t, "local", pushed.ListID)
}

func TestReconcileUnionsResults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.repos.Results.Create(ctx, &models.SessionResult{ID: "local", UserID: user, Score: 90, CompletedAt: at(1)}))
	require.NoError(t, f.repos.Results.Create(ctx, &models.SessionResult{ID: "both", UserID: user, Score: 50, CompletedAt: at(2)}))
	putRemote(t, f.store, remote.CollectionResults, "both", &models.SessionResult{ID: "both", UserID: user, Score: 50, CompletedAt: at(2)})
	putRemote(t, f.store, remote.CollectionResults, "remote", &models.SessionResult{ID: "remote", UserID: user, Score: 70, CompletedAt: at(3)})

	report, err := f.rec.Reconcile(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, CollectionReport{Pushed: 1, Pulled: 1, Unchanged: 1}, report.Results)

	local, err := f.repos.Results.ListByUser(ctx, user)
	require.NoError(t, err)
	assert.Len(t, local, 3)

	docs, err := f.store.List(ctx, user, remote.CollectionResults)
	require.NoError(t, err)
	assert.Len(t, docs, 3)

	// second pass finds nothing to do
	report, err = f.rec.Reconcile(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Results.Unchanged)
	assert.Zero(t, report.Total().Pushed+report.Total().Pulled)
}

func TestReconcileOffline(t *testing.T) {
	f := newFixture(t)
	f.store.SetOffline(true)

	_, err := f.rec.Reconcile(context.Background(), user)
	assert.True(t, remote.IsUnavailable(err))
}

func writeSettings(t *testing.T, f *fixture, hour int, stamp time.Time) {
	t.Helper()
	s := &models.Settings{UserID: user, ReminderHour: hour, UpdatedAt: stamp}
	require.NoError(t, f.repos.Settings.Save(context.Background(), s))
	op, err := queue.NewOperation(models.OpSettings, user, models.SettingsDocID, s)
	require.NoError(t, err)
	require.NoError(t, f.engine.Write(context.Background(), &op))
}

func TestEngineQueuesWhileOffline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.SetOffline(true)

	assert.False(t, f.engine.Probe(ctx))
	writeSettings(t, f, 7, at(1))
	writeSettings(t, f, 9, at(2))

	n, err := f.queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f.store.SetOffline(false)
	assert.True(t, f.engine.Probe(ctx))

	n, err = f.queue.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	var s models.Settings
	doc := getRemote(t, f.store, remote.CollectionSettings, models.SettingsDocID, &s)
	assert.Equal(t, 9, s.ReminderHour)
	assert.True(t, at(2).Equal(doc.UpdatedAt))
}

func TestEngineGoesOfflineOnFlushFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.True(t, f.engine.Probe(ctx))

	f.store.SetOffline(true)
	writeSettings(t, f, 7, at(1))

	_, err := f.engine.Flush(ctx)
	assert.True(t, remote.IsUnavailable(err))
	assert.False(t, f.engine.Online())

	n, err := f.queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEngineSkipsStaleWrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	putRemote(t, f.store, remote.CollectionSettings, models.SettingsDocID, &models.Settings{UserID: user, ReminderHour: 21, UpdatedAt: at(30)})

	writeSettings(t, f, 7, at(1))
	report, err := f.engine.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Flush.Applied)
	assert.Equal(t, 1, report.Reconcile.Settings.Pulled)

	var s models.Settings
	getRemote(t, f.store, remote.CollectionSettings, models.SettingsDocID, &s)
	assert.Equal(t, 21, s.ReminderHour)

	local, err := f.repos.Settings.Get(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 21, local.ReminderHour)
	assert.True(t, f.engine.Online())
}

func TestEngineRunFlushesOnNudge(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.engine.Run(ctx) }()

	require.Eventually(t, f.engine.Online, time.Second, 5*time.Millisecond)
	writeSettings(t, f, 5, at(1))

	assert.Eventually(t, func() bool {
		_, err := f.store.Get(context.Background(), remote.DocRef{UserID: user, Collection: remote.CollectionSettings, ID: models.SettingsDocID})
		return err == nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestEngineRunRecoversAfterOutage(t *testing.T) {
	f := newFixture(t)
	f.store.SetOffline(true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.engine.Run(ctx) }()

	writeSettings(t, f, 6, at(1))
	time.Sleep(30 * time.Millisecond)
	assert.False(t, f.engine.Online())

	f.store.SetOffline(false)
	assert.Eventually(t, func() bool {
		n, err := f.queue.Len(context.Background())
		return err == nil && n == 0
	}, time.Second, 5*time.Millisecond)
	assert.True(t, f.engine.Online())

	cancel()
	assert.NoError(t, <-done)
}

// gatedStore holds every Set until release is closed.
type gatedStore struct {
	*remote.MemoryStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Set(ctx context.Context, doc remote.Document) error {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.MemoryStore.Set(ctx, doc)
}

func TestEngineSyncWaitsForRunningFlush(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	store := &gatedStore{MemoryStore: f.store, entered: make(chan struct{}), release: make(chan struct{})}
	engine := NewEngine(user, f.queue, store, NewReconciler(f.repos, store, zap.NewNop()), zap.NewNop())

	s := &models.Settings{UserID: user, ReminderHour: 7, UpdatedAt: at(1)}
	require.NoError(t, f.repos.Settings.Save(ctx, s))
	op, err := queue.NewOperation(models.OpSettings, user, models.SettingsDocID, s)
	require.NoError(t, err)
	require.NoError(t, engine.Write(ctx, &op))

	flushed := make(chan error, 1)
	go func() {
		_, err := engine.Flush(ctx)
		flushed <- err
	}()
	<-store.entered

	synced := make(chan error, 1)
	go func() {
		_, err := engine.SyncNow(ctx)
		synced <- err
	}()

	select {
	case err := <-synced:
		t.Fatalf("sync returned while a flush was running: %v", err)
	case <-time.After(30 * time.Millisecond):
	}

	close(store.release)
	require.NoError(t, <-flushed)
	require.NoError(t, <-synced)

	n, err := f.queue.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
