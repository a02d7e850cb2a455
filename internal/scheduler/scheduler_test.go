package scheduler

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/spellsync/internal/config"
	"github.com/example/spellsync/internal/database"
	"github.com/example/spellsync/internal/notify"
	"github.com/example/spellsync/internal/syncer"
	"github.com/example/spellsync/pkg/models"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Reminder
}

func (f *fakeNotifier) SendReminder(_ context.Context, r notify.Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ChatID == 0 {
		return notify.ErrNoChat
	}
	f.sent = append(f.sent, r)
	return nil
}

type countingSyncer struct {
	calls atomic.Int32
}

func (c *countingSyncer) SyncNow(context.Context) (syncer.SyncReport, error) {
	c.calls.Add(1)
	return syncer.SyncReport{}, nil
}

func newRepos(t *testing.T) *database.Repositories {
	t.Helper()
	db, err := database.Connect(config.DatabaseConfig{
		Driver: "sqlite3",
		DSN:    filepath.Join(t.TempDir(), "scheduler.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return database.NewRepositories(db)
}

func TestCheckReminders(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)
	now := time.Date(2024, 7, 2, 19, 10, 0, 0, time.UTC)

	users := []struct {
		id       string
		hour     int
		chat     int64
		lastDay  string
		streak   int
		selected string
	}{
		{id: "at-risk", hour: 19, chat: 42, lastDay: "2024-07-01", streak: 3, selected: "animals"},
		{id: "done-today", hour: 19, chat: 43, lastDay: "2024-07-02", streak: 4},
		{id: "other-hour", hour: 8, chat: 44, lastDay: "2024-07-01", streak: 2},
		{id: "no-chat", hour: 19, lastDay: "2024-07-01", streak: 1},
		{id: "broken", hour: 19, chat: 45, lastDay: "2024-06-20", streak: 6},
	}
	for _, u := range users {
		require.NoError(t, repos.Settings.Save(ctx, &models.Settings{
			UserID:           u.id,
			WordsPerLevel:    10,
			PassScore:        80,
			ReminderEnabled:  true,
			ReminderHour:     u.hour,
			TelegramChatID:   u.chat,
			SelectedLanguage: "en",
			SelectedListID:   u.selected,
			UpdatedAt:        now,
		}))
		require.NoError(t, repos.Statistics.Save(ctx, &models.Statistics{
			UserID:           u.id,
			CurrentStreak:    u.streak,
			LongestStreak:    u.streak,
			LastPracticeDate: u.lastDay,
			UpdatedAt:        now,
		}))
	}
	require.NoError(t, repos.Reviews.Save(ctx, &models.WordReview{
		UserID: "at-risk", Language: "en", ListID: "animals", Word: "cat",
		EasinessFactor: 2.5, Interval: 1, Repetitions: 1,
		LastReviewDate: now.AddDate(0, 0, -2), NextReviewDate: now.AddDate(0, 0, -1),
	}))

	notifier := &fakeNotifier{}
	s := New(nil, repos, notifier, 0, time.UTC, zap.NewNop(), WithClock(func() time.Time { return now }))

	sent, err := s.CheckReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, notify.Reminder{UserID: "at-risk", ChatID: 42, Streak: 3, DueWords: 1}, notifier.sent[0])
}

func TestStartRunsSync(t *testing.T) {
	fake := &countingSyncer{}
	s := New(fake, newRepos(t), &fakeNotifier{}, 20*time.Millisecond, time.UTC, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	assert.Eventually(t, func() bool { return fake.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}
