package practice

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/spellsync/internal/config"
	"github.com/example/spellsync/internal/database"
	"github.com/example/spellsync/internal/wordlist"
	"github.com/example/spellsync/pkg/models"
)

type recordingWriter struct {
	mu  sync.Mutex
	ops []models.PendingOperation
}

func (w *recordingWriter) Write(_ context.Context, op *models.PendingOperation) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ops = append(w.ops, *op)
	return nil
}

func (w *recordingWriter) kinds() []models.OperationKind {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []models.OperationKind
	for _, op := range w.ops {
		out = append(out, op.Kind)
	}
	return out
}

type fixture struct {
	svc    *Service
	repos  *database.Repositories
	writer *recordingWriter
	now    time.Time
}

func (f *fixture) clock() time.Time { return f.now }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.Connect(config.DatabaseConfig{
		Driver: "sqlite3",
		DSN:    filepath.Join(t.TempDir(), "practice.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repos := database.NewRepositories(db)

	dir := t.TempDir()
	var body strings.Builder
	body.WriteString("# name: Animals\n# language: en\n")
	for i := 1; i <= 6; i++ {
		fmt.Fprintf(&body, "animal%d - animal number %d\n", i, i)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "animals.txt"), []byte(body.String()), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fr.txt"), []byte("# language: fr\nchat - cat\n"), 0644))

	catalog := wordlist.NewCatalog(repos.WordLists, dir, zap.NewNop())
	_, err = catalog.Reload(ctx)
	require.NoError(t, err)

	f := &fixture{
		repos:  repos,
		writer: &recordingWriter{},
		now:    time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC),
	}
	cfg := config.DefaultConfig().Practice
	cfg.WordsPerLevel = 3
	f.svc = NewService("u1", repos, catalog, f.writer, cfg, zap.NewNop(),
		WithClock(f.clock),
		WithShuffle(rand.New(rand.NewPCG(3, 4))),
		WithLocation(time.UTC))
	return f
}

func spellAll(s *Session, wrong map[string]bool) {
	for !s.Done() {
		w, _ := s.Current()
		if wrong[w.Text] {
			delete(wrong, w.Text)
			_, _ = s.Submit(w.Text + "x")
			continue
		}
		_, _ = s.Submit(w.Text)
	}
}

func TestSettingsDefaultsAndUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	st, err := f.svc.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.WordsPerLevel)
	assert.Equal(t, 80, st.PassScore)

	_, err = f.svc.UpdateSettings(ctx, func(s *models.Settings) { s.ReminderHour = 24 })
	assert.ErrorIs(t, err, ErrInvalidSettings)
	assert.Empty(t, f.writer.ops)

	st, err = f.svc.UpdateSettings(ctx, func(s *models.Settings) {
		s.ReminderEnabled = true
		s.ReminderHour = 19
	})
	require.NoError(t, err)
	assert.True(t, f.now.Equal(st.UpdatedAt))
	assert.Equal(t, []models.OperationKind{models.OpSettings}, f.writer.kinds())

	stored, err := f.repos.Settings.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 19, stored.ReminderHour)
}

func TestSelectList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.StartLevel(ctx, "", 1)
	assert.ErrorIs(t, err, ErrNoListSelected)

	st, err := f.svc.SelectList(ctx, "fr")
	require.NoError(t, err)
	assert.Equal(t, "fr", st.SelectedLanguage)
	assert.Equal(t, "fr", st.SelectedListID)

	_, err = f.svc.SelectList(ctx, "missing")
	assert.ErrorIs(t, err, database.ErrNotFound)

	s, err := f.svc.StartLevel(ctx, "", 1)
	require.NoError(t, err)
	assert.Equal(t, "fr", s.ListID)
}

func TestLevelGating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.StartLevel(ctx, "animals", 2)
	assert.ErrorIs(t, err, ErrLevelLocked)
	_, err = f.svc.StartLevel(ctx, "animals", 3)
	assert.ErrorIs(t, err, wordlist.ErrNoSuchLevel)

	s, err := f.svc.StartLevel(ctx, "animals", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Remaining())

	spellAll(s, nil)
	c, err := f.svc.CompleteSession(ctx, s)
	require.NoError(t, err)
	assert.True(t, c.LevelCompleted)
	assert.Equal(t, 100, c.Result.Score)
	assert.Equal(t, []int{1}, c.Progress.CompletedLevels)

	_, err = f.svc.StartLevel(ctx, "animals", 2)
	assert.NoError(t, err)

	states, err := f.svc.Overview(ctx, "animals")
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, LevelCompleted, states[0].Status)
	assert.Equal(t, LevelOpen, states[1].Status)
}

func TestCompleteSessionWritesEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	s, err := f.svc.StartLevel(ctx, "animals", 1)
	require.NoError(t, err)
	first, _ := s.Current()
	spellAll(s, map[string]bool{first.Text: true})

	c, err := f.svc.CompleteSession(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 66, c.Result.Score)
	assert.False(t, c.LevelCompleted)
	assert.Equal(t, 66, c.Progress.LevelScores[1])
	assert.Equal(t, []string{first.Text}, c.Result.Misspelled)

	assert.Equal(t, []models.OperationKind{
		models.OpResults, models.OpProgress, models.OpStatistics,
	}, f.writer.kinds())

	results, err := f.svc.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, c.Result.ID, results[0].ID)

	review, err := f.repos.Reviews.Get(ctx, "u1", "en", "animals", first.Text)
	require.NoError(t, err)
	assert.Equal(t, 3, review.LastQuality)

	stats, err := f.svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalSessions)
	assert.Equal(t, 3, stats.TotalWords)
	assert.Equal(t, 2, stats.CorrectWords)
	assert.Equal(t, 1, stats.CurrentStreak)
}

func TestStreakAcrossDays(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	play := func() *Completion {
		s, err := f.svc.StartLevel(ctx, "animals", 1)
		require.NoError(t, err)
		spellAll(s, nil)
		c, err := f.svc.CompleteSession(ctx, s)
		require.NoError(t, err)
		return c
	}

	assert.Equal(t, 1, play().Statistics.CurrentStreak)
	assert.Equal(t, 1, play().Statistics.CurrentStreak)
	f.now = f.now.AddDate(0, 0, 1)
	assert.Equal(t, 2, play().Statistics.CurrentStreak)
	f.now = f.now.AddDate(0, 0, 3)

	stats, err := f.svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.CurrentStreak)

	c := play()
	assert.Equal(t, 1, c.Statistics.CurrentStreak)
	assert.Equal(t, 2, c.Statistics.LongestStreak)
}

func TestReviewAndMastery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.StartReview(ctx, "animals")
	assert.ErrorIs(t, err, ErrNothingDue)

	s, err := f.svc.StartLevel(ctx, "animals", 1)
	require.NoError(t, err)
	spellAll(s, nil)
	_, err = f.svc.CompleteSession(ctx, s)
	require.NoError(t, err)

	_, err = f.svc.StartReview(ctx, "animals")
	assert.ErrorIs(t, err, ErrNothingDue)

	var last *Completion
	for i := 0; i < 2; i++ {
		f.now = f.now.AddDate(0, 0, 10)
		list, err := f.svc.catalog.Get(ctx, "animals")
		require.NoError(t, err)
		n, err := f.svc.DueCount(ctx, list)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		r, err := f.svc.StartReview(ctx, "animals")
		require.NoError(t, err)
		assert.Equal(t, ReviewLevel, r.Level)
		spellAll(r, nil)
		last, err = f.svc.CompleteSession(ctx, r)
		require.NoError(t, err)
		assert.False(t, last.LevelCompleted)
	}

	assert.Len(t, last.NewlyMastered, 3)
	assert.Len(t, last.Progress.MasteredWords, 3)
}

func TestSearchRecordsHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	matches, err := f.svc.Search(ctx, "  CAT ")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "chat", matches[0].Word.Text)

	_, err = f.svc.SelectList(ctx, "animals")
	require.NoError(t, err)
	matches, err = f.svc.Search(ctx, "cat")
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = f.svc.Search(ctx, "animal2")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	none, err := f.svc.Search(ctx, "   ")
	require.NoError(t, err)
	assert.Nil(t, none)

	recent, err := f.svc.RecentSearches(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	require.NoError(t, f.svc.ClearSearchHistory(ctx))
	recent, err = f.svc.RecentSearches(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}
