package practice

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/spellsync/internal/config"
	"github.com/example/spellsync/internal/database"
	"github.com/example/spellsync/internal/queue"
	"github.com/example/spellsync/internal/spaced_repetition"
	"github.com/example/spellsync/internal/wordlist"
	"github.com/example/spellsync/pkg/models"
)

var (
	// ErrNothingDue is returned when a review has no words to offer
	ErrNothingDue = errors.New("no words due for review")
	// ErrInvalidSettings is returned when a settings change is out of range
	ErrInvalidSettings = errors.New("invalid settings")
	// ErrNoListSelected is returned when an operation needs a selected list
	ErrNoListSelected = errors.New("no word list selected")
)

const searchLimit = 50

// Writer queues a synced mutation. *syncer.Engine implements it.
type Writer interface {
	Write(ctx context.Context, op *models.PendingOperation) error
}

// Service is the application state layer for one user. Every change is
// stored locally first and then handed to the writer for syncing.
type Service struct {
	userID  string
	repos   *database.Repositories
	catalog *wordlist.Catalog
	writer  Writer
	sm2     *spaced_repetition.SM2
	cfg     config.PracticeConfig
	loc     *time.Location
	logger  *zap.Logger

	now func() time.Time
	rng *rand.Rand
}

type Option func(*Service)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithShuffle fixes the word order source of new sessions
func WithShuffle(r *rand.Rand) Option {
	return func(s *Service) { s.rng = r }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func NewService(userID string, repos *database.Repositories, catalog *wordlist.Catalog, writer Writer,
	cfg config.PracticeConfig, logger *zap.Logger, opts ...Option) *Service {
	sm := spaced_repetition.NewSM2()
	if cfg.MasteryStreak > 0 {
		sm.MasteryStreak = cfg.MasteryStreak
	}
	s := &Service{
		userID:  userID,
		repos:   repos,
		catalog: catalog,
		writer:  writer,
		sm2:     sm,
		cfg:     cfg,
		loc:     time.Local,
		logger:  logger.With(zap.String("user_id", userID)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) stamp() time.Time {
	return models.NormalizeStamp(s.now())
}

func (s *Service) sessionOptions() []SessionOption {
	opts := []SessionOption{WithSessionClock(s.now)}
	if s.rng != nil {
		opts = append(opts, WithRand(s.rng))
	}
	return opts
}

func (s *Service) write(ctx context.Context, kind models.OperationKind, docID string, record models.Timestamped) error {
	op, err := queue.NewOperation(kind, s.userID, docID, record)
	if err != nil {
		return err
	}
	if err := s.writer.Write(ctx, &op); err != nil {
		return fmt.Errorf("failed to queue %s write: %w", kind, err)
	}
	return nil
}

// Settings returns the stored settings or the defaults
func (s *Service) Settings(ctx context.Context) (*models.Settings, error) {
	settings, err := s.repos.Settings.Get(ctx, s.userID)
	if errors.Is(err, database.ErrNotFound) {
		return &models.Settings{
			UserID:        s.userID,
			WordsPerLevel: s.cfg.WordsPerLevel,
			PassScore:     s.cfg.PassScore,
			SoundEnabled:  true,
		}, nil
	}
	return settings, err
}

// UpdateSettings applies change to the current settings and stores them
func (s *Service) UpdateSettings(ctx context.Context, change func(*models.Settings)) (*models.Settings, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	change(settings)
	settings.UserID = s.userID

	if err := validateSettings(settings); err != nil {
		return nil, err
	}
	settings.UpdatedAt = s.stamp()

	if err := s.repos.Settings.Save(ctx, settings); err != nil {
		return nil, err
	}
	if err := s.write(ctx, models.OpSettings, models.SettingsDocID, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func validateSettings(st *models.Settings) error {
	switch {
	case st.WordsPerLevel < 1:
		return fmt.Errorf("%w: words per level must be positive", ErrInvalidSettings)
	case st.PassScore < 0 || st.PassScore > 100:
		return fmt.Errorf("%w: pass score must be between 0 and 100", ErrInvalidSettings)
	case st.ReminderHour < 0 || st.ReminderHour > 23:
		return fmt.Errorf("%w: reminder hour must be between 0 and 23", ErrInvalidSettings)
	}
	return nil
}

// SelectList makes a list the current one
func (s *Service) SelectList(ctx context.Context, listID string) (*models.Settings, error) {
	list, err := s.catalog.Get(ctx, listID)
	if err != nil {
		return nil, err
	}
	return s.UpdateSettings(ctx, func(st *models.Settings) {
		st.SelectedLanguage = list.Language
		st.SelectedListID = list.ID
	})
}

// Progress returns the progress on a list, empty when never practiced
func (s *Service) Progress(ctx context.Context, list *models.WordList) (*models.Progress, error) {
	p, err := s.repos.Progress.Get(ctx, s.userID, list.Language, list.ID)
	if errors.Is(err, database.ErrNotFound) {
		return &models.Progress{UserID: s.userID, Language: list.Language, ListID: list.ID}, nil
	}
	return p, err
}

// Statistics returns the user's statistics with the streak as of today
func (s *Service) Statistics(ctx context.Context) (*models.Statistics, error) {
	stats, err := s.repos.Statistics.Get(ctx, s.userID)
	if errors.Is(err, database.ErrNotFound) {
		return &models.Statistics{UserID: s.userID}, nil
	}
	if err != nil {
		return nil, err
	}
	stats.CurrentStreak = CurrentStreak(stats, s.now().In(s.loc))
	return stats, nil
}

func (s *Service) resolveList(ctx context.Context, listID string) (*models.WordList, *models.Settings, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, nil, err
	}
	if listID == "" {
		listID = settings.SelectedListID
	}
	if listID == "" {
		return nil, nil, ErrNoListSelected
	}
	list, err := s.catalog.Get(ctx, listID)
	if err != nil {
		return nil, nil, err
	}
	return list, settings, nil
}

// StartLevel starts a session on one level of a list. An empty listID means
// the selected list.
func (s *Service) StartLevel(ctx context.Context, listID string, level int) (*Session, error) {
	list, settings, err := s.resolveList(ctx, listID)
	if err != nil {
		return nil, err
	}
	words, err := wordlist.LevelWords(list, level, settings.WordsPerLevel)
	if err != nil {
		return nil, err
	}
	progress, err := s.Progress(ctx, list)
	if err != nil {
		return nil, err
	}
	if !IsUnlocked(progress, level) {
		return nil, fmt.Errorf("level %d of %s: %w", level, list.ID, ErrLevelLocked)
	}
	return NewSession(s.userID, list, level, words, s.sessionOptions()...), nil
}

// StartReview starts a session on the words of a list that are due. Words of
// completed levels that were never reviewed are due as well.
func (s *Service) StartReview(ctx context.Context, listID string) (*Session, error) {
	list, settings, err := s.resolveList(ctx, listID)
	if err != nil {
		return nil, err
	}
	progress, err := s.Progress(ctx, list)
	if err != nil {
		return nil, err
	}
	reviews, err := s.repos.Reviews.ListByList(ctx, s.userID, list.Language, list.ID)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(reviews))
	for _, r := range reviews {
		known[Normalize(r.Word)] = true
	}
	for i, words := range wordlist.Levels(list, settings.WordsPerLevel) {
		if !progress.IsCompleted(i + 1) {
			continue
		}
		for _, w := range words {
			if !known[Normalize(w.Text)] {
				reviews = append(reviews, spaced_repetition.NewReview(s.userID, list.Language, list.ID, w.Text))
			}
		}
	}

	due := s.sm2.NextDue(reviews, s.now(), s.cfg.ReviewLimit)
	if len(due) == 0 {
		return nil, ErrNothingDue
	}
	words := make([]models.Word, 0, len(due))
	for _, r := range due {
		w, ok := wordlist.Lookup(list, r.Word)
		if !ok {
			w = models.Word{Text: r.Word}
		}
		words = append(words, w)
	}
	return NewSession(s.userID, list, ReviewLevel, words, s.sessionOptions()...), nil
}

// DueCount returns how many reviewed words of a list are due now
func (s *Service) DueCount(ctx context.Context, list *models.WordList) (int, error) {
	due, err := s.repos.Reviews.Due(ctx, s.userID, list.Language, list.ID, s.now())
	if err != nil {
		return 0, err
	}
	return len(due), nil
}

// Completion is what finishing a session changed
type Completion struct {
	Result         models.SessionResult
	Progress       *models.Progress
	Statistics     *models.Statistics
	LevelCompleted bool
	NewlyMastered  []string
}

// CompleteSession records a session: its result, the review schedule of its
// words, progress on the list and statistics. Unfinished sessions count the
// unanswered words as wrong.
func (s *Service) CompleteSession(ctx context.Context, session *Session) (*Completion, error) {
	now := s.stamp()
	result := session.Result()
	result.UserID = s.userID
	result.CompletedAt = now

	if err := s.repos.Results.Create(ctx, &result); err != nil {
		return nil, err
	}
	if err := s.write(ctx, models.OpResults, result.ID, &result); err != nil {
		return nil, err
	}

	mastered, err := s.updateReviews(ctx, session, now)
	if err != nil {
		return nil, err
	}

	progress, completed, err := s.updateProgress(ctx, session, result, mastered, now)
	if err != nil {
		return nil, err
	}

	stats, err := s.updateStatistics(ctx, result, now)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Session completed",
		zap.String("list_id", session.ListID),
		zap.Int("level", session.Level),
		zap.Int("score", result.Score),
		zap.Bool("level_completed", completed),
		zap.Int("streak", stats.CurrentStreak))

	return &Completion{
		Result:         result,
		Progress:       progress,
		Statistics:     stats,
		LevelCompleted: completed,
		NewlyMastered:  mastered,
	}, nil
}

func (s *Service) updateReviews(ctx context.Context, session *Session, now time.Time) ([]string, error) {
	var mastered []string
	for _, o := range session.Outcomes() {
		if !o.Answered && !o.Missed {
			continue
		}

		review, err := s.repos.Reviews.Get(ctx, s.userID, session.Language, session.ListID, o.Word)
		if errors.Is(err, database.ErrNotFound) {
			r := spaced_repetition.NewReview(s.userID, session.Language, session.ListID, o.Word)
			review, err = &r, nil
		}
		if err != nil {
			return nil, err
		}

		before := s.sm2.IsMastered(review)
		s.sm2.Process(review, spaced_repetition.QualityFor(o.Answered, o.FirstTry), now)
		if err := s.repos.Reviews.Save(ctx, review); err != nil {
			return nil, err
		}
		if !before && s.sm2.IsMastered(review) {
			mastered = append(mastered, o.Word)
		}
	}
	return mastered, nil
}

func (s *Service) updateProgress(ctx context.Context, session *Session, result models.SessionResult, mastered []string, now time.Time) (*models.Progress, bool, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, false, err
	}
	progress, err := s.Progress(ctx, &models.WordList{ID: session.ListID, Language: session.Language})
	if err != nil {
		return nil, false, err
	}

	completed := false
	if session.Level != ReviewLevel {
		progress.RecordScore(session.Level, result.Score)
		if result.Score >= settings.PassScore && !progress.IsCompleted(session.Level) {
			progress.MarkCompleted(session.Level)
			completed = true
		}
	}
	progress.AddMastered(mastered...)
	progress.UpdatedAt = now

	if err := s.repos.Progress.Save(ctx, progress); err != nil {
		return nil, false, err
	}
	if err := s.write(ctx, models.OpProgress, progress.DocID(), progress); err != nil {
		return nil, false, err
	}
	return progress, completed, nil
}

func (s *Service) updateStatistics(ctx context.Context, result models.SessionResult, now time.Time) (*models.Statistics, error) {
	stats, err := s.repos.Statistics.Get(ctx, s.userID)
	if errors.Is(err, database.ErrNotFound) {
		stats, err = &models.Statistics{UserID: s.userID}, nil
	}
	if err != nil {
		return nil, err
	}

	stats.TotalSessions++
	stats.TotalWords += result.TotalWords
	stats.CorrectWords += result.Correct
	RecordPractice(stats, now.In(s.loc))
	stats.UpdatedAt = now

	if err := s.repos.Statistics.Save(ctx, stats); err != nil {
		return nil, err
	}
	if err := s.write(ctx, models.OpStatistics, models.StatisticsDocID, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// Overview returns the level states of a list, the selected one when listID is empty
func (s *Service) Overview(ctx context.Context, listID string) ([]LevelState, error) {
	list, settings, err := s.resolveList(ctx, listID)
	if err != nil {
		return nil, err
	}
	progress, err := s.Progress(ctx, list)
	if err != nil {
		return nil, err
	}
	return Overview(list, progress, settings.WordsPerLevel), nil
}

// Search records the query and searches the word lists of the selected
// language, or of every language when none is selected
func (s *Service) Search(ctx context.Context, query string) ([]wordlist.Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if err := s.repos.SearchHistory.Record(ctx, s.userID, query, s.now()); err != nil {
		return nil, err
	}
	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	return s.catalog.Search(ctx, settings.SelectedLanguage, query, searchLimit)
}

// RecentSearches returns the latest distinct queries, newest first
func (s *Service) RecentSearches(ctx context.Context, limit int) ([]models.SearchHistoryEntry, error) {
	return s.repos.SearchHistory.Recent(ctx, s.userID, limit)
}

func (s *Service) ClearSearchHistory(ctx context.Context) error {
	return s.repos.SearchHistory.Clear(ctx, s.userID)
}

// History returns past session results, newest first
func (s *Service) History(ctx context.Context, limit int) ([]*models.SessionResult, error) {
	results, err := s.repos.Results.ListByUser(ctx, s.userID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
