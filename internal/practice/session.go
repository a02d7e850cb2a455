// Package practice runs spelling sessions and keeps a user's settings,
// progress and statistics up to date.
package practice

import (
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/spellsync/pkg/models"
)

// ErrSessionDone is returned when answering a finished session
var ErrSessionDone = errors.New("session is finished")

// ReviewLevel is the level number of review sessions
const ReviewLevel = 0

// Answer is the verdict on one submitted spelling
type Answer struct {
	Word    models.Word
	Correct bool
	// Retry is set when the word went back to the end of the queue
	Retry bool
}

// Outcome describes how a word went in a session
type Outcome struct {
	Word     string
	Answered bool // spelled correctly at some point
	FirstTry bool // spelled correctly without a miss or a hint
	Missed   bool
}

// Session is one pass over a set of words. A misspelled word comes back at
// the end of the queue until it is spelled correctly.
type Session struct {
	UserID   string
	Language string
	ListID   string
	Level    int

	words   []models.Word
	queue   []models.Word
	missed  map[string]bool
	hinted  map[string]int
	correct map[string]bool

	startedAt time.Time
	now       func() time.Time
	rng       *rand.Rand
}

type SessionOption func(*Session)

// WithRand sets the source used to shuffle the words
func WithRand(r *rand.Rand) SessionOption {
	return func(s *Session) { s.rng = r }
}

// WithSessionClock replaces time.Now
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
		s.startedAt = now()
	}
}

// NewSession starts a session over words in shuffled order
func NewSession(userID string, list *models.WordList, level int, words []models.Word, opts ...SessionOption) *Session {
	s := &Session{
		UserID:    userID,
		Language:  list.Language,
		ListID:    list.ID,
		Level:     level,
		words:     append([]models.Word(nil), words...),
		queue:     append([]models.Word(nil), words...),
		missed:    make(map[string]bool),
		hinted:    make(map[string]int),
		correct:   make(map[string]bool),
		now:       time.Now,
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	s.rng.Shuffle(len(s.queue), func(i, j int) { s.queue[i], s.queue[j] = s.queue[j], s.queue[i] })
	return s
}

// Words returns the words of the session in their original order
func (s *Session) Words() []models.Word {
	return append([]models.Word(nil), s.words...)
}

// Current returns the word to spell next
func (s *Session) Current() (models.Word, bool) {
	if len(s.queue) == 0 {
		return models.Word{}, false
	}
	return s.queue[0], true
}

// Remaining returns how many answers are still expected
func (s *Session) Remaining() int {
	return len(s.queue)
}

func (s *Session) Done() bool {
	return len(s.queue) == 0
}

// Submit checks answer against the current word
func (s *Session) Submit(answer string) (Answer, error) {
	word, ok := s.Current()
	if !ok {
		return Answer{}, ErrSessionDone
	}
	key := wordKey(word.Text)

	if SameSpelling(answer, word.Text) {
		s.correct[key] = true
		s.queue = s.queue[1:]
		return Answer{Word: word, Correct: true}, nil
	}

	s.missed[key] = true
	s.queue = append(s.queue[1:], word)
	return Answer{Word: word, Retry: true}, nil
}

// Hint reveals one more leading letter of the current word each time it is
// called. The last letter is never revealed.
func (s *Session) Hint() string {
	word, ok := s.Current()
	if !ok {
		return ""
	}
	key := wordKey(word.Text)
	letters := []rune(word.Text)

	n := s.hinted[key] + 1
	if n > len(letters)-1 {
		n = len(letters) - 1
	}
	if n < 0 {
		n = 0
	}
	s.hinted[key] = n

	var b strings.Builder
	for i, r := range letters {
		switch {
		case i < n, r == ' ', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// Outcomes lists every word with how it went
func (s *Session) Outcomes() []Outcome {
	out := make([]Outcome, 0, len(s.words))
	for _, w := range s.words {
		key := wordKey(w.Text)
		out = append(out, Outcome{
			Word:     w.Text,
			Answered: s.correct[key],
			FirstTry: s.correct[key] && !s.missed[key] && s.hinted[key] == 0,
			Missed:   s.missed[key],
		})
	}
	return out
}

// Result summarizes the session. Only words spelled right on the first try
// without hints count as correct.
func (s *Session) Result() models.SessionResult {
	res := models.SessionResult{
		ID:          uuid.NewString(),
		UserID:      s.UserID,
		Language:    s.Language,
		ListID:      s.ListID,
		Level:       s.Level,
		TotalWords:  len(s.words),
		Misspelled:  []string{},
		CompletedAt: models.NormalizeStamp(s.now()),
	}
	res.Duration = res.CompletedAt.Sub(s.startedAt).Round(time.Millisecond)
	if res.Duration < 0 {
		res.Duration = 0
	}

	for _, o := range s.Outcomes() {
		if o.FirstTry {
			res.Correct++
		}
		if o.Missed {
			res.Misspelled = append(res.Misspelled, o.Word)
		}
	}
	if res.TotalWords > 0 {
		res.Score = res.Correct * 100 / res.TotalWords
	}
	return res
}

func wordKey(text string) string {
	return Normalize(text)
}
