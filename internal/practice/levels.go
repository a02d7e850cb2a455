package practice

import (
	"errors"

	"github.com/example/spellsync/internal/wordlist"
	"github.com/example/spellsync/pkg/models"
)

// ErrLevelLocked is returned when starting a level whose predecessor is not completed
var ErrLevelLocked = errors.New("level is locked")

// LevelStatus is the state of a level for a user
type LevelStatus string

const (
	LevelLocked    LevelStatus = "locked"
	LevelOpen      LevelStatus = "open"
	LevelCompleted LevelStatus = "completed"
)

// LevelState is one row of a list overview
type LevelState struct {
	Level     int
	Words     int
	Status    LevelStatus
	BestScore int
	Played    bool
}

// IsUnlocked reports whether a level may be played. The first level is
// always open; any other opens once the previous one is completed.
func IsUnlocked(progress *models.Progress, level int) bool {
	if level <= 1 {
		return level == 1
	}
	return progress != nil && progress.IsCompleted(level-1)
}

// Overview returns the state of every level of a list
func Overview(list *models.WordList, progress *models.Progress, perLevel int) []LevelState {
	levels := wordlist.Levels(list, perLevel)
	out := make([]LevelState, 0, len(levels))
	for i, words := range levels {
		n := i + 1
		st := LevelState{Level: n, Words: len(words), Status: LevelLocked}
		switch {
		case progress != nil && progress.IsCompleted(n):
			st.Status = LevelCompleted
		case IsUnlocked(progress, n):
			st.Status = LevelOpen
		}
		if progress != nil {
			st.BestScore, st.Played = progress.LevelScores[n]
		}
		out = append(out, st)
	}
	return out
}
