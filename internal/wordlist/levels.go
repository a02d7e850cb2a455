package wordlist

import (
	"errors"
	"strings"

	"github.com/example/spellsync/pkg/models"
)

// ErrNoSuchLevel is returned for a level outside the list
var ErrNoSuchLevel = errors.New("no such level")

// Levels splits the words of a list into consecutive chunks of perLevel
// words. Level n is Levels(...)[n-1]; the last level may be shorter.
func Levels(list *models.WordList, perLevel int) [][]models.Word {
	if perLevel <= 0 || list == nil {
		return nil
	}
	var levels [][]models.Word
	for start := 0; start < len(list.Words); start += perLevel {
		end := start + perLevel
		if end > len(list.Words) {
			end = len(list.Words)
		}
		levels = append(levels, list.Words[start:end])
	}
	return levels
}

// LevelCount returns how many levels a list has
func LevelCount(list *models.WordList, perLevel int) int {
	if perLevel <= 0 || list == nil {
		return 0
	}
	return (len(list.Words) + perLevel - 1) / perLevel
}

// LevelWords returns a copy of the words of one level
func LevelWords(list *models.WordList, level, perLevel int) ([]models.Word, error) {
	levels := Levels(list, perLevel)
	if level < 1 || level > len(levels) {
		return nil, ErrNoSuchLevel
	}
	return append([]models.Word(nil), levels[level-1]...), nil
}

// Lookup finds a word of the list, case-insensitively
func Lookup(list *models.WordList, text string) (models.Word, bool) {
	for _, w := range list.Words {
		if strings.EqualFold(w.Text, text) {
			return w, true
		}
	}
	return models.Word{}, false
}
