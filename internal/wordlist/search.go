package wordlist

import (
	"strings"

	"github.com/example/spellsync/pkg/models"
)

// Match is a search hit
type Match struct {
	ListID   string
	ListName string
	Language string
	Word     models.Word
}

// Search looks for query inside words and definitions of the given lists,
// ignoring case. Hits on the word come before hits on the definition.
func Search(lists []*models.WordList, query string, limit int) []Match {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var onWord, onDefinition []Match
	for _, list := range lists {
		for _, w := range list.Words {
			m := Match{ListID: list.ID, ListName: list.Name, Language: list.Language, Word: w}
			switch {
			case strings.Contains(strings.ToLower(w.Text), q):
				onWord = append(onWord, m)
			case strings.Contains(strings.ToLower(w.Definition), q):
				onDefinition = append(onDefinition, m)
			}
		}
	}

	out := append(onWord, onDefinition...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
