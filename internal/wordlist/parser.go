// Package wordlist reads word lists from text files and spreadsheets, splits
// them into levels and searches them.
//
// A text list looks like this:
//
//	# name: Animals
//	# language: en
//	cat - a small domesticated feline
//	horse	a large animal people ride
//	owl = a bird that hunts at night
//	dog
//
// Blank lines and other comment lines are ignored. The definition is optional.
// Repeated words keep their first occurrence, compared case-insensitively.
package wordlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/example/spellsync/pkg/models"
)

var (
	// ErrEmptyList is returned when a list has no words
	ErrEmptyList = errors.New("word list has no words")
	// ErrMissingLanguage is returned when a list does not name its language
	ErrMissingLanguage = errors.New("word list has no language header")
)

var separators = []string{" - ", "\t", " = "}

// Parse reads a text word list. id becomes the list ID and, when the file has
// no name header, the list name.
func Parse(r io.Reader, id string) (*models.WordList, error) {
	list := &models.WordList{ID: id, Source: models.SourceBundled}
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			parseHeader(list, line)
			continue
		}

		word := parseEntry(line)
		if word.Text == "" {
			return nil, fmt.Errorf("%s line %d: empty word", id, lineNo)
		}
		key := dedupeKey(word.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		list.Words = append(list.Words, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read word list %s: %w", id, err)
	}

	if list.Name == "" {
		list.Name = id
	}
	if list.Language == "" {
		return nil, fmt.Errorf("%s: %w", id, ErrMissingLanguage)
	}
	if len(list.Words) == 0 {
		return nil, fmt.Errorf("%s: %w", id, ErrEmptyList)
	}
	return list, nil
}

// ParseFile parses a text list; the list ID is the file name without extension
func ParseFile(path string) (*models.WordList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open word list: %w", err)
	}
	defer f.Close()
	return Parse(f, ListID(path))
}

// ListID derives a list ID from a file path
func ListID(path string) string {
	base := filepath.Base(path)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

func parseHeader(list *models.WordList, line string) {
	body := strings.TrimSpace(strings.TrimPrefix(line, "#"))
	key, value, ok := strings.Cut(body, ":")
	if !ok {
		return
	}
	value = strings.TrimSpace(value)
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "name":
		list.Name = value
	case "language":
		list.Language = strings.ToLower(value)
	}
}

func parseEntry(line string) models.Word {
	for _, sep := range separators {
		if text, def, ok := strings.Cut(line, sep); ok {
			return models.Word{Text: strings.TrimSpace(text), Definition: strings.TrimSpace(def)}
		}
	}
	return models.Word{Text: strings.TrimSpace(line)}
}

// Format writes list in the text format Parse reads
func Format(w io.Writer, list *models.WordList) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# name: %s\n# language: %s\n", list.Name, list.Language)
	for _, word := range list.Words {
		if word.Definition != "" {
			fmt.Fprintf(bw, "%s - %s\n", word.Text, word.Definition)
		} else {
			fmt.Fprintln(bw, word.Text)
		}
	}
	return bw.Flush()
}

var folder = cases.Fold()

// dedupeKey matches the key practice sessions use for words, so a list never
// holds two entries that one session would treat as the same word.
func dedupeKey(word string) string {
	return folder.String(norm.NFC.String(strings.TrimSpace(word)))
}
