package wordlist

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/spellsync/pkg/models"
)

const animals = `# name: Animals
# language: EN
# a comment that is not a header

cat - a small domesticated feline
horse	a large animal people ride
owl = a bird that hunts at night
Cat - duplicate, dropped
dog
`

func TestParse(t *testing.T) {
	list, err := Parse(strings.NewReader(animals), "animals")
	require.NoError(t, err)

	assert.Equal(t, "animals", list.ID)
	assert.Equal(t, "Animals", list.Name)
	assert.Equal(t, "en", list.Language)
	assert.Equal(t, models.SourceBundled, list.Source)
	assert.Equal(t, []models.Word{
		{Text: "cat", Definition: "a small domesticated feline"},
		{Text: "horse", Definition: "a large animal people ride"},
		{Text: "owl", Definition: "a bird that hunts at night"},
		{Text: "dog"},
	}, list.Words)
}

func TestParseDropsAccentAndCaseVariants(t *testing.T) {
	src := "caf\u00e9 - composed\ncafe\u0301 - decomposed\nCAF\u00c9\nnaive\n"
	list, err := Parse(strings.NewReader(src), "words")
	require.NoError(t, err)
	assert.Equal(t, []models.Word{
		{Text: "caf\u00e9", Definition: "composed"},
		{Text: "naive"},
	}, list.Words)
}

func TestParseDefaultsNameToID(t *testing.T) {
	list, err := Parse(strings.NewReader("# language: fr\nchat - cat\n"), "fr-basics")
	require.NoError(t, err)
	assert.Equal(t, "fr-basics", list.Name)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(strings.NewReader("cat\n"), "x")
	assert.ErrorIs(t, err, ErrMissingLanguage)

	_, err = Parse(strings.NewReader("# language: en\n\n# only comments\n"), "x")
	assert.ErrorIs(t, err, ErrEmptyList)

	_, err = Parse(strings.NewReader("# language: en\n - no word\n"), "x")
	assert.Error(t, err)
}

func TestParseByteOrderMark(t *testing.T) {
	list, err := Parse(strings.NewReader("\ufeff# language: de\nHund - dog\n"), "de")
	require.NoError(t, err)
	assert.Equal(t, "de", list.Language)
}

func TestFormatRoundTrip(t *testing.T) {
	list, err := Parse(strings.NewReader(animals), "animals")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Format(&buf, list))

	again, err := Parse(&buf, "animals")
	require.NoError(t, err)
	assert.Equal(t, list.Words, again.Words)
	assert.Equal(t, list.Name, again.Name)
}

func TestListID(t *testing.T) {
	assert.Equal(t, "animals", ListID("/data/lists/Animals.txt"))
	assert.Equal(t, "fr-basics", ListID("fr-basics.xlsx"))
}
