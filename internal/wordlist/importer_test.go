package wordlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/example/spellsync/pkg/models"
)

func writeXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, v))
		}
	}
	path := filepath.Join(t.TempDir(), "Travel.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestImportExcel(t *testing.T) {
	path := writeXLSX(t, [][]string{
		{"Word", "Meaning"},
		{"go (went, gone)", "to move"},
		{"ticket", "a pass for travel"},
		{"", "orphan definition"},
		{"Ticket", "duplicate"},
	})

	cfg := DefaultImportConfig()
	cfg.FilePath = path
	cfg.Language = "EN"

	list, result, err := ImportWords(cfg)
	require.NoError(t, err)
	assert.Equal(t, "travel", list.ID)
	assert.Equal(t, "en", list.Language)
	assert.Equal(t, models.SourceUser, list.Source)
	assert.Equal(t, []models.Word{
		{Text: "go", Definition: "to move"},
		{Text: "ticket", Definition: "a pass for travel"},
	}, list.Words)

	assert.Equal(t, 4, result.TotalProcessed)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 2, result.Skipped)
	assert.Len(t, result.Errors, 1)
}

func TestImportCSVColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verbs.csv")
	require.NoError(t, os.WriteFile(path, []byte("1,run,to move fast\n2,swim,\n"), 0644))

	cfg := ImportConfig{
		FilePath:         path,
		Language:         "en",
		Name:             "Verbs",
		WordColumn:       "B",
		DefinitionColumn: "C",
	}
	list, result, err := ImportWords(cfg)
	require.NoError(t, err)
	assert.Equal(t, "Verbs", list.Name)
	assert.Equal(t, []models.Word{
		{Text: "run", Definition: "to move fast"},
		{Text: "swim"},
	}, list.Words)
	assert.Equal(t, 2, result.Imported)
}

func TestImportText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "animals.txt")
	require.NoError(t, os.WriteFile(path, []byte(animals), 0644))

	list, result, err := ImportWords(ImportConfig{FilePath: path, ListID: "my-animals"})
	require.NoError(t, err)
	assert.Equal(t, "my-animals", list.ID)
	assert.Equal(t, models.SourceUser, list.Source)
	assert.Equal(t, 4, result.Imported)
}

func TestImportErrors(t *testing.T) {
	_, _, err := ImportWords(ImportConfig{FilePath: "words.csv", WordColumn: "A"})
	assert.ErrorIs(t, err, ErrMissingLanguage)

	_, _, err = ImportWords(ImportConfig{FilePath: "words.doc", Language: "en", WordColumn: "A"})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("header\n"), 0644))
	_, _, err = ImportWords(ImportConfig{FilePath: path, Language: "en", WordColumn: "A", SkipHeader: true})
	assert.ErrorIs(t, err, ErrEmptyList)

	_, _, err = ImportWords(ImportConfig{FilePath: path, Language: "en", WordColumn: "1"})
	assert.Error(t, err)
}
