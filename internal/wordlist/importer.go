package wordlist

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/spellsync/pkg/models"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath         string // Path to the Excel, CSV or text file
	ListID           string // Defaults to the file name
	Name             string // Defaults to the list ID
	Language         string // Required for spreadsheets
	WordColumn       string // Column with the word
	DefinitionColumn string // Column with the definition, optional
	SheetName        string // Sheet to import, the first sheet when empty
	SkipHeader       bool   // Skip the first row
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		WordColumn:       "A",
		DefinitionColumn: "B",
		SkipHeader:       true,
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Imported       int
	Skipped        int
	Errors         []string
}

// ImportWords reads a user word list from a spreadsheet or text file
func ImportWords(cfg ImportConfig) (*models.WordList, *ImportResult, error) {
	if cfg.ListID == "" {
		cfg.ListID = ListID(cfg.FilePath)
	}

	ext := strings.ToLower(filepath.Ext(cfg.FilePath))
	if ext == ".txt" {
		list, err := ParseFile(cfg.FilePath)
		if err != nil {
			return nil, nil, err
		}
		list.ID = cfg.ListID
		list.Source = models.SourceUser
		if cfg.Name != "" {
			list.Name = cfg.Name
		}
		return list, &ImportResult{TotalProcessed: len(list.Words), Imported: len(list.Words)}, nil
	}

	if cfg.Language == "" {
		return nil, nil, ErrMissingLanguage
	}

	var rows [][]string
	var err error
	switch ext {
	case ".csv":
		rows, err = readCSV(cfg.FilePath)
	case ".xlsx", ".xlsm":
		rows, err = readExcel(cfg.FilePath, cfg.SheetName)
	default:
		return nil, nil, fmt.Errorf("unsupported file type %q", ext)
	}
	if err != nil {
		return nil, nil, err
	}

	return buildList(cfg, rows)
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func buildList(cfg ImportConfig, rows [][]string) (*models.WordList, *ImportResult, error) {
	wordIdx, err := columnIndex(cfg.WordColumn)
	if err != nil {
		return nil, nil, err
	}
	defIdx := -1
	if cfg.DefinitionColumn != "" {
		if defIdx, err = columnIndex(cfg.DefinitionColumn); err != nil {
			return nil, nil, err
		}
	}

	list := &models.WordList{
		ID:       cfg.ListID,
		Name:     cfg.Name,
		Language: strings.ToLower(cfg.Language),
		Source:   models.SourceUser,
	}
	if list.Name == "" {
		list.Name = list.ID
	}

	result := &ImportResult{Errors: make([]string, 0)}
	seen := make(map[string]bool)

	for i, row := range rows {
		if i == 0 && cfg.SkipHeader {
			continue
		}
		if isBlank(row) {
			continue
		}
		result.TotalProcessed++

		var word models.Word
		if wordIdx < len(row) {
			word.Text = cleanWord(row[wordIdx])
		}
		if defIdx >= 0 && defIdx < len(row) {
			word.Definition = strings.TrimSpace(row[defIdx])
		}

		if word.Text == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: word cannot be empty", i+1))
			continue
		}
		key := strings.ToLower(word.Text)
		if seen[key] {
			result.Skipped++
			continue
		}
		seen[key] = true
		list.Words = append(list.Words, word)
		result.Imported++
	}

	if len(list.Words) == 0 {
		return nil, result, fmt.Errorf("%s: %w", list.ID, ErrEmptyList)
	}
	return list, result, nil
}

// cleanWord drops trailing notes in brackets, "go (went, gone)" becomes "go"
func cleanWord(word string) string {
	if i := strings.Index(word, "("); i > 0 {
		return strings.TrimSpace(word[:i])
	}
	return strings.TrimSpace(word)
}

// columnIndex converts a column letter to a zero based index
func columnIndex(column string) (int, error) {
	n, err := excelize.ColumnNameToNumber(strings.TrimSpace(column))
	if err != nil {
		return 0, fmt.Errorf("invalid column %q: %w", column, err)
	}
	return n - 1, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
