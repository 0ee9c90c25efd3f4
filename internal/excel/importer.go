package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/example/revisionbot/internal/database"
	"github.com/example/revisionbot/internal/notes"
	"github.com/example/revisionbot/pkg/models"
	"github.com/xuri/excelize/v2"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	NameColumn          string // Column with the note path
	URLColumn           string // Column with the note link
	TitleColumn         string // Column with the title
	CategoryColumn      string // Column with the category
	PriorityColumn      string // Column with the priority
	LastRevisionColumn  string // Column with the last revision date
	RevisionCountColumn string // Column with the number of revisions
	SheetName           string // Name of the sheet to import, the first sheet when missing
	StartRow            int    // The row to start importing from (1-based index)
}

// DefaultImportConfig matches the layout written by Export
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		NameColumn:          "A",
		URLColumn:           "B",
		TitleColumn:         "C",
		CategoryColumn:      "D",
		PriorityColumn:      "E",
		LastRevisionColumn:  "F",
		RevisionCountColumn: "G",
		SheetName:           SheetName,
		StartRow:            2, // skip header
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int      `json:"total_processed"`
	Created        int      `json:"created"`
	Updated        int      `json:"updated"`
	Skipped        int      `json:"skipped"`
	Errors         []string `json:"errors,omitempty"`
}

// ImportFile imports topics from an Excel or CSV file, the format follows the extension
func ImportFile(ctx context.Context, repo *database.TopicRepository, path string, config ImportConfig) (*ImportResult, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer file.Close()

	return Import(ctx, repo, file, format, config)
}

// Import reads topics from r and upserts them by name
func Import(ctx context.Context, repo *database.TopicRepository, r io.Reader, format Format, config ImportConfig) (*ImportResult, error) {
	var rows [][]string
	var err error
	switch format {
	case FormatCSV:
		rows, err = readCSV(r)
	case FormatXLSX:
		rows, err = readExcel(r, config.SheetName)
	default:
		return nil, fmt.Errorf("unsupported import format %q", format)
	}
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		rowNum := i + 1
		// Skip header rows
		if rowNum < config.StartRow {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result.TotalProcessed++
		if err := processRow(ctx, repo, row, config, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
		}
	}

	return result, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV: %w", err)
	}
	return rows, nil
}

func readExcel(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" || sheetIndex(f, sheet) < 0 {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func sheetIndex(f *excelize.File, name string) int {
	for i, s := range f.GetSheetList() {
		if s == name {
			return i
		}
	}
	return -1
}

// processRow upserts a single row. Rows without a name are skipped.
func processRow(ctx context.Context, repo *database.TopicRepository, row []string, config ImportConfig, result *ImportResult) error {
	name := strings.TrimSpace(cell(row, config.NameColumn))
	if name == "" {
		result.Skipped++
		return nil
	}

	priority, err := parsePriority(cell(row, config.PriorityColumn))
	if err != nil {
		return err
	}
	last, err := parseDate(cell(row, config.LastRevisionColumn))
	if err != nil {
		return err
	}
	count, err := parseCount(cell(row, config.RevisionCountColumn))
	if err != nil {
		return err
	}

	topic := &models.Topic{
		Name:     name,
		URL:      strings.TrimSpace(cell(row, config.URLColumn)),
		Title:    strings.TrimSpace(cell(row, config.TitleColumn)),
		Category: strings.TrimSpace(cell(row, config.CategoryColumn)),
	}
	if topic.Title == "" {
		topic.Title = notes.TitleFromPath(name)
	}
	if topic.Category == "" {
		topic.Category = notes.CategoryFromPath(name)
	}

	created, err := repo.Upsert(ctx, topic)
	if err != nil {
		return err
	}

	if priority != nil {
		if err := repo.SetPriority(ctx, topic.ID, priority); err != nil {
			return err
		}
	}
	if last != nil {
		if count < 0 {
			count = topic.RevisionCount
		}
		if count < 1 {
			count = 1
		}
		if err := repo.SetRevision(ctx, topic.ID, last, count); err != nil {
			return err
		}
	}

	if created {
		result.Created++
	} else {
		result.Updated++
	}
	return nil
}

func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	if colIdx := columnToIndex(column); colIdx >= 0 && colIdx < len(row) {
		return row[colIdx]
	}
	return ""
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}

func parsePriority(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	val, err := strconv.Atoi(s)
	if err != nil || val < 1 {
		return nil, fmt.Errorf("invalid priority %q", s)
	}
	return &val, nil
}

// parseCount returns -1 for an empty cell
func parseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return -1, nil
	}
	val, err := strconv.Atoi(s)
	if err != nil || val < 0 {
		return 0, fmt.Errorf("invalid revision count %q", s)
	}
	return val, nil
}

var dateLayouts = []string{time.RFC3339, DateLayout}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q, want RFC3339 or YYYY-MM-DD", s)
}

// FormatFromPath returns the format matching the file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	}
	return "", errors.New("unsupported file type " + filepath.Ext(path) + ", want .csv or .xlsx")
}
