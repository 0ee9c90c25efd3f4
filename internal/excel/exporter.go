// Package excel moves the topic list in and out of CSV and Excel files.
package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/example/revisionbot/pkg/models"
	"github.com/xuri/excelize/v2"
)

// Format is a spreadsheet format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// SheetName is the sheet written to Excel exports
const SheetName = "Topics"

// DateLayout is the short date form accepted on import
const DateLayout = "2006-01-02"

// Header is the first row of every export. The first two columns are the
// articleName,articleUrl pair of the plain link export.
var Header = []string{"articleName", "articleUrl", "title", "category", "priority", "lastRevisionDate", "revisionCount"}

// ParseFormat converts a user supplied format, empty means csv
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported format %q, want csv or xlsx", s)
}

// Export writes topics to w
func Export(w io.Writer, format Format, topics []models.Topic) error {
	switch format {
	case FormatCSV:
		return exportCSV(w, topics)
	case FormatXLSX:
		return exportExcel(w, topics)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// ExportFile writes topics to path, the format follows the extension
func ExportFile(path string, topics []models.Topic) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := Export(file, format, topics); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Links writes the plain articleName,articleUrl listing
func Links(w io.Writer, rows [][2]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header[:2]); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write(row[:]); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func exportCSV(w io.Writer, topics []models.Topic) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, t := range topics {
		if err := writer.Write(record(t)); err != nil {
			return fmt.Errorf("failed to write topic %s: %w", t.Name, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func exportExcel(w io.Writer, topics []models.Topic) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), SheetName)

	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, t := range topics {
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := record(t)
		row := make([]interface{}, len(values))
		for j, v := range values {
			row[j] = v
		}
		if err := f.SetSheetRow(SheetName, cellName, &row); err != nil {
			return fmt.Errorf("failed to write topic %s: %w", t.Name, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

func record(t models.Topic) []string {
	priority := ""
	if t.Priority != nil {
		priority = strconv.Itoa(*t.Priority)
	}
	last := ""
	if t.LastRevisionDate != nil {
		last = t.LastRevisionDate.UTC().Format(time.RFC3339)
	}
	return []string{t.Name, t.URL, t.Title, t.Category, priority, last, strconv.Itoa(t.RevisionCount)}
}
