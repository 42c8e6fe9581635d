// Package importer loads source definitions from Excel spreadsheets.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jonesrussell/goharvest/internal/domain"
	"github.com/jonesrussell/goharvest/internal/logger"
)

// Column indices for the source spreadsheet (0-based).
const (
	colName     = 0 // Column A
	colType     = 1 // Column B
	colURL      = 2 // Column C
	colEnabled  = 3 // Column D
	colInterval = 4 // Column E
	colConfig   = 5 // Column F

	minRequiredColumns = 3
	headerRowIndex     = 1 // Excel rows are 1-based, header is row 1
)

// defaultIntervalMinutes is used when column E is empty.
const defaultIntervalMinutes = 1440

// SourceRow represents a parsed row from the spreadsheet.
type SourceRow struct {
	Row             int // Excel row number, for error reporting
	Name            string
	Type            string
	URL             string
	Enabled         bool
	IntervalMinutes int
	Config          string // Raw JSON string
}

// ImportError represents a validation error for a specific row.
type ImportError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// Result summarizes one import run.
type Result struct {
	Created int           `json:"created"`
	Updated int           `json:"updated"`
	Skipped int           `json:"skipped"`
	Errors  []ImportError `json:"errors,omitempty"`
}

// SourceStore is the persistence surface the importer needs.
type SourceStore interface {
	UpsertTx(ctx context.Context, sources []*domain.Source) (created, updated int, err error)
}

// Importer parses spreadsheets and upserts the sources they define.
type Importer struct {
	sources SourceStore
	log     logger.Logger
}

// New creates an importer.
func New(sources SourceStore, log logger.Logger) *Importer {
	return &Importer{sources: sources, log: log}
}

// ImportFile parses the spreadsheet at path and upserts all valid rows in a
// single transaction, keyed by source name. Invalid rows are reported and
// skipped; they never abort the valid ones.
func (i *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	rows, parseErrors, err := ParseExcelFile(path)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Skipped: len(parseErrors),
		Errors:  parseErrors,
	}

	sources := make([]*domain.Source, 0, len(rows))
	for _, row := range rows {
		sources = append(sources, rowToSource(row))
	}

	if len(sources) > 0 {
		created, updated, upsertErr := i.sources.UpsertTx(ctx, sources)
		if upsertErr != nil {
			return nil, fmt.Errorf("upsert sources: %w", upsertErr)
		}
		result.Created = created
		result.Updated = updated
	}

	i.log.Info("Source import finished",
		logger.String("file", path),
		logger.Int("created", result.Created),
		logger.Int("updated", result.Updated),
		logger.Int("skipped", result.Skipped),
	)

	return result, nil
}

// ParseExcelFile reads the first sheet of the workbook at path. It returns
// the valid rows and a per-row error list for the invalid ones.
func ParseExcelFile(path string) ([]SourceRow, []ImportError, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rawRows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	var rows []SourceRow
	var importErrors []ImportError

	for idx, raw := range rawRows {
		rowNum := idx + 1
		if rowNum == headerRowIndex {
			continue
		}
		if isBlankRow(raw) {
			continue
		}

		row, parseErr := parseRow(rowNum, raw)
		if parseErr == "" {
			parseErr = ValidateRow(row)
		}
		if parseErr != "" {
			importErrors = append(importErrors, ImportError{Row: rowNum, Error: parseErr})
			continue
		}

		rows = append(rows, row)
	}

	return rows, importErrors, nil
}

func parseRow(rowNum int, raw []string) (SourceRow, string) {
	cell := func(i int) string {
		if i < len(raw) {
			return strings.TrimSpace(raw[i])
		}
		return ""
	}

	if len(raw) < minRequiredColumns {
		return SourceRow{}, fmt.Sprintf("expected at least %d columns", minRequiredColumns)
	}

	row := SourceRow{
		Row:             rowNum,
		Name:            cell(colName),
		Type:            cell(colType),
		URL:             cell(colURL),
		Enabled:         true,
		IntervalMinutes: defaultIntervalMinutes,
		Config:          cell(colConfig),
	}

	if v := cell(colEnabled); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return SourceRow{}, "enabled must be true or false"
		}
		row.Enabled = enabled
	}

	if v := cell(colInterval); v != "" {
		interval, err := strconv.Atoi(v)
		if err != nil {
			return SourceRow{}, "interval_minutes must be an integer"
		}
		row.IntervalMinutes = interval
	}

	return row, ""
}

// ValidateRow validates a single row and returns an error message or empty string.
func ValidateRow(row SourceRow) string {
	if row.Name == "" {
		return "name is required"
	}
	if row.Type == "" {
		return "type is required"
	}
	if row.URL == "" {
		return "url is required"
	}

	if !strings.HasPrefix(row.URL, "http://") && !strings.HasPrefix(row.URL, "https://") {
		return "url must start with http:// or https://"
	}

	if row.IntervalMinutes <= 0 {
		return "interval_minutes must be positive"
	}

	if row.Config != "" {
		var cfg map[string]any
		if err := json.Unmarshal([]byte(row.Config), &cfg); err != nil {
			return "config must be a valid JSON object"
		}
	}

	return ""
}

func rowToSource(row SourceRow) *domain.Source {
	source := &domain.Source{
		Name:            row.Name,
		Type:            row.Type,
		URL:             row.URL,
		Enabled:         row.Enabled,
		IntervalMinutes: row.IntervalMinutes,
	}

	if row.Config != "" {
		var cfg domain.JSONBMap
		if err := json.Unmarshal([]byte(row.Config), &cfg); err == nil {
			source.Config = cfg
		}
	}

	return source
}

func isBlankRow(raw []string) bool {
	for _, cell := range raw {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
