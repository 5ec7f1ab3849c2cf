// Package xlsx reads identifier rows from an Excel workbook and writes
// the enriched result workbook.
package xlsx

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/adverif/sincera-enrich/pkg/batch"
	"github.com/adverif/sincera-enrich/pkg/sincera"
)

// Identifier column headers recognized in the input sheet
// (case-insensitive match on the first row).
const (
	ColPublisherID = "publisher_id"
	ColDomain      = "domain"
)

// Passthrough column headers in the result sheet.
const (
	ColInputPublisherID = "input_publisher_id"
	ColInputDomain      = "input_domain"
)

// ErrNoIdentifierColumns is returned when the input sheet has neither
// identifier column; the run fails fast before any request is issued.
var ErrNoIdentifierColumns = errors.New("input file must contain either a 'publisher_id' or 'domain' column")

// Sheet is the parsed input workbook: one Row per data row, plus which
// identifier columns were present (they control the passthrough columns
// in the output).
type Sheet struct {
	Path           string
	HasPublisherID bool
	HasDomain      bool
	Rows           []batch.Row
}

// ReadRows opens an Excel workbook and extracts the identifier rows from
// its first sheet. The first row is the header; publisher_id and domain
// columns are located by case-insensitive name.
func ReadRows(path string) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return nil, ErrNoIdentifierColumns
	}

	idCol, domainCol := -1, -1
	for i, header := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(header)) {
		case ColPublisherID:
			idCol = i
		case ColDomain:
			domainCol = i
		}
	}
	if idCol < 0 && domainCol < 0 {
		return nil, ErrNoIdentifierColumns
	}

	sheet := &Sheet{
		Path:           path,
		HasPublisherID: idCol >= 0,
		HasDomain:      domainCol >= 0,
		Rows:           make([]batch.Row, 0, len(rows)-1),
	}

	for _, row := range rows[1:] {
		sheet.Rows = append(sheet.Rows, batch.Row{
			PublisherID: normalizeNumeric(cell(row, idCol)),
			Domain:      cell(row, domainCol),
		})
	}

	return sheet, nil
}

// OutputPath derives the result workbook location: the input name with a
// _results suffix before the extension, or appended when there is none.
// The output is always an .xlsx workbook.
func OutputPath(input string) string {
	if ext := filepath.Ext(input); ext != "" {
		return strings.TrimSuffix(input, ext) + "_results.xlsx"
	}
	return input + "_results.xlsx"
}

// WriteResults writes one row per result to a new workbook at path. The
// column set is the fixed metadata field set plus a passthrough column
// for each identifier column the input sheet had.
func WriteResults(path string, sheet *Sheet, results []batch.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Results"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("name result sheet: %w", err)
	}

	headers := append([]string{}, sincera.FieldNames...)
	if sheet.HasPublisherID {
		headers = append(headers, ColInputPublisherID)
	}
	if sheet.HasDomain {
		headers = append(headers, ColInputDomain)
	}

	for i, h := range headers {
		if err := setCell(f, sheetName, i+1, 1, h); err != nil {
			return err
		}
	}

	for rowIdx, result := range results {
		values := result.Values()
		if sheet.HasPublisherID {
			values = append(values, result.InputPublisherID)
		}
		if sheet.HasDomain {
			values = append(values, result.InputDomain)
		}

		for colIdx, v := range values {
			if v == nil {
				continue
			}
			if err := setCell(f, sheetName, colIdx+1, rowIdx+2, v); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}

	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	cellName, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell coordinates (%d,%d): %w", col, row, err)
	}
	if err := f.SetCellValue(sheet, cellName, value); err != nil {
		return fmt.Errorf("set cell %s: %w", cellName, err)
	}
	return nil
}

// cell fetches a column from a row, tolerating short rows. GetRows trims
// trailing empty cells, so missing means blank.
func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// normalizeNumeric renders integral numeric cell text as a plain integer
// string ("42.0" becomes "42"). Numeric cells round-trip through Excel
// as floats, which would otherwise fail the strict integer parse on the
// publisher_id column. Non-numeric text passes through unchanged.
func normalizeNumeric(s string) string {
	if s == "" || !strings.Contains(s, ".") {
		return s
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != float64(int64(v)) {
		return s
	}
	return strconv.FormatInt(int64(v), 10)
}
