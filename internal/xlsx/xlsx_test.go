package xlsx

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/adverif/sincera-enrich/pkg/batch"
	"github.com/adverif/sincera-enrich/pkg/sincera"
)

// writeWorkbook creates a test workbook with the given header and rows.
func writeWorkbook(t *testing.T, path string, header []string, rows [][]any) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetCellValue("Sheet1", cell, h); err != nil {
			t.Fatal(err)
		}
	}

	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetCellValue("Sheet1", cell, v); err != nil {
				t.Fatal(err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
}

func TestReadRows_BothColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.xlsx")
	writeWorkbook(t, path,
		[]string{"publisher_id", "domain"},
		[][]any{
			{42, "x.com"},
			{7, nil},
			{nil, nil},
			{nil, "y.com"},
		},
	)

	sheet, err := ReadRows(path)
	if err != nil {
		t.Fatalf("ReadRows() error = %v", err)
	}

	if !sheet.HasPublisherID || !sheet.HasDomain {
		t.Errorf("column detection = (%v, %v), want both true", sheet.HasPublisherID, sheet.HasDomain)
	}
	if len(sheet.Rows) != 4 {
		t.Fatalf("len(Rows) = %d, want 4", len(sheet.Rows))
	}

	want := []batch.Row{
		{PublisherID: "42", Domain: "x.com"},
		{PublisherID: "7"},
		{},
		{Domain: "y.com"},
	}
	for i, w := range want {
		if sheet.Rows[i] != w {
			t.Errorf("row %d = %+v, want %+v", i, sheet.Rows[i], w)
		}
	}
}

func TestReadRows_HeaderCaseInsensitive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.xlsx")
	writeWorkbook(t, path,
		[]string{"Publisher_ID", "DOMAIN"},
		[][]any{{1, "a.com"}},
	)

	sheet, err := ReadRows(path)
	if err != nil {
		t.Fatalf("ReadRows() error = %v", err)
	}
	if !sheet.HasPublisherID || !sheet.HasDomain {
		t.Errorf("column detection = (%v, %v), want both true", sheet.HasPublisherID, sheet.HasDomain)
	}
}

func TestReadRows_NumericIDNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.xlsx")
	writeWorkbook(t, path,
		[]string{"publisher_id"},
		[][]any{{42.0}, {"17.0"}, {"3.5"}, {"abc"}},
	)

	sheet, err := ReadRows(path)
	if err != nil {
		t.Fatalf("ReadRows() error = %v", err)
	}

	want := []string{"42", "17", "3.5", "abc"}
	for i, w := range want {
		if sheet.Rows[i].PublisherID != w {
			t.Errorf("row %d PublisherID = %q, want %q", i, sheet.Rows[i].PublisherID, w)
		}
	}
}

func TestReadRows_MissingIdentifierColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.xlsx")
	writeWorkbook(t, path,
		[]string{"name", "city"},
		[][]any{{"Acme", "Berlin"}},
	)

	_, err := ReadRows(path)
	if !errors.Is(err, ErrNoIdentifierColumns) {
		t.Errorf("ReadRows() error = %v, want ErrNoIdentifierColumns", err)
	}
}

func TestReadRows_FileNotFound(t *testing.T) {
	_, err := ReadRows(filepath.Join(t.TempDir(), "missing.xlsx"))
	if err == nil {
		t.Error("ReadRows() on a missing file should fail")
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"publishers.xlsx", "publishers_results.xlsx"},
		{"data/input.xls", "data/input_results.xlsx"},
		{"noextension", "noextension_results.xlsx"},
		{"dotted.name.xlsx", "dotted.name_results.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := OutputPath(tt.input); got != tt.want {
				t.Errorf("OutputPath(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestWriteResults_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.xlsx")

	name := "Acme"
	pubID := int64(7)
	sheet := &Sheet{HasPublisherID: true, HasDomain: true}
	results := []batch.Result{
		{
			Record:           sincera.Record{PublisherID: &pubID, Name: &name},
			InputPublisherID: "7",
			InputDomain:      "acme.com",
		},
		{
			// Failed lookup: all fields blank, passthrough still carried.
			InputDomain: "dead.example",
		},
	}

	if err := WriteResults(outPath, sheet, results); err != nil {
		t.Fatalf("WriteResults() error = %v", err)
	}

	f, err := excelize.OpenFile(outPath)
	if err != nil {
		t.Fatalf("reopen output: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Results")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("output has %d rows, want 3 (header + 2 results)", len(rows))
	}

	wantHeader := append(append([]string{}, sincera.FieldNames...), ColInputPublisherID, ColInputDomain)
	header := rows[0]
	if len(header) != len(wantHeader) {
		t.Fatalf("header has %d columns, want %d", len(header), len(wantHeader))
	}
	for i, w := range wantHeader {
		if header[i] != w {
			t.Errorf("header[%d] = %q, want %q", i, header[i], w)
		}
	}

	if rows[1][0] != "7" {
		t.Errorf("publisher_id cell = %q, want %q", rows[1][0], "7")
	}
	if rows[1][1] != "Acme" {
		t.Errorf("name cell = %q, want %q", rows[1][1], "Acme")
	}

	// Passthrough columns sit after the fixed field set.
	if got := rows[1][len(sincera.FieldNames)]; got != "7" {
		t.Errorf("input_publisher_id cell = %q, want %q", got, "7")
	}
	if got := rows[1][len(sincera.FieldNames)+1]; got != "acme.com" {
		t.Errorf("input_domain cell = %q, want %q", got, "acme.com")
	}
}

func TestWriteResults_PassthroughColumnsFollowInput(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.xlsx")

	// Input sheet only had a domain column.
	sheet := &Sheet{HasDomain: true}
	results := []batch.Result{{InputDomain: "only.example"}}

	if err := WriteResults(outPath, sheet, results); err != nil {
		t.Fatalf("WriteResults() error = %v", err)
	}

	f, err := excelize.OpenFile(outPath)
	if err != nil {
		t.Fatalf("reopen output: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Results")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}

	header := rows[0]
	if len(header) != len(sincera.FieldNames)+1 {
		t.Fatalf("header has %d columns, want %d", len(header), len(sincera.FieldNames)+1)
	}
	if header[len(header)-1] != ColInputDomain {
		t.Errorf("last header = %q, want %q", header[len(header)-1], ColInputDomain)
	}
	for _, h := range header {
		if h == ColInputPublisherID {
			t.Error("input_publisher_id column present despite absent input column")
		}
	}
}

func TestNormalizeNumeric(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"42", "42"},
		{"42.0", "42"},
		{"42.5", "42.5"},
		{"", ""},
		{"abc", "abc"},
		{"x.com", "x.com"},
	}

	for _, tt := range tests {
		if got := normalizeNumeric(tt.input); got != tt.want {
			t.Errorf("normalizeNumeric(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
