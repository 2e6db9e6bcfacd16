package excel

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	return path
}

func headerRow() []interface{} {
	out := make([]interface{}, 0, 16)
	for _, h := range fullHeader() {
		out = append(out, h)
	}
	return out
}

func TestOpenSkipsBlankRows(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		headerRow(),
		{"cipro", "cipro", "Antibiotics", "Fluoroquinolones", "Heat", "original", "positive", "C17H18FN3O3", "332.14", "ref1", "CC1CC1", "note"},
		{},
		{"", "", "", ""},
		{"TP 288", "cipro", "Antibiotics", "Fluoroquinolones", "Heat", "TP", "positivo", "C14H16FN3O", "288.13", "ref1", "", ""},
	})

	wb, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rows := wb.Rows()
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 (blank separators skipped)", len(rows))
	}
	if Field(rows[1], wb.Cols.Name) != "TP 288" {
		t.Errorf("row after blanks = %q", Field(rows[1], wb.Cols.Name))
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.xlsx"))
	var accessErr *FileAccessError
	if !errors.As(err, &accessErr) {
		t.Fatalf("expected FileAccessError, got %v", err)
	}
}

func TestOpenUnreadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.xlsx")
	if err := os.WriteFile(path, []byte("not a workbook"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestOpenMissingColumns(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"Compound", "Type"},
		{"cipro", "original"},
	})
	_, err := Open(path)
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
}
