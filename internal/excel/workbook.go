package excel

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

// Workbook is the parsed first worksheet: resolved columns plus the data
// rows. Rows whose first cell is empty are blank separators, skipped during
// iteration rather than treated as end-of-data.
type Workbook struct {
	Cols Columns
	rows [][]string
}

// Open reads the first worksheet of the file at path and resolves the header
// row. Returns FileAccessError, ParseError or SchemaError.
func Open(path string) (*Workbook, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &FileAccessError{Path: path, Err: err}
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Err: fmt.Errorf("workbook has no sheets")}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	if len(rows) == 0 {
		return nil, &SchemaError{Missing: []string{"header row"}, Columns: map[string]int{}}
	}

	cols, err := ResolveColumns(rows[0])
	if err != nil {
		return nil, err
	}

	return &Workbook{Cols: cols, rows: rows[1:]}, nil
}

// Rows returns the data rows (row 2 onward), skipping blank separator rows.
func (w *Workbook) Rows() [][]string {
	out := make([][]string, 0, len(w.rows))
	for _, row := range w.rows {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		out = append(out, row)
	}
	return out
}
