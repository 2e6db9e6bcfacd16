package excel

import (
	"fmt"
	"sort"
	"strings"
)

// SchemaError means a required header was not found in row 1. It carries the
// resolved column map so the operator can see what the file actually had.
type SchemaError struct {
	Missing []string
	Columns map[string]int
}

func (e *SchemaError) Error() string {
	keys := make([]string, 0, len(e.Columns))
	for k := range e.Columns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("missing required columns %v in Excel file (found: %s)",
		e.Missing, strings.Join(keys, ", "))
}

type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("file %q not found or unreadable: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

// ParseError wraps a workbook that exists but cannot be decoded.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("error reading Excel file: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
