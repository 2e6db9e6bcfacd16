package excel

import (
	"fmt"
	"strings"
)

const maxFragments = 10

// FragmentPair holds the column indices of one "Fragment N" / "m/z Fragment N"
// pair. Either index may be -1 when the file does not carry that column.
type FragmentPair struct {
	Formula int
	Mz      int
}

// Columns maps the logical fields to 0-based column indices. Optional
// columns (Origin, Treatment, fragment pairs) are -1 when absent.
type Columns struct {
	Name      int
	Origin    int
	Class     int
	Subclass  int
	Treatment int
	Type      int
	Mode      int
	Neutral   int
	Mz        int
	Reference int
	Smile     int
	Notes     int

	Fragments [maxFragments]FragmentPair
}

// ResolveColumns reads the header row: headers match the logical names after
// trimming and lower-casing, in any column order.
func ResolveColumns(header []string) (Columns, error) {
	colNums := make(map[string]int, len(header))
	for i, v := range header {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		colNums[key] = i
	}

	get := func(name string) int {
		if i, ok := colNums[name]; ok {
			return i
		}
		return -1
	}

	cols := Columns{
		Name:      get("compound"),
		Origin:    get("parent compound"),
		Class:     get("compound class"),
		Subclass:  get("subclass"),
		Treatment: get("treatment"),
		Type:      get("type"),
		Mode:      get("ionization mode"),
		Neutral:   get("molecular formula [m]"),
		Mz:        get("m/z ion"),
		Reference: get("references"),
		Smile:     get("smile neutral formula"),
		Notes:     get("notes"),
	}
	for i := 0; i < maxFragments; i++ {
		cols.Fragments[i] = FragmentPair{
			Formula: get(fmt.Sprintf("fragment %d", i+1)),
			Mz:      get(fmt.Sprintf("m/z fragment %d", i+1)),
		}
	}

	required := []struct {
		name string
		col  int
	}{
		{"compound", cols.Name},
		{"compound class", cols.Class},
		{"subclass", cols.Subclass},
		{"type", cols.Type},
		{"ionization mode", cols.Mode},
		{"molecular formula [m]", cols.Neutral},
		{"m/z ion", cols.Mz},
		{"smile neutral formula", cols.Smile},
		{"references", cols.Reference},
		{"notes", cols.Notes},
	}
	var missing []string
	for _, req := range required {
		if req.col < 0 {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		return Columns{}, &SchemaError{Missing: missing, Columns: colNums}
	}
	return cols, nil
}

// Field reads a cell as a trimmed string; out-of-range and absent columns
// read as "".
func Field(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
