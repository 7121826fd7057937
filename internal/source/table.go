// Package source reads tabular shipment inputs (CSV or XLSX) into
// header-indexed tables whose cells are addressed by column name.
package source

import (
	"strings"
)

// HeaderIndex maps a normalized column name to its position in a row.
type HeaderIndex map[string]int

// Table is one parsed input file. Rows hold only data records;
// the header row and blank rows are not included.
type Table struct {
	Name   string
	Header []string
	Index  HeaderIndex
	Rows   []Row
}

// Row is a single data record of a Table.
type Row struct {
	Cells []string
	Line  int // 1-based line (CSV) or row number (XLSX) in the input

	index HeaderIndex
}

// NewTable builds a Table from a header and raw records.
// lines may be nil, in which case record i is given line i+2.
func NewTable(name string, header []string, records [][]string, lines []int) *Table {
	t := &Table{
		Name:   name,
		Header: make([]string, len(header)),
		Index:  MakeHeaderIndex(header),
		Rows:   make([]Row, 0, len(records)),
	}
	for i, h := range header {
		t.Header[i] = NormalizeHeader(h)
	}

	for i, rec := range records {
		if isEmptyRow(rec) {
			continue
		}
		line := i + 2
		if lines != nil && i < len(lines) {
			line = lines[i]
		}
		t.Rows = append(t.Rows, Row{Cells: rec, Line: line, index: t.Index})
	}
	return t
}

// Has reports whether the table carries column col.
func (t *Table) Has(col string) bool {
	_, ok := t.Index[NormalizeHeader(col)]
	return ok
}

// Missing returns the columns in cols that the table does not carry,
// in the order given.
func (t *Table) Missing(cols ...string) []string {
	var missing []string
	for _, c := range cols {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Columns returns the normalized header. Blank and repeated header cells
// are left out.
func (t *Table) Columns() []string {
	cols := make([]string, 0, len(t.Index))
	for i, name := range t.Header {
		if name == "" || t.Index[name] != i {
			continue
		}
		cols = append(cols, name)
	}
	return cols
}

// Get returns the space-trimmed value of column col, or "" when the column
// is absent or the row is short. Values are otherwise kept as read.
func (r Row) Get(col string) string {
	v, _ := r.Lookup(col)
	return v
}

// Lookup is Get with a presence flag for the column.
func (r Row) Lookup(col string) (string, bool) {
	pos, ok := r.index[NormalizeHeader(col)]
	if !ok {
		return "", false
	}
	if pos >= len(r.Cells) {
		return "", true
	}
	return strings.TrimSpace(r.Cells[pos]), true
}

// MakeHeaderIndex builds a HeaderIndex for fast column lookup.
// Blank headers are skipped. When a header repeats, the first occurrence wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := NormalizeHeader(h)
		if key == "" {
			continue
		}
		if _, seen := idx[key]; seen {
			continue
		}
		idx[key] = i
	}
	return idx
}

// NormalizeHeader lowercases and cleans a header cell.
func NormalizeHeader(h string) string {
	return strings.ToLower(CleanCell(h))
}

// CleanCell removes common spreadsheet artifacts from a header cell:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
