package models

// Table is a raw, row-oriented report as read from an export file.
// Every cell is kept as the original text.
type Table struct {
	Source  string
	Columns []string
	Rows    [][]string
}

// NewTable builds a Table. Short rows are padded with empty cells.
func NewTable(source string, columns []string, rows [][]string) *Table {
	t := &Table{Source: source, Columns: columns, Rows: make([][]string, 0, len(rows))}
	for _, r := range rows {
		if len(r) < len(columns) {
			padded := make([]string, len(columns))
			copy(padded, r)
			r = padded
		}
		t.Rows = append(t.Rows, r)
	}
	return t
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}
