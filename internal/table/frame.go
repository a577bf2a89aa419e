// Package table provides a minimal ordered-column table used to carry
// screener and vendor rows whose column sets are not known at compile time.
// Cells are strings; the empty string is the missing-value marker.
package table

import (
	"fmt"
	"strings"
)

// Frame is an in-memory table with named, ordered columns.
type Frame struct {
	Columns []string
	Rows    [][]string
}

// New creates an empty frame with the given columns.
func New(columns ...string) *Frame {
	return &Frame{Columns: append([]string{}, columns...)}
}

// NumRows returns the number of data rows.
func (f *Frame) NumRows() int {
	return len(f.Rows)
}

// Empty reports whether the frame has no data rows.
func (f *Frame) Empty() bool {
	return f == nil || len(f.Rows) == 0
}

// Col returns the index of the named column, or -1.
func (f *Frame) Col(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// ColFold returns the index of the named column matched case-insensitively,
// or -1. An exact match wins over a folded one.
func (f *Frame) ColFold(name string) int {
	if i := f.Col(name); i >= 0 {
		return i
	}
	for i, c := range f.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// AppendRow adds a row, padding or truncating to the column count.
func (f *Frame) AppendRow(cells ...string) {
	row := make([]string, len(f.Columns))
	copy(row, cells)
	f.Rows = append(f.Rows, row)
}

// Cell returns the value at (row, column index). Out-of-range access
// returns the missing marker.
func (f *Frame) Cell(row, col int) string {
	if row < 0 || row >= len(f.Rows) || col < 0 || col >= len(f.Rows[row]) {
		return ""
	}
	return f.Rows[row][col]
}

// Column returns all values of the named column. Unknown column returns nil.
func (f *Frame) Column(name string) []string {
	idx := f.Col(name)
	if idx < 0 {
		return nil
	}
	values := make([]string, len(f.Rows))
	for i, row := range f.Rows {
		if idx < len(row) {
			values[i] = row[idx]
		}
	}
	return values
}

// AddColumn appends a column. When values is shorter than the row count the
// remaining cells are left missing; when the column already exists its
// values are overwritten.
func (f *Frame) AddColumn(name string, values []string) {
	if idx := f.Col(name); idx >= 0 {
		for i := range f.Rows {
			v := ""
			if i < len(values) {
				v = values[i]
			}
			f.Rows[i][idx] = v
		}
		return
	}
	f.Columns = append(f.Columns, name)
	for i := range f.Rows {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		f.Rows[i] = append(f.Rows[i], v)
	}
}

// AddConstColumn appends a column with the same value in every row.
func (f *Frame) AddConstColumn(name, value string) {
	values := make([]string, len(f.Rows))
	for i := range values {
		values[i] = value
	}
	f.AddColumn(name, values)
}

// Filter returns a new frame with the rows for which keep returns true.
func (f *Frame) Filter(keep func(row []string) bool) *Frame {
	out := &Frame{Columns: append([]string{}, f.Columns...)}
	for _, row := range f.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, append([]string{}, row...))
		}
	}
	return out
}

// Select returns a new frame with only the given columns, in order.
func (f *Frame) Select(columns ...string) (*Frame, error) {
	indices := make([]int, len(columns))
	for i, name := range columns {
		idx := f.Col(name)
		if idx < 0 {
			return nil, fmt.Errorf("column %q not found", name)
		}
		indices[i] = idx
	}
	out := New(columns...)
	for _, row := range f.Rows {
		cells := make([]string, len(indices))
		for i, idx := range indices {
			if idx < len(row) {
				cells[i] = row[idx]
			}
		}
		out.Rows = append(out.Rows, cells)
	}
	return out, nil
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out := &Frame{Columns: append([]string{}, f.Columns...)}
	for _, row := range f.Rows {
		out.Rows = append(out.Rows, append([]string{}, row...))
	}
	return out
}

// LeftJoin attaches the non-key columns of right to a copy of f, matching
// leftKey against rightKey case-insensitively on the key values. Every left
// row is preserved; unmatched rows get missing cells. When right has
// duplicate keys the first occurrence wins.
func (f *Frame) LeftJoin(right *Frame, leftKey, rightKey string) (*Frame, error) {
	leftIdx := f.ColFold(leftKey)
	if leftIdx < 0 {
		return nil, fmt.Errorf("left key column %q not found", leftKey)
	}
	rightIdx := right.ColFold(rightKey)
	if rightIdx < 0 {
		return nil, fmt.Errorf("right key column %q not found", rightKey)
	}

	lookup := make(map[string][]string, len(right.Rows))
	for _, row := range right.Rows {
		key := strings.ToUpper(strings.TrimSpace(row[rightIdx]))
		if _, ok := lookup[key]; !ok {
			lookup[key] = row
		}
	}

	out := f.Clone()
	attached := make([]int, 0, len(right.Columns)-1)
	for i, name := range right.Columns {
		if i == rightIdx {
			continue
		}
		out.Columns = append(out.Columns, name)
		attached = append(attached, i)
	}

	for i, row := range out.Rows {
		key := strings.ToUpper(strings.TrimSpace(row[leftIdx]))
		match := lookup[key]
		for _, srcIdx := range attached {
			cell := ""
			if match != nil && srcIdx < len(match) {
				cell = match[srcIdx]
			}
			out.Rows[i] = append(out.Rows[i], cell)
		}
	}
	return out, nil
}
