// Package table implements the small labelled float tables the calibration
// engine works with: one row per load case, one column per variable.
package table

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"gonum.org/v1/gonum/mat"
)

// Table is a dense float matrix with named rows and columns. Row order and
// column order are significant and preserved.
type Table struct {
	rowLabels []string
	colLabels []string
	rowIndex  map[string]int
	colIndex  map[string]int
	data      *mat.Dense
}

// New creates a zero-filled table with the given row and column labels.
// Labels must be unique; duplicates are a programming error and panic.
func New(rows, cols []string) *Table {
	t := &Table{
		rowLabels: append([]string(nil), rows...),
		colLabels: append([]string(nil), cols...),
		rowIndex:  make(map[string]int, len(rows)),
		colIndex:  make(map[string]int, len(cols)),
		data:      mat.NewDense(len(rows), len(cols), nil),
	}
	for i, r := range t.rowLabels {
		if _, ok := t.rowIndex[r]; ok {
			panic(fmt.Sprintf("table: duplicate row label %q", r))
		}
		t.rowIndex[r] = i
	}
	for j, c := range t.colLabels {
		if _, ok := t.colIndex[c]; ok {
			panic(fmt.Sprintf("table: duplicate column label %q", c))
		}
		t.colIndex[c] = j
	}
	return t
}

// Rows returns the row labels in order.
func (t *Table) Rows() []string { return append([]string(nil), t.rowLabels...) }

// Cols returns the column labels in order.
func (t *Table) Cols() []string { return append([]string(nil), t.colLabels...) }

// HasRow reports whether the row label exists.
func (t *Table) HasRow(row string) bool { _, ok := t.rowIndex[row]; return ok }

// HasCol reports whether the column label exists.
func (t *Table) HasCol(col string) bool { _, ok := t.colIndex[col]; return ok }

func (t *Table) rowAt(row string) int {
	i, ok := t.rowIndex[row]
	if !ok {
		panic(fmt.Sprintf("table: unknown row label %q", row))
	}
	return i
}

func (t *Table) colAt(col string) int {
	j, ok := t.colIndex[col]
	if !ok {
		panic(fmt.Sprintf("table: unknown column label %q", col))
	}
	return j
}

// At returns the value at (row, col). Unknown labels panic: the engine
// validates all labels eagerly at construction, so a miss here is a bug.
func (t *Table) At(row, col string) float64 {
	return t.data.At(t.rowAt(row), t.colAt(col))
}

// Set stores the value at (row, col).
func (t *Table) Set(row, col string, v float64) {
	t.data.Set(t.rowAt(row), t.colAt(col), v)
}

// RowValues returns a copy of the row in column order.
func (t *Table) RowValues(row string) []float64 {
	i := t.rowAt(row)
	out := make([]float64, len(t.colLabels))
	for j := range t.colLabels {
		out[j] = t.data.At(i, j)
	}
	return out
}

// RowMap returns the row as a variable-name to value map.
func (t *Table) RowMap(row string) map[string]float64 {
	i := t.rowAt(row)
	out := make(map[string]float64, len(t.colLabels))
	for j, c := range t.colLabels {
		out[c] = t.data.At(i, j)
	}
	return out
}

// ColValues returns a copy of the column in row order.
func (t *Table) ColValues(col string) []float64 {
	j := t.colAt(col)
	out := make([]float64, len(t.rowLabels))
	for i := range t.rowLabels {
		out[i] = t.data.At(i, j)
	}
	return out
}

// ColMax returns the maximum value of a column.
func (t *Table) ColMax(col string) float64 {
	vals := t.ColValues(col)
	max := vals[0]
	for _, v := range vals[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// SetColValue broadcasts a single value over a column.
func (t *Table) SetColValue(col string, v float64) {
	j := t.colAt(col)
	for i := range t.rowLabels {
		t.data.Set(i, j, v)
	}
}

// Select returns a new table containing only the given columns, in the
// given order.
func (t *Table) Select(cols []string) *Table {
	out := New(t.rowLabels, cols)
	for _, r := range t.rowLabels {
		for _, c := range cols {
			out.Set(r, c, t.At(r, c))
		}
	}
	return out
}

// Copy returns a deep copy of the table.
func (t *Table) Copy() *Table {
	out := New(t.rowLabels, t.colLabels)
	out.data.Copy(t.data)
	return out
}

// String renders the table with aligned columns for console output.
func (t *Table) String() string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, " ")
	for _, c := range t.colLabels {
		fmt.Fprintf(w, "\t%s", c)
	}
	fmt.Fprintln(w)
	for _, r := range t.rowLabels {
		fmt.Fprintf(w, " %s", r)
		for _, c := range t.colLabels {
			fmt.Fprintf(w, "\t%.4f", t.At(r, c))
		}
		fmt.Fprintln(w)
	}
	w.Flush()
	return sb.String()
}
