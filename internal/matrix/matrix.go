// Package matrix provides a dense two-dimensional integer matrix used for
// per-segment feature tables laid out as [group][position].
package matrix

import "fmt"

// Int is a row-major integer matrix. The zero value is an empty 0x0 matrix.
type Int struct {
	rows, cols int
	data       []int
}

// New returns a rows x cols matrix of zeros.
func New(rows, cols int) *Int {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("matrix: negative dimensions %dx%d", rows, cols))
	}
	return &Int{rows: rows, cols: cols, data: make([]int, rows*cols)}
}

// FromRows copies a slice of equally long rows into a matrix.
func FromRows(rows [][]int) (*Int, error) {
	if len(rows) == 0 {
		return New(0, 0), nil
	}
	m := New(len(rows), len(rows[0]))
	for r, row := range rows {
		if len(row) != m.cols {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", r, len(row), m.cols)
		}
		copy(m.data[r*m.cols:], row)
	}
	return m, nil
}

// FromCols builds a rows x len(cols) matrix from column vectors.
func FromCols(rows int, cols [][]int) (*Int, error) {
	m := New(rows, len(cols))
	for c, col := range cols {
		if len(col) != rows {
			return nil, fmt.Errorf("column %d has %d rows, expected %d", c, len(col), rows)
		}
		for r, v := range col {
			m.data[r*m.cols+c] = v
		}
	}
	return m, nil
}

// NumRows returns the number of rows.
func (m *Int) NumRows() int { return m.rows }

// NumCols returns the number of columns.
func (m *Int) NumCols() int { return m.cols }

func (m *Int) check(r, c int) {
	if r < 0 || r >= m.rows || c < 0 || c >= m.cols {
		panic(fmt.Sprintf("matrix: index (%d,%d) out of range %dx%d", r, c, m.rows, m.cols))
	}
}

// At returns the element at row r, column c.
func (m *Int) At(r, c int) int {
	m.check(r, c)
	return m.data[r*m.cols+c]
}

// Set sets the element at row r, column c.
func (m *Int) Set(r, c, v int) {
	m.check(r, c)
	m.data[r*m.cols+c] = v
}

// Row returns a copy of row r.
func (m *Int) Row(r int) []int {
	if r < 0 || r >= m.rows {
		panic(fmt.Sprintf("matrix: row %d out of range %dx%d", r, m.rows, m.cols))
	}
	return append([]int(nil), m.data[r*m.cols:(r+1)*m.cols]...)
}

// Col returns a copy of column c.
func (m *Int) Col(c int) []int {
	if c < 0 || c >= m.cols {
		panic(fmt.Sprintf("matrix: column %d out of range %dx%d", c, m.rows, m.cols))
	}
	out := make([]int, m.rows)
	for r := range out {
		out[r] = m.data[r*m.cols+c]
	}
	return out
}

// Cols returns copies of every column.
func (m *Int) Cols() [][]int {
	out := make([][]int, m.cols)
	for c := range out {
		out[c] = m.Col(c)
	}
	return out
}

// Rows returns copies of every row.
func (m *Int) Rows() [][]int {
	out := make([][]int, m.rows)
	for r := range out {
		out[r] = m.Row(r)
	}
	return out
}

// Clone returns a deep copy.
func (m *Int) Clone() *Int {
	return &Int{rows: m.rows, cols: m.cols, data: append([]int(nil), m.data...)}
}

// SelectCols returns a new matrix made of the given columns, in order.
func (m *Int) SelectCols(cols []int) *Int {
	out := New(m.rows, len(cols))
	for i, c := range cols {
		if c < 0 || c >= m.cols {
			panic(fmt.Sprintf("matrix: column %d out of range %dx%d", c, m.rows, m.cols))
		}
		for r := 0; r < m.rows; r++ {
			out.data[r*out.cols+i] = m.data[r*m.cols+c]
		}
	}
	return out
}

// Sub returns a - b element-wise.
func Sub(a, b *Int) (*Int, error) {
	if a.rows != b.rows || a.cols != b.cols {
		return nil, fmt.Errorf("shape mismatch: %dx%d - %dx%d", a.rows, a.cols, b.rows, b.cols)
	}
	out := New(a.rows, a.cols)
	for i := range a.data {
		out.data[i] = a.data[i] - b.data[i]
	}
	return out, nil
}

// ArgmaxCols returns, for every column, the row index of its first maximum.
func (m *Int) ArgmaxCols() []int {
	out := make([]int, m.cols)
	if m.rows == 0 {
		return out
	}
	for c := 0; c < m.cols; c++ {
		best := 0
		for r := 1; r < m.rows; r++ {
			if m.data[r*m.cols+c] > m.data[best*m.cols+c] {
				best = r
			}
		}
		out[c] = best
	}
	return out
}

// MaxCols returns the maximum of every column.
func (m *Int) MaxCols() []int {
	out := make([]int, m.cols)
	for c, r := range m.ArgmaxCols() {
		if m.rows > 0 {
			out[c] = m.data[r*m.cols+c]
		}
	}
	return out
}
