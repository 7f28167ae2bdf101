package matrix

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/edp1096/sparse"
)

var ErrSingular = errors.New("singular matrix")

// Matrix is a square real linear system solved with a sparse LU.
// Stamps accumulate in a dense copy; every factorization loads them into a
// fresh sparse matrix, since factoring overwrites the elements in place and
// reorders the structure.
type Matrix struct {
	Size     int
	a        [][]float64 // 0-based stamps
	matrix   *sparse.Matrix
	rhs      []float64
	solution []float64
	config   *sparse.Configuration
}

var _ Stamper = (*Matrix)(nil)

func NewMatrix(size int) (*Matrix, error) {
	if size <= 0 {
		return nil, fmt.Errorf("matrix size must be positive, got %d", size)
	}

	config := &sparse.Configuration{
		Real:           true,
		Complex:        false,
		Expandable:     true,
		Translate:      false,
		ModifiedNodal:  false,
		TiesMultiplier: 5,
		PrinterWidth:   140,
		Annotate:       0,
	}

	a := make([][]float64, size)
	for i := range a {
		a[i] = make([]float64, size)
	}
	return &Matrix{
		Size:     size,
		a:        a,
		rhs:      make([]float64, size+1), // 1-based indexing
		solution: make([]float64, size+1),
		config:   config,
	}, nil
}

// load creates the sparse matrix for one factorization. Diagonal elements
// are always allocated so pivoting can find them.
func (m *Matrix) load() error {
	m.Destroy()
	mat, err := sparse.Create(int64(m.Size), m.config)
	if err != nil {
		return fmt.Errorf("creating sparse matrix: %w", err)
	}
	for i := 1; i <= m.Size; i++ {
		for j := 1; j <= m.Size; j++ {
			if v := m.a[i-1][j-1]; v != 0 || i == j {
				mat.GetElement(int64(i), int64(j)).Real = v
			}
		}
	}
	m.matrix = mat
	return nil
}

func (m *Matrix) inBounds(i, j int) bool {
	return i > 0 && j > 0 && i <= m.Size && j <= m.Size
}

func (m *Matrix) AddElement(i, j int, value float64) {
	if !m.inBounds(i, j) {
		panic(fmt.Sprintf("matrix index out of bounds (i=%d, j=%d, size=%d)", i, j, m.Size))
	}
	m.a[i-1][j-1] += value
}

func (m *Matrix) AddRHS(i int, value float64) {
	if !m.inBounds(i, i) {
		panic(fmt.Sprintf("RHS index out of bounds (i=%d, size=%d)", i, m.Size))
	}
	m.rhs[i] += value
}

func (m *Matrix) Clear() {
	for i := range m.a {
		for j := range m.a[i] {
			m.a[i][j] = 0
		}
	}
	for i := range m.rhs {
		m.rhs[i] = 0
	}
}

// Solve factors the matrix and solves against the accumulated RHS.
func (m *Matrix) Solve() error {
	if err := m.factor(); err != nil {
		return err
	}
	x, err := m.matrix.Solve(m.rhs)
	if err != nil {
		return fmt.Errorf("matrix solve failed: %w", err)
	}
	if !finite(x[1 : m.Size+1]) {
		return fmt.Errorf("%w: non-finite solution", ErrSingular)
	}
	m.solution = x
	return nil
}

// Inverse factors the matrix once and returns its inverse as dense
// 0-based rows. The stamps and the RHS are left untouched.
func (m *Matrix) Inverse() ([][]float64, error) {
	if err := m.factor(); err != nil {
		return nil, err
	}

	inv := make([][]float64, m.Size)
	for i := range inv {
		inv[i] = make([]float64, m.Size)
	}

	unit := make([]float64, m.Size+1)
	for j := 1; j <= m.Size; j++ {
		for k := range unit {
			unit[k] = 0
		}
		unit[j] = 1

		x, err := m.matrix.Solve(unit)
		if err != nil {
			return nil, fmt.Errorf("matrix solve failed for column %d: %w", j, err)
		}
		if !finite(x[1 : m.Size+1]) {
			return nil, fmt.Errorf("%w: non-finite inverse column %d", ErrSingular, j)
		}
		for i := 1; i <= m.Size; i++ {
			inv[i-1][j-1] = x[i]
		}
	}
	return inv, nil
}

func (m *Matrix) factor() error {
	for i := 0; i < m.Size; i++ {
		if m.a[i][i] == 0 {
			return fmt.Errorf("%w: zero diagonal at %d", ErrSingular, i+1)
		}
	}
	if err := m.load(); err != nil {
		return err
	}
	if err := m.matrix.Factor(); err != nil {
		return fmt.Errorf("%w: factorization failed: %v", ErrSingular, err)
	}
	return nil
}

// Solution returns x[1..Size] of the last Solve as a 0-based slice.
func (m *Matrix) Solution() []float64 {
	return append([]float64(nil), m.solution[1:m.Size+1]...)
}

// PrintSystem writes the stamped equations and RHS.
func (m *Matrix) PrintSystem(w io.Writer) {
	fmt.Fprintf(w, "Normal equations (%dx%d):\n", m.Size, m.Size)
	for i := 1; i <= m.Size; i++ {
		fmt.Fprintf(w, "  ")
		for j := 1; j <= m.Size; j++ {
			fmt.Fprintf(w, "%+12.4e ", m.a[i-1][j-1])
		}
		fmt.Fprintf(w, "| %+12.4e\n", m.rhs[i])
	}
}

// Destroy releases the sparse matrix of the last factorization.
func (m *Matrix) Destroy() {
	if m.matrix != nil {
		m.matrix.Destroy()
		m.matrix = nil
	}
}

func finite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
