// SPDX-License-Identifier: MIT

package matrix

import "fmt"

// MulVec returns m·x.
// Stage 1 (Validate): len(x) == Cols.
// Stage 2 (Execute): row-major dot products.
// Complexity: O(r*c).
func MulVec(m *Dense, x []float64) ([]float64, error) {
	if m == nil {
		return nil, ErrNilMatrix
	}
	if len(x) != m.c {
		return nil, fmt.Errorf("MulVec: %dx%d · %d: %w", m.r, m.c, len(x), ErrDimensionMismatch)
	}

	out := make([]float64, m.r)
	var i, j, base int
	var sum float64
	for i = 0; i < m.r; i++ {
		base = i * m.c
		sum = 0
		for j = 0; j < m.c; j++ {
			sum += m.data[base+j] * x[j]
		}
		out[i] = sum
	}

	return out, nil
}

// TMulVec returns mᵀ·y without materializing the transpose.
// Complexity: O(r*c).
func TMulVec(m *Dense, y []float64) ([]float64, error) {
	if m == nil {
		return nil, ErrNilMatrix
	}
	if len(y) != m.r {
		return nil, fmt.Errorf("TMulVec: (%dx%d)ᵀ · %d: %w", m.r, m.c, len(y), ErrDimensionMismatch)
	}

	out := make([]float64, m.c)
	var i, j, base int
	var yi float64
	for i = 0; i < m.r; i++ {
		yi = y[i]
		if yi == 0 {
			continue // sparse multipliers are the common case
		}
		base = i * m.c
		for j = 0; j < m.c; j++ {
			out[j] += m.data[base+j] * yi
		}
	}

	return out, nil
}

// VStack concatenates blocks vertically. All blocks must share Cols; nil
// blocks are skipped. cols fixes the width when every block is empty or nil.
// Complexity: O(Σ r·c).
func VStack(cols int, blocks ...*Dense) (*Dense, error) {
	rows := 0
	for i, b := range blocks {
		if b == nil {
			continue
		}
		if b.c != cols {
			return nil, fmt.Errorf("VStack: block %d has %d cols, want %d: %w", i, b.c, cols, ErrDimensionMismatch)
		}
		rows += b.r
	}

	out, err := NewDense(rows, cols)
	if err != nil {
		return nil, err
	}
	off := 0
	for _, b := range blocks {
		if b == nil {
			continue
		}
		copy(out.data[off:], b.data)
		off += len(b.data)
	}

	return out, nil
}
