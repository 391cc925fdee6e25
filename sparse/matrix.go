// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sparse provides the compressed sparse column storage shared by the
// Schur linear solver and the NLP adapter.
//
// Symmetric matrices store the lower triangle only: an entry (i,j) with i ≥ j
// represents both 𝐊ᵢⱼ and 𝐊ⱼᵢ. The non-zero pattern of a matrix is fixed once
// assembled; only the values change across solver iterations.
package sparse

import (
	"sort"

	"github.com/pkg/errors"
)

// Matrix is a sparse matrix in compressed sparse column form.
// Column j holds the entries Data[ColPtr[j]:ColPtr[j+1]] with ascending
// row indices RowInd[ColPtr[j]:ColPtr[j+1]].
type Matrix struct {
	Rows, Cols int
	ColPtr     []int
	RowInd     []int
	Data       []float64
}

// Nnz reports the number of stored entries.
func (m *Matrix) Nnz() int { return len(m.Data) }

// MulVecSym computes y += 𝐊𝐱 for a symmetric matrix stored lower-triangular.
// Off-diagonal entries contribute to both y[i] and y[j].
func (m *Matrix) MulVecSym(x, y []float64) {
	for j := 0; j < m.Cols; j++ {
		for p := m.ColPtr[j]; p < m.ColPtr[j+1]; p++ {
			i, v := m.RowInd[p], m.Data[p]
			y[i] += v * x[j]
			if i != j {
				y[j] += v * x[i]
			}
		}
	}
}

// Coo accumulates matrix entries in coordinate form before compression.
// Duplicate coordinates are summed by Compress.
type Coo struct {
	Rows, Cols int
	I, J       []int
	V          []float64
}

// NewCoo creates an empty coordinate accumulator of the given shape.
func NewCoo(rows, cols int) *Coo {
	return &Coo{Rows: rows, Cols: cols}
}

// Add appends the entry (i,j) = v.
// For symmetric matrices the caller adds lower-triangle coordinates only.
func (c *Coo) Add(i, j int, v float64) {
	c.I = append(c.I, i)
	c.J = append(c.J, j)
	c.V = append(c.V, v)
}

// Compress converts the accumulated coordinates into CSC form.
// Entries sharing a coordinate are summed into one stored position.
func (c *Coo) Compress() (*Matrix, error) {
	for k, i := range c.I {
		if i < 0 || i >= c.Rows || c.J[k] < 0 || c.J[k] >= c.Cols {
			return nil, errors.Errorf("entry %d coordinate (%d,%d) out of %d×%d", k, i, c.J[k], c.Rows, c.Cols)
		}
	}

	perm := make([]int, len(c.V))
	for k := range perm {
		perm[k] = k
	}
	sort.Slice(perm, func(a, b int) bool {
		ka, kb := perm[a], perm[b]
		if c.J[ka] != c.J[kb] {
			return c.J[ka] < c.J[kb]
		}
		return c.I[ka] < c.I[kb]
	})

	m := &Matrix{
		Rows:   c.Rows,
		Cols:   c.Cols,
		ColPtr: make([]int, c.Cols+1),
	}
	lastI, lastJ := -1, -1
	for _, k := range perm {
		i, j, v := c.I[k], c.J[k], c.V[k]
		if i == lastI && j == lastJ {
			m.Data[len(m.Data)-1] += v // duplicate coordinate
			continue
		}
		m.RowInd = append(m.RowInd, i)
		m.Data = append(m.Data, v)
		m.ColPtr[j+1] = len(m.Data)
		lastI, lastJ = i, j
	}
	for j := 0; j < c.Cols; j++ {
		if m.ColPtr[j+1] < m.ColPtr[j] {
			m.ColPtr[j+1] = m.ColPtr[j]
		}
	}
	return m, nil
}
