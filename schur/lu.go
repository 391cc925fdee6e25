// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schur

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/schur/sparse"
)

// luSolver factorizes with partial pivoting through gonum's dense LU.
// It accepts either a lower-triangular symmetric CSC matrix or a full
// symmetric column-major array; the symmetrized copy reads identically in
// row-major order, so no transposition is needed. The backend cannot report
// inertia: row pivoting scrambles the signs of the diagonal.
type luSolver struct {
	n    int
	src  *sparse.Matrix
	full []float64
	a    *mat.Dense
	lu   mat.LU
	ok   bool
}

func (s *luSolver) Factorize() error {
	n := s.n
	s.ok = false
	if n == 0 {
		s.ok = true
		return nil
	}
	if s.a == nil {
		s.a = mat.NewDense(n, n, nil)
	}
	if s.src != nil {
		s.a.Zero()
		for j := 0; j < n; j++ {
			for p := s.src.ColPtr[j]; p < s.src.ColPtr[j+1]; p++ {
				i, v := s.src.RowInd[p], s.src.Data[p]
				s.a.Set(i, j, v)
				if i != j {
					s.a.Set(j, i, v)
				}
			}
		}
	} else {
		copy(s.a.RawMatrix().Data, s.full)
	}
	s.lu.Factorize(s.a)
	if d := s.lu.Det(); d == zero || math.IsNaN(d) {
		return errSingular
	}
	s.ok = true
	return nil
}

func (s *luSolver) Solve(x []float64) error {
	if !s.ok {
		return ErrNotFactorized
	}
	if len(x) != s.n {
		return ErrDimensionMismatch
	}
	if s.n == 0 {
		return nil
	}
	var v mat.VecDense
	if err := s.lu.SolveVecTo(&v, false, mat.NewVecDense(s.n, x)); err != nil {
		return errSingular
	}
	copy(x, v.RawVector().Data)
	return nil
}
