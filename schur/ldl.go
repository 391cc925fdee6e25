// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schur

import (
	"math"

	"github.com/curioloop/schur/sparse"
)

// linSolver is the capability contract expected of the pluggable direct
// solvers: factorize the bound matrix, then solve in place. The bound matrix
// keeps its storage for the lifetime of the solver; Factorize reads whatever
// values it currently holds.
type linSolver interface {
	Factorize() error
	Solve(x []float64) error
}

// inertiaSolver is the optional capability of reporting the inertia
// (n₊, n₀, n₋) of the factorized matrix.
type inertiaSolver interface {
	Inertia() (pos, zrn, neg int)
}

// newSparseSolver binds a backend to a symmetric lower-triangular CSC matrix.
func newSparseSolver(b Backend, m *sparse.Matrix, opts SolverOptions) linSolver {
	switch b {
	case LU:
		return &luSolver{n: m.Rows, src: m}
	default:
		return &ldlSolver{n: m.Rows, src: m, tol: opts.pivotTol()}
	}
}

// newDenseSolver binds a backend to a full symmetric column-major matrix.
// The bound storage is never written by the solver.
func newDenseSolver(b Backend, n int, a []float64, opts SolverOptions) linSolver {
	switch b {
	case LU:
		return &luSolver{n: n, full: a}
	default:
		return &ldlSolver{n: n, full: a, tol: opts.pivotTol()}
	}
}

// ldlSolver factorizes a symmetric indefinite matrix as 𝐀 = 𝐋𝐃𝐋ᵀ with unit
// lower-triangular 𝐋 and diagonal 𝐃, without pivoting. The input is either a
// lower-triangular CSC matrix or a full column-major dense array; either is
// scattered into a private dense buffer before elimination, so repeated
// factorization of refreshed values is safe.
//
// The inertia of 𝐀 is read off the signs of 𝐃.
type ldlSolver struct {
	n    int
	src  *sparse.Matrix // sparse input, or
	full []float64      // full n×n column-major input
	tol  float64        // relative zero-pivot threshold
	f    []float64      // factor: 𝐋 strictly below the diagonal, 𝐃 on it
	w    []float64      // elimination scratch
	ok   bool
}

func (s *ldlSolver) Factorize() error {
	n := s.n
	s.ok = false
	if len(s.f) != n*n {
		s.f = make([]float64, n*n)
		s.w = make([]float64, n)
	}
	if n == 0 {
		s.ok = true
		return nil
	}

	// Scatter the lower triangle of the input into the factor buffer.
	f, scale := s.f, zero
	dzero(f)
	if s.src != nil {
		for j := 0; j < n; j++ {
			for p := s.src.ColPtr[j]; p < s.src.ColPtr[j+1]; p++ {
				v := s.src.Data[p]
				f[s.src.RowInd[p]+j*n] = v
				if a := math.Abs(v); a > scale {
					scale = a
				}
			}
		}
	} else {
		for j := 0; j < n; j++ {
			for i := j; i < n; i++ {
				v := s.full[i+j*n]
				f[i+j*n] = v
				if a := math.Abs(v); a > scale {
					scale = a
				}
			}
		}
	}

	pivMin := s.tol * scale
	w := s.w
	for j := 0; j < n; j++ {
		// w = 𝐀[j:,j] - ∑ₖ 𝐋[j,k]𝐝ₖ𝐋[j:,k]
		copy(w[j:], f[j+j*n:(j+1)*n])
		for k := 0; k < j; k++ {
			if t := f[j+k*n] * f[k+k*n]; t != zero {
				daxpy(n-j, -t, f[j+k*n:(k+1)*n], w[j:])
			}
		}
		d := w[j]
		if math.Abs(d) <= pivMin {
			return errSingular
		}
		f[j+j*n] = d
		for i := j + 1; i < n; i++ {
			f[i+j*n] = w[i] / d
		}
	}
	s.ok = true
	return nil
}

// Solve performs 𝐱 ← 𝐀⁻¹𝐱 through forward substitution, diagonal scaling
// and back substitution.
func (s *ldlSolver) Solve(x []float64) error {
	if !s.ok {
		return ErrNotFactorized
	}
	n, f := s.n, s.f
	if len(x) != n {
		return ErrDimensionMismatch
	}
	for j := 0; j < n; j++ { // 𝐋𝐳 = 𝐱
		daxpy(n-j-1, -x[j], f[j+1+j*n:(j+1)*n], x[j+1:])
	}
	for j := 0; j < n; j++ { // 𝐃⁻¹𝐳
		x[j] /= f[j+j*n]
	}
	for j := n - 1; j >= 0; j-- { // 𝐋ᵀ𝐱 = 𝐳
		x[j] -= ddot(n-j-1, f[j+1+j*n:(j+1)*n], x[j+1:])
	}
	return nil
}

// Inertia counts the signs of the pivots in 𝐃.
func (s *ldlSolver) Inertia() (pos, zrn, neg int) {
	n, f := s.n, s.f
	for j := 0; j < n; j++ {
		if f[j+j*n] > zero {
			pos++
		} else {
			neg++
		}
	}
	return
}
