// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schur

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/curioloop/schur/sparse"
)

// Solver factorizes and solves a partitioned symmetric indefinite system.
//
// The views, workers and the dense Schur storage are created once from the
// matrix pattern; each Factorize gathers the current values, factorizes the
// diagonal blocks in parallel, assembles 𝐒 under the color schedule and
// factorizes it. The pattern must not change over the solver's lifetime.
type Solver struct {
	log  Logger
	opts Options

	k       *sparse.Matrix
	n       int // system dimension
	np      int // number of subproblem partitions
	threads int

	v0 []int        // border indices
	k0 *sparse.View // 𝐊₀
	s  []float64    // dense 𝐒, full column-major |V₀|×|V₀|
	w0 []float64    // border scratch

	dense   linSolver
	workers []*worker
	colors  [][]int

	factorized bool
	b, x       []float64 // most recent right-hand side and solution
}

// New builds a Schur solver over the symmetric lower-triangular CSC matrix k.
// The matrix storage is shared, not copied: the caller refreshes k.Data
// between iterations and calls Factorize again.
func New(k *sparse.Matrix, opts Options, log Logger) (*Solver, error) {
	if k == nil || k.Rows != k.Cols || k.Rows == 0 {
		return nil, errors.New("a non-empty square symmetric matrix is required")
	}
	np, err := checkPartition(k, opts.Partition)
	if err != nil {
		return nil, err
	}
	log.Level = opts.PrintLevel

	part := opts.Partition
	sets := make([][]int, np+1)
	for i, p := range part {
		sets[p] = append(sets[p], i)
	}
	v0 := sets[0]
	n0 := len(v0)

	s := &Solver{
		log:     log,
		opts:    opts,
		k:       k,
		n:       k.Rows,
		np:      np,
		threads: opts.threads(),
		v0:      v0,
		s:       make([]float64, n0*n0),
		w0:      make([]float64, n0),
		colors:  colorCols(n0, max(np, 1)),
	}

	used := make([]bool, k.Nnz())
	s.k0 = sparse.Sym(k, v0, used)
	s.workers = make([]*worker, np)
	for p := 1; p <= np; p++ {
		s.workers[p-1] = newWorker(p, k, sets[p], v0, used, opts.Subproblem, opts.SubproblemOptions)
	}
	s.dense = newDenseSolver(opts.Dense, n0, s.s, opts.DenseOptions)

	log.log(LogInfo, "schur: %d subproblems, border %d of %d, %d threads\n", np, n0, k.Rows, s.threads)
	return s, nil
}

// InputMatrixType names the matrix layout consumed by the solver.
func (s *Solver) InputMatrixType() string { return "csc" }

// Introduce describes the solver configuration.
func (s *Solver) Introduce() string {
	return fmt.Sprintf("schur complement solver (%d subproblems, border %d, %s blocks, %s schur)",
		s.np, len(s.v0), s.opts.Subproblem, s.opts.Dense)
}

// Factorize gathers the current matrix values and decomposes the system.
// A singular diagonal block reports ErrBlockSingular before the dense 𝐒 is
// touched; a singular Schur complement reports ErrSchurSingular.
func (s *Solver) Factorize() error {
	s.factorized = false

	grp := new(errgroup.Group)
	grp.SetLimit(s.threads)
	for _, wk := range s.workers {
		grp.Go(func() error {
			wk.refresh(s.k.Data)
			if err := wk.factorize(); err != nil {
				return errors.Wrapf(ErrBlockSingular, "partition %d", wk.id)
			}
			s.log.log(LogTrace, "schur: block %d factorized (%d rows)\n", wk.id, len(wk.vk))
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}

	// 𝐒 = 𝐊₀ symmetrized into full storage
	n0 := len(s.v0)
	s.k0.Refresh(s.k.Data)
	dzero(s.s)
	for j := 0; j < n0; j++ {
		for p := s.k0.ColPtr[j]; p < s.k0.ColPtr[j+1]; p++ {
			i, v := s.k0.RowInd[p], s.k0.Data[p]
			s.s[i+j*n0] += v
			if i != j {
				s.s[j+i*n0] += v
			}
		}
	}

	// 𝐒 -= ∑ 𝐁ₖᵀ𝐊ₖ⁻¹𝐁ₖ, one color per worker per round
	nc := len(s.colors)
	for q := 0; q < nc; q++ {
		grp := new(errgroup.Group)
		grp.SetLimit(s.threads)
		for idx, wk := range s.workers {
			cols := s.colors[colorOf(q, idx, nc)]
			grp.Go(func() error {
				if err := wk.updateSchur(s.s, n0, cols); err != nil {
					return errors.Wrapf(ErrBlockSingular, "partition %d", wk.id)
				}
				return nil
			})
		}
		if err := grp.Wait(); err != nil {
			return err
		}
	}

	if err := s.dense.Factorize(); err != nil {
		return errors.Wrapf(ErrSchurSingular, "border dimension %d", n0)
	}
	s.factorized = true
	s.log.log(LogInfo, "schur: factorized %d blocks, schur dimension %d\n", s.np, n0)
	return nil
}

// Solve replaces x with 𝐊⁻¹x using the bordered block elimination.
func (s *Solver) Solve(x []float64) error {
	if len(x) != s.n {
		return ErrDimensionMismatch
	}
	if !s.factorized {
		return ErrNotFactorized
	}
	s.b = append(s.b[:0], x...)
	s.x = x
	return s.solveVec(x)
}

func (s *Solver) solveVec(x []float64) error {
	n0, w0 := len(s.v0), s.w0
	for l, g := range s.v0 {
		w0[l] = x[g]
	}

	// 𝐰ₖ = 𝐊ₖ⁻¹𝐱ₖ
	grp := new(errgroup.Group)
	grp.SetLimit(s.threads)
	for _, wk := range s.workers {
		grp.Go(func() error { return wk.forward(x) })
	}
	if err := grp.Wait(); err != nil {
		return err
	}

	// 𝐰₀ ← 𝐰₀ - ∑ 𝐁ₖᵀ𝐰ₖ, accumulated sequentially into the shared border
	for _, wk := range s.workers {
		wk.contrib(w0)
	}

	if n0 > 0 {
		if err := s.dense.Solve(w0); err != nil {
			return errors.Wrapf(ErrSchurSingular, "border dimension %d", n0)
		}
		for l, g := range s.v0 {
			x[g] = w0[l]
		}
	}

	// 𝐱ₖ = 𝐊ₖ⁻¹(𝐱ₖ - 𝐁ₖ𝐰₀)
	grp = new(errgroup.Group)
	grp.SetLimit(s.threads)
	for _, wk := range s.workers {
		grp.Go(func() error { return wk.back(x, w0) })
	}
	return grp.Wait()
}

// IsInertia reports whether every inner solver can report inertia.
func (s *Solver) IsInertia() bool {
	for _, wk := range s.workers {
		if _, ok := wk.lin.(inertiaSolver); !ok {
			return false
		}
	}
	_, ok := s.dense.(inertiaSolver)
	return ok
}

// Inertia sums the block inertias with the Schur inertia (Haynsworth):
// In(𝐊) = ∑ In(𝐊ₖ) + In(𝐒).
func (s *Solver) Inertia() (pos, zrn, neg int, err error) {
	if !s.factorized {
		return 0, 0, 0, ErrNotFactorized
	}
	for _, wk := range s.workers {
		is, ok := wk.lin.(inertiaSolver)
		if !ok {
			return 0, 0, 0, errors.Wrapf(ErrInertiaUnavailable, "partition %d backend %s", wk.id, s.opts.Subproblem)
		}
		p, z, m := is.Inertia()
		pos, zrn, neg = pos+p, zrn+z, neg+m
	}
	is, ok := s.dense.(inertiaSolver)
	if !ok {
		return 0, 0, 0, errors.Wrapf(ErrInertiaUnavailable, "dense backend %s", s.opts.Dense)
	}
	p, z, m := is.Inertia()
	return pos + p, zrn + z, neg + m, nil
}

// Improve runs one step of iterative refinement on the most recent solve,
// correcting the solution in place. It reports false when there is no solve
// to refine or the correction did not reduce the residual.
func (s *Solver) Improve() bool {
	if !s.factorized || s.x == nil {
		return false
	}
	n := s.n
	r := make([]float64, n)
	y := make([]float64, n)

	s.k.MulVecSym(s.x, y)
	floats.SubTo(r, s.b, y) // r = 𝐛 - 𝐊𝐱
	res0 := dnrm2(r)
	if res0 == zero {
		return false
	}

	if err := s.solveVec(r); err != nil {
		return false
	}
	x1 := y
	floats.AddTo(x1, s.x, r) // x′ = 𝐱 + 𝐊⁻¹r

	dzero(r)
	s.k.MulVecSym(x1, r)
	floats.Sub(r, s.b)
	floats.Scale(-1, r)
	if dnrm2(r) >= res0 {
		s.log.log(LogInfo, "schur: refinement stalled at residual %.3e\n", res0)
		return false
	}
	copy(s.x, x1)
	return true
}
