// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schur

import "github.com/curioloop/schur/sparse"

// worker owns one subproblem partition: the diagonal block 𝐊ₖ, the coupling
// block 𝐁ₖ (rows of partition k, columns of the border), a private scratch
// vector and a direct solver bound to 𝐊ₖ. Workers never share mutable state;
// concurrent writes into the dense Schur matrix are kept disjoint by the
// color schedule.
type worker struct {
	id int   // partition id (1 ··· K)
	vk []int // global indices of this partition, ascending

	kk *sparse.View // 𝐊ₖ, symmetric lower-triangular
	bk *sparse.View // 𝐁ₖ = 𝐊[Vₖ,V₀]
	nz []bool       // mask over border columns with entries in 𝐁ₖ

	lin linSolver
	w   []float64 // scratch, length |Vₖ|
}

func newWorker(id int, k *sparse.Matrix, vk, v0 []int, used []bool, backend Backend, opts SolverOptions) *worker {
	wk := &worker{
		id: id,
		vk: vk,
		kk: sparse.Sym(k, vk, used),
		bk: sparse.Rect(k, vk, v0, used),
		w:  make([]float64, len(vk)),
	}
	wk.nz = make([]bool, len(v0))
	for _, j := range wk.bk.NzCols {
		wk.nz[j] = true
	}
	wk.lin = newSparseSolver(backend, &wk.kk.Matrix, opts)
	return wk
}

// refresh gathers the current parent values into 𝐊ₖ and 𝐁ₖ.
func (wk *worker) refresh(parent []float64) {
	wk.kk.Refresh(parent)
	wk.bk.Refresh(parent)
}

// factorize decomposes the diagonal block.
func (wk *worker) factorize() error {
	return wk.lin.Factorize()
}

// updateSchur accumulates this block's contribution into the columns of one
// color set: 𝐒[:,j] ← 𝐒[:,j] - 𝐁ₖᵀ𝐊ₖ⁻¹𝐁ₖ[:,j]. The dense 𝐒 is full
// column-major of order n0; cols must be write-disjoint from every column
// concurrently updated by another worker.
func (wk *worker) updateSchur(s []float64, n0 int, cols []int) error {
	b := wk.bk
	for _, j := range cols {
		if !wk.nz[j] {
			continue
		}
		// w = 𝐁ₖ[:,j]
		dzero(wk.w)
		for p := b.ColPtr[j]; p < b.ColPtr[j+1]; p++ {
			wk.w[b.RowInd[p]] = b.Data[p]
		}
		// w = 𝐊ₖ⁻¹𝐁ₖ[:,j]
		if err := wk.lin.Solve(wk.w); err != nil {
			return err
		}
		// 𝐒[i,j] -= 𝐁ₖ[:,i]ᵀw for every non-empty border column i
		col := s[j*n0 : (j+1)*n0]
		for _, i := range b.NzCols {
			dot := zero
			for p := b.ColPtr[i]; p < b.ColPtr[i+1]; p++ {
				dot += b.Data[p] * wk.w[b.RowInd[p]]
			}
			col[i] -= dot
		}
	}
	return nil
}

// forward gathers the block right-hand side and solves 𝐰ₖ = 𝐊ₖ⁻¹𝐱[Vₖ].
func (wk *worker) forward(x []float64) error {
	for l, g := range wk.vk {
		wk.w[l] = x[g]
	}
	return wk.lin.Solve(wk.w)
}

// contrib accumulates the border contribution 𝐰₀ ← 𝐰₀ - 𝐁ₖᵀ𝐰ₖ.
// Called sequentially across workers: 𝐰₀ is shared.
func (wk *worker) contrib(w0 []float64) {
	b := wk.bk
	for _, j := range b.NzCols {
		dot := zero
		for p := b.ColPtr[j]; p < b.ColPtr[j+1]; p++ {
			dot += b.Data[p] * wk.w[b.RowInd[p]]
		}
		w0[j] -= dot
	}
}

// back completes the block solution 𝐱[Vₖ] = 𝐊ₖ⁻¹(𝐱[Vₖ] - 𝐁ₖ𝐰₀) once the
// border solution 𝐰₀ is known.
func (wk *worker) back(x, w0 []float64) error {
	for l, g := range wk.vk {
		wk.w[l] = x[g]
	}
	b := wk.bk
	for _, j := range b.NzCols {
		if v := w0[j]; v != zero {
			for p := b.ColPtr[j]; p < b.ColPtr[j+1]; p++ {
				wk.w[b.RowInd[p]] -= b.Data[p] * v
			}
		}
	}
	if err := wk.lin.Solve(wk.w); err != nil {
		return err
	}
	for l, g := range wk.vk {
		x[g] = wk.w[l]
	}
	return nil
}
