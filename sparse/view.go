// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import "sort"

// View is a sub-matrix of a parent CSC matrix.
// It owns its own CSC skeleton over the sub-row/column sets and gathers its
// values from the parent through Src, so the pattern is built once and only
// Refresh runs per iteration.
type View struct {
	Matrix
	// Src[k] is the position in the parent's Data gathered into Data[k].
	Src []int
	// NzCols lists the local columns holding at least one entry.
	// Recorded for rectangular views to skip empty columns during solves.
	NzCols []int
}

// Refresh gathers the parent values into the view: Data[k] = parent[Src[k]].
func (v *View) Refresh(parent []float64) {
	for k, s := range v.Src {
		v.Data[k] = parent[s]
	}
}

// Sym extracts the symmetric sub-matrix of a lower-triangular symmetric parent
// on the sorted index set. The view stores its own lower triangle: local entry
// (i,j) with i ≥ j corresponds to parent entry (set[i], set[j]).
//
// When used is non-nil, positions already consumed are skipped and positions
// consumed here are marked. Repeated extraction with a shared mask carves the
// parent into views sharing no underlying non-zero.
func Sym(parent *Matrix, set []int, used []bool) *View {
	pos := scatter(parent.Rows, set)

	v := &View{Matrix: Matrix{
		Rows:   len(set),
		Cols:   len(set),
		ColPtr: make([]int, len(set)+1),
	}}
	for jl, jg := range set {
		for p := parent.ColPtr[jg]; p < parent.ColPtr[jg+1]; p++ {
			if used != nil && used[p] {
				continue
			}
			// Stored rows satisfy r ≥ jg, so a member row lands at or
			// below the local diagonal and the triangle is preserved.
			if il := pos[parent.RowInd[p]]; il >= 0 {
				v.RowInd = append(v.RowInd, il)
				v.Src = append(v.Src, p)
				if used != nil {
					used[p] = true
				}
			}
		}
		v.ColPtr[jl+1] = len(v.Src)
	}
	v.Data = make([]float64, len(v.Src))
	return v
}

// Rect extracts the rectangular sub-matrix on disjoint row and column sets of
// a lower-triangular symmetric parent. Every entry coupling the two sets is
// stored, picking up mirrored positions from whichever triangle holds them.
func Rect(parent *Matrix, rows, cols []int, used []bool) *View {
	rpos := scatter(parent.Rows, rows)
	cpos := scatter(parent.Rows, cols)

	type ent struct{ i, j, src int }
	var ents []ent
	for c := 0; c < parent.Cols; c++ {
		for p := parent.ColPtr[c]; p < parent.ColPtr[c+1]; p++ {
			if used != nil && used[p] {
				continue
			}
			r := parent.RowInd[p]
			var i, j int
			switch {
			case rpos[r] >= 0 && cpos[c] >= 0:
				i, j = rpos[r], cpos[c]
			case rpos[c] >= 0 && cpos[r] >= 0:
				i, j = rpos[c], cpos[r] // mirrored across the diagonal
			default:
				continue
			}
			ents = append(ents, ent{i, j, p})
			if used != nil {
				used[p] = true
			}
		}
	}
	sort.Slice(ents, func(a, b int) bool {
		if ents[a].j != ents[b].j {
			return ents[a].j < ents[b].j
		}
		return ents[a].i < ents[b].i
	})

	v := &View{Matrix: Matrix{
		Rows:   len(rows),
		Cols:   len(cols),
		ColPtr: make([]int, len(cols)+1),
		RowInd: make([]int, len(ents)),
		Data:   make([]float64, len(ents)),
	}}
	v.Src = make([]int, len(ents))
	for k, e := range ents {
		v.RowInd[k] = e.i
		v.Src[k] = e.src
		v.ColPtr[e.j+1] = k + 1
	}
	for j := 0; j < v.Cols; j++ {
		if v.ColPtr[j+1] < v.ColPtr[j] {
			v.ColPtr[j+1] = v.ColPtr[j]
		}
		if v.ColPtr[j+1] > v.ColPtr[j] {
			v.NzCols = append(v.NzCols, j)
		}
	}
	return v
}

// scatter builds the dense inverse of a sorted index set: pos[set[l]] = l.
func scatter(n int, set []int) []int {
	pos := make([]int, n)
	for i := range pos {
		pos[i] = -1
	}
	for l, g := range set {
		pos[g] = l
	}
	return pos
}
