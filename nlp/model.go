// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package nlp bridges a hierarchical problem graph to the interior-point
// solver: it builds starting primals and duals, bound vectors and the
// coordinate Jacobian/Hessian structure, and forwards numerical evaluation
// to per-edge models.
package nlp

// NodeData attaches numerical data to one node's variables.
// Every slice is either nil or of the node's variable count.
type NodeData struct {
	// Start is the user-specified primal start. When nil the start is
	// zero clamped into [Lower, Upper].
	Start []float64
	// Lower and Upper are the variable bounds. Nil means unbounded.
	Lower, Upper []float64
}

// EdgeModel evaluates one edge's constraint rows.
//
// Evaluators receive the full primal vector: an edge reads the variables it
// references through their global columns. Residual and derivative values are
// written into caller-provided slices in the enumerated coordinate order.
type EdgeModel struct {
	// Lower and Upper are the constraint bounds, one per row.
	// A row with Lower = Upper is an equality; any other row is an
	// inequality and receives a slack column.
	Lower, Upper []float64
	// DualStart is the user-specified multiplier start, zero when nil.
	// Equality multipliers are sign-flipped by the adapter.
	DualStart []float64
	// Eval writes the edge's residuals into c (length = rows).
	Eval func(x, c []float64)
	// Jac writes the Jacobian values row-major over the referenced
	// variables: value (r, k) of row r and reference k lands in
	// v[r*len(refs)+k]. When nil the adapter falls back to forward
	// differences of Eval.
	Jac func(x, v []float64)
	// Hess writes the multiplier-weighted Hessian values over the
	// lower triangle of the referenced variable pairs, in the order
	// enumerated by the adapter. Nil contributes nothing.
	Hess func(x, lam, v []float64)
}

// Objective is the separable objective of the whole problem.
type Objective struct {
	// Eval returns the objective at x.
	Eval func(x []float64) float64
	// Grad writes the dense gradient. When nil the adapter falls back
	// to forward differences of Eval.
	Grad func(x, g []float64)
	// HessRows and HessCols enumerate the lower-triangular coordinate
	// structure of the objective Hessian; Hess writes the matching values.
	HessRows, HessCols []int
	Hess               func(x, v []float64)
}
