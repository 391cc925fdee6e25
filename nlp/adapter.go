// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nlp

import (
	"math"

	"github.com/pkg/errors"

	"github.com/curioloop/schur/graph"
)

var sqrtEps = math.Sqrt(math.Nextafter(1, 2) - 1)

// Adapter walks a problem graph once to enumerate the KKT bookkeeping
// (starting point, bounds, slack rows, coordinate Jacobian and Hessian
// structure) and dispatches numerical evaluation to the per-edge models
// every iteration.
type Adapter struct {
	g     *graph.Graph
	nodes []NodeData
	edges []EdgeModel
	obj   Objective

	nvar, ncon int
	slackRows  []int // constraint row of each slack, in slack order

	edgeCols [][]int // global columns of each edge's references

	jacRows, jacCols []int
	jacOff           []int // per-edge offset into the Jacobian values
	hesRows, hesCols []int
	hesOff           []int // per-edge offset into the Hessian values
}

// NewAdapter validates the model data against the graph and enumerates the
// coordinate structures.
func NewAdapter(g *graph.Graph, nodes []NodeData, edges []EdgeModel, obj Objective) (*Adapter, error) {
	switch {
	case g == nil:
		return nil, errors.New("problem graph is required")
	case len(nodes) != g.NumNodes():
		return nil, errors.Errorf("node data count %d differs from graph nodes %d", len(nodes), g.NumNodes())
	case len(edges) != g.NumEdges():
		return nil, errors.Errorf("edge model count %d differs from graph edges %d", len(edges), g.NumEdges())
	case obj.Eval == nil:
		return nil, errors.New("objective function is required")
	case len(obj.HessRows) != len(obj.HessCols):
		return nil, errors.New("objective hessian structure must pair rows with columns")
	case len(obj.HessRows) > 0 && obj.Hess == nil:
		return nil, errors.New("objective hessian evaluator is required by its structure")
	}

	a := &Adapter{
		g: g, nodes: nodes, edges: edges, obj: obj,
		nvar: g.NumVars(), ncon: g.NumCons(),
	}

	for id, nd := range nodes {
		nv := g.NodeVars(graph.NodeId(id))
		for _, s := range [][]float64{nd.Start, nd.Lower, nd.Upper} {
			if s != nil && len(s) != nv {
				return nil, errors.Errorf("node %d data length differs from %d variables", id, nv)
			}
		}
	}

	for k, r := range obj.HessRows {
		if r < 0 || r >= a.nvar || obj.HessCols[k] < 0 || obj.HessCols[k] > r {
			return nil, errors.Errorf("objective hessian entry %d outside the lower triangle", k)
		}
	}

	a.edgeCols = make([][]int, len(edges))
	a.jacOff = make([]int, len(edges)+1)
	a.hesOff = make([]int, len(edges)+1)
	a.hesRows = append(a.hesRows, obj.HessRows...)
	a.hesCols = append(a.hesCols, obj.HessCols...)

	for id := range edges {
		e := &edges[id]
		eid := graph.EdgeId(id)
		nr := g.EdgeCons(eid)
		switch {
		case e.Eval == nil:
			return nil, errors.Errorf("edge %d evaluator is required", id)
		case e.Lower != nil && len(e.Lower) != nr,
			e.Upper != nil && len(e.Upper) != nr,
			e.DualStart != nil && len(e.DualStart) != nr:
			return nil, errors.Errorf("edge %d data length differs from %d rows", id, nr)
		}
		for r := 0; r < nr; r++ {
			lo, up := conBounds(e, r)
			if lo > up {
				return nil, errors.Errorf("edge %d row %d bound range is empty", id, r)
			}
			if lo != up { // inequality rows carry a slack
				a.slackRows = append(a.slackRows, g.EdgeRow(eid)+r)
			}
		}

		refs := g.EdgeRefs(eid)
		cols := make([]int, len(refs))
		for k, ref := range refs {
			cols[k] = g.NodeCol(ref.Node) + ref.Index
		}
		a.edgeCols[id] = cols

		// Jacobian block: dense over rows × referenced columns.
		a.jacOff[id] = len(a.jacRows)
		row := g.EdgeRow(eid)
		for r := 0; r < nr; r++ {
			for _, c := range cols {
				a.jacRows = append(a.jacRows, row+r)
				a.jacCols = append(a.jacCols, c)
			}
		}

		// Hessian block: lower triangle over referenced variable pairs,
		// pair (a,b) with b ≤ a, coordinates sorted into the triangle.
		a.hesOff[id] = len(a.hesRows)
		if e.Hess != nil {
			for p := range cols {
				for q := 0; q <= p; q++ {
					hi, lo := cols[p], cols[q]
					if hi < lo {
						hi, lo = lo, hi
					}
					a.hesRows = append(a.hesRows, hi)
					a.hesCols = append(a.hesCols, lo)
				}
			}
		}
	}
	a.jacOff[len(edges)] = len(a.jacRows)
	a.hesOff[len(edges)] = len(a.hesRows)
	return a, nil
}

// conBounds resolves the bounds of one constraint row, nil meaning unbounded.
func conBounds(e *EdgeModel, r int) (lo, up float64) {
	lo, up = math.Inf(-1), math.Inf(1)
	if e.Lower != nil {
		lo = e.Lower[r]
	}
	if e.Upper != nil {
		up = e.Upper[r]
	}
	return
}

// isEquality reports whether row r of the edge is an equality constraint.
func isEquality(e *EdgeModel, r int) bool {
	lo, up := conBounds(e, r)
	return lo == up
}

// NumVars reports the number of primal columns.
func (a *Adapter) NumVars() int { return a.nvar }

// NumCons reports the number of constraint rows.
func (a *Adapter) NumCons() int { return a.ncon }

// NumSlacks reports the number of slack columns.
func (a *Adapter) NumSlacks() int { return len(a.slackRows) }

// SlackRows lists the constraint row of each slack, in slack order.
func (a *Adapter) SlackRows() []int { return a.slackRows }

// Partition derives the KKT partition vector [columns ; slacks ; rows].
func (a *Adapter) Partition() ([]int, error) {
	return a.g.Partition(a.slackRows)
}

// StartPrimal builds the starting primal vector: the user start where given,
// otherwise zero clamped into the variable bounds.
func (a *Adapter) StartPrimal() []float64 {
	x := make([]float64, a.nvar)
	for id, nd := range a.nodes {
		nid := graph.NodeId(id)
		col, nv := a.g.NodeCol(nid), a.g.NodeVars(nid)
		for i := 0; i < nv; i++ {
			switch {
			case nd.Start != nil:
				x[col+i] = nd.Start[i]
			case nd.Lower != nil && nd.Lower[i] > 0:
				x[col+i] = nd.Lower[i]
			case nd.Upper != nil && nd.Upper[i] < 0:
				x[col+i] = nd.Upper[i]
			}
		}
	}
	return x
}

// StartDual builds the starting multiplier vector, one entry per constraint
// row: the user start where given, otherwise zero. Equality multipliers are
// sign-flipped to the solver's convention.
func (a *Adapter) StartDual() []float64 {
	lam := make([]float64, a.ncon)
	for id := range a.edges {
		e := &a.edges[id]
		row := a.g.EdgeRow(graph.EdgeId(id))
		for r := 0; r < a.g.EdgeCons(graph.EdgeId(id)); r++ {
			lam[row+r] = dualStart(e, r)
		}
	}
	return lam
}

// dualStart resolves one row's multiplier start from its enclosing edge.
func dualStart(e *EdgeModel, r int) float64 {
	v := 0.0
	if e.DualStart != nil {
		v = e.DualStart[r]
	}
	if isEquality(e, r) {
		return -v
	}
	return v
}

// VarBounds builds the variable bound vectors, ±Inf when unbounded.
func (a *Adapter) VarBounds() (lower, upper []float64) {
	lower = make([]float64, a.nvar)
	upper = make([]float64, a.nvar)
	for id, nd := range a.nodes {
		nid := graph.NodeId(id)
		col, nv := a.g.NodeCol(nid), a.g.NodeVars(nid)
		for i := 0; i < nv; i++ {
			lower[col+i], upper[col+i] = math.Inf(-1), math.Inf(1)
			if nd.Lower != nil {
				lower[col+i] = nd.Lower[i]
			}
			if nd.Upper != nil {
				upper[col+i] = nd.Upper[i]
			}
		}
	}
	return
}

// ConsBounds builds the constraint bound vectors, ±Inf when unbounded.
func (a *Adapter) ConsBounds() (lower, upper []float64) {
	lower = make([]float64, a.ncon)
	upper = make([]float64, a.ncon)
	for id := range a.edges {
		e := &a.edges[id]
		row := a.g.EdgeRow(graph.EdgeId(id))
		for r := 0; r < a.g.EdgeCons(graph.EdgeId(id)); r++ {
			lower[row+r], upper[row+r] = conBounds(e, r)
		}
	}
	return
}

// JacStructure reports the coordinate structure of the constraint Jacobian,
// enumerated once at construction.
func (a *Adapter) JacStructure() (rows, cols []int) { return a.jacRows, a.jacCols }

// HessStructure reports the lower-triangular coordinate structure of the
// Lagrangian Hessian: the objective entries followed by the edge entries.
func (a *Adapter) HessStructure() (rows, cols []int) { return a.hesRows, a.hesCols }

// guard converts an evaluator panic into an error.
func guard(err *error) {
	if r := recover(); r != nil {
		*err = errors.Errorf("evaluation panic: %v", r)
	}
}

// Objective evaluates the objective at x.
func (a *Adapter) Objective(x []float64) (f float64, err error) {
	defer guard(&err)
	return a.obj.Eval(x), nil
}

// Gradient writes the dense objective gradient, falling back to forward
// differences when the model supplies none.
func (a *Adapter) Gradient(x, g []float64) (err error) {
	defer guard(&err)
	if len(g) != a.nvar {
		return errors.Errorf("gradient length %d differs from %d variables", len(g), a.nvar)
	}
	if a.obj.Grad != nil {
		a.obj.Grad(x, g)
		return nil
	}
	f0 := a.obj.Eval(x)
	xs := append([]float64(nil), x...)
	for i := range xs {
		h := step(xs[i])
		xs[i] += h
		g[i] = (a.obj.Eval(xs) - f0) / h
		xs[i] = x[i]
	}
	return nil
}

// Constraints evaluates every edge's residual rows into c.
func (a *Adapter) Constraints(x, c []float64) (err error) {
	defer guard(&err)
	if len(c) != a.ncon {
		return errors.Errorf("residual length %d differs from %d rows", len(c), a.ncon)
	}
	for id := range a.edges {
		eid := graph.EdgeId(id)
		row := a.g.EdgeRow(eid)
		a.edges[id].Eval(x, c[row:row+a.g.EdgeCons(eid)])
	}
	return nil
}

// Jacobian writes the Jacobian values in the enumerated coordinate order,
// falling back to forward differences of Eval for edges without Jac.
func (a *Adapter) Jacobian(x, v []float64) (err error) {
	defer guard(&err)
	if len(v) != len(a.jacRows) {
		return errors.Errorf("jacobian length %d differs from structure %d", len(v), len(a.jacRows))
	}
	var xs []float64
	for id := range a.edges {
		e := &a.edges[id]
		eid := graph.EdgeId(id)
		nr := a.g.EdgeCons(eid)
		cols := a.edgeCols[id]
		out := v[a.jacOff[id]:a.jacOff[id+1]]
		if e.Jac != nil {
			e.Jac(x, out)
			continue
		}
		if xs == nil {
			xs = append([]float64(nil), x...)
		}
		c0 := make([]float64, nr)
		c1 := make([]float64, nr)
		e.Eval(xs, c0)
		for k, col := range cols {
			h := step(xs[col])
			xs[col] += h
			e.Eval(xs, c1)
			xs[col] = x[col]
			for r := 0; r < nr; r++ {
				out[r*len(cols)+k] = (c1[r] - c0[r]) / h
			}
		}
	}
	return nil
}

// Hessian writes the Lagrangian Hessian values in the enumerated coordinate
// order: the objective block scaled by sigma, then each edge's block weighted
// by its multiplier rows of lam.
func (a *Adapter) Hessian(x []float64, sigma float64, lam, v []float64) (err error) {
	defer guard(&err)
	if len(v) != len(a.hesRows) {
		return errors.Errorf("hessian length %d differs from structure %d", len(v), len(a.hesRows))
	}
	if nobj := len(a.obj.HessRows); nobj > 0 {
		a.obj.Hess(x, v[:nobj])
		for k := 0; k < nobj; k++ {
			v[k] *= sigma
		}
	}
	for id := range a.edges {
		e := &a.edges[id]
		if e.Hess == nil {
			continue
		}
		eid := graph.EdgeId(id)
		row := a.g.EdgeRow(eid)
		e.Hess(x, lam[row:row+a.g.EdgeCons(eid)], v[a.hesOff[id]:a.hesOff[id+1]])
	}
	return nil
}

// step selects the forward-difference step h = √ε·max(1,|x|).
func step(x float64) float64 {
	return sqrtEps * math.Max(1, math.Abs(x))
}
