// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package nlp

import (
	"math"
	"testing"

	"github.com/curioloop/schur/graph"
)

func almostEqual(x, y []float64, tol float64) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if math.Abs(x[i]-y[i]) > tol {
			return false
		}
	}
	return true
}

// twoNodeProblem couples two one-variable nodes with an equality edge and
// gives each node an inequality self-edge.
//
//	minimize (x₀-1)² + (x₁+2)² subject to
//	  - x₀ + x₁ = 1
//	  - x₀² ≤ 4 , x₁² ≤ 4
func twoNodeProblem(t *testing.T) (*graph.Graph, []NodeData, []EdgeModel, Objective) {
	g := graph.New()
	a, err := g.AddNode(graph.Root, 1)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := g.AddNode(graph.Root, 1)
	if _, err := g.AddEdge(graph.Root, 1, graph.VarRef{Node: a, Index: 0}, graph.VarRef{Node: b, Index: 0}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.AddEdge(graph.Root, 1, graph.VarRef{Node: a, Index: 0}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.AddEdge(graph.Root, 1, graph.VarRef{Node: b, Index: 0}); err != nil {
		t.Fatal(err)
	}

	nodes := []NodeData{
		{Lower: []float64{0.5}, Upper: []float64{3}},
		{Start: []float64{-1}},
	}
	square := func(col int) EdgeModel {
		return EdgeModel{
			Upper: []float64{4},
			Eval:  func(x, c []float64) { c[0] = x[col] * x[col] },
			Jac:   func(x, v []float64) { v[0] = 2 * x[col] },
			Hess:  func(x, lam, v []float64) { v[0] = 2 * lam[0] },
		}
	}
	edges := []EdgeModel{
		{
			Lower:     []float64{1},
			Upper:     []float64{1},
			DualStart: []float64{0.25},
			Eval:      func(x, c []float64) { c[0] = x[0] + x[1] },
			// Jac omitted: exercised through forward differences
		},
		square(0),
		square(1),
	}
	obj := Objective{
		Eval: func(x []float64) float64 {
			return (x[0]-1)*(x[0]-1) + (x[1]+2)*(x[1]+2)
		},
		HessRows: []int{0, 1},
		HessCols: []int{0, 1},
		Hess:     func(x, v []float64) { v[0], v[1] = 2, 2 },
	}
	return g, nodes, edges, obj
}

func TestStartPrimal(t *testing.T) {
	g, nodes, edges, obj := twoNodeProblem(t)
	a, err := NewAdapter(g, nodes, edges, obj)
	if err != nil {
		t.Fatal(err)
	}
	// node a has no start: zero clamped into [0.5, 3]; node b starts at -1
	if x := a.StartPrimal(); !almostEqual(x, []float64{0.5, -1}, 0) {
		t.Fatalf("TestStartPrimal: got %v", x)
	}
}

func TestStartDual(t *testing.T) {
	g, nodes, edges, obj := twoNodeProblem(t)
	a, err := NewAdapter(g, nodes, edges, obj)
	if err != nil {
		t.Fatal(err)
	}
	// the equality multiplier is sign-flipped, inequality starts stay zero
	if lam := a.StartDual(); !almostEqual(lam, []float64{-0.25, 0, 0}, 0) {
		t.Fatalf("TestStartDual: got %v", lam)
	}
}

func TestBounds(t *testing.T) {
	g, nodes, edges, obj := twoNodeProblem(t)
	a, err := NewAdapter(g, nodes, edges, obj)
	if err != nil {
		t.Fatal(err)
	}
	vl, vu := a.VarBounds()
	if vl[0] != 0.5 || vu[0] != 3 || !math.IsInf(vl[1], -1) || !math.IsInf(vu[1], 1) {
		t.Fatalf("TestBounds: var bounds %v %v", vl, vu)
	}
	cl, cu := a.ConsBounds()
	if cl[0] != 1 || cu[0] != 1 || !math.IsInf(cl[1], -1) || cu[1] != 4 {
		t.Fatalf("TestBounds: cons bounds %v %v", cl, cu)
	}
	if s := a.SlackRows(); len(s) != 2 || s[0] != 1 || s[1] != 2 {
		t.Fatalf("TestBounds: slack rows %v", s)
	}
}

func TestPartitionThroughAdapter(t *testing.T) {
	g, nodes, edges, obj := twoNodeProblem(t)
	a, err := NewAdapter(g, nodes, edges, obj)
	if err != nil {
		t.Fatal(err)
	}
	part, err := a.Partition()
	if err != nil {
		t.Fatal(err)
	}
	// layout: 2 columns, 2 slacks, 3 rows
	if len(part) != 7 {
		t.Fatalf("TestPartitionThroughAdapter: length %d", len(part))
	}
	// the equality edge links both nodes: its row and both columns border
	if part[0] != 0 || part[1] != 0 || part[4] != 0 {
		t.Fatalf("TestPartitionThroughAdapter: got %v", part)
	}
	// slacks follow their self-edge rows
	if part[2] != part[5] || part[3] != part[6] {
		t.Fatalf("TestPartitionThroughAdapter: slack inheritance %v", part)
	}
}

func TestStructures(t *testing.T) {
	g, nodes, edges, obj := twoNodeProblem(t)
	a, err := NewAdapter(g, nodes, edges, obj)
	if err != nil {
		t.Fatal(err)
	}
	jr, jc := a.JacStructure()
	// edge 0 over both columns, edges 1 and 2 over one each
	wantR := []int{0, 0, 1, 2}
	wantC := []int{0, 1, 0, 1}
	for k := range wantR {
		if jr[k] != wantR[k] || jc[k] != wantC[k] {
			t.Fatalf("TestStructures: jacobian (%v,%v)", jr, jc)
		}
	}
	hr, hc := a.HessStructure()
	// objective diagonal then one entry per squared edge
	wantR = []int{0, 1, 0, 1}
	wantC = []int{0, 1, 0, 1}
	for k := range wantR {
		if hr[k] != wantR[k] || hc[k] != wantC[k] {
			t.Fatalf("TestStructures: hessian (%v,%v)", hr, hc)
		}
	}
}

func TestEvaluations(t *testing.T) {
	g, nodes, edges, obj := twoNodeProblem(t)
	a, err := NewAdapter(g, nodes, edges, obj)
	if err != nil {
		t.Fatal(err)
	}
	x := []float64{2, 3}

	f, err := a.Objective(x)
	if err != nil || f != 1+25 {
		t.Fatalf("TestEvaluations: objective %v %v", f, err)
	}

	grad := make([]float64, 2)
	if err := a.Gradient(x, grad); err != nil {
		t.Fatal(err)
	}
	if !almostEqual(grad, []float64{2, 10}, 1e-6) {
		t.Fatalf("TestEvaluations: gradient %v", grad)
	}

	c := make([]float64, 3)
	if err := a.Constraints(x, c); err != nil {
		t.Fatal(err)
	}
	if !almostEqual(c, []float64{5, 4, 9}, 1e-14) {
		t.Fatalf("TestEvaluations: residuals %v", c)
	}

	jac := make([]float64, 4)
	if err := a.Jacobian(x, jac); err != nil {
		t.Fatal(err)
	}
	// the equality edge falls back to forward differences
	if !almostEqual(jac, []float64{1, 1, 4, 6}, 1e-6) {
		t.Fatalf("TestEvaluations: jacobian %v", jac)
	}

	lam := []float64{1, 0.5, 2}
	hes := make([]float64, 4)
	if err := a.Hessian(x, 3, lam, hes); err != nil {
		t.Fatal(err)
	}
	if !almostEqual(hes, []float64{6, 6, 1, 4}, 1e-14) {
		t.Fatalf("TestEvaluations: hessian %v", hes)
	}
}

func TestEvaluationPanic(t *testing.T) {
	g := graph.New()
	n, _ := g.AddNode(graph.Root, 1)
	if _, err := g.AddEdge(graph.Root, 1, graph.VarRef{Node: n, Index: 0}); err != nil {
		t.Fatal(err)
	}
	edges := []EdgeModel{{
		Eval: func(x, c []float64) { panic("boom") },
	}}
	obj := Objective{Eval: func(x []float64) float64 { return 0 }}
	a, err := NewAdapter(g, []NodeData{{}}, edges, obj)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Constraints([]float64{1}, make([]float64, 1)); err == nil {
		t.Fatal("TestEvaluationPanic: want error")
	}
}

func TestAdapterValidation(t *testing.T) {
	g := graph.New()
	if _, err := g.AddNode(graph.Root, 2); err != nil {
		t.Fatal(err)
	}
	obj := Objective{Eval: func(x []float64) float64 { return 0 }}

	if _, err := NewAdapter(g, nil, nil, obj); err == nil {
		t.Fatal("TestAdapterValidation: node count must fail")
	}
	if _, err := NewAdapter(g, []NodeData{{}}, nil, Objective{}); err == nil {
		t.Fatal("TestAdapterValidation: missing objective must fail")
	}
	if _, err := NewAdapter(g, []NodeData{{Start: []float64{1}}}, nil, obj); err == nil {
		t.Fatal("TestAdapterValidation: start length must fail")
	}
}
