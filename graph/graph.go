// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package graph models the hierarchical structure of a partitionable
// optimization problem: a root block holding nodes (variable groups), edges
// (constraint groups coupling node variables) and optionally one level of
// disjoint sub-blocks. Cross-sub-block coupling is expressed only through
// edges attached to the root.
//
// Nodes, edges and blocks live in arenas addressed by integer ids, so the
// mutually referencing structure carries no ownership cycles.
package graph

import "github.com/pkg/errors"

type (
	// NodeId addresses a node in its graph arena.
	NodeId int
	// EdgeId addresses an edge in its graph arena.
	EdgeId int
	// BlockId addresses a block in its graph arena.
	BlockId int
)

// Root is the id of the root block every graph starts with.
const Root BlockId = 0

// VarRef names one variable of a node.
type VarRef struct {
	Node  NodeId
	Index int
}

type node struct {
	block BlockId
	nvar  int
	col   int // first global column
}

type edge struct {
	block BlockId
	ncon  int
	row   int // first global row
	refs  []VarRef
}

type block struct {
	nodes []NodeId
	edges []EdgeId
	subs  []BlockId
}

// Graph is an arena-allocated two-level problem graph.
// Columns are laid out in node creation order, rows in edge creation order.
type Graph struct {
	blocks []block
	nodes  []node
	edges  []edge
	ncol   int
	nrow   int
}

// New creates a graph holding only the empty root block.
func New() *Graph {
	return &Graph{blocks: make([]block, 1)}
}

// AddBlock creates a sub-block of the root.
// The hierarchy is limited to two levels: sub-blocks cannot nest.
func (g *Graph) AddBlock() BlockId {
	id := BlockId(len(g.blocks))
	g.blocks = append(g.blocks, block{})
	g.blocks[Root].subs = append(g.blocks[Root].subs, id)
	return id
}

// AddNode creates a node contributing nvar variable columns to block b.
func (g *Graph) AddNode(b BlockId, nvar int) (NodeId, error) {
	if int(b) >= len(g.blocks) {
		return 0, errors.Errorf("unknown block %d", b)
	}
	if nvar <= 0 {
		return 0, errors.Errorf("node must contribute at least one variable")
	}
	id := NodeId(len(g.nodes))
	g.nodes = append(g.nodes, node{block: b, nvar: nvar, col: g.ncol})
	g.blocks[b].nodes = append(g.blocks[b].nodes, id)
	g.ncol += nvar
	return id, nil
}

// AddEdge creates an edge contributing ncon constraint rows to block b,
// referencing the given node variables. An edge on a sub-block may only
// reference nodes of that sub-block; coupling across sub-blocks belongs on
// the root.
func (g *Graph) AddEdge(b BlockId, ncon int, refs ...VarRef) (EdgeId, error) {
	if int(b) >= len(g.blocks) {
		return 0, errors.Errorf("unknown block %d", b)
	}
	if ncon <= 0 {
		return 0, errors.Errorf("edge must contribute at least one constraint")
	}
	for _, r := range refs {
		if int(r.Node) >= len(g.nodes) {
			return 0, errors.Errorf("unknown node %d", r.Node)
		}
		n := &g.nodes[r.Node]
		if r.Index < 0 || r.Index >= n.nvar {
			return 0, errors.Errorf("variable %d out of node %d range", r.Index, r.Node)
		}
		if b != Root && n.block != b {
			return 0, errors.Errorf("edge on block %d references node %d of block %d", b, r.Node, n.block)
		}
	}
	id := EdgeId(len(g.edges))
	g.edges = append(g.edges, edge{block: b, ncon: ncon, row: g.nrow, refs: refs})
	g.blocks[b].edges = append(g.blocks[b].edges, id)
	g.nrow += ncon
	return id, nil
}

// NumVars reports the total number of variable columns.
func (g *Graph) NumVars() int { return g.ncol }

// NumCons reports the total number of constraint rows.
func (g *Graph) NumCons() int { return g.nrow }

// NumNodes reports the number of nodes across all blocks.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumEdges reports the number of edges across all blocks.
func (g *Graph) NumEdges() int { return len(g.edges) }

// NumBlocks reports the number of sub-blocks under the root.
func (g *Graph) NumBlocks() int { return len(g.blocks) - 1 }

// NodeCol reports the first global column of a node.
func (g *Graph) NodeCol(id NodeId) int { return g.nodes[id].col }

// NodeVars reports the number of variables of a node.
func (g *Graph) NodeVars(id NodeId) int { return g.nodes[id].nvar }

// EdgeRow reports the first global row of an edge.
func (g *Graph) EdgeRow(id EdgeId) int { return g.edges[id].row }

// EdgeCons reports the number of constraint rows of an edge.
func (g *Graph) EdgeCons(id EdgeId) int { return g.edges[id].ncon }

// EdgeRefs reports the variables an edge references.
func (g *Graph) EdgeRefs(id EdgeId) []VarRef { return g.edges[id].refs }

// col resolves a variable reference to its global column.
func (g *Graph) col(r VarRef) int { return g.nodes[r.Node].col + r.Index }
