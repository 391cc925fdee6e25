// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package graph

import "github.com/pkg/errors"

// Partition derives the partition vector classifying every primal column,
// slack column and constraint row of the assembled KKT system. The vector is
// the concatenation [columns ; slacks ; rows] matching the KKT layout;
// slackRows lists, in slack order, the constraint row each slack belongs to.
//
// Without sub-blocks each node becomes a partition: self-edge rows follow
// their node, while a linking edge sends its rows and every column it
// references to the coupling partition 0. With sub-blocks each sub-block
// becomes a partition spanning its nodes and edges; root variables and root
// edges (rows and referenced columns) form the border.
//
// After derivation no constraint row couples two distinct non-border
// partitions: any row that would is itself promoted to the border together
// with the offending columns.
func (g *Graph) Partition(slackRows []int) ([]int, error) {
	pcol := make([]int, g.ncol)
	prow := make([]int, g.nrow)

	if len(g.blocks[Root].subs) == 0 {
		g.oneLevel(pcol, prow)
	} else {
		g.twoLevel(pcol, prow)
	}

	part := make([]int, 0, g.ncol+len(slackRows)+g.nrow)
	part = append(part, pcol...)
	for s, r := range slackRows {
		if r < 0 || r >= g.nrow {
			return nil, errors.Errorf("slack %d bound to unknown row %d", s, r)
		}
		part = append(part, prow[r]) // slacks inherit their row
	}
	return append(part, prow...), nil
}

// oneLevel assigns partition i+1 to the i-th node.
func (g *Graph) oneLevel(pcol, prow []int) {
	for id, n := range g.nodes {
		p := id + 1
		for c := n.col; c < n.col+n.nvar; c++ {
			pcol[c] = p
		}
	}
	for _, e := range g.edges {
		own := NodeId(-1)
		link := false
		for _, r := range e.refs {
			switch {
			case own < 0:
				own = r.Node
			case own != r.Node:
				link = true
			}
		}
		p := 0
		if own >= 0 && !link {
			p = int(own) + 1
		}
		for r := e.row; r < e.row+e.ncon; r++ {
			prow[r] = p
		}
		if p == 0 {
			for _, r := range e.refs {
				pcol[g.col(r)] = 0
			}
		}
	}
}

// twoLevel assigns partition s+1 to the s-th sub-block.
func (g *Graph) twoLevel(pcol, prow []int) {
	for s, sb := range g.blocks[Root].subs {
		p := s + 1
		for _, id := range g.blocks[sb].nodes {
			n := g.nodes[id]
			for c := n.col; c < n.col+n.nvar; c++ {
				pcol[c] = p
			}
		}
		for _, id := range g.blocks[sb].edges {
			e := g.edges[id]
			for r := e.row; r < e.row+e.ncon; r++ {
				prow[r] = p
			}
		}
	}
	// Root variables already hold 0; root edges pull their rows and every
	// referenced column into the border.
	for _, id := range g.blocks[Root].edges {
		e := g.edges[id]
		for r := e.row; r < e.row+e.ncon; r++ {
			prow[r] = 0
		}
		for _, r := range e.refs {
			pcol[g.col(r)] = 0
		}
	}
}
