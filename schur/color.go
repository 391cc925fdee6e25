// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schur

// Schur columns are assigned to colors round-robin so that inside one
// assembly round the workers write disjoint column sets. The factorize loop
// runs colors sequentially; within a round worker k handles color
// (q+k) mod K, so across all rounds every worker visits every color once.

// colorCols partitions the columns {0 ··· n0-1} into round-robin color sets:
// color c holds the columns {j : j mod colors = c}.
func colorCols(n0, colors int) [][]int {
	sets := make([][]int, colors)
	for c := range sets {
		sets[c] = make([]int, 0, (n0+colors-1-c)/colors)
		for j := c; j < n0; j += colors {
			sets[c] = append(sets[c], j)
		}
	}
	return sets
}

// colorOf returns the color worker k contributes during round q.
func colorOf(q, k, colors int) int {
	return (q + k) % colors
}
