// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schur

import "testing"

// Within any round the workers must write disjoint column sets, and across
// all rounds every worker must visit every column exactly once.
func TestColorDisjoint(t *testing.T) {
	for _, tc := range []struct{ n0, workers int }{
		{1, 1}, {5, 2}, {7, 3}, {8, 4}, {3, 5},
	} {
		sets := colorCols(tc.n0, tc.workers)

		total := 0
		for _, s := range sets {
			total += len(s)
		}
		if total != tc.n0 {
			t.Fatalf("TestColorDisjoint: %d columns colored of %d", total, tc.n0)
		}

		touched := make([][]int, tc.workers) // per-worker visit counts
		for k := range touched {
			touched[k] = make([]int, tc.n0)
		}
		for q := 0; q < tc.workers; q++ {
			round := make([]bool, tc.n0)
			for k := 0; k < tc.workers; k++ {
				for _, j := range sets[colorOf(q, k, tc.workers)] {
					if round[j] {
						t.Fatalf("TestColorDisjoint: n0=%d workers=%d round %d column %d written twice", tc.n0, tc.workers, q, j)
					}
					round[j] = true
					touched[k][j]++
				}
			}
		}
		for k := range touched {
			for j, c := range touched[k] {
				if c != 1 {
					t.Fatalf("TestColorDisjoint: worker %d visited column %d %d times", k, j, c)
				}
			}
		}
	}
}
