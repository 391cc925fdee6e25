// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schur

import (
	"runtime"

	"github.com/pkg/errors"

	"github.com/curioloop/schur/sparse"
)

// Dtype identifies a floating point precision a solver backend accepts.
type Dtype int

const (
	Float64 Dtype = iota
	Float32
)

// Backend identifies a linear solver implementation.
// Dispatch happens once at solver construction, not per call.
type Backend int

const (
	// LDL factorizes 𝐀 = 𝐋𝐃𝐋ᵀ without pivoting.
	// Reports inertia from the signs of 𝐃.
	LDL Backend = iota
	// LU factorizes with partial pivoting through gonum.
	// Cannot report inertia.
	LU
)

// Supports reports whether the backend accepts the given precision.
func (b Backend) Supports(t Dtype) bool {
	return t == Float64
}

// threadSafe reports whether independent instances of the backend
// may factorize concurrently.
func (b Backend) threadSafe() bool {
	switch b {
	case LDL, LU:
		return true
	}
	return false
}

func (b Backend) String() string {
	switch b {
	case LDL:
		return "ldl"
	case LU:
		return "lu"
	}
	return "unknown"
}

// SolverOptions are forwarded to every instance a backend creates.
type SolverOptions struct {
	// PivotTol is the relative magnitude below which a pivot is
	// declared zero. A non-positive value selects the default.
	PivotTol float64
}

func (o SolverOptions) pivotTol() float64 {
	if o.PivotTol > zero {
		return o.PivotTol
	}
	return eps * 64
}

// Options configure a Schur solver.
type Options struct {
	// Partition assigns every KKT row/column to the coupling border (0)
	// or to an independent subproblem (1 ··· K). Required.
	Partition []int
	// Subproblem selects the direct solver for the diagonal blocks 𝐊ₖ.
	Subproblem Backend
	// SubproblemOptions are forwarded to each block solver.
	SubproblemOptions SolverOptions
	// Dense selects the solver for the Schur complement 𝐒.
	Dense Backend
	// DenseOptions are forwarded to the dense solver.
	DenseOptions SolverOptions
	// PrintLevel is the minimum log level. LogError silences all but errors.
	PrintLevel LogLevel
	// MaxCPUTime is a soft wall-clock budget in seconds.
	// It is carried for the outer solver and not enforced here.
	MaxCPUTime float64
	// NumThreads caps worker parallelism. Zero selects GOMAXPROCS,
	// one runs the worker loops serially.
	NumThreads int
}

func (o *Options) threads() int {
	n := o.NumThreads
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if !o.Subproblem.threadSafe() {
		n = 1
	}
	return n
}

// checkPartition validates the partition vector against the matrix pattern
// and returns the number of subproblem partitions.
func checkPartition(k *sparse.Matrix, part []int) (int, error) {
	if len(part) == 0 {
		return 0, errors.Wrap(ErrInvalidPartition, "partition vector is required")
	}
	if len(part) != k.Rows {
		return 0, errors.Wrapf(ErrInvalidPartition, "partition length %d differs from system dimension %d", len(part), k.Rows)
	}
	np := 0
	for i, p := range part {
		if p < 0 {
			return 0, errors.Wrapf(ErrInvalidPartition, "negative partition %d at index %d", p, i)
		}
		if p > np {
			np = p
		}
	}
	// Any stored entry coupling two distinct non-border partitions would
	// produce fill across disjoint blocks.
	for j := 0; j < k.Cols; j++ {
		pj := part[j]
		for p := k.ColPtr[j]; p < k.ColPtr[j+1]; p++ {
			pi := part[k.RowInd[p]]
			if pi != pj && pi != 0 && pj != 0 {
				return 0, errors.Wrapf(ErrInvalidPartition, "entry (%d,%d) couples partitions %d and %d", k.RowInd[p], j, pi, pj)
			}
		}
	}
	return np, nil
}
