// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package schur implements a parallel Schur-complement solver for symmetric
// indefinite KKT systems in bordered block-diagonal form.
//
// A partition vector splits the system into a coupling border 𝐊₀ and
// independent diagonal blocks 𝐊₁ ··· 𝐊ᴷ tied to the border by rectangular
// blocks 𝐁ₖ. Factorization solves each block independently and assembles the
// dense Schur complement
//
//	𝐒 = 𝐊₀ - ∑ 𝐁ₖᵀ𝐊ₖ⁻¹𝐁ₖ
//
// after which a solve is a bordered forward/back substitution.
package schur

import (
	"errors"
	"fmt"
	"io"
)

const (
	zero = 0.0
	one  = 1.0
	eps  = float64(7)/3 - float64(4)/3 - 1.
)

var (
	// ErrInvalidPartition the partition vector is missing, empty,
	// or couples two distinct non-border partitions.
	ErrInvalidPartition = errors.New("invalid partition")
	// ErrBlockSingular some diagonal block 𝐊ₖ is singular.
	ErrBlockSingular = errors.New("singular diagonal block")
	// ErrSchurSingular the dense Schur complement 𝐒 is singular.
	ErrSchurSingular = errors.New("singular schur complement")
	// ErrInertiaUnavailable an inner solver cannot report inertia.
	ErrInertiaUnavailable = errors.New("inertia unavailable")
	// ErrRefinementStalled iterative refinement did not reduce the residual.
	ErrRefinementStalled = errors.New("refinement stalled")
	// ErrDimensionMismatch the right-hand side length differs from the system.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrNotFactorized solve or inertia requested before a factorization.
	ErrNotFactorized = errors.New("matrix not factorized")

	// errSingular is reported by the inner solvers and mapped to
	// ErrBlockSingular or ErrSchurSingular by the orchestrator.
	errSingular = errors.New("singular matrix")
)

// LogLevel controls the frequency and type of logger output.
type LogLevel int

const (
	// LogError print errors only.
	LogError LogLevel = iota
	// LogInfo print one line per construction and factorize,
	// and a line when refinement stalls.
	LogInfo
	// LogTrace print per-worker details.
	LogTrace
)

// Logger handles logging output for the solver.
// Note the writer must be thread-safe when workers run in parallel.
type Logger struct {
	Level LogLevel
	Msg   io.Writer
}

func (l Logger) enable(level LogLevel) bool {
	return l.Msg != nil && l.Level >= level
}

func (l Logger) log(level LogLevel, format string, a ...any) {
	if !l.enable(level) {
		return
	}
	if len(a) > 0 {
		_, _ = fmt.Fprintf(l.Msg, format, a...)
	} else {
		_, _ = fmt.Fprint(l.Msg, format)
	}
}
