// Package model precomputes the Beta-Bernoulli hyperparameters that turn a
// per-query Bayesian-Sets log-score into an affine function of a candidate
// row, as described in spec.md §4.3.
package model

import (
	"math"

	"github.com/baysets/baysets/internal/csr"
)

// Hyperparams holds the per-feature vectors derived from a sealed CSR
// matrix. All vectors have length M (one entry per feature/column) and are
// immutable once computed.
type Hyperparams struct {
	// N is the row count of the matrix these hyperparameters were derived
	// from; needed by the query handler to recompute Q-dependent terms.
	N int
	// SmoothingC is the smoothing constant `c` used to derive Alpha/Beta.
	SmoothingC float64

	// ColSum is s_j, the document frequency of feature j.
	ColSum []int32
	// Alpha is α_j = c·s_j/N.
	Alpha []float64
	// Beta is β_j = c·(N−s_j)/N.
	Beta []float64
	// LogA is log(α_j+1) − log(α_j), defined as 0 when s_j = 0.
	LogA []float64
	// LogB is log(β_j) − log(β_j+1), used for features the query has but a
	// candidate lacks (spec §4.4).
	LogB []float64
	// LogAlphaBeta is log(α_j + β_j), precomputed since it recurs in both
	// the per-query weight and bias formulas.
	LogAlphaBeta []float64
}

// Precompute derives Hyperparams for a sealed CSR matrix m using smoothing
// constant c. Zero columns (s_j = 0) are retained with LogA forced to 0, and
// universal columns (s_j = N, so β_j = 0) are retained with LogB forced to
// 0, per spec §4.3's numerical note and its symmetric counterpart in §7.
func Precompute(m *csr.Matrix, c float64) *Hyperparams {
	colSum := make([]int32, m.M)
	for i := 0; i < m.N; i++ {
		for _, j := range m.Row(i) {
			colSum[j]++
		}
	}

	h := &Hyperparams{
		N:            m.N,
		SmoothingC:   c,
		ColSum:       colSum,
		Alpha:        make([]float64, m.M),
		Beta:         make([]float64, m.M),
		LogA:         make([]float64, m.M),
		LogB:         make([]float64, m.M),
		LogAlphaBeta: make([]float64, m.M),
	}

	n := float64(m.N)
	for j := 0; j < m.M; j++ {
		sj := float64(colSum[j])
		alpha := c * sj / n
		beta := c * (n - sj) / n
		h.Alpha[j] = alpha
		h.Beta[j] = beta
		h.LogAlphaBeta[j] = math.Log(alpha + beta)

		if colSum[j] == 0 {
			h.LogA[j] = 0
		} else {
			h.LogA[j] = math.Log(alpha+1) - math.Log(alpha)
		}

		if int(colSum[j]) == m.N {
			h.LogB[j] = 0
		} else {
			h.LogB[j] = math.Log(beta) - math.Log(beta+1)
		}
	}

	return h
}
