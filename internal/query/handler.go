// Package query implements the Bayesian-Sets query handler: resolving an
// item-id query to row indices, computing the per-query feature weights,
// and evaluating the fused sparse mat-vec plus bounded top-K selection
// described in spec.md §4.4.
package query

import (
	"container/heap"
	"context"
	"math"

	"github.com/baysets/baysets/internal/csr"
	"github.com/baysets/baysets/internal/ids"
	"github.com/baysets/baysets/internal/model"
)

// Result is a single scored candidate returned from Query.
type Result struct {
	ItemID   int64
	LogScore float64
}

// Prepared holds the per-query working state shared by Query and the
// explainer: the resolved row set, the feature-frequency vector q, the
// fused per-feature weight vector u, and the scalar bias b. It is owned by
// a single Handler invocation and is never mutated after Prepare returns.
type Prepared struct {
	Rows []int32
	Q    int
	Qvec []float64
	U    []float64
	B    float64
}

// Handler executes queries against a shared, immutable computed index. A
// Handler is single-shot/sequential per the spec's thread-safety contract:
// create one per query (or per goroutine), never share across concurrent
// callers.
type Handler struct {
	rows  *ids.Table[int64]
	mat   *csr.Matrix
	hyper *model.Hyperparams
}

// NewHandler builds a query handler over the given identifier table, CSR
// matrix, and precomputed hyperparameters. The three must come from the
// same sealed computed index.
func NewHandler(rows *ids.Table[int64], mat *csr.Matrix, hyper *model.Hyperparams) *Handler {
	return &Handler{rows: rows, mat: mat, hyper: hyper}
}

// Prepare resolves itemIDs to row indices (deduplicated, unknown ids
// silently dropped per spec §4.4/§7), computes the query feature-frequency
// vector q, and derives the per-query weight vector u and bias b so that
// log_score = X·u + b·1.
func (h *Handler) Prepare(itemIDs []int64) *Prepared {
	seen := make(map[int32]struct{}, len(itemIDs))
	rows := make([]int32, 0, len(itemIDs))
	for _, id := range itemIDs {
		row, ok := h.rows.Lookup(id)
		if !ok {
			continue
		}
		r := int32(row)
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		rows = append(rows, r)
	}

	m := h.mat.M
	q := make([]float64, m)
	for _, r := range rows {
		for _, j := range h.mat.Row(int(r)) {
			q[j]++
		}
	}

	qSize := float64(len(rows))
	u := make([]float64, m)
	var b float64
	for j := 0; j < m; j++ {
		// s_j = 0 (alpha = 0) or s_j = N (beta = 0) would divide log(0)
		// into the score below; both are non-discriminative columns, so
		// per spec §7 they contribute nothing and are skipped outright.
		if h.hyper.ColSum[j] == 0 || int(h.hyper.ColSum[j]) == h.hyper.N {
			continue
		}
		alpha := h.hyper.Alpha[j]
		beta := h.hyper.Beta[j]
		logAlphaBeta := h.hyper.LogAlphaBeta[j]
		logAlphaBetaQ := math.Log(alpha + beta + qSize)

		w := math.Log(alpha+q[j]) - math.Log(alpha) - logAlphaBetaQ + logAlphaBeta
		absence := math.Log(beta+qSize-q[j]) - math.Log(beta) - logAlphaBetaQ + logAlphaBeta

		u[j] = w - absence
		b += absence
	}

	return &Prepared{Rows: rows, Q: len(rows), Qvec: q, U: u, B: b}
}

// ScoreRow evaluates the fused mat-vec for a single row against an already
// prepared query, without running the top-K scan. Used by callers that only
// need to splice a log score onto a row discovered through some other
// ranking (e.g. internal/searchbridge attaching a score to a full-text hit).
func (p *Prepared) ScoreRow(mat *csr.Matrix, row int) float64 {
	score := p.B
	for _, j := range mat.Row(row) {
		score += p.U[j]
	}
	return score
}

// Query resolves itemIDs, scores every row via the fused mat-vec, and
// returns the top-K candidates in descending score order. An empty
// resolved query set returns an empty result without scoring (§4.4 edge
// case). topK <= 0 returns an empty result (§7). topK >= N returns every
// row, sorted.
func (h *Handler) Query(ctx context.Context, itemIDs []int64, topK int) ([]Result, error) {
	if topK <= 0 {
		return nil, nil
	}

	prep := h.Prepare(itemIDs)
	if prep.Q == 0 {
		return nil, nil
	}

	n := h.mat.N
	if topK > n {
		topK = n
	}

	hp := newScoreHeap(topK)
	blockSize := 4096
	for lo := 0; lo < n; lo += blockSize {
		hi := lo + blockSize
		if hi > n {
			hi = n
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		for i := lo; i < hi; i++ {
			hp.offer(scoreEntry{score: prep.ScoreRow(h.mat, i), row: int32(i)})
		}
	}

	entries := hp.sortedDescending()
	out := make([]Result, len(entries))
	for k, e := range entries {
		out[k] = Result{ItemID: h.rows.Key(int(e.row)), LogScore: e.score}
	}
	return out, nil
}

// scoreEntry is a candidate row keyed for the top-K heap by
// (log_score, -row_index): higher score wins, and on equal score the
// lower row index wins (spec §4.4).
type scoreEntry struct {
	score float64
	row   int32
}

// less reports whether a sorts before b in the heap's min-ordering, i.e.
// whether a is the "worse" candidate that should be evicted first.
func (a scoreEntry) less(b scoreEntry) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.row > b.row
}

// scoreHeap is a bounded min-heap of size capacity holding the current
// best candidates seen so far.
type scoreHeap struct {
	capacity int
	entries  scoreEntrySlice
}

func newScoreHeap(capacity int) *scoreHeap {
	h := &scoreHeap{capacity: capacity}
	h.entries = make(scoreEntrySlice, 0, capacity)
	return h
}

func (h *scoreHeap) offer(e scoreEntry) {
	if len(h.entries) < h.capacity {
		heap.Push(&h.entries, e)
		return
	}
	if len(h.entries) > 0 && h.entries[0].less(e) {
		h.entries[0] = e
		heap.Fix(&h.entries, 0)
	}
}

// sortedDescending drains the heap into a slice ordered best-first.
func (h *scoreHeap) sortedDescending() []scoreEntry {
	n := len(h.entries)
	out := make([]scoreEntry, n)
	tmp := append(scoreEntrySlice{}, h.entries...)
	for i := n - 1; i >= 0; i-- {
		out[i] = heap.Pop(&tmp).(scoreEntry)
	}
	return out
}

type scoreEntrySlice []scoreEntry

func (s scoreEntrySlice) Len() int            { return len(s) }
func (s scoreEntrySlice) Less(i, j int) bool  { return s[i].less(s[j]) }
func (s scoreEntrySlice) Swap(i, j int)       { s[i], s[j] = s[j], s[i] }
func (s *scoreEntrySlice) Push(x interface{}) { *s = append(*s, x.(scoreEntry)) }
func (s *scoreEntrySlice) Pop() interface{} {
	old := *s
	n := len(old)
	v := old[n-1]
	*s = old[:n-1]
	return v
}
