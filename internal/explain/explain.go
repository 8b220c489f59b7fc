// Package explain decomposes a candidate's log-score into per-feature
// contributions, as described in spec.md §4.5.
package explain

import (
	"math"
	"sort"

	"github.com/baysets/baysets/internal/config"
	"github.com/baysets/baysets/internal/csr"
	"github.com/baysets/baysets/internal/ids"
	"github.com/baysets/baysets/internal/model"
	"github.com/baysets/baysets/internal/query"
)

// Term is a single (feature_label, contribution) pair in the explanation.
type Term struct {
	FeatureLabel string
	Contribution float64
}

// Result is the explanation returned for one candidate: the ranked,
// possibly-truncated list of per-feature contributions and their total.
type Result struct {
	Scores     []Term
	TotalScore float64
}

// Explain decomposes row i's log-score into per-feature contributions
// under prep (a query already prepared by query.Handler.Prepare). Features
// with zero document frequency (s_j = 0) contribute nothing and are
// skipped entirely, per spec §4.3's numerical note. Terms are sorted
// descending by contribution, tied by ascending column index, and
// truncated to maxTerms (0 means unbounded). TotalScore is the sum of the
// *returned* terms only, not the candidate's full log_score.
func Explain(mat *csr.Matrix, hyper *model.Hyperparams, feats *ids.Table[string], prep *query.Prepared, row int, maxTerms int, mode config.AttributionMode) Result {
	present := make(map[int32]struct{}, len(mat.Row(row)))
	for _, j := range mat.Row(row) {
		present[j] = struct{}{}
	}

	type scoredCol struct {
		col          int
		contribution float64
	}

	qSize := float64(prep.Q)
	var scored []scoredCol
	for j := 0; j < mat.M; j++ {
		if hyper.ColSum[j] == 0 {
			continue
		}

		alpha := hyper.Alpha[j]
		beta := hyper.Beta[j]
		logAlphaBeta := hyper.LogAlphaBeta[j]
		logAlphaBetaQ := math.Log(alpha + beta + qSize)
		qj := prep.Qvec[j]

		_, isPresent := present[int32(j)]
		if isPresent {
			contribution := math.Log(alpha+qj) - math.Log(alpha) - logAlphaBetaQ + logAlphaBeta
			scored = append(scored, scoredCol{col: j, contribution: contribution})
			continue
		}

		if mode == config.AttributionPresentOnly && qj == 0 {
			continue
		}
		contribution := math.Log(beta+qSize-qj) - math.Log(beta) - logAlphaBetaQ + logAlphaBeta
		scored = append(scored, scoredCol{col: j, contribution: contribution})
	}

	sort.Slice(scored, func(a, b int) bool {
		if scored[a].contribution != scored[b].contribution {
			return scored[a].contribution > scored[b].contribution
		}
		return scored[a].col < scored[b].col
	})

	if maxTerms > 0 && len(scored) > maxTerms {
		scored = scored[:maxTerms]
	}

	terms := make([]Term, len(scored))
	var total float64
	for i, s := range scored {
		terms[i] = Term{FeatureLabel: feats.Key(s.col), Contribution: s.contribution}
		total += s.contribution
	}

	return Result{Scores: terms, TotalScore: total}
}
