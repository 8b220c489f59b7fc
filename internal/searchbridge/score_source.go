package searchbridge

import (
	"github.com/baysets/baysets/internal/csr"
	"github.com/baysets/baysets/internal/ids"
	"github.com/baysets/baysets/internal/query"
)

// PreparedScoreSource implements ScoreSource over one query.Prepared: the
// concrete splice the package exists to demonstrate. Build one per query
// (Prepared is already single-shot per the query handler's thread-safety
// contract) and pass it to Bridge.Search.
type PreparedScoreSource struct {
	Rows     *ids.Table[int64]
	Matrix   *csr.Matrix
	Prepared *query.Prepared
}

// Score looks up itemID's row and evaluates the prepared query's fused
// mat-vec for that single row.
func (s PreparedScoreSource) Score(itemID int64) (float64, bool) {
	row, ok := s.Rows.Lookup(itemID)
	if !ok {
		return 0, false
	}
	return s.Prepared.ScoreRow(s.Matrix, row), true
}

var _ ScoreSource = PreparedScoreSource{}
