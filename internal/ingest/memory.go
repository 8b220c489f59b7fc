package ingest

import "context"

// MemorySource is an in-memory PairSource, used for tests and small
// one-shot builds where the caller already has the full pair list.
type MemorySource struct {
	pairs []Pair
	pos   int
}

// NewMemorySource wraps a fixed slice of pairs as a PairSource. The slice
// is read in order; the caller retains ownership and must not mutate it
// concurrently with ingestion.
func NewMemorySource(pairs []Pair) *MemorySource {
	return &MemorySource{pairs: pairs}
}

func (s *MemorySource) Next(ctx context.Context) (Pair, bool, error) {
	if err := ctx.Err(); err != nil {
		return Pair{}, false, err
	}
	if s.pos >= len(s.pairs) {
		return Pair{}, false, nil
	}
	p := s.pairs[s.pos]
	s.pos++
	return p, true, nil
}

func (s *MemorySource) Close() error { return nil }
