// Package searchbridge demonstrates the §6 "external search integration"
// splice: it wraps a small bleve full-text index and, for every hit, looks
// up the Bayesian-Sets log score of the same item id and attaches it to the
// result. It is not a search engine in its own right — content indexing,
// relevance tuning, and query syntax are bleve's job; this package only
// owns the one seam where a full-text hit and a Bayesian-Sets row meet.
package searchbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search"

	baysetserrors "github.com/baysets/baysets/internal/errors"
)

const (
	tokenizerName = "searchbridge_tokenizer"
	stopFilterName = "searchbridge_stop"
	analyzerName   = "searchbridge_analyzer"

	contentField = "content"
)

func init() {
	_ = registry.RegisterTokenizer(tokenizerName, tokenizerConstructor)
	_ = registry.RegisterTokenFilter(stopFilterName, stopFilterConstructor)
}

// Document is a unit of full-text content to index. ID is expected to be
// the item id (as returned by strconv.FormatInt) so a later Search can
// splice in that item's Bayesian-Sets log score; content indexed under an
// ID that isn't a parseable item id is still searchable, it just never gets
// a spliced score.
type Document struct {
	ID      string
	Content string
}

// Hit is one ranked result from Search: bleve's own relevance score plus,
// when the document's ID parses as an item id known to src, the
// Bayesian-Sets log score for that same item.
type Hit struct {
	DocID        string
	TextScore    float64
	MatchedTerms []string

	ItemID      int64
	HasItemID   bool
	LogScore    float64
	HasLogScore bool
}

// ScoreSource supplies the Bayesian-Sets log score for an item id, already
// bound to one prepared query. PreparedScoreSource is the concrete
// implementation most callers want.
type ScoreSource interface {
	Score(itemID int64) (score float64, ok bool)
}

// Bridge wraps one bleve full-text index.
type Bridge struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// New creates or opens a bleve index at path. An empty path creates an
// in-memory index, useful for tests and short-lived demos.
func New(path string) (*Bridge, error) {
	indexMapping, err := buildMapping()
	if err != nil {
		return nil, baysetserrors.SearchError("build index mapping", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if dir := filepath.Dir(path); dir != "." {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, baysetserrors.SearchError(fmt.Sprintf("create directory for %s", path), mkErr)
			}
		}
		if validateErr := validateIndexIntegrity(path); validateErr != nil {
			slog.Warn("searchbridge: index corrupted, rebuilding", "path", path, "error", validateErr)
			if rmErr := os.RemoveAll(path); rmErr != nil {
				return nil, baysetserrors.SearchError(fmt.Sprintf("remove corrupted index %s", path), rmErr)
			}
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, baysetserrors.SearchError(fmt.Sprintf("open index at %q", path), err)
	}

	return &Bridge{index: idx, path: path}, nil
}

func buildMapping() (*mapping.IndexMappingImpl, error) {
	m := bleve.NewIndexMapping()
	if err := m.AddCustomAnalyzer(analyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": tokenizerName,
		"token_filters": []string{
			lowercase.Name,
			stopFilterName,
		},
	}); err != nil {
		return nil, fmt.Errorf("add custom analyzer: %w", err)
	}
	m.DefaultAnalyzer = analyzerName
	return m, nil
}

// validateIndexIntegrity rejects an on-disk index whose metadata file is
// missing or unparseable, so a half-written index from a prior crash gets
// rebuilt instead of failing every subsequent open.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	metaPath := filepath.Join(path, "index_meta.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", metaPath, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("%s is empty", metaPath)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("%s is not valid JSON: %w", metaPath, err)
	}
	return nil
}

type bleveDoc struct {
	Content string `json:"content"`
}

// Index adds or replaces documents in the full-text index.
func (b *Bridge) Index(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return baysetserrors.SearchError("index is closed", nil)
	}

	batch := b.index.NewBatch()
	for _, d := range docs {
		if err := batch.Index(d.ID, bleveDoc{Content: d.Content}); err != nil {
			return baysetserrors.SearchError(fmt.Sprintf("index document %q", d.ID), err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return baysetserrors.SearchError("execute index batch", err)
	}
	return nil
}

// Delete removes documents by id.
func (b *Bridge) Delete(ctx context.Context, docIDs []string) error {
	if len(docIDs) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return baysetserrors.SearchError("index is closed", nil)
	}

	batch := b.index.NewBatch()
	for _, id := range docIDs {
		batch.Delete(id)
	}
	if err := b.index.Batch(batch); err != nil {
		return baysetserrors.SearchError("execute delete batch", err)
	}
	return nil
}

// Search runs a full-text query and splices the Bayesian-Sets log score
// from src onto every hit whose document ID parses as an item id src
// knows about. src may be nil, in which case no hit gets a spliced score.
func (b *Bridge) Search(ctx context.Context, queryStr string, limit int, src ScoreSource) ([]Hit, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, baysetserrors.SearchError("index is closed", nil)
	}
	if strings.TrimSpace(queryStr) == "" {
		return []Hit{}, nil
	}

	q := bleve.NewMatchQuery(queryStr)
	q.SetField(contentField)

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.IncludeLocations = true

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, baysetserrors.SearchError("execute search", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, dm := range result.Hits {
		h := Hit{
			DocID:        dm.ID,
			TextScore:    dm.Score,
			MatchedTerms: matchedTerms(dm),
		}
		if itemID, err := strconv.ParseInt(dm.ID, 10, 64); err == nil {
			h.ItemID = itemID
			h.HasItemID = true
			if src != nil {
				if score, ok := src.Score(itemID); ok {
					h.LogScore = score
					h.HasLogScore = true
				}
			}
		}
		hits = append(hits, h)
	}
	return hits, nil
}

func matchedTerms(hit *search.DocumentMatch) []string {
	terms := make(map[string]struct{})
	for field, locations := range hit.Locations {
		if field == contentField {
			for term := range locations {
				terms[term] = struct{}{}
			}
		}
	}
	result := make([]string, 0, len(terms))
	for term := range terms {
		result = append(result, term)
	}
	return result
}

// Close releases the underlying bleve index.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

func tokenizerConstructor(_ map[string]interface{}, _ *registry.Cache) (analysis.Tokenizer, error) {
	return &identifierTokenizer{}, nil
}

type identifierTokenizer struct{}

func (t *identifierTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := TokenizeContent(text)

	result := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0
	for _, token := range tokens {
		start := strings.Index(strings.ToLower(text[offset:]), strings.ToLower(token))
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(token)
		result = append(result, &analysis.Token{
			Term:     []byte(token),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}
	return result
}

func stopFilterConstructor(_ map[string]interface{}, _ *registry.Cache) (analysis.TokenFilter, error) {
	return &stopFilter{stopWords: buildStopWordMap(DefaultStopWords)}, nil
}

type stopFilter struct {
	stopWords map[string]struct{}
}

func (f *stopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		if _, isStop := f.stopWords[strings.ToLower(string(token.Term))]; !isStop {
			result = append(result, token)
		}
	}
	return result
}
