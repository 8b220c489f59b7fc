// Package mcpserver exposes the Bayesian-Sets query and explain operations
// as github.com/modelcontextprotocol/go-sdk MCP tools, so an MCP-speaking
// client (an IDE assistant, say) can call the engine directly instead of
// going through the CLI or the daemon's Unix socket.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/baysets/baysets/internal/config"
	"github.com/baysets/baysets/internal/index"
	baysetsversion "github.com/baysets/baysets/pkg/version"
)

// Server is the MCP server exposing query/explain/stats over one computed
// index. A Server is safe for concurrent tool calls: each call builds its
// own *query.Handler (per the thread-safety contract in spec §4.4/§5)
// while the underlying *index.Computed is shared read-only.
type Server struct {
	mcp      *mcp.Server
	computed *index.Computed
	cfg      *config.Config
	logger   *slog.Logger

	mu sync.RWMutex
}

// NewServer creates an MCP server over computed using cfg's defaults for
// top_k and attribution mode.
func NewServer(computed *index.Computed, cfg *config.Config) (*Server, error) {
	if computed == nil {
		return nil, fmt.Errorf("computed index is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		computed: computed,
		cfg:      cfg,
		logger:   slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "baysets",
			Version: baysetsversion.Version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// SetIndex swaps the computed index a running server queries against,
// called after internal/reload signals a directory replace and
// internal/cache has reloaded it.
func (s *Server) SetIndex(computed *index.Computed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.computed = computed
}

// MCPServer returns the underlying SDK server, e.g. for tests that want to
// drive tool calls through the SDK's own dispatch.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "query",
		Description: "Expand a set of item ids into the top-K most similar items under the Bayesian-Sets model.",
	}, s.queryHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "explain",
		Description: "Decompose one candidate's log score into per-feature contributions, explaining why it matched the query set.",
	}, s.explainHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "stats",
		Description: "Report size and density statistics for the loaded index.",
	}, s.statsHandler)

	s.logger.Debug("mcpserver: tools registered", slog.Int("count", 3))
}

func (s *Server) queryHandler(ctx context.Context, _ *mcp.CallToolRequest, input QueryInput) (
	*mcp.CallToolResult, QueryOutput, error,
) {
	if len(input.ItemIDs) == 0 {
		return nil, QueryOutput{}, NewInvalidParamsError("item_ids must be non-empty")
	}

	s.mu.RLock()
	computed := s.computed
	s.mu.RUnlock()

	topK := input.TopK
	if topK <= 0 {
		topK = s.cfg.Query.TopKDefault
	}

	start := time.Now()
	results, err := computed.NewHandler().Query(ctx, input.ItemIDs, topK)
	if err != nil {
		s.logger.Debug("mcpserver: query failed", slog.String("error", err.Error()), slog.Duration("duration", time.Since(start)))
		return nil, QueryOutput{}, MapError(err)
	}

	out := QueryOutput{Results: make([]QueryResultOutput, len(results))}
	for i, r := range results {
		out.Results[i] = QueryResultOutput{ItemID: r.ItemID, LogScore: r.LogScore}
	}
	return nil, out, nil
}

func (s *Server) explainHandler(ctx context.Context, _ *mcp.CallToolRequest, input ExplainInput) (
	*mcp.CallToolResult, ExplainOutput, error,
) {
	if len(input.ItemIDs) == 0 {
		return nil, ExplainOutput{}, NewInvalidParamsError("item_ids must be non-empty")
	}

	s.mu.RLock()
	computed := s.computed
	s.mu.RUnlock()

	row, ok := computed.Rows.Lookup(input.RowID)
	if !ok {
		return nil, ExplainOutput{}, NewInvalidParamsError(fmt.Sprintf("row_id %d is not a known item id", input.RowID))
	}

	mode := s.cfg.Query.AttributionMode
	if input.Mode != "" {
		mode = config.AttributionMode(input.Mode)
	}
	if mode != config.AttributionPresentOnly && mode != config.AttributionIncludeAbsent {
		return nil, ExplainOutput{}, NewInvalidParamsError(fmt.Sprintf("unknown attribution mode %q", mode))
	}

	maxTerms := input.MaxTerms
	if maxTerms == 0 {
		maxTerms = s.cfg.Query.MaxExplainTerms
	}

	handler := computed.NewHandler()
	prep := handler.Prepare(input.ItemIDs)
	result := computed.Explain(prep, row, maxTerms, mode)

	out := ExplainOutput{Terms: make([]ExplainTermOutput, len(result.Scores)), TotalScore: result.TotalScore}
	for i, t := range result.Scores {
		out.Terms[i] = ExplainTermOutput{FeatureLabel: t.FeatureLabel, Contribution: t.Contribution}
	}
	return nil, out, nil
}

func (s *Server) statsHandler(_ context.Context, _ *mcp.CallToolRequest, _ StatsInput) (
	*mcp.CallToolResult, StatsOutput, error,
) {
	s.mu.RLock()
	computed := s.computed
	s.mu.RUnlock()

	st := computed.Stats()
	return nil, StatsOutput{
		Rows:              st.N,
		Features:          st.M,
		NonZeroEntries:    st.NNZ,
		AverageRowDensity: st.AverageRowDensity,
		BuiltAt:           st.BuiltAt.Format(time.RFC3339),
	}, nil
}

// Serve starts the server with the given transport ("stdio"; "sse" is not
// yet implemented by the SDK this is built against, matching the
// teacher's own "not yet implemented" stance on that transport).
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcpserver: starting", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("mcpserver: stopped with error", slog.String("error", err.Error()))
		} else {
			s.logger.Info("mcpserver: stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown MCP transport %q (supported: stdio)", transport)
	}
}
