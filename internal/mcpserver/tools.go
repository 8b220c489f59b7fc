package mcpserver

// QueryInput defines the input schema for the query tool.
type QueryInput struct {
	ItemIDs []int64 `json:"item_ids" jsonschema:"item ids forming the query set to expand"`
	TopK    int     `json:"top_k,omitempty" jsonschema:"number of candidates to return, default from config"`
}

// QueryOutput defines the output schema for the query tool.
type QueryOutput struct {
	Results []QueryResultOutput `json:"results" jsonschema:"candidate items ranked by log score, descending"`
}

// QueryResultOutput is one ranked candidate.
type QueryResultOutput struct {
	ItemID   int64   `json:"item_id"`
	LogScore float64 `json:"log_score"`
}

// ExplainInput defines the input schema for the explain tool.
type ExplainInput struct {
	ItemIDs  []int64 `json:"item_ids" jsonschema:"item ids forming the query set to expand"`
	RowID    int64   `json:"row_id" jsonschema:"item id whose score should be decomposed into per-feature contributions"`
	MaxTerms int     `json:"max_terms,omitempty" jsonschema:"maximum number of contribution terms to return, 0 means unbounded"`
	Mode     string  `json:"mode,omitempty" jsonschema:"attribution mode: present_only or include_absent, default from config"`
}

// ExplainOutput defines the output schema for the explain tool.
type ExplainOutput struct {
	Terms      []ExplainTermOutput `json:"terms" jsonschema:"per-feature contributions, descending, ties broken by ascending column index"`
	TotalScore float64             `json:"total_score" jsonschema:"sum of the returned terms (not necessarily the full log score when max_terms truncates)"`
}

// ExplainTermOutput is one feature's contribution to a row's score.
type ExplainTermOutput struct {
	FeatureLabel string  `json:"feature_label"`
	Contribution float64 `json:"contribution"`
}

// StatsInput defines the input schema for the stats tool (no parameters).
type StatsInput struct{}

// StatsOutput defines the output schema for the stats tool.
type StatsOutput struct {
	Rows              int     `json:"rows"`
	Features          int     `json:"features"`
	NonZeroEntries    int     `json:"non_zero_entries"`
	AverageRowDensity float64 `json:"average_row_density"`
	BuiltAt           string  `json:"built_at"`
}
