// Package baysets is the stable public facade over the Bayesian-Sets
// item-similarity engine: load a computed index, expand a query set of
// item ids into top-K similar items, and explain why one candidate
// matched. It mirrors the teacher's pkg/indexer / pkg/searcher contracts —
// a thin, dependency-light surface other Go programs embed, leaving the
// CLI, daemon, and MCP server as three different front ends over the same
// facade.
package baysets
