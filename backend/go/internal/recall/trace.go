package recall

import "time"

// TraceQuery is the query section of a Trace.
type TraceQuery struct {
	QueryText        string
	TemporalRange    *TemporalRange
	EmbeddingPresent bool
}

// TraceCandidate is one scored, textual item inside a strategy's result
// list, for observability.
type TraceCandidate struct {
	Rank   int
	FactID FactID
	Text   string
	Score  float64
}

// StrategyTrace is one entry per strategy, whether or not it produced
// results, with the error recorded when the strategy degraded to empty.
type StrategyTrace struct {
	MethodName StrategyName
	Duration   time.Duration
	Results    []TraceCandidate
	Err        error
}

// FusedTrace is one row of the rrf_merged trace section.
type FusedTrace struct {
	FinalRRFRank int
	FactID       FactID
	Text         string
	RRFScore     float64
	SourceRanks  map[StrategyName]int
}

// RerankedTrace is one row of the reranked trace section.
type RerankedTrace struct {
	RerankRank int
	RRFRank    int
	RankChange int
	FactID     FactID
	Text       string
	RerankScore float64
	Components  ScoreComponents
}

// VisitTrace is one row of the graph/temporal-graph visits section,
// budgeted and truncated beyond the node budget.
type VisitTrace struct {
	NodeID         FactID
	ActivationPath []FactID
	Weight         float64
}

// TraceSummary is the aggregate counters closing out a Trace.
type TraceSummary struct {
	TotalNodesVisited int
	EntryPointsFound  int
	BudgetUsed        int
	BudgetRemaining   int
	ResultsReturned   int
	TotalDuration     time.Duration
}

// Trace is the full structured record of one Recall execution, sufficient
// to reproduce its ranking decisions. Never carries randomized results:
// every tie-break is deterministic and orders by fact_id; no PRNG is used.
type Trace struct {
	Query            TraceQuery
	RetrievalResults []StrategyTrace
	RRFMerged        []FusedTrace
	Reranked         []RerankedTrace
	Visits           []VisitTrace
	Summary          TraceSummary
}
