package recall

import "context"

const (
	defaultKSemantic   = 50
	defaultTauSemantic = 0.4
)

// StrategyParams bundles the per-call tunables a strategy reads. Recall takes
// them from EngineConfig.StrategyParams and overrides only Budget per call.
type StrategyParams struct {
	KSemantic   int
	TauSemantic float64
	KBM25       int
	EntryPoints int
	TauEntry    float64
	TauGraph    float64
	Budget      int
	// TemporalFallbackToMentionedAt controls whether facts with no
	// OccurredStart are matched against MentionedAt by the temporal
	// strategy (decisions on open questions, §9).
	TemporalFallbackToMentionedAt bool
}

// DefaultStrategyParams returns the spec's documented defaults.
func DefaultStrategyParams(budget Budget) StrategyParams {
	return StrategyParams{
		KSemantic:                      defaultKSemantic,
		TauSemantic:                    defaultTauSemantic,
		KBM25:                          50,
		EntryPoints:                    10,
		TauEntry:                       0.4,
		TauGraph:                       0.05,
		Budget:                         int(budget),
		TemporalFallbackToMentionedAt:  true,
	}
}

// semanticStrategy runs vector_topk directly with the requested fact types
// and no time filter.
func semanticStrategy(ctx context.Context, store Store, bank BankID, plan *QueryPlan, params StrategyParams) (CandidateList, error) {
	return store.VectorTopK(ctx, bank, plan.FactTypesRequested, plan.QueryVec, params.KSemantic, VectorFilters{
		MinSimilarity: params.TauSemantic,
	})
}
