package recall

import "context"

// graphStrategy surfaces facts indirectly connected to strong semantic hits
// through entities and links (§4.3.3).
func graphStrategy(ctx context.Context, store Store, bank BankID, plan *QueryPlan, params StrategyParams) (CandidateList, []graphVisit, error) {
	entryPoints, err := store.VectorTopK(ctx, bank, plan.FactTypesRequested, plan.QueryVec, params.EntryPoints, VectorFilters{
		MinSimilarity: params.TauEntry,
	})
	if err != nil {
		return nil, nil, err
	}
	return spreadingActivation(ctx, store, entryPoints, params.Budget, params.TauGraph, nil, params.TemporalFallbackToMentionedAt)
}

// temporalGraphStrategy is the graph strategy gated by a detected temporal
// range (§4.3.4). It only runs when plan.TemporalRange is set.
func temporalGraphStrategy(ctx context.Context, store Store, bank BankID, plan *QueryPlan, params StrategyParams) (CandidateList, []graphVisit, error) {
	if plan.TemporalRange == nil {
		return nil, nil, nil
	}
	entryPoints, err := store.VectorTopK(ctx, bank, plan.FactTypesRequested, plan.QueryVec, params.EntryPoints, VectorFilters{
		MinSimilarity: params.TauEntry,
		OccurredStart: &plan.TemporalRange.Start,
		OccurredEnd:   &plan.TemporalRange.End,
	})
	if err != nil {
		return nil, nil, err
	}
	return spreadingActivation(ctx, store, entryPoints, params.Budget, params.TauGraph, plan.TemporalRange, params.TemporalFallbackToMentionedAt)
}
