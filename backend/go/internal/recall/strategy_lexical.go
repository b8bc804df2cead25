package recall

import "context"

// lexicalStrategy runs bm25_topk on the tokenized query text.
func lexicalStrategy(ctx context.Context, store Store, bank BankID, plan *QueryPlan, params StrategyParams) (CandidateList, error) {
	return store.BM25TopK(ctx, bank, plan.FactTypesRequested, plan.QueryText, params.KBM25)
}
