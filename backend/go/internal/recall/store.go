package recall

import (
	"context"
	"time"
)

// VectorFilters narrows a vector_topk call beyond fact_types.
type VectorFilters struct {
	OccurredStart *time.Time
	OccurredEnd   *time.Time
	MinSimilarity float64
}

// Store is the typed read interface over the persisted graph and
// vector/inverted indices. It is the only component that touches the
// underlying database; all operations are read-only and scoped by bank_id.
type Store interface {
	// BankExists reports whether bank is known to the store at all,
	// independent of whether it currently holds any facts. Used to
	// distinguish an unknown bank_id (KindBankNotFound) from a known bank
	// that simply has no facts yet (empty results, no error).
	BankExists(ctx context.Context, bank BankID) (bool, error)
	// VectorTopK runs an ANN or exact kNN search by cosine similarity.
	VectorTopK(ctx context.Context, bank BankID, factTypes []FactType, queryVec []float32, k int, filters VectorFilters) (CandidateList, error)
	// BM25TopK runs lexical retrieval over the maintained inverted index.
	BM25TopK(ctx context.Context, bank BankID, factTypes []FactType, queryText string, k int) (CandidateList, error)
	// LinksFrom returns the outgoing links of the selected types.
	LinksFrom(ctx context.Context, factID FactID, linkTypes []LinkType) ([]Link, error)
	// FetchFacts batch-hydrates ids, preserving order.
	FetchFacts(ctx context.Context, ids []FactID) ([]Fact, error)
	// EntityObservations fetches the optional sidecar payload for entities,
	// capped by an approximate token budget.
	EntityObservations(ctx context.Context, entityIDs []EntityID, tokenCap int) ([]EntityObservation, error)
}
