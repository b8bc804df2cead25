package store

import (
	"context"

	"recallengine/backend/go/internal/recall"
	"recallengine/backend/go/pkg/circuitbreaker"
)

// Resilient wraps a Store so that every call crossing a process boundary
// (Milvus, Neo4j) is guarded by a circuit breaker; a tripped breaker
// surfaces as an error the calling strategy treats as an empty result, per
// §4.1's "a tripped breaker surfaces as StoreDeadline/StoreUnavailable
// rather than blocking."
type Resilient struct {
	inner        recall.Store
	vectorBreaker circuitbreaker.CircuitBreaker
	graphBreaker  circuitbreaker.CircuitBreaker
}

// NewResilient wraps inner with independent breakers for the vector/scalar
// path and the graph path, since the two back different external systems.
func NewResilient(inner recall.Store, vectorBreaker, graphBreaker circuitbreaker.CircuitBreaker) *Resilient {
	return &Resilient{inner: inner, vectorBreaker: vectorBreaker, graphBreaker: graphBreaker}
}

func (r *Resilient) BankExists(ctx context.Context, bank recall.BankID) (bool, error) {
	res, err := r.vectorBreaker.Execute(func() (interface{}, error) {
		return r.inner.BankExists(ctx, bank)
	})
	if err != nil {
		return false, err
	}
	return res.(bool), nil
}

func (r *Resilient) VectorTopK(ctx context.Context, bank recall.BankID, factTypes []recall.FactType, queryVec []float32, k int, filters recall.VectorFilters) (recall.CandidateList, error) {
	res, err := r.vectorBreaker.Execute(func() (interface{}, error) {
		return r.inner.VectorTopK(ctx, bank, factTypes, queryVec, k, filters)
	})
	if err != nil {
		return nil, err
	}
	return res.(recall.CandidateList), nil
}

func (r *Resilient) BM25TopK(ctx context.Context, bank recall.BankID, factTypes []recall.FactType, queryText string, k int) (recall.CandidateList, error) {
	return r.inner.BM25TopK(ctx, bank, factTypes, queryText, k)
}

func (r *Resilient) LinksFrom(ctx context.Context, factID recall.FactID, linkTypes []recall.LinkType) ([]recall.Link, error) {
	res, err := r.graphBreaker.Execute(func() (interface{}, error) {
		return r.inner.LinksFrom(ctx, factID, linkTypes)
	})
	if err != nil {
		return nil, err
	}
	return res.([]recall.Link), nil
}

func (r *Resilient) FetchFacts(ctx context.Context, ids []recall.FactID) ([]recall.Fact, error) {
	res, err := r.vectorBreaker.Execute(func() (interface{}, error) {
		return r.inner.FetchFacts(ctx, ids)
	})
	if err != nil {
		return nil, err
	}
	return res.([]recall.Fact), nil
}

func (r *Resilient) EntityObservations(ctx context.Context, entityIDs []recall.EntityID, tokenCap int) ([]recall.EntityObservation, error) {
	res, err := r.graphBreaker.Execute(func() (interface{}, error) {
		return r.inner.EntityObservations(ctx, entityIDs, tokenCap)
	})
	if err != nil {
		return nil, err
	}
	return res.([]recall.EntityObservation), nil
}
