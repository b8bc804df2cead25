package recall

import (
	"context"
	"time"

	"recallengine/backend/go/pkg/util"
)

// Embedder is the external collaborator that turns query text into a dense
// vector. Embed must be deterministic for identical input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TemporalRange is an inclusive [Start, End] window detected in a query.
type TemporalRange struct {
	Start time.Time
	End   time.Time
}

// QueryPlan is the pure output of analyzing a query against a point in time.
type QueryPlan struct {
	QueryText           string
	QueryVec            []float32
	TemporalRange       *TemporalRange
	FactTypesRequested   []FactType
}

// Analyzer embeds queries (through a cache) and detects temporal ranges. It
// is pure given (text, now) for the temporal half; the embedding half is
// cached by exact text so a cache hit bypasses Embedder entirely.
type Analyzer struct {
	embedder Embedder
	cache    *util.LRUCache[string, []float32]
}

// NewAnalyzer builds an Analyzer backed by embedder and an LRU cache of the
// given capacity and TTL.
func NewAnalyzer(embedder Embedder, cacheCapacity int, cacheTTL time.Duration) (*Analyzer, error) {
	cache, err := util.NewWithConfig(util.CacheConfig[string, []float32]{
		Capacity: cacheCapacity,
		TTL:      cacheTTL,
	})
	if err != nil {
		return nil, err
	}
	return &Analyzer{embedder: embedder, cache: cache}, nil
}

// Analyze builds a QueryPlan for text as observed at now, with factTypes as
// the caller's requested partition (AllFactTypes if nil/empty).
func (a *Analyzer) Analyze(ctx context.Context, text string, now time.Time, factTypes []FactType) (*QueryPlan, error) {
	if len(factTypes) == 0 {
		factTypes = AllFactTypes
	}

	vec, err := a.embed(ctx, text)
	if err != nil {
		return nil, err
	}

	return &QueryPlan{
		QueryText:          text,
		QueryVec:           vec,
		TemporalRange:      DetectTemporalRange(text, now),
		FactTypesRequested: factTypes,
	}, nil
}

func (a *Analyzer) embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := a.cache.Get(text); ok {
		return v, nil
	}
	vec, err := a.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	a.cache.Put(text, vec, 1)
	return vec, nil
}
