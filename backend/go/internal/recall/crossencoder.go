package recall

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"runtime"

	"recallengine/backend/go/pkg/circuitbreaker"
	"recallengine/backend/go/pkg/ratelimiter"
)

// Pair is one (query, decorated_fact_text) input to a cross-encoder.
type Pair struct {
	Query string
	Text  string
}

// CrossEncoder scores query/text pairs. Not mandated to any specific model
// identity; any pair-scoring function suffices (§9).
type CrossEncoder interface {
	ScorePairs(ctx context.Context, pairs []Pair) ([]float32, error)
}

// pairScorer is the low-level, provider-specific scoring function a
// CrossEncoder implementation delegates to for one pair at a time.
type pairScorer func(ctx context.Context, p Pair) (float32, error)

// QueuedCrossEncoder wraps a pairScorer behind a bounded-concurrency worker
// pool (fixed goroutines reading off a channel, this lineage's usual worker
// pool shape), guarded by a circuit breaker and a token-bucket rate limiter
// that together implement the Overloaded backpressure signal.
type QueuedCrossEncoder struct {
	scorer      pairScorer
	concurrency int
	breaker     circuitbreaker.CircuitBreaker
	limiter     ratelimiter.RateLimiter
}

// NewQueuedCrossEncoder builds a QueuedCrossEncoder. A non-positive
// concurrency defaults to min(CPU cores, 4) (§5).
func NewQueuedCrossEncoder(scorer pairScorer, concurrency int, breaker circuitbreaker.CircuitBreaker, limiter ratelimiter.RateLimiter) *QueuedCrossEncoder {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
		if concurrency > 4 {
			concurrency = 4
		}
	}
	return &QueuedCrossEncoder{scorer: scorer, concurrency: concurrency, breaker: breaker, limiter: limiter}
}

type scoreJob struct {
	index int
	pair  Pair
}

type scoreResult struct {
	index int
	score float32
	err   error
}

// ScorePairs fans pairs out across the worker pool. One limiter.Allow call
// gates the whole batch: if it returns false, ScorePairs returns
// ErrOverloaded without scoring any pair (deadline slack is not consulted).
// Otherwise each pair runs through the circuit breaker.
func (q *QueuedCrossEncoder) ScorePairs(ctx context.Context, pairs []Pair) ([]float32, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	if q.limiter != nil && !q.limiter.Allow() {
		return nil, ErrOverloaded
	}

	jobs := make(chan scoreJob, len(pairs))
	results := make(chan scoreResult, len(pairs))

	workers := q.concurrency
	if workers > len(pairs) {
		workers = len(pairs)
	}
	for w := 0; w < workers; w++ {
		go func() {
			for job := range jobs {
				score, err := q.scoreOne(ctx, job.pair)
				results <- scoreResult{index: job.index, score: score, err: err}
			}
		}()
	}
	for i, p := range pairs {
		jobs <- scoreJob{index: i, pair: p}
	}
	close(jobs)

	out := make([]float32, len(pairs))
	for i := 0; i < len(pairs); i++ {
		r := <-results
		if r.err != nil {
			return nil, r.err
		}
		out[r.index] = r.score
	}
	return out, nil
}

func (q *QueuedCrossEncoder) scoreOne(ctx context.Context, p Pair) (float32, error) {
	if q.breaker == nil {
		return q.scorer(ctx, p)
	}
	res, err := q.breaker.Execute(func() (interface{}, error) {
		return q.scorer(ctx, p)
	})
	if err != nil {
		if err == circuitbreaker.ErrCircuitOpen {
			return 0, ErrCrossEncoderUnavailable
		}
		return 0, err
	}
	return res.(float32), nil
}

// ErrOverloaded signals the cross-encoder queue rejected work due to
// backpressure; the orchestrator maps this to KindOverloaded.
var ErrOverloaded = fmt.Errorf("cross-encoder queue overloaded")

// ErrCrossEncoderUnavailable signals the circuit breaker guarding the
// cross-encoder is open; the orchestrator degrades to rrf_norm+recency+frequency.
var ErrCrossEncoderUnavailable = fmt.Errorf("cross-encoder unavailable: circuit open")

// StubCrossEncoder is a deterministic, network-free scorer for tests: the
// score is derived from a hash of the pair so it is stable across runs
// without depending on a real model.
type StubCrossEncoder struct{}

func (StubCrossEncoder) ScorePairs(ctx context.Context, pairs []Pair) ([]float32, error) {
	out := make([]float32, len(pairs))
	for i, p := range pairs {
		out[i] = hashToUnitFloat(p.Query + "\x00" + p.Text)
	}
	return out, nil
}

func hashToUnitFloat(s string) float32 {
	sum := sha256.Sum256([]byte(s))
	v := binary.BigEndian.Uint64(sum[:8])
	return float32(v) / float32(^uint64(0))
}
