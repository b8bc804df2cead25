package recall

import (
	"context"
	"testing"
	"time"

	"recallengine/backend/go/pkg/circuitbreaker"
	"recallengine/backend/go/pkg/ratelimiter"
)

func TestStubCrossEncoderDeterministic(t *testing.T) {
	pairs := []Pair{{Query: "q", Text: "t"}}
	a, err := (StubCrossEncoder{}).ScorePairs(context.Background(), pairs)
	if err != nil {
		t.Fatalf("ScorePairs: %v", err)
	}
	b, err := (StubCrossEncoder{}).ScorePairs(context.Background(), pairs)
	if err != nil {
		t.Fatalf("ScorePairs: %v", err)
	}
	if a[0] != b[0] {
		t.Errorf("expected identical input to yield identical scores, got %v and %v", a[0], b[0])
	}
}

func TestQueuedCrossEncoderRejectsWhenLimiterClosed(t *testing.T) {
	limiter := denyingLimiter{}
	q := NewQueuedCrossEncoder(func(context.Context, Pair) (float32, error) { return 1, nil }, 2, nil, limiter)
	_, err := q.ScorePairs(context.Background(), []Pair{{Query: "q", Text: "t"}})
	if err != ErrOverloaded {
		t.Fatalf("expected ErrOverloaded when the limiter rejects, got %v", err)
	}
}

type denyingLimiter struct{}

func (denyingLimiter) Allow() bool { return false }

func TestQueuedCrossEncoderScoresAllPairsInOrder(t *testing.T) {
	q := NewQueuedCrossEncoder(func(_ context.Context, p Pair) (float32, error) {
		if p.Text == "second" {
			return 2, nil
		}
		return 1, nil
	}, 4, nil, nil)
	out, err := q.ScorePairs(context.Background(), []Pair{{Text: "first"}, {Text: "second"}})
	if err != nil {
		t.Fatalf("ScorePairs: %v", err)
	}
	if out[0] != 1 || out[1] != 2 {
		t.Errorf("expected scores to align with input order, got %v", out)
	}
}

func TestQueuedCrossEncoderSurfacesCircuitOpenAsUnavailable(t *testing.T) {
	breaker := circuitbreaker.New(1, 1, time.Minute)
	failing := func(context.Context, Pair) (float32, error) { return 0, errBoom }
	q := NewQueuedCrossEncoder(failing, 1, breaker, ratelimiter.NewTokenBucket(100, 100))

	// Trip the breaker with one failing call.
	_, _ = q.ScorePairs(context.Background(), []Pair{{Text: "x"}})

	_, err := q.ScorePairs(context.Background(), []Pair{{Text: "y"}})
	if err != ErrCrossEncoderUnavailable {
		t.Fatalf("expected ErrCrossEncoderUnavailable once the breaker is open, got %v", err)
	}
}

var errBoom = fmtErrorf("boom")

func fmtErrorf(s string) error {
	return &staticErr{s}
}

type staticErr struct{ s string }

func (e *staticErr) Error() string { return e.s }
