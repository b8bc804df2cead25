package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"recallengine/backend/go/internal/config"
	"recallengine/backend/go/internal/database/milvus"
	"recallengine/backend/go/internal/database/neo4j"
	"recallengine/backend/go/internal/embedding"
	"recallengine/backend/go/internal/recall"
	recallstore "recallengine/backend/go/internal/recall/store"
	"recallengine/backend/go/pkg/circuitbreaker"
	"recallengine/backend/go/pkg/logger"
	"recallengine/backend/go/pkg/ratelimiter"
)

// main wires config -> logger -> embedder -> cross-encoder -> stores ->
// orchestrator and exposes nothing but a local smoke invocation plus
// graceful shutdown, since HTTP/MCP transports are out of scope.
func main() {
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.Init(level)
	appLogger := logger.New(cfg.App.Name, "", "")

	ctx := context.Background()

	milvusClient, err := milvus.GetClient(ctx, &cfg.Databases.Milvus)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer milvusClient.Close()

	neo4jClient, err := neo4j.GetClient(ctx, &cfg.Databases.Neo4j)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	defer neo4jClient.Close(ctx)

	embedder, err := embedding.NewEmdModel(cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.APIKey, cfg.Embedding.BaseURL)
	if err != nil {
		appLogger.Fatal(err.Error())
	}

	vectorStore := recallstore.NewMilvusVectorStore(milvusClient)
	graphStore := recallstore.NewNeo4jGraphStore(neo4jClient)
	bm25Store := recallstore.NewInvertedIndex()

	breakerTimeout := parseTimeout(cfg.Middleware.CircuitBreaker.Timeout)
	store := recallstore.NewResilient(
		combinedStore{vector: vectorStore, graph: graphStore, bm25: bm25Store},
		circuitbreaker.New(cfg.Middleware.CircuitBreaker.FailureThreshold, cfg.Middleware.CircuitBreaker.SuccessThreshold, breakerTimeout),
		circuitbreaker.New(cfg.Middleware.CircuitBreaker.FailureThreshold, cfg.Middleware.CircuitBreaker.SuccessThreshold, breakerTimeout),
	)

	analyzer, err := recall.NewAnalyzer(embedder, cfg.Recall.EmbeddingCacheCap, time.Hour)
	if err != nil {
		appLogger.Fatal(err.Error())
	}

	limiter := buildRateLimiter(cfg.Middleware.RateLimiter)
	ceBreaker := circuitbreaker.New(cfg.Middleware.CircuitBreaker.FailureThreshold, cfg.Middleware.CircuitBreaker.SuccessThreshold, breakerTimeout)
	encoder := recall.NewQueuedCrossEncoder(stubPairScorer, cfg.Recall.CrossEncoderConcurrency, ceBreaker, limiter)

	engineCfg := recall.DefaultEngineConfig()
	orchestrator := recall.NewRecallOrchestrator(store, analyzer, encoder, recall.SystemClock{}, appLogger, engineCfg)

	appLogger.Info("recall service started")

	// Local smoke invocation: exercises the full pipeline against the fixed
	// bank "smoke-bank", without an HTTP/MCP transport.
	go func() {
		_, err := orchestrator.Recall(ctx, "smoke-bank", "smoke test query", recall.RecallOptions{Trace: true})
		if err != nil {
			appLogger.WithError(logger.ErrorInfo{Message: err.Error()}).Warn("smoke invocation failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("recall service stopped")
}

// combinedStore composes the Milvus, Neo4j, and in-process BM25 adapters
// into a single recall.Store, since the production deployment splits the
// five operations across three backing systems.
type combinedStore struct {
	vector *recallstore.MilvusVectorStore
	graph  *recallstore.Neo4jGraphStore
	bm25   *recallstore.InvertedIndex
}

func (c combinedStore) BankExists(ctx context.Context, bank recall.BankID) (bool, error) {
	return c.vector.BankExists(ctx, bank)
}

func (c combinedStore) VectorTopK(ctx context.Context, bank recall.BankID, factTypes []recall.FactType, queryVec []float32, k int, filters recall.VectorFilters) (recall.CandidateList, error) {
	return c.vector.VectorTopK(ctx, bank, factTypes, queryVec, k, filters)
}

func (c combinedStore) BM25TopK(ctx context.Context, bank recall.BankID, factTypes []recall.FactType, queryText string, k int) (recall.CandidateList, error) {
	return c.bm25.BM25TopK(ctx, bank, factTypes, queryText, k)
}

func (c combinedStore) LinksFrom(ctx context.Context, factID recall.FactID, linkTypes []recall.LinkType) ([]recall.Link, error) {
	return c.graph.LinksFrom(ctx, factID, linkTypes)
}

func (c combinedStore) FetchFacts(ctx context.Context, ids []recall.FactID) ([]recall.Fact, error) {
	return c.vector.FetchFacts(ctx, ids)
}

func (c combinedStore) EntityObservations(ctx context.Context, entityIDs []recall.EntityID, tokenCap int) ([]recall.EntityObservation, error) {
	return c.graph.EntityObservations(ctx, entityIDs, tokenCap)
}

// buildRateLimiter constructs the ratelimiter.RateLimiter the operator
// selected via cfg.Algorithm. TokenBucket (the historical default) is used
// whenever Algorithm is unset or unrecognized.
func buildRateLimiter(cfg config.RateLimiterConfig) ratelimiter.RateLimiter {
	window := parseTimeout(cfg.Window)
	switch cfg.Algorithm {
	case "leakyBucket":
		return ratelimiter.NewLeakyBucket(cfg.TokenBucket.Rate, cfg.TokenBucket.Capacity)
	case "fixedWindow":
		return ratelimiter.NewFixedWindowCounter(cfg.TokenBucket.Capacity, window)
	case "slidingLog":
		return ratelimiter.NewSlidingWindowLog(cfg.TokenBucket.Capacity, window)
	case "slidingCounter":
		numBuckets := cfg.NumBuckets
		if numBuckets <= 0 {
			numBuckets = 10
		}
		return ratelimiter.NewSlidingWindowCounter(cfg.TokenBucket.Capacity, window, numBuckets)
	default:
		return ratelimiter.NewTokenBucket(cfg.TokenBucket.Rate, cfg.TokenBucket.Capacity)
	}
}

func parseTimeout(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// stubPairScorer is a placeholder pair-scoring function until a real
// cross-encoder model is configured; any pair-scoring function satisfies
// the CrossEncoder contract (§9).
func stubPairScorer(ctx context.Context, p recall.Pair) (float32, error) {
	scores, err := (recall.StubCrossEncoder{}).ScorePairs(ctx, []recall.Pair{p})
	if err != nil {
		return 0, err
	}
	return scores[0], nil
}
