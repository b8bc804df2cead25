package recall

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"

	"recallengine/backend/go/pkg/logger"
)

// EngineConfig holds the tunables RecallOrchestrator reads its per-call
// defaults from, mirroring config.RecallConfig.
type EngineConfig struct {
	DefaultBudget     Budget
	TopK              int
	MaxTokens         int
	DefaultDeadline   time.Duration
	KRRF              int
	KFuse             int
	EmbeddingCacheCap int
	EmbeddingCacheTTL time.Duration
	StrategyParams    StrategyParams
	EntityTokenCap    int
}

// DefaultEngineConfig returns the spec's documented defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DefaultBudget:     BudgetMid,
		TopK:              10,
		MaxTokens:         4096,
		DefaultDeadline:   2 * time.Second,
		KRRF:              defaultKRRF,
		KFuse:             defaultKFuse,
		EmbeddingCacheCap: 4096,
		EmbeddingCacheTTL: 30 * time.Minute,
		StrategyParams:    DefaultStrategyParams(BudgetMid),
		EntityTokenCap:    512,
	}
}

// RecallOrchestrator sequences analyze -> spawn four parallel retrievals ->
// fuse -> rerank under token budget -> assemble response (+ trace).
type RecallOrchestrator struct {
	store    Store
	analyzer *Analyzer
	encoder  CrossEncoder
	clock    Clock
	log      *logger.Logger
	cfg      EngineConfig
}

// NewRecallOrchestrator wires the core components together.
func NewRecallOrchestrator(store Store, analyzer *Analyzer, encoder CrossEncoder, clock Clock, log *logger.Logger, cfg EngineConfig) *RecallOrchestrator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &RecallOrchestrator{store: store, analyzer: analyzer, encoder: encoder, clock: clock, log: log, cfg: cfg}
}

// Recall answers a natural-language query against bankID.
func (o *RecallOrchestrator) Recall(ctx context.Context, bankID BankID, query string, options RecallOptions) (RecallResponse, error) {
	requestID := newRequestID()
	start := time.Now()

	if query == "" || options.MaxTokens < 0 {
		return RecallResponse{}, newRecallErr(KindInvalidQuery, bankID, requestID, errors.New("empty query text or negative max_tokens"))
	}

	options = o.withDefaults(bankID, query, options)

	// The deadline is wall-clock real time regardless of the caller's
	// injected options.Now, which only governs temporal semantics.
	deadlineCtx, cancel := context.WithTimeout(ctx, options.Deadline)
	defer cancel()

	exists, err := o.store.BankExists(deadlineCtx, bankID)
	if err != nil {
		if errors.Is(deadlineCtx.Err(), context.DeadlineExceeded) {
			return RecallResponse{}, newRecallErr(KindDeadlineExceeded, bankID, requestID, err)
		}
		return RecallResponse{}, newRecallErr(KindStoreUnavailable, bankID, requestID, err)
	}
	if !exists {
		return RecallResponse{}, newRecallErr(KindBankNotFound, bankID, requestID, fmt.Errorf("bank %q is not known to the store", bankID))
	}

	plan, err := o.analyzer.Analyze(deadlineCtx, query, options.Now, options.FactTypes)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return RecallResponse{}, newRecallErr(KindDeadlineExceeded, bankID, requestID, err)
		}
		o.logDegrade(bankID, requestID, "embedding_failed", err)
		return RecallResponse{}, newRecallErr(KindEmbeddingFailed, bankID, requestID, err)
	}

	params := o.cfg.StrategyParams
	params.Budget = int(options.Budget)

	outputs, strategyTraces, visits, err := o.runStrategies(deadlineCtx, bankID, requestID, plan, params)
	if err != nil {
		if errors.Is(deadlineCtx.Err(), context.DeadlineExceeded) {
			return RecallResponse{}, newRecallErr(KindDeadlineExceeded, bankID, requestID, err)
		}
		return RecallResponse{}, newRecallErr(KindStoreUnavailable, bankID, requestID, err)
	}

	fused := FuseRRF(outputs, o.cfg.KRRF, o.cfg.KFuse)

	trace := o.buildBaseTrace(plan, strategyTraces, visits, fused, params.Budget)

	if len(fused) == 0 {
		trace.Summary.ResultsReturned = 0
		trace.Summary.TotalDuration = time.Since(start)
		return o.finish(nil, trace, options)
	}

	ids := make([]FactID, len(fused))
	for i, r := range fused {
		ids[i] = r.FactID
	}
	factList, err := o.store.FetchFacts(deadlineCtx, ids)
	if err != nil {
		return RecallResponse{}, newRecallErr(KindStoreUnavailable, bankID, requestID, err)
	}
	facts := make(map[FactID]Fact, len(factList))
	entitySet := make(map[EntityID]struct{})
	for _, f := range factList {
		facts[f.ID] = f
		for _, e := range f.EntityRefs {
			entitySet[e] = struct{}{}
		}
	}

	populateTraceText(trace, facts)

	entityMentions := o.fetchEntityMentions(deadlineCtx, entitySet)

	reranked, err := Rerank(deadlineCtx, o.encoder, fused, facts, entityMentions, query, plan.TemporalRange != nil, options.Now, options.MaxTokens)
	if err != nil {
		if errors.Is(err, ErrOverloaded) {
			return RecallResponse{}, newRecallErr(KindOverloaded, bankID, requestID, err)
		}
		return RecallResponse{}, newRecallErr(KindStoreUnavailable, bankID, requestID, err)
	}

	if len(reranked) > options.TopK {
		reranked = reranked[:options.TopK]
	}

	for _, item := range reranked {
		trace.Reranked = append(trace.Reranked, RerankedTrace{
			RerankRank:  item.RerankRank,
			RRFRank:     item.RRFRank,
			RankChange:  item.RankChange,
			FactID:      item.Fact.ID,
			Text:        item.Fact.Text,
			RerankScore: item.FinalScore,
			Components:  item.Components,
		})
	}
	trace.Summary.ResultsReturned = len(reranked)

	results := make([]RecallResult, len(reranked))
	for i, item := range reranked {
		f := item.Fact
		results[i] = RecallResult{
			FactID:        f.ID,
			Text:          f.Text,
			FactType:      f.FactType,
			Context:       f.Context,
			OccurredStart: f.OccurredStart,
			OccurredEnd:   f.OccurredEnd,
			MentionedAt:   f.MentionedAt,
			EntityRefs:    f.EntityRefs,
			FinalScore:    item.FinalScore,
		}
	}

	trace.Summary.TotalDuration = time.Since(start)
	return o.finish(results, trace, options)
}

func (o *RecallOrchestrator) finish(results []RecallResult, trace *Trace, options RecallOptions) (RecallResponse, error) {
	resp := RecallResponse{Results: results}
	if options.Trace {
		resp.Trace = trace
	}
	if o.log != nil {
		o.log.WithPayload(map[string]interface{}{
			"total_nodes_visited": trace.Summary.TotalNodesVisited,
			"results_returned":    trace.Summary.ResultsReturned,
		}).Info("recall completed")
	}
	return resp, nil
}

func (o *RecallOrchestrator) withDefaults(bankID BankID, query string, options RecallOptions) RecallOptions {
	if len(options.FactTypes) == 0 {
		options.FactTypes = AllFactTypes
	}
	if options.Budget == 0 {
		options.Budget = o.cfg.DefaultBudget
	}
	if options.TopK == 0 {
		options.TopK = o.cfg.TopK
	}
	if options.MaxTokens == 0 {
		options.MaxTokens = o.cfg.MaxTokens
	}
	if options.Now.IsZero() {
		options.Now = o.clock.Now()
	}
	if options.Deadline == 0 {
		options.Deadline = o.cfg.DefaultDeadline
	}
	if options.Seed == 0 {
		options.Seed = deriveSeed(bankID, query)
	}
	return options
}

// deriveSeed computes the default tie-break seed from (bank_id, query_text)
// per §4.6, so a caller-omitted Seed still yields deterministic traces.
func deriveSeed(bankID BankID, query string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(bankID))
	h.Write([]byte{0})
	h.Write([]byte(query))
	return h.Sum64()
}

type strategyRunResult struct {
	name  StrategyName
	list  CandidateList
	visits []graphVisit
	dur   time.Duration
	err   error
}

// runStrategies fans the four strategies out as goroutines synchronized with
// a WaitGroup, each writing into its own index of a pre-sized slice so no
// mutex is needed on the join (§4.3/§5).
func (o *RecallOrchestrator) runStrategies(ctx context.Context, bankID BankID, requestID string, plan *QueryPlan, params StrategyParams) ([]StrategyOutput, []StrategyTrace, []VisitTrace, error) {
	slots := make([]strategyRunResult, 4)
	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		start := time.Now()
		list, err := semanticStrategy(ctx, o.store, bankID, plan, params)
		slots[0] = strategyRunResult{name: StrategySemantic, list: list, dur: time.Since(start), err: err}
	}()
	go func() {
		defer wg.Done()
		start := time.Now()
		list, err := lexicalStrategy(ctx, o.store, bankID, plan, params)
		slots[1] = strategyRunResult{name: StrategyLexical, list: list, dur: time.Since(start), err: err}
	}()
	go func() {
		defer wg.Done()
		start := time.Now()
		list, visits, err := graphStrategy(ctx, o.store, bankID, plan, params)
		slots[2] = strategyRunResult{name: StrategyGraph, list: list, visits: visits, dur: time.Since(start), err: err}
	}()
	go func() {
		defer wg.Done()
		start := time.Now()
		list, visits, err := temporalGraphStrategy(ctx, o.store, bankID, plan, params)
		slots[3] = strategyRunResult{name: StrategyTemporalGraph, list: list, visits: visits, dur: time.Since(start), err: err}
	}()
	wg.Wait()

	outputs := make([]StrategyOutput, 0, 4)
	traces := make([]StrategyTrace, 0, 4)
	var allVisits []VisitTrace
	failures := 0

	for _, s := range slots {
		st := StrategyTrace{MethodName: s.name, Duration: s.dur, Err: s.err}
		if s.err != nil {
			failures++
			o.logDegrade(bankID, requestID, string(s.name)+"_failed", s.err)
		} else {
			outputs = append(outputs, StrategyOutput{Name: s.name, List: s.list})
			for _, c := range s.list {
				st.Results = append(st.Results, TraceCandidate{Rank: c.Rank, FactID: c.FactID, Score: c.Score})
			}
			for _, v := range s.visits {
				allVisits = append(allVisits, VisitTrace{NodeID: v.NodeID, ActivationPath: v.ActivationPath, Weight: v.Weight})
			}
		}
		traces = append(traces, st)
	}

	if failures == len(slots) {
		return nil, nil, nil, fmt.Errorf("all retrieval strategies failed")
	}
	return outputs, traces, allVisits, nil
}

func (o *RecallOrchestrator) buildBaseTrace(plan *QueryPlan, strategyTraces []StrategyTrace, visits []VisitTrace, fused []FusedResult, budget int) *Trace {
	if len(visits) > budget {
		visits = visits[:budget]
	}
	t := &Trace{
		Query: TraceQuery{
			QueryText:        plan.QueryText,
			TemporalRange:    plan.TemporalRange,
			EmbeddingPresent: len(plan.QueryVec) > 0,
		},
		RetrievalResults: strategyTraces,
		Visits:           visits,
	}
	for _, r := range fused {
		t.RRFMerged = append(t.RRFMerged, FusedTrace{
			FinalRRFRank: r.FinalRank,
			FactID:       r.FactID,
			RRFScore:     r.RRFScore,
			SourceRanks:  r.SourceRanks,
		})
	}
	t.Summary = TraceSummary{
		TotalNodesVisited: len(visits),
		EntryPointsFound:  countEntryPoints(strategyTraces),
		BudgetUsed:        len(visits),
		BudgetRemaining:   budget - len(visits),
	}
	return t
}

// populateTraceText backfills the Text field on every trace row once fact
// bodies are available. It runs after FetchFacts, not inside buildBaseTrace,
// because the retrieval and fusion stages only carry FactIDs and scores.
func populateTraceText(trace *Trace, facts map[FactID]Fact) {
	for i := range trace.RetrievalResults {
		results := trace.RetrievalResults[i].Results
		for j := range results {
			results[j].Text = facts[results[j].FactID].Text
		}
	}
	for i := range trace.RRFMerged {
		trace.RRFMerged[i].Text = facts[trace.RRFMerged[i].FactID].Text
	}
}

func countEntryPoints(traces []StrategyTrace) int {
	for _, t := range traces {
		if t.MethodName == StrategySemantic {
			return len(t.Results)
		}
	}
	return 0
}

func (o *RecallOrchestrator) fetchEntityMentions(ctx context.Context, entitySet map[EntityID]struct{}) map[EntityID]int {
	if len(entitySet) == 0 {
		return nil
	}
	ids := make([]EntityID, 0, len(entitySet))
	for id := range entitySet {
		ids = append(ids, id)
	}
	obs, err := o.store.EntityObservations(ctx, ids, o.cfg.EntityTokenCap)
	if err != nil {
		return nil
	}
	out := make(map[EntityID]int, len(obs))
	for _, ob := range obs {
		out[ob.EntityID] = ob.MentionCount
	}
	return out
}

func (o *RecallOrchestrator) logDegrade(bankID BankID, requestID, event string, err error) {
	if o.log == nil {
		return
	}
	o.log.WithRequest(logger.RequestInfo{BankID: string(bankID), RequestID: requestID}).
		WithError(logger.ErrorInfo{Message: err.Error()}).
		Warn(event)
}

func newRequestID() string {
	return uuid.New().String()
}
