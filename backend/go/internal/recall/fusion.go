package recall

import "sort"

const defaultKRRF = 60
const defaultKFuse = 100

// StrategyName identifies which retrieval strategy contributed a rank.
type StrategyName string

const (
	StrategySemantic     StrategyName = "semantic"
	StrategyLexical      StrategyName = "lexical"
	StrategyGraph        StrategyName = "graph"
	StrategyTemporalGraph StrategyName = "temporal_graph"
)

// FusedResult is one item of the merged, ranked list produced by rank
// fusion, carrying its rrf_score and per-strategy contributing ranks.
type FusedResult struct {
	FactID      FactID
	RRFScore    float64
	SourceRanks map[StrategyName]int
	FinalRank   int
}

// StrategyOutput pairs a strategy's name with its CandidateList, for fusion
// input. A nil or empty List means the strategy produced no results (either
// legitimately or because it errored, per §4.3's failure semantics).
type StrategyOutput struct {
	Name StrategyName
	List CandidateList
}

// FuseRRF merges ranked lists from strategies (and, by construction of the
// caller, fact-type partitions) via reciprocal rank fusion, k=60. Ties break
// by lowest minimum contributing rank, then by fact_id.
func FuseRRF(outputs []StrategyOutput, kRRF, kFuse int) []FusedResult {
	if kRRF <= 0 {
		kRRF = defaultKRRF
	}
	if kFuse <= 0 {
		kFuse = defaultKFuse
	}

	scores := make(map[FactID]float64)
	sourceRanks := make(map[FactID]map[StrategyName]int)

	for _, out := range outputs {
		for _, c := range out.List {
			scores[c.FactID] += 1.0 / float64(kRRF+c.Rank)
			if sourceRanks[c.FactID] == nil {
				sourceRanks[c.FactID] = make(map[StrategyName]int)
			}
			sourceRanks[c.FactID][out.Name] = c.Rank
		}
	}

	results := make([]FusedResult, 0, len(scores))
	for id, score := range scores {
		results = append(results, FusedResult{FactID: id, RRFScore: score, SourceRanks: sourceRanks[id]})
	}

	minRank := func(r FusedResult) int {
		min := 1 << 30
		for _, rank := range r.SourceRanks {
			if rank < min {
				min = rank
			}
		}
		return min
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].RRFScore != results[j].RRFScore {
			return results[i].RRFScore > results[j].RRFScore
		}
		mi, mj := minRank(results[i]), minRank(results[j])
		if mi != mj {
			return mi < mj
		}
		return results[i].FactID < results[j].FactID
	})

	if len(results) > kFuse {
		results = results[:kFuse]
	}
	for i := range results {
		results[i].FinalRank = i + 1
	}
	return results
}
