package recall

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"
)

const recencyHalfLifeDays = 180.0

// ScoreComponents records the weighted contributions to a fact's final
// score. CrossEncoder is nil when the cross-encoder was unavailable and the
// rerank degraded to rrf_norm+recency+frequency.
type ScoreComponents struct {
	CrossEncoder *float64
	RRFNorm      float64
	Recency      float64
	Frequency    float64
}

// RerankedItem is one entry of the reranked list, with enough provenance to
// populate both the response and the trace.
type RerankedItem struct {
	Fact       Fact
	RRFRank    int
	RerankRank int
	RankChange int
	FinalScore float64
	Components ScoreComponents
}

func tokensFor(f Fact) int {
	return ceilDiv(len(f.Text), 4) + ceilDiv(len(f.Context), 4)
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func decorate(f Fact, hasTemporalRange bool) string {
	text := f.Text
	if f.OccurredStart != nil && hasTemporalRange {
		text = fmt.Sprintf("[Date: %s] %s", f.OccurredStart.Format("2006-01-02"), text)
	}
	if f.Context != "" {
		text = fmt.Sprintf("%s[Context: %s]", text, f.Context)
	}
	return text
}

// Rerank scores fused's facts with encoder, falling back to
// rrf_norm+recency+frequency when encoder is nil or fails (including a
// circuit-open error), then assembles a token-budgeted, descending-final-score
// prefix. ErrOverloaded is not a fallback case: it is returned to the caller.
// len(fused)==0 returns (nil, nil).
func Rerank(
	ctx context.Context,
	encoder CrossEncoder,
	fused []FusedResult,
	facts map[FactID]Fact,
	entityMentions map[EntityID]int,
	queryText string,
	hasTemporalRange bool,
	now time.Time,
	maxTokens int,
) ([]RerankedItem, error) {
	if len(fused) == 0 {
		return nil, nil
	}

	maxRRF := fused[0].RRFScore
	minRRF := fused[0].RRFScore
	for _, r := range fused {
		if r.RRFScore > maxRRF {
			maxRRF = r.RRFScore
		}
		if r.RRFScore < minRRF {
			minRRF = r.RRFScore
		}
	}

	maxMentions := 0
	factMentions := make(map[FactID]int, len(fused))
	for _, r := range fused {
		f := facts[r.FactID]
		m := 0
		for _, e := range f.EntityRefs {
			if v := entityMentions[e]; v > m {
				m = v
			}
		}
		factMentions[r.FactID] = m
		if m > maxMentions {
			maxMentions = m
		}
	}

	ceScores, ceErr := scoreWithFallback(ctx, encoder, fused, facts, queryText, hasTemporalRange)
	if ceErr == ErrOverloaded {
		// Overloaded is fatal for the request, not a degrade condition:
		// the caller (engine) surfaces KindOverloaded.
		return nil, ceErr
	}

	items := make([]RerankedItem, 0, len(fused))
	for _, r := range fused {
		f := facts[r.FactID]
		rrfNorm := normalize(r.RRFScore, minRRF, maxRRF)
		recency := recencyScore(f, now)
		frequency := freqScore(factMentions[r.FactID], maxMentions)

		comp := ScoreComponents{RRFNorm: rrfNorm, Recency: recency, Frequency: frequency}
		var final float64
		if ceErr == nil {
			ce := float64(ceScores[r.FactID])
			comp.CrossEncoder = &ce
			final = 0.6*ce + 0.25*rrfNorm + 0.10*recency + 0.05*frequency
		} else {
			// Degraded weighting: cross-encoder's 0.6 share is dropped and
			// the remaining components are renormalized to sum to 1.
			final = (0.25*rrfNorm + 0.10*recency + 0.05*frequency) / 0.40
		}

		items = append(items, RerankedItem{
			Fact:       f,
			RRFRank:    r.FinalRank,
			FinalScore: final,
			Components: comp,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].FinalScore != items[j].FinalScore {
			return items[i].FinalScore > items[j].FinalScore
		}
		return items[i].Fact.ID < items[j].Fact.ID
	})
	for i := range items {
		items[i].RerankRank = i + 1
		items[i].RankChange = items[i].RRFRank - items[i].RerankRank
	}

	return assembleTokenBudget(items, maxTokens), nil
}

// scoreWithFallback calls encoder.ScorePairs for the whole batch. A non-nil
// error means the caller must degrade per §7.
func scoreWithFallback(ctx context.Context, encoder CrossEncoder, fused []FusedResult, facts map[FactID]Fact, queryText string, hasTemporalRange bool) (map[FactID]float32, error) {
	if encoder == nil {
		return nil, ErrCrossEncoderUnavailable
	}
	pairs := make([]Pair, len(fused))
	for i, r := range fused {
		pairs[i] = Pair{Query: queryText, Text: decorate(facts[r.FactID], hasTemporalRange)}
	}
	scores, err := encoder.ScorePairs(ctx, pairs)
	if err != nil {
		return nil, err
	}
	out := make(map[FactID]float32, len(fused))
	for i, r := range fused {
		out[r.FactID] = scores[i]
	}
	return out, nil
}

func normalize(v, min, max float64) float64 {
	if max == min {
		return 1
	}
	return (v - min) / (max - min)
}

func recencyScore(f Fact, now time.Time) float64 {
	ref := f.MentionedAt
	if f.OccurredStart != nil {
		ref = *f.OccurredStart
	}
	ageDays := now.Sub(ref).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-ageDays / recencyHalfLifeDays)
}

func freqScore(mentions, maxMentions int) float64 {
	if maxMentions <= 0 {
		return 0
	}
	return math.Log(1+float64(mentions)) / math.Log(1+float64(maxMentions))
}

// assembleTokenBudget iterates items in descending final score, accumulating
// approximate token cost, and stops before exceeding maxTokens. Always
// includes at least one fact if any candidate exists (single-fact override).
func assembleTokenBudget(items []RerankedItem, maxTokens int) []RerankedItem {
	if len(items) == 0 {
		return nil
	}
	var out []RerankedItem
	total := 0
	for _, it := range items {
		cost := tokensFor(it.Fact)
		if len(out) > 0 && total+cost > maxTokens {
			break
		}
		out = append(out, it)
		total += cost
		if len(out) == 1 && total > maxTokens {
			// Single-fact override: the lone candidate exceeds the budget
			// on its own but is still returned alone.
			break
		}
	}
	return out
}
