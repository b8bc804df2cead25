package recall

import (
	"container/heap"
	"context"
	"sort"
	"time"
)

// decay returns the per-link-type propagation factor. Causal links receive a
// 2x boost and are allowed to exceed 1.0 pre-clamp.
func decay(lt LinkType) float64 {
	switch lt {
	case LinkEntity:
		return 0.8
	case LinkSemantic:
		return 0.7
	case LinkTemporal:
		return 0.6
	case LinkCausal:
		return 0.9 * 2
	}
	return 0
}

func clampActivation(a float64) float64 {
	if a < 0 {
		return 0
	}
	if a > 2 {
		return 2
	}
	return a
}

var allLinkTypes = []LinkType{LinkEntity, LinkSemantic, LinkTemporal, LinkCausal}

// activationItem is a heap entry. Items may go stale when A[factID] is
// raised after they were pushed; stale entries are discarded on pop by
// checking against the live activation map.
type activationItem struct {
	factID     FactID
	activation float64
}

type activationHeap []activationItem

func (h activationHeap) Len() int            { return len(h) }
func (h activationHeap) Less(i, j int) bool  { return h[i].activation > h[j].activation }
func (h activationHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *activationHeap) Push(x interface{}) { *h = append(*h, x.(activationItem)) }
func (h *activationHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// graphVisit is one entry of the trace's visits list.
type graphVisit struct {
	NodeID         FactID
	ActivationPath []FactID
	Weight         float64
}

// spreadingActivation implements §4.3.3/§4.3.4. When temporalRange is
// non-nil it applies the temporal-graph gating: a link to v is only
// traversed if v's effective time (OccurredStart, falling back to
// MentionedAt when allowed) falls within the range.
func spreadingActivation(
	ctx context.Context,
	store Store,
	entryPoints CandidateList,
	budget int,
	tauGraph float64,
	temporalRange *TemporalRange,
	fallbackToMentionedAt bool,
) (CandidateList, []graphVisit, error) {
	activation := make(map[FactID]float64, budget)
	visited := make(map[FactID]bool, budget)
	factMeta := make(map[FactID]*Fact)
	parent := make(map[FactID]FactID)

	h := &activationHeap{}
	heap.Init(h)

	for _, ep := range entryPoints {
		activation[ep.FactID] = clampActivation(ep.Score)
		heap.Push(h, activationItem{factID: ep.FactID, activation: activation[ep.FactID]})
	}

	var visits []graphVisit

	for h.Len() > 0 && len(visited) < budget {
		if err := ctx.Err(); err != nil {
			break
		}
		item := heap.Pop(h).(activationItem)
		u := item.factID
		if visited[u] {
			continue
		}
		if item.activation < activation[u] {
			// Stale entry superseded by a later, higher push.
			continue
		}
		visited[u] = true

		links, err := store.LinksFrom(ctx, u, allLinkTypes)
		if err != nil {
			// A single node's link lookup failing degrades to "no further
			// expansion from u"; the overall strategy is not failed.
			continue
		}

		path := buildPath(parent, u)
		visits = append(visits, graphVisit{NodeID: u, ActivationPath: path, Weight: activation[u]})

		for _, link := range links {
			v := link.TargetID
			if visited[v] {
				continue
			}
			if temporalRange != nil {
				ok, err := withinRange(ctx, store, factMeta, v, *temporalRange, fallbackToMentionedAt)
				if err != nil || !ok {
					continue
				}
			}
			propagated := clampActivation(activation[u] * decay(link.LinkType) * link.Weight)
			if propagated > activation[v] {
				activation[v] = propagated
				parent[v] = u
				heap.Push(h, activationItem{factID: v, activation: propagated})
			}
		}
	}

	result := make(CandidateList, 0, len(visited))
	for id := range visited {
		if activation[id] < tauGraph {
			continue
		}
		result = append(result, Candidate{FactID: id, Score: activation[id]})
	}

	sortedIDs := make([]FactID, len(result))
	for i, c := range result {
		sortedIDs[i] = c.FactID
	}
	meta, err := fetchMetaBatch(ctx, store, factMeta, sortedIDs)
	if err != nil {
		return nil, nil, err
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		mi, mj := meta[result[i].FactID], meta[result[j].FactID]
		if mi != nil && mj != nil && !mi.MentionedAt.Equal(mj.MentionedAt) {
			return mi.MentionedAt.After(mj.MentionedAt)
		}
		return result[i].FactID < result[j].FactID
	})
	for i := range result {
		result[i].Rank = i + 1
	}
	return result, visits, nil
}

func buildPath(parent map[FactID]FactID, leaf FactID) []FactID {
	var path []FactID
	cur := leaf
	for {
		path = append([]FactID{cur}, path...)
		p, ok := parent[cur]
		if !ok {
			break
		}
		cur = p
	}
	return path
}

func fetchMetaBatch(ctx context.Context, store Store, cache map[FactID]*Fact, ids []FactID) (map[FactID]*Fact, error) {
	var missing []FactID
	for _, id := range ids {
		if _, ok := cache[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		facts, err := store.FetchFacts(ctx, missing)
		if err != nil {
			return nil, err
		}
		for i := range facts {
			f := facts[i]
			cache[f.ID] = &f
		}
	}
	return cache, nil
}

// withinRange resolves v's effective occurrence time and checks it against
// rng. It looks up and caches v's Fact metadata on first use.
func withinRange(ctx context.Context, store Store, cache map[FactID]*Fact, v FactID, rng TemporalRange, fallback bool) (bool, error) {
	f, ok := cache[v]
	if !ok {
		facts, err := store.FetchFacts(ctx, []FactID{v})
		if err != nil {
			return false, err
		}
		if len(facts) == 0 {
			cache[v] = nil
			return false, nil
		}
		f = &facts[0]
		cache[v] = f
	}
	if f == nil {
		return false, nil
	}
	var effective time.Time
	switch {
	case f.OccurredStart != nil:
		effective = *f.OccurredStart
	case fallback:
		effective = f.MentionedAt
	default:
		return false, nil
	}
	return !effective.Before(rng.Start) && !effective.After(rng.End), nil
}
