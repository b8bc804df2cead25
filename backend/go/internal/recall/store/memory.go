package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"recallengine/backend/go/internal/recall"
)

// MemoryStore is a single struct implementing every Store operation
// in-memory, used by tests. The demonstration binary uses the Milvus and
// Neo4j adapters instead.
type MemoryStore struct {
	mu       sync.RWMutex
	facts    map[recall.FactID]recall.Fact
	entities map[recall.EntityID]recall.Entity
	links    map[recall.FactID][]recall.Link
	banks    map[recall.BankID]bool
	bm25     *InvertedIndex
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		facts:    make(map[recall.FactID]recall.Fact),
		entities: make(map[recall.EntityID]recall.Entity),
		links:    make(map[recall.FactID][]recall.Link),
		banks:    make(map[recall.BankID]bool),
		bm25:     NewInvertedIndex(),
	}
}

// RegisterBank marks id as a known bank without requiring any facts in it,
// modeling the out-of-scope provisioning step that creates a bank before
// anything is ever written to it.
func (m *MemoryStore) RegisterBank(id recall.BankID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.banks[id] = true
}

// BankExists reports whether id was registered, either explicitly via
// RegisterBank or implicitly by ever having a fact or entity put into it.
func (m *MemoryStore) BankExists(_ context.Context, id recall.BankID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.banks[id], nil
}

// PutFact inserts or replaces a fact and re-indexes it for lexical search.
func (m *MemoryStore) PutFact(f recall.Fact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facts[f.ID] = f
	m.banks[f.BankID] = true
	m.bm25.Index(f)
}

// PutEntity inserts or replaces an entity.
func (m *MemoryStore) PutEntity(e recall.Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[e.ID] = e
	m.banks[e.BankID] = true
}

// PutLink adds a directed link from source to target. Links are additive:
// call twice to model a bidirectional relationship.
func (m *MemoryStore) PutLink(l recall.Link) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[l.SourceID] = append(m.links[l.SourceID], l)
}

func (m *MemoryStore) VectorTopK(_ context.Context, bank recall.BankID, factTypes []recall.FactType, queryVec []float32, k int, filters recall.VectorFilters) (recall.CandidateList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := toSet(factTypes)
	type scored struct {
		f   recall.Fact
		sim float64
	}
	var candidates []scored
	for _, f := range m.facts {
		if f.BankID != bank || !wanted[f.FactType] {
			continue
		}
		if !withinFilterRange(f, filters) {
			continue
		}
		sim := cosineSimilarity(queryVec, f.Embedding)
		if sim < filters.MinSimilarity {
			continue
		}
		candidates = append(candidates, scored{f: f, sim: sim})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].sim != candidates[j].sim {
			return candidates[i].sim > candidates[j].sim
		}
		return candidates[i].f.ID < candidates[j].f.ID
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make(recall.CandidateList, len(candidates))
	for i, c := range candidates {
		out[i] = recall.Candidate{FactID: c.f.ID, Score: c.sim, Rank: i + 1}
	}
	return out, nil
}

func withinFilterRange(f recall.Fact, filters recall.VectorFilters) bool {
	if filters.OccurredStart == nil && filters.OccurredEnd == nil {
		return true
	}
	if f.OccurredStart == nil {
		return false
	}
	if filters.OccurredStart != nil && f.OccurredStart.Before(*filters.OccurredStart) {
		return false
	}
	if filters.OccurredEnd != nil && f.OccurredStart.After(*filters.OccurredEnd) {
		return false
	}
	return true
}

func (m *MemoryStore) BM25TopK(ctx context.Context, bank recall.BankID, factTypes []recall.FactType, queryText string, k int) (recall.CandidateList, error) {
	return m.bm25.BM25TopK(ctx, bank, factTypes, queryText, k)
}

func (m *MemoryStore) LinksFrom(_ context.Context, factID recall.FactID, linkTypes []recall.LinkType) ([]recall.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[recall.LinkType]bool, len(linkTypes))
	for _, t := range linkTypes {
		wanted[t] = true
	}
	var out []recall.Link
	for _, l := range m.links[factID] {
		if wanted[l.LinkType] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *MemoryStore) FetchFacts(_ context.Context, ids []recall.FactID) ([]recall.Fact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]recall.Fact, 0, len(ids))
	for _, id := range ids {
		f, ok := m.facts[id]
		if !ok {
			return nil, fmt.Errorf("fact not found: %s", id)
		}
		out = append(out, f)
	}
	return out, nil
}

func (m *MemoryStore) EntityObservations(_ context.Context, entityIDs []recall.EntityID, tokenCap int) ([]recall.EntityObservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]recall.EntityObservation, 0, len(entityIDs))
	used := 0
	for _, id := range entityIDs {
		e, ok := m.entities[id]
		if !ok {
			continue
		}
		summary := fmt.Sprintf("%s mentioned %d times", e.CanonicalName, e.MentionCount)
		cost := len(summary) / 4
		if tokenCap > 0 && used+cost > tokenCap {
			break
		}
		used += cost
		out = append(out, recall.EntityObservation{
			EntityID:      e.ID,
			CanonicalName: e.CanonicalName,
			Summary:       summary,
			MentionCount:  e.MentionCount,
		})
	}
	return out, nil
}

func toSet(types []recall.FactType) map[recall.FactType]bool {
	set := make(map[recall.FactType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
