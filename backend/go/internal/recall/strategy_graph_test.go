package recall

import (
	"context"
	"testing"
	"time"
)

// fakeLinkStore is a minimal Store stub exercising only LinksFrom and
// FetchFacts, the two operations spreadingActivation actually calls. The
// other methods are unused by these tests and are never exercised.
type fakeLinkStore struct {
	links map[FactID][]Link
	facts map[FactID]Fact
}

func (s *fakeLinkStore) BankExists(context.Context, BankID) (bool, error) { return true, nil }

func (s *fakeLinkStore) VectorTopK(context.Context, BankID, []FactType, []float32, int, VectorFilters) (CandidateList, error) {
	return nil, nil
}

func (s *fakeLinkStore) BM25TopK(context.Context, BankID, []FactType, string, int) (CandidateList, error) {
	return nil, nil
}

func (s *fakeLinkStore) LinksFrom(_ context.Context, factID FactID, linkTypes []LinkType) ([]Link, error) {
	wanted := make(map[LinkType]bool, len(linkTypes))
	for _, lt := range linkTypes {
		wanted[lt] = true
	}
	var out []Link
	for _, l := range s.links[factID] {
		if wanted[l.LinkType] {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *fakeLinkStore) FetchFacts(_ context.Context, ids []FactID) ([]Fact, error) {
	out := make([]Fact, 0, len(ids))
	for _, id := range ids {
		if f, ok := s.facts[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *fakeLinkStore) EntityObservations(context.Context, []EntityID, int) ([]EntityObservation, error) {
	return nil, nil
}

// Alice works at Google, Google is in Mountain View: a two-hop entity-linked
// chain grounding the decay/clamp math against known inputs (§8 S1).
func TestSpreadingActivationTraversesMultiHopEntityLinks(t *testing.T) {
	now := time.Now()
	s := &fakeLinkStore{
		facts: map[FactID]Fact{
			"f-alice-google": {ID: "f-alice-google", MentionedAt: now},
			"f-google-mtv":   {ID: "f-google-mtv", MentionedAt: now},
			"f-unreachable":  {ID: "f-unreachable", MentionedAt: now},
		},
		links: map[FactID][]Link{
			"f-alice-google": {
				{SourceID: "f-alice-google", TargetID: "f-google-mtv", LinkType: LinkEntity, Weight: 1.0},
			},
		},
	}
	entryPoints := CandidateList{{FactID: "f-alice-google", Score: 1.0, Rank: 1}}

	result, visits, err := spreadingActivation(context.Background(), s, entryPoints, 100, 0.1, nil, true)
	if err != nil {
		t.Fatalf("spreadingActivation: %v", err)
	}

	byID := make(map[FactID]Candidate, len(result))
	for _, c := range result {
		byID[c.FactID] = c
	}
	if _, ok := byID["f-google-mtv"]; !ok {
		t.Fatalf("expected the entity-linked second hop to be visited, got %v", result)
	}
	if _, ok := byID["f-unreachable"]; ok {
		t.Fatalf("expected the disconnected fact to never be visited, got %v", result)
	}

	wantActivation := clampActivation(1.0 * decay(LinkEntity) * 1.0)
	if got := byID["f-google-mtv"].Score; got != wantActivation {
		t.Errorf("expected propagated activation %v, got %v", wantActivation, got)
	}

	var visitedEntry, visitedHop bool
	for _, v := range visits {
		if v.NodeID == "f-alice-google" {
			visitedEntry = true
		}
		if v.NodeID == "f-google-mtv" {
			visitedHop = true
			if len(v.ActivationPath) != 2 || v.ActivationPath[0] != "f-alice-google" || v.ActivationPath[1] != "f-google-mtv" {
				t.Errorf("expected activation path [f-alice-google f-google-mtv], got %v", v.ActivationPath)
			}
		}
	}
	if !visitedEntry || !visitedHop {
		t.Fatalf("expected both nodes recorded as visits, entry=%v hop=%v", visitedEntry, visitedHop)
	}
}

// A causal link's 1.8x multiplier can push activation above 1.0; clamping
// caps it at the documented [0,2] ceiling rather than letting it grow
// unbounded across further hops.
func TestSpreadingActivationClampsCausalBoost(t *testing.T) {
	now := time.Now()
	s := &fakeLinkStore{
		facts: map[FactID]Fact{
			"f-root": {ID: "f-root", MentionedAt: now},
			"f-leaf": {ID: "f-leaf", MentionedAt: now},
		},
		links: map[FactID][]Link{
			"f-root": {
				{SourceID: "f-root", TargetID: "f-leaf", LinkType: LinkCausal, Weight: 2.0},
			},
		},
	}
	entryPoints := CandidateList{{FactID: "f-root", Score: 1.5, Rank: 1}}

	result, _, err := spreadingActivation(context.Background(), s, entryPoints, 100, 0.1, nil, true)
	if err != nil {
		t.Fatalf("spreadingActivation: %v", err)
	}
	for _, c := range result {
		if c.Score > 2.0 {
			t.Errorf("expected activation to never exceed the documented ceiling of 2, got %v for %s", c.Score, c.FactID)
		}
	}
}

// Links into nodes outside the detected temporal range are never traversed
// when a temporal range gates the walk (§4.3.4).
func TestSpreadingActivationTemporalGraphGatesOutOfRangeNodes(t *testing.T) {
	inRange := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	outOfRange := time.Date(2023, time.January, 10, 0, 0, 0, 0, time.UTC)
	s := &fakeLinkStore{
		facts: map[FactID]Fact{
			"f-entry":   {ID: "f-entry", MentionedAt: inRange},
			"f-inrange": {ID: "f-inrange", OccurredStart: &inRange, MentionedAt: inRange},
			"f-outside": {ID: "f-outside", OccurredStart: &outOfRange, MentionedAt: outOfRange},
		},
		links: map[FactID][]Link{
			"f-entry": {
				{SourceID: "f-entry", TargetID: "f-inrange", LinkType: LinkTemporal, Weight: 1.0},
				{SourceID: "f-entry", TargetID: "f-outside", LinkType: LinkTemporal, Weight: 1.0},
			},
		},
	}
	rng := &TemporalRange{
		Start: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.May, 31, 23, 59, 59, 0, time.UTC),
	}
	entryPoints := CandidateList{{FactID: "f-entry", Score: 1.0, Rank: 1}}

	result, _, err := spreadingActivation(context.Background(), s, entryPoints, 100, 0.0, rng, false)
	if err != nil {
		t.Fatalf("spreadingActivation: %v", err)
	}
	var sawInRange, sawOutside bool
	for _, c := range result {
		if c.FactID == "f-inrange" {
			sawInRange = true
		}
		if c.FactID == "f-outside" {
			sawOutside = true
		}
	}
	if !sawInRange {
		t.Error("expected the in-range node to be visited")
	}
	if sawOutside {
		t.Error("expected the out-of-range node to never be visited under temporal gating")
	}
}

// Activation that never reaches the node budget and stays above tauGraph is
// included; entries below tauGraph are filtered from the returned list even
// though they were still visited (and recorded in visits).
func TestSpreadingActivationFiltersBelowTauGraph(t *testing.T) {
	now := time.Now()
	s := &fakeLinkStore{
		facts: map[FactID]Fact{
			"f-entry": {ID: "f-entry", MentionedAt: now},
			"f-weak":  {ID: "f-weak", MentionedAt: now},
		},
		links: map[FactID][]Link{
			"f-entry": {
				{SourceID: "f-entry", TargetID: "f-weak", LinkType: LinkSemantic, Weight: 0.05},
			},
		},
	}
	entryPoints := CandidateList{{FactID: "f-entry", Score: 1.0, Rank: 1}}

	result, visits, err := spreadingActivation(context.Background(), s, entryPoints, 100, 0.5, nil, true)
	if err != nil {
		t.Fatalf("spreadingActivation: %v", err)
	}
	for _, c := range result {
		if c.FactID == "f-weak" {
			t.Errorf("expected f-weak's activation (%v) below tauGraph (0.5) to be filtered out", c.Score)
		}
	}
	var weakVisited bool
	for _, v := range visits {
		if v.NodeID == "f-weak" {
			weakVisited = true
		}
	}
	if !weakVisited {
		t.Error("expected f-weak to still be recorded in visits despite being filtered from results")
	}
}

// The node budget bounds how many nodes spreadingActivation will visit, even
// when the heap still has unexplored entries above tauGraph (§8 S4).
func TestSpreadingActivationRespectsNodeBudget(t *testing.T) {
	now := time.Now()
	s := &fakeLinkStore{
		facts: map[FactID]Fact{
			"f-a": {ID: "f-a", MentionedAt: now},
			"f-b": {ID: "f-b", MentionedAt: now},
			"f-c": {ID: "f-c", MentionedAt: now},
		},
		links: map[FactID][]Link{
			"f-a": {{SourceID: "f-a", TargetID: "f-b", LinkType: LinkEntity, Weight: 1.0}},
			"f-b": {{SourceID: "f-b", TargetID: "f-c", LinkType: LinkEntity, Weight: 1.0}},
		},
	}
	entryPoints := CandidateList{{FactID: "f-a", Score: 1.0, Rank: 1}}

	_, visits, err := spreadingActivation(context.Background(), s, entryPoints, 1, 0.0, nil, true)
	if err != nil {
		t.Fatalf("spreadingActivation: %v", err)
	}
	if len(visits) != 1 {
		t.Errorf("expected exactly 1 visit under a budget of 1, got %d: %v", len(visits), visits)
	}
}
