package store

import (
	"context"
	"testing"

	"recallengine/backend/go/internal/recall"
)

func TestMemoryStoreBankExistsTrueAfterPutFact(t *testing.T) {
	m := NewMemoryStore()
	m.PutFact(recall.Fact{ID: "a", BankID: "bank-1", FactType: recall.FactTypeWorld})

	exists, err := m.BankExists(context.Background(), "bank-1")
	if err != nil {
		t.Fatalf("BankExists: %v", err)
	}
	if !exists {
		t.Fatal("expected a bank with a fact in it to exist")
	}
}

func TestMemoryStoreBankExistsTrueAfterRegisterBank(t *testing.T) {
	m := NewMemoryStore()
	m.RegisterBank("known-empty-bank")

	exists, err := m.BankExists(context.Background(), "known-empty-bank")
	if err != nil {
		t.Fatalf("BankExists: %v", err)
	}
	if !exists {
		t.Fatal("expected an explicitly registered bank to exist even with no facts")
	}
}

func TestMemoryStoreBankExistsFalseForUnknownBank(t *testing.T) {
	m := NewMemoryStore()

	exists, err := m.BankExists(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("BankExists: %v", err)
	}
	if exists {
		t.Fatal("expected a bank that was never registered or written to, to not exist")
	}
}

func TestMemoryStoreVectorTopKScopesByBank(t *testing.T) {
	m := NewMemoryStore()
	m.PutFact(recall.Fact{ID: "a", BankID: "bank-1", FactType: recall.FactTypeWorld, Embedding: []float32{1, 0}})
	m.PutFact(recall.Fact{ID: "b", BankID: "bank-2", FactType: recall.FactTypeWorld, Embedding: []float32{1, 0}})

	out, err := m.VectorTopK(context.Background(), "bank-1", recall.AllFactTypes, []float32{1, 0}, 10, recall.VectorFilters{})
	if err != nil {
		t.Fatalf("VectorTopK: %v", err)
	}
	if len(out) != 1 || out[0].FactID != "a" {
		t.Fatalf("expected only bank-1's fact, got %v", out)
	}
}

func TestMemoryStoreVectorTopKAppliesMinSimilarity(t *testing.T) {
	m := NewMemoryStore()
	m.PutFact(recall.Fact{ID: "close", BankID: "b1", FactType: recall.FactTypeWorld, Embedding: []float32{1, 0}})
	m.PutFact(recall.Fact{ID: "orthogonal", BankID: "b1", FactType: recall.FactTypeWorld, Embedding: []float32{0, 1}})

	out, err := m.VectorTopK(context.Background(), "b1", recall.AllFactTypes, []float32{1, 0}, 10, recall.VectorFilters{MinSimilarity: 0.5})
	if err != nil {
		t.Fatalf("VectorTopK: %v", err)
	}
	if len(out) != 1 || out[0].FactID != "close" {
		t.Fatalf("expected the orthogonal fact filtered out by tau, got %v", out)
	}
}

func TestMemoryStoreFetchFactsPreservesRequestedOrder(t *testing.T) {
	m := NewMemoryStore()
	m.PutFact(recall.Fact{ID: "a", BankID: "b1", FactType: recall.FactTypeWorld, Text: "a"})
	m.PutFact(recall.Fact{ID: "b", BankID: "b1", FactType: recall.FactTypeWorld, Text: "b"})

	out, err := m.FetchFacts(context.Background(), []recall.FactID{"b", "a"})
	if err != nil {
		t.Fatalf("FetchFacts: %v", err)
	}
	if len(out) != 2 || out[0].ID != "b" || out[1].ID != "a" {
		t.Fatalf("expected order [b a], got %v", out)
	}
}

func TestMemoryStoreFetchFactsErrorsOnMissingID(t *testing.T) {
	m := NewMemoryStore()
	if _, err := m.FetchFacts(context.Background(), []recall.FactID{"missing"}); err == nil {
		t.Fatal("expected an error for an unknown fact id")
	}
}

func TestMemoryStoreLinksFromFiltersByType(t *testing.T) {
	m := NewMemoryStore()
	m.PutLink(recall.Link{SourceID: "a", TargetID: "b", LinkType: recall.LinkCausal, Weight: 0.9})
	m.PutLink(recall.Link{SourceID: "a", TargetID: "c", LinkType: recall.LinkTemporal, Weight: 0.5})

	out, err := m.LinksFrom(context.Background(), "a", []recall.LinkType{recall.LinkCausal})
	if err != nil {
		t.Fatalf("LinksFrom: %v", err)
	}
	if len(out) != 1 || out[0].TargetID != "b" {
		t.Fatalf("expected only the causal link, got %v", out)
	}
}

func TestMemoryStoreEntityObservationsRespectsTokenCap(t *testing.T) {
	m := NewMemoryStore()
	m.PutEntity(recall.Entity{ID: "e1", BankID: "b1", CanonicalName: "Alice", MentionCount: 5})
	m.PutEntity(recall.Entity{ID: "e2", BankID: "b1", CanonicalName: "Bob", MentionCount: 3})

	out, err := m.EntityObservations(context.Background(), []recall.EntityID{"e1", "e2"}, 1)
	if err != nil {
		t.Fatalf("EntityObservations: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected a token cap of 1 to admit nothing, got %v", out)
	}

	out, err = m.EntityObservations(context.Background(), []recall.EntityID{"e1", "e2"}, 1000)
	if err != nil {
		t.Fatalf("EntityObservations: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected both observations under a generous cap, got %v", out)
	}
}
