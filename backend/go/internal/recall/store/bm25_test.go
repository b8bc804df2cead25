package store

import (
	"context"
	"testing"

	"recallengine/backend/go/internal/recall"
)

func TestInvertedIndexBM25TopKRanksByTermFrequency(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(recall.Fact{ID: "a", BankID: "b1", FactType: recall.FactTypeObservation, Text: "the cat sat on the mat"})
	idx.Index(recall.Fact{ID: "b", BankID: "b1", FactType: recall.FactTypeObservation, Text: "cat cat cat everywhere"})
	idx.Index(recall.Fact{ID: "c", BankID: "b1", FactType: recall.FactTypeObservation, Text: "dogs bark at night"})

	out, err := idx.BM25TopK(context.Background(), "b1", recall.AllFactTypes, "cat", 10)
	if err != nil {
		t.Fatalf("BM25TopK: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 matching facts, got %d: %v", len(out), out)
	}
	if out[0].FactID != "b" {
		t.Errorf("expected fact b (highest term frequency) ranked first, got %s", out[0].FactID)
	}
	for i, c := range out {
		if c.Rank != i+1 {
			t.Errorf("expected dense rank %d at index %d, got %d", i+1, i, c.Rank)
		}
	}
}

func TestInvertedIndexBM25TopKScopedByBankAndType(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(recall.Fact{ID: "a", BankID: "bank-a", FactType: recall.FactTypeWorld, Text: "quarterly revenue report"})
	idx.Index(recall.Fact{ID: "b", BankID: "bank-b", FactType: recall.FactTypeWorld, Text: "quarterly revenue report"})
	idx.Index(recall.Fact{ID: "c", BankID: "bank-a", FactType: recall.FactTypeOpinion, Text: "quarterly revenue report"})

	out, err := idx.BM25TopK(context.Background(), "bank-a", []recall.FactType{recall.FactTypeWorld}, "revenue", 10)
	if err != nil {
		t.Fatalf("BM25TopK: %v", err)
	}
	if len(out) != 1 || out[0].FactID != "a" {
		t.Fatalf("expected only fact a to survive bank+type scoping, got %v", out)
	}
}

func TestInvertedIndexReindexReplacesPostings(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(recall.Fact{ID: "a", BankID: "b1", FactType: recall.FactTypeWorld, Text: "alpha beta"})
	idx.Index(recall.Fact{ID: "a", BankID: "b1", FactType: recall.FactTypeWorld, Text: "gamma delta"})

	out, err := idx.BM25TopK(context.Background(), "b1", recall.AllFactTypes, "alpha", 10)
	if err != nil {
		t.Fatalf("BM25TopK: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected reindexing to drop stale postings, got %v", out)
	}

	out, err = idx.BM25TopK(context.Background(), "b1", recall.AllFactTypes, "gamma", 10)
	if err != nil {
		t.Fatalf("BM25TopK: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected the reindexed text to be searchable, got %v", out)
	}
}

func TestInvertedIndexNoMatchesReturnsEmpty(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index(recall.Fact{ID: "a", BankID: "b1", FactType: recall.FactTypeWorld, Text: "hello world"})

	out, err := idx.BM25TopK(context.Background(), "b1", recall.AllFactTypes, "nonexistent", 10)
	if err != nil {
		t.Fatalf("BM25TopK: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected no matches, got %v", out)
	}
}
