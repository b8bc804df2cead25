package store

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"recallengine/backend/go/internal/recall"
)

// InvertedIndex is an in-process, tokenized inverted index implementing
// bm25_topk. No suitable third-party BM25 library exists anywhere in this
// lineage's dependency set (see the grounding ledger); this is the one
// component of the store adapter built on hand-rolled logic rather than an
// ecosystem package.
type InvertedIndex struct {
	mu       sync.RWMutex
	postings map[string]map[recall.FactID]int // token -> factID -> term frequency
	docLen   map[recall.FactID]int
	docBank  map[recall.FactID]recall.BankID
	docType  map[recall.FactID]recall.FactType
	totalLen int
	docCount int

	k1 float64
	b  float64
}

// NewInvertedIndex builds an empty index with the standard BM25 constants.
func NewInvertedIndex() *InvertedIndex {
	return &InvertedIndex{
		postings: make(map[string]map[recall.FactID]int),
		docLen:   make(map[recall.FactID]int),
		docBank:  make(map[recall.FactID]recall.BankID),
		docType:  make(map[recall.FactID]recall.FactType),
		k1:       1.2,
		b:        0.75,
	}
}

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

func tokenize(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}

// Index re-indexes a fact's text+context. Facts are re-indexed idempotently:
// calling Index again for the same id replaces its prior postings.
func (idx *InvertedIndex) Index(f recall.Fact) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.remove(f.ID)

	tokens := tokenize(f.Text + " " + f.Context)
	if len(tokens) == 0 {
		return
	}
	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freq[t]++
	}
	for t, n := range freq {
		if idx.postings[t] == nil {
			idx.postings[t] = make(map[recall.FactID]int)
		}
		idx.postings[t][f.ID] = n
	}
	idx.docLen[f.ID] = len(tokens)
	idx.docBank[f.ID] = f.BankID
	idx.docType[f.ID] = f.FactType
	idx.totalLen += len(tokens)
	idx.docCount++
}

func (idx *InvertedIndex) remove(id recall.FactID) {
	if oldLen, ok := idx.docLen[id]; ok {
		idx.totalLen -= oldLen
		idx.docCount--
		for t, docs := range idx.postings {
			if _, present := docs[id]; present {
				delete(docs, id)
				if len(docs) == 0 {
					delete(idx.postings, t)
				}
			}
		}
	}
	delete(idx.docLen, id)
	delete(idx.docBank, id)
	delete(idx.docType, id)
}

func (idx *InvertedIndex) avgDocLen() float64 {
	if idx.docCount == 0 {
		return 0
	}
	return float64(idx.totalLen) / float64(idx.docCount)
}

// BM25TopK scores every fact in bank whose fact_type is requested against
// the tokenized query text, returning the top k by descending score.
func (idx *InvertedIndex) BM25TopK(_ context.Context, bank recall.BankID, factTypes []recall.FactType, queryText string, k int) (recall.CandidateList, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	wanted := make(map[recall.FactType]bool, len(factTypes))
	for _, t := range factTypes {
		wanted[t] = true
	}

	avgLen := idx.avgDocLen()
	scores := make(map[recall.FactID]float64)

	for _, term := range dedupe(tokenize(queryText)) {
		docs, ok := idx.postings[term]
		if !ok {
			continue
		}
		idf := math.Log(1 + (float64(idx.docCount)-float64(len(docs))+0.5)/(float64(len(docs))+0.5))
		for id, tf := range docs {
			if idx.docBank[id] != bank || !wanted[idx.docType[id]] {
				continue
			}
			dl := float64(idx.docLen[id])
			denom := float64(tf) + idx.k1*(1-idx.b+idx.b*dl/avgLen)
			scores[id] += idf * (float64(tf) * (idx.k1 + 1) / denom)
		}
	}

	list := make(recall.CandidateList, 0, len(scores))
	for id, s := range scores {
		list = append(list, recall.Candidate{FactID: id, Score: s})
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Score != list[j].Score {
			return list[i].Score > list[j].Score
		}
		return list[i].FactID < list[j].FactID
	})
	if len(list) > k {
		list = list[:k]
	}
	for i := range list {
		list[i].Rank = i + 1
	}
	return list, nil
}

func dedupe(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
