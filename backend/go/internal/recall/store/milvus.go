package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	milvusdb "recallengine/backend/go/internal/database/milvus"
	"recallengine/backend/go/internal/recall"
)

// Milvus collection field names for the facts collection (§3 schema
// mapping).
const (
	fieldID            = "id"
	fieldBankID        = "bank_id"
	fieldFactType      = "fact_type"
	fieldOccurredStart = "occurred_start"
	fieldOccurredEnd   = "occurred_end"
	fieldMentionedAt   = "mentioned_at"
	fieldEmbedding     = "embedding"
)

// MilvusVectorStore implements vector_topk and fetch_facts against a Milvus
// collection, built the way this lineage wraps a Milvus client singleton:
// address from config, collection load on first use, index selection from
// config, and scalar-filter expressions composed from bank_id/fact_types/
// time range.
type MilvusVectorStore struct {
	c          *milvusdb.MilvusClient
	collection string
}

// NewMilvusVectorStore wraps an already-connected MilvusClient.
func NewMilvusVectorStore(c *milvusdb.MilvusClient) *MilvusVectorStore {
	return &MilvusVectorStore{c: c, collection: c.Config.Schema.CollectionName}
}

// BankExists approximates bank-existence as "at least one fact row carries
// this bank_id". Unlike MemoryStore's explicit registry, Milvus has no
// separate bank-provisioning record to check against; a bank created by the
// (out-of-scope) ingestion path but never written to would read as
// not-found here until its first fact lands.
func (s *MilvusVectorStore) BankExists(ctx context.Context, bank recall.BankID) (bool, error) {
	if err := s.c.Client.LoadCollection(ctx, s.collection, false); err != nil {
		return false, fmt.Errorf("load collection %q: %w", s.collection, err)
	}
	expr := fmt.Sprintf("%s == %q", fieldBankID, string(bank))
	cols, err := s.c.Client.Query(ctx, s.collection, nil, expr, []string{fieldID})
	if err != nil {
		return false, fmt.Errorf("milvus query: %w", err)
	}
	return len(cols) > 0 && cols[0].Len() > 0, nil
}

func (s *MilvusVectorStore) VectorTopK(ctx context.Context, bank recall.BankID, factTypes []recall.FactType, queryVec []float32, k int, filters recall.VectorFilters) (recall.CandidateList, error) {
	if err := s.c.Client.LoadCollection(ctx, s.collection, false); err != nil {
		return nil, fmt.Errorf("load collection %q: %w", s.collection, err)
	}

	expr := buildScalarFilter(bank, factTypes, filters.OccurredStart, filters.OccurredEnd)
	sp, _ := entity.NewIndexIvfFlatSearchParam(10)

	results, err := s.c.Client.Search(
		ctx, s.collection, nil, expr,
		[]string{fieldID},
		[]entity.Vector{entity.FloatVector(queryVec)},
		fieldEmbedding, metricTypeFor(s.c.Config.Schema.Index.MetricType), k, sp,
	)
	if err != nil {
		return nil, fmt.Errorf("milvus search: %w", err)
	}

	var out recall.CandidateList
	for _, res := range results {
		idCol, ok := findColumn(res.Fields, fieldID).(*entity.ColumnVarChar)
		if !ok {
			continue
		}
		ids := idCol.Data()
		for i := 0; i < res.ResultCount; i++ {
			sim := similarityFromDistance(res.Scores[i], s.c.Config.Schema.Index.MetricType)
			if float64(sim) < filters.MinSimilarity {
				continue
			}
			out = append(out, recall.Candidate{FactID: recall.FactID(ids[i]), Score: float64(sim)})
		}
	}
	sortCandidatesDesc(out)
	if len(out) > k {
		out = out[:k]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

// FetchFacts hydrates ids via a scalar query (no vector search), preserving
// the requested order.
func (s *MilvusVectorStore) FetchFacts(ctx context.Context, ids []recall.FactID) ([]recall.Fact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf("%q", string(id))
	}
	expr := fmt.Sprintf("%s in [%s]", fieldID, strings.Join(quoted, ","))

	cols, err := s.c.Client.Query(ctx, s.collection, nil, expr, []string{
		fieldID, fieldBankID, fieldFactType, fieldOccurredStart, fieldOccurredEnd, fieldMentionedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("milvus query: %w", err)
	}

	byID := make(map[recall.FactID]recall.Fact)
	n := 0
	if len(cols) > 0 {
		n = cols[0].Len()
	}
	idCol, _ := findColumn(cols, fieldID).(*entity.ColumnVarChar)
	bankCol, _ := findColumn(cols, fieldBankID).(*entity.ColumnVarChar)
	typeCol, _ := findColumn(cols, fieldFactType).(*entity.ColumnVarChar)
	startCol, _ := findColumn(cols, fieldOccurredStart).(*entity.ColumnInt64)
	endCol, _ := findColumn(cols, fieldOccurredEnd).(*entity.ColumnInt64)
	mentionedCol, _ := findColumn(cols, fieldMentionedAt).(*entity.ColumnInt64)

	for i := 0; i < n; i++ {
		f := recall.Fact{
			ID:       recall.FactID(idCol.Data()[i]),
			BankID:   recall.BankID(bankCol.Data()[i]),
			FactType: recall.FactType(typeCol.Data()[i]),
		}
		if startCol != nil && startCol.Data()[i] != 0 {
			t := time.Unix(startCol.Data()[i], 0).UTC()
			f.OccurredStart = &t
		}
		if endCol != nil && endCol.Data()[i] != 0 {
			t := time.Unix(endCol.Data()[i], 0).UTC()
			f.OccurredEnd = &t
		}
		if mentionedCol != nil {
			f.MentionedAt = time.Unix(mentionedCol.Data()[i], 0).UTC()
		}
		byID[f.ID] = f
	}

	out := make([]recall.Fact, 0, len(ids))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

func buildScalarFilter(bank recall.BankID, factTypes []recall.FactType, start, end *time.Time) string {
	conds := []string{fmt.Sprintf("%s == %q", fieldBankID, string(bank))}
	if len(factTypes) > 0 {
		quoted := make([]string, len(factTypes))
		for i, t := range factTypes {
			quoted[i] = fmt.Sprintf("%q", string(t))
		}
		conds = append(conds, fmt.Sprintf("%s in [%s]", fieldFactType, strings.Join(quoted, ",")))
	}
	if start != nil {
		conds = append(conds, fmt.Sprintf("%s >= %d", fieldOccurredStart, start.Unix()))
	}
	if end != nil {
		conds = append(conds, fmt.Sprintf("%s <= %d", fieldOccurredEnd, end.Unix()))
	}
	return strings.Join(conds, " and ")
}

func metricTypeFor(metric string) entity.MetricType {
	switch metric {
	case "IP":
		return entity.IP
	case "COSINE":
		return entity.COSINE
	default:
		return entity.L2
	}
}

// similarityFromDistance converts a Milvus score into a larger-is-closer
// similarity. For COSINE/IP metrics Milvus already returns a similarity-like
// score, which is passed through unchanged; for L2, where a smaller distance
// is a closer match, it returns 1/(1+distance).
func similarityFromDistance(score float32, metric string) float32 {
	switch metric {
	case "IP", "COSINE":
		return score
	default:
		return 1 / (1 + score)
	}
}

func findColumn(cols []entity.Column, name string) entity.Column {
	for _, c := range cols {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

func sortCandidatesDesc(list recall.CandidateList) {
	for i := 1; i < len(list); i++ {
		for j := i; j > 0 && (list[j].Score > list[j-1].Score || (list[j].Score == list[j-1].Score && list[j].FactID < list[j-1].FactID)); j-- {
			list[j], list[j-1] = list[j-1], list[j]
		}
	}
}
