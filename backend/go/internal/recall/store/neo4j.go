package store

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	neo4jdb "recallengine/backend/go/internal/database/neo4j"
	"recallengine/backend/go/internal/recall"
)

// Neo4jGraphStore implements links_from and entity_observations against
// Neo4j via parameterized Cypher run through managed read transactions,
// matching the (:Fact)-[TEMPORAL|SEMANTIC|ENTITY|CAUSAL]->(:Fact) and
// (:Fact)-[MENTIONS]->(:Entity) schema mapping in §3.
type Neo4jGraphStore struct {
	c *neo4jdb.Neo4jClient
}

// NewNeo4jGraphStore wraps an already-connected Neo4jClient.
func NewNeo4jGraphStore(c *neo4jdb.Neo4jClient) *Neo4jGraphStore {
	return &Neo4jGraphStore{c: c}
}

func (s *Neo4jGraphStore) LinksFrom(ctx context.Context, factID recall.FactID, linkTypes []recall.LinkType) ([]recall.Link, error) {
	rels := make([]string, len(linkTypes))
	for i, t := range linkTypes {
		rels[i] = cypherRelName(t)
	}

	result, err := s.c.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		query := `MATCH (src:Fact {id: $id})-[r]->(dst:Fact)
WHERE type(r) IN $types
RETURN dst.id AS target_id, type(r) AS link_type, r.weight AS weight`
		res, err := tx.Run(ctx, query, map[string]interface{}{
			"id":    string(factID),
			"types": rels,
		})
		if err != nil {
			return nil, err
		}
		var links []recall.Link
		for res.Next(ctx) {
			rec := res.Record()
			targetID, _ := rec.Get("target_id")
			linkType, _ := rec.Get("link_type")
			weight, _ := rec.Get("weight")
			links = append(links, recall.Link{
				SourceID: factID,
				TargetID: recall.FactID(targetID.(string)),
				LinkType: cypherRelToLinkType(linkType.(string)),
				Weight:   weight.(float64),
			})
		}
		return links, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("links_from: %w", err)
	}
	return result.([]recall.Link), nil
}

func (s *Neo4jGraphStore) EntityObservations(ctx context.Context, entityIDs []recall.EntityID, tokenCap int) ([]recall.EntityObservation, error) {
	ids := make([]string, len(entityIDs))
	for i, id := range entityIDs {
		ids[i] = string(id)
	}

	result, err := s.c.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		query := `MATCH (e:Entity) WHERE e.id IN $ids
RETURN e.id AS id, e.canonical_name AS canonical_name, e.mention_count AS mention_count`
		res, err := tx.Run(ctx, query, map[string]interface{}{"ids": ids})
		if err != nil {
			return nil, err
		}
		var obs []recall.EntityObservation
		used := 0
		for res.Next(ctx) {
			rec := res.Record()
			id, _ := rec.Get("id")
			name, _ := rec.Get("canonical_name")
			mentions, _ := rec.Get("mention_count")
			mc := toInt(mentions)
			summary := fmt.Sprintf("%s mentioned %d times", name.(string), mc)
			cost := len(summary) / 4
			if tokenCap > 0 && used+cost > tokenCap {
				break
			}
			used += cost
			obs = append(obs, recall.EntityObservation{
				EntityID:      recall.EntityID(id.(string)),
				CanonicalName: name.(string),
				Summary:       summary,
				MentionCount:  mc,
			})
		}
		return obs, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("entity_observations: %w", err)
	}
	return result.([]recall.EntityObservation), nil
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func cypherRelName(t recall.LinkType) string {
	switch t {
	case recall.LinkTemporal:
		return "TEMPORAL"
	case recall.LinkSemantic:
		return "SEMANTIC"
	case recall.LinkEntity:
		return "ENTITY"
	case recall.LinkCausal:
		return "CAUSAL"
	}
	return ""
}

func cypherRelToLinkType(rel string) recall.LinkType {
	switch rel {
	case "TEMPORAL":
		return recall.LinkTemporal
	case "SEMANTIC":
		return recall.LinkSemantic
	case "ENTITY":
		return recall.LinkEntity
	case "CAUSAL":
		return recall.LinkCausal
	}
	return ""
}
