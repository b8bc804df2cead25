// Package recall implements the memory retrieval engine: given a bank and a
// natural-language query it runs four parallel retrieval strategies over a
// vector/inverted/graph index, fuses their rankings, reranks under a token
// budget, and returns a reproducible trace of the decision.
package recall

import "time"

// BankID identifies the isolation boundary every read is scoped by.
type BankID string

// FactID is the opaque, stable identifier of a fact.
type FactID string

// EntityID is the opaque, stable identifier of an entity.
type EntityID string

// FactType tags the five immutable fact shapes as a sum type, not a
// hierarchy: only Opinion carries a type-specific field (Confidence).
type FactType string

const (
	FactTypeWorld       FactType = "world"
	FactTypeBank        FactType = "bank"
	FactTypeOpinion     FactType = "opinion"
	FactTypeObservation FactType = "observation"
	FactTypeExperience  FactType = "experience"
)

// AllFactTypes is the default fact_types_requested when the caller omits it.
var AllFactTypes = []FactType{
	FactTypeWorld, FactTypeBank, FactTypeOpinion, FactTypeObservation, FactTypeExperience,
}

// LinkType tags the four kinds of directed edge between facts.
type LinkType string

const (
	LinkTemporal LinkType = "temporal"
	LinkSemantic LinkType = "semantic"
	LinkEntity   LinkType = "entity"
	LinkCausal   LinkType = "causal"
)

// Fact is an immutable memory unit belonging to exactly one bank.
type Fact struct {
	ID            FactID
	BankID        BankID
	FactType      FactType
	Text          string
	Context       string
	Embedding     []float32
	OccurredStart *time.Time
	OccurredEnd   *time.Time
	MentionedAt   time.Time
	DocumentID    string
	ChunkID       string
	EntityRefs    []EntityID
	Tags          map[string]string
	Metadata      map[string]string
	// Confidence is only meaningful when FactType == FactTypeOpinion.
	Confidence *float64
}

// Entity is a canonical referent shared across facts within a bank.
type Entity struct {
	ID            EntityID
	BankID        BankID
	CanonicalName string
	MentionCount  int
	FirstSeen     time.Time
	LastSeen      time.Time
}

// Link is a directed, typed edge between two facts in the same bank.
type Link struct {
	SourceID FactID
	TargetID FactID
	LinkType LinkType
	Weight   float64
}

// EntityObservation is the optional sidecar payload fetched alongside an
// entity for reranking context. MentionCount backs the frequency signal
// (§9 open question 2): rolled up to the facts that reference the entity,
// taking the max over an individual fact's referenced entities.
type EntityObservation struct {
	EntityID      EntityID
	CanonicalName string
	Summary       string
	MentionCount  int
}

// Budget bounds how many facts the graph strategies may visit.
type Budget int

const (
	BudgetLow  Budget = 100
	BudgetMid  Budget = 300
	BudgetHigh Budget = 600
)

// Candidate is one scored, ranked item produced by a retrieval strategy.
type Candidate struct {
	FactID FactID
	Score  float64
	Rank   int
}

// CandidateList is the common shape every retrieval strategy returns: rank
// dense starting at 1, score monotonically non-increasing.
type CandidateList []Candidate

// RecallOptions configures a single Recall call. Zero values are replaced in
// Recall by the orchestrator's EngineConfig defaults (see withDefaults).
type RecallOptions struct {
	FactTypes []FactType
	Budget    Budget
	TopK      int
	MaxTokens int
	Trace     bool
	Now       time.Time
	Deadline  time.Duration
	Seed      uint64
}

// RecallResult is one item returned to the caller, carrying no embedding.
type RecallResult struct {
	FactID        FactID
	Text          string
	FactType      FactType
	Context       string
	OccurredStart *time.Time
	OccurredEnd   *time.Time
	MentionedAt   time.Time
	EntityRefs    []EntityID
	FinalScore    float64
}

// RecallResponse is the return value of a successful Recall call.
type RecallResponse struct {
	Results []RecallResult
	Trace   *Trace
}
