// Package config loads the YAML-driven configuration tree for the recall
// engine: store endpoints, embedding/cross-encoder provider selection,
// retrieval defaults, and resilience thresholds.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FieldConfig describes one scalar or vector field of a Milvus collection.
type FieldConfig struct {
	Name         string `yaml:"name"`
	DataType     string `yaml:"dataType"` // "Int64", "VarChar", "FloatVector", ...
	IsPrimaryKey bool   `yaml:"isPrimaryKey"`
	IsAutoID     bool   `yaml:"isAutoID"`
	Dim          int    `yaml:"dim,omitempty"`
	MaxLength    int    `yaml:"maxLength,omitempty"`
}

// IndexConfig describes the vector index built over a Milvus collection.
type IndexConfig struct {
	FieldName  string                 `yaml:"fieldName"`
	IndexType  string                 `yaml:"indexType"`  // "IVF_FLAT", "HNSW", "AUTOINDEX", ...
	MetricType string                 `yaml:"metricType"` // "L2", "COSINE", "IP"
	Params     map[string]interface{} `yaml:"params"`
}

// SchemaConfig describes the Milvus collection backing the facts store.
type SchemaConfig struct {
	CollectionName string        `yaml:"collectionName"`
	Description    string        `yaml:"description"`
	VectorField    string        `yaml:"vectorField"`
	Fields         []FieldConfig `yaml:"fields"`
	Index          IndexConfig   `yaml:"index"`
}

// MilvusConfig configures the vector/scalar store adapter.
type MilvusConfig struct {
	Address string       `yaml:"address"`
	Schema  SchemaConfig `yaml:"schema"`
}

// Neo4jConfig configures the graph store adapter.
type Neo4jConfig struct {
	Uri      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// DatabaseConfigs groups the two backing stores the recall engine reads.
type DatabaseConfigs struct {
	Milvus MilvusConfig `yaml:"milvus"`
	Neo4j  Neo4jConfig  `yaml:"neo4j"`
}

// AppInfo identifies the running process for logs and traces.
type AppInfo struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// LoggerConfig configures the structured logger.
type LoggerConfig struct {
	Level string `yaml:"level"` // "info", "debug", "warn", "error"
}

// ProviderConfig names a provider and the model/credentials it needs. Shared
// shape for embedding and cross-encoder provider selection.
type ProviderConfig struct {
	Provider string `yaml:"provider"` // "gemini", "openai", "huggingface", "ollama"
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
	BaseURL  string `yaml:"baseURL,omitempty"`
}

// RecallConfig holds the tunable defaults for the retrieval pipeline: budgets,
// thresholds, token caps, and the fusion constant, matching the values named
// throughout the component design. cmd/recall_service reads only
// EmbeddingCacheCap and CrossEncoderConcurrency from it; the orchestrator's
// other defaults come from recall.DefaultEngineConfig.
type RecallConfig struct {
	DefaultBudget     string  `yaml:"defaultBudget"` // "low", "mid", "high"
	TopK              int     `yaml:"topK"`
	MaxTokens         int     `yaml:"maxTokens"`
	DefaultDeadlineMs int     `yaml:"defaultDeadlineMs"`
	StoreDeadlineMs   int     `yaml:"storeDeadlineMs"`
	KSemantic         int     `yaml:"kSemantic"`
	TauSemantic       float64 `yaml:"tauSemantic"`
	KBM25             int     `yaml:"kBM25"`
	EntryPoints       int     `yaml:"entryPoints"`
	TauEntry          float64 `yaml:"tauEntry"`
	TauGraph          float64 `yaml:"tauGraph"`
	KRRF              int     `yaml:"kRRF"`
	KFuse             int     `yaml:"kFuse"`
	RecencyHalfLife   float64 `yaml:"recencyHalfLifeDays"`
	EmbeddingCacheCap int     `yaml:"embeddingCacheCapacity"`
	// TemporalFallbackToMentionedAt controls whether bank/opinion facts with
	// no occurred_start are matched against mentioned_at by the temporal
	// strategy (open question 1 in the design notes).
	TemporalFallbackToMentionedAt bool `yaml:"temporalFallbackToMentionedAt"`
	CrossEncoderConcurrency       int  `yaml:"crossEncoderConcurrency"`
}

// MiddlewareConfig groups the resilience wrappers placed around the store
// adapters and the cross-encoder inference queue.
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig selects and configures one of the ratelimiter package's
// algorithms for the cross-encoder inference queue. TokenBucket and
// LeakyBucket read Rate/Capacity; the three window-based algorithms read
// Capacity as their request limit and Window as the window duration.
type RateLimiterConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Algorithm   string            `yaml:"algorithm"` // "tokenBucket", "leakyBucket", "fixedWindow", "slidingLog", "slidingCounter"
	TokenBucket TokenBucketConfig `yaml:"tokenBucket"`
	Window      string            `yaml:"window"`     // e.g. "1s", read by fixedWindow/slidingLog/slidingCounter
	NumBuckets  int               `yaml:"numBuckets"` // read by slidingCounter
}

// TokenBucketConfig configures ratelimiter.TokenBucket and ratelimiter.LeakyBucket.
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"`
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig configures circuitbreaker.New for a store adapter or
// the cross-encoder queue.
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // e.g. "30s"
}

// AppConfig is the root of the YAML configuration tree.
type AppConfig struct {
	App          AppInfo          `yaml:"app"`
	Logger       LoggerConfig     `yaml:"logger"`
	Embedding    ProviderConfig   `yaml:"embedding"`
	CrossEncoder ProviderConfig   `yaml:"crossEncoder"`
	Databases    DatabaseConfigs  `yaml:"databases"`
	Recall       RecallConfig     `yaml:"recall"`
	Middleware   MiddlewareConfig `yaml:"middleware"`
}

// LoadConfig reads and parses the YAML configuration file at path.
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	return &cfg, nil
}
