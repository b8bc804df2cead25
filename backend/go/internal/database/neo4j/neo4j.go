// Package neo4j wraps the low-level Neo4j driver as a process-wide
// singleton: connection and managed-transaction helpers. The recall-facing
// read operations (links_from, entity_observations) are built on top of
// ExecuteRead in internal/recall/store.
package neo4j

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"recallengine/backend/go/internal/config"
)

var (
	instance *Neo4jClient
	once     sync.Once
	initErr  error
)

// Neo4jClient holds the driver instance and the configuration it was
// created from.
type Neo4jClient struct {
	Driver neo4j.DriverWithContext
	Config *config.Neo4jConfig
}

// GetClient creates (once) and returns the singleton Neo4j driver.
func GetClient(ctx context.Context, cfg *config.Neo4jConfig) (*Neo4jClient, error) {
	once.Do(func() {
		auth := neo4j.BasicAuth(cfg.Username, cfg.Password, "")

		driver, err := neo4j.NewDriverWithContext(cfg.Uri, auth)
		if err != nil {
			initErr = fmt.Errorf("create neo4j driver: %w", err)
			return
		}

		if err := driver.VerifyConnectivity(ctx); err != nil {
			driver.Close(ctx)
			initErr = fmt.Errorf("connect to neo4j: %w", err)
			return
		}

		log.Println("connected to Neo4j")
		instance = &Neo4jClient{Driver: driver, Config: cfg}
	})
	return instance, initErr
}

// Close safely shuts down the Neo4j connection.
func (c *Neo4jClient) Close(ctx context.Context) {
	if c.Driver != nil {
		if err := c.Driver.Close(ctx); err != nil {
			log.Printf("failed to close neo4j driver: %v", err)
		}
	}
}

// HealthCheck verifies connectivity.
func (c *Neo4jClient) HealthCheck(ctx context.Context) error {
	return c.Driver.VerifyConnectivity(ctx)
}

// ExecuteRead runs work in an auto-managed read transaction. Every graph
// query the recall engine issues (LinksFrom, EntityObservations) is
// read-only, so this is the only transaction helper kept from the
// ingestion-side client.
func (c *Neo4jClient) ExecuteRead(ctx context.Context, work func(tx neo4j.ManagedTransaction) (interface{}, error)) (interface{}, error) {
	session := c.Driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.Config.Database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, work)
	if err != nil {
		return nil, fmt.Errorf("neo4j read transaction: %w", err)
	}
	return result, nil
}
