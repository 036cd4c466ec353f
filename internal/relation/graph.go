package relation

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Relation is a directed social tie between two agents. Strength moves with
// the simulation: conversations reinforce it, idle simulated days erode it.
type Relation struct {
	From        string    `json:"from"`
	To          string    `json:"to"`
	Description string    `json:"description"`
	Strength    float64   `json:"strength"` // 0-1
	History     []string  `json:"history"`  // conversation summaries
	UpdatedAt   time.Time `json:"updated_at"`
}

// Graph stores agent relationships in Neo4j.
type Graph struct {
	driver    neo4j.DriverWithContext
	decayRate float64
	logger    *zap.Logger
}

// NewGraph creates a relationship graph backed by Neo4j.
func NewGraph(driver neo4j.DriverWithContext, decayRate float64, logger *zap.Logger) *Graph {
	return &Graph{
		driver:    driver,
		decayRate: decayRate,
		logger:    logger,
	}
}

// Seed writes the relationships declared in a persona file, starting every
// tie at half strength.
func (g *Graph) Seed(ctx context.Context, from string, relationships map[string]string) error {
	for to, description := range relationships {
		if err := g.Set(ctx, &Relation{
			From:        from,
			To:          to,
			Description: description,
			Strength:    0.5,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Set creates or updates a tie between two agents.
func (g *Graph) Set(ctx context.Context, rel *Relation) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx,
		`MERGE (a:Agent {name: $from})
		 MERGE (b:Agent {name: $to})
		 MERGE (a)-[r:KNOWS]->(b)
		 SET r.description = $description, r.strength = $strength, r.updated_at = datetime()`,
		map[string]interface{}{
			"from":        rel.From,
			"to":          rel.To,
			"description": rel.Description,
			"strength":    rel.Strength,
		})
	if err != nil {
		return fmt.Errorf("set relation: %w", err)
	}
	return nil
}

// Get returns the tie from one agent to another, or nil when none exists.
func (g *Graph) Get(ctx context.Context, from, to string) (*Relation, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (a:Agent {name: $from})-[r:KNOWS]->(b:Agent {name: $to})
		 RETURN r.description, r.strength, r.history`,
		map[string]interface{}{"from": from, "to": to})
	if err != nil {
		return nil, fmt.Errorf("get relation: %w", err)
	}
	if !result.Next(ctx) {
		return nil, nil
	}
	rec := result.Record()
	description, _ := rec.Get("r.description")
	strength, _ := rec.Get("r.strength")
	history, _ := rec.Get("r.history")

	rel := &Relation{From: from, To: to}
	if s, ok := description.(string); ok {
		rel.Description = s
	}
	if f, ok := strength.(float64); ok {
		rel.Strength = f
	}
	if h, ok := history.([]interface{}); ok {
		for _, v := range h {
			if s, ok := v.(string); ok {
				rel.History = append(rel.History, s)
			}
		}
	}
	return rel, nil
}

// Neighbors returns all outgoing ties for an agent.
func (g *Graph) Neighbors(ctx context.Context, from string) ([]*Relation, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (a:Agent {name: $from})-[r:KNOWS]->(b:Agent)
		 RETURN b.name, r.description, r.strength`,
		map[string]interface{}{"from": from})
	if err != nil {
		return nil, fmt.Errorf("get relations: %w", err)
	}

	var relations []*Relation
	for result.Next(ctx) {
		rec := result.Record()
		to, _ := rec.Get("b.name")
		description, _ := rec.Get("r.description")
		strength, _ := rec.Get("r.strength")

		rel := &Relation{From: from}
		if s, ok := to.(string); ok {
			rel.To = s
		}
		if s, ok := description.(string); ok {
			rel.Description = s
		}
		if f, ok := strength.(float64); ok {
			rel.Strength = f
		}
		relations = append(relations, rel)
	}
	return relations, nil
}

// RecordConversation strengthens the ties in both directions and appends
// the summary to each tie's history. Called when a chat completes.
func (g *Graph) RecordConversation(ctx context.Context, a, b, summary string, boost float64) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx,
		`MATCH (x:Agent)-[r:KNOWS]-(y:Agent)
		 WHERE x.name = $a AND y.name = $b
		 SET r.strength = CASE WHEN r.strength + $boost > 1.0 THEN 1.0 ELSE r.strength + $boost END,
		     r.history = coalesce(r.history, []) + $summary,
		     r.updated_at = datetime()`,
		map[string]interface{}{
			"a":       a,
			"b":       b,
			"boost":   boost,
			"summary": summary,
		})
	if err != nil {
		return fmt.Errorf("record conversation: %w", err)
	}
	return nil
}

// Decay erodes every tie by the configured rate. Driven once per simulated
// day change.
func (g *Graph) Decay(ctx context.Context) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx,
		`MATCH ()-[r:KNOWS]->()
		 WHERE r.strength > 0
		 SET r.strength = CASE WHEN r.strength - $decay < 0 THEN 0 ELSE r.strength - $decay END`,
		map[string]interface{}{"decay": g.decayRate})
	if err != nil {
		g.logger.Warn("relation decay failed", zap.Error(err))
	}
}

// Close shuts down the driver.
func (g *Graph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}
