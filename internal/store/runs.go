package store

import (
	"context"
	"fmt"
	"time"
)

// Run is one simulation run from startup to shutdown.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	AgentCount int
	Cycles     uint64
	SimDays    int
}

// CreateRun records the start of a simulation run and returns its id.
func (s *Store) CreateRun(ctx context.Context, agentCount int) (string, error) {
	var id string
	err := s.db.QueryRow(ctx, `
		INSERT INTO runs (id, agent_count, started_at)
		VALUES (gen_random_uuid(), $1, now())
		RETURNING id`,
		agentCount,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}
	return id, nil
}

// FinishRun marks a run complete with its final cycle and simulated-day
// counts.
func (s *Store) FinishRun(ctx context.Context, runID string, cycles uint64, simDays int) error {
	_, err := s.db.Exec(ctx, `
		UPDATE runs
		SET finished_at = now(), cycles = $2, sim_days = $3
		WHERE id = $1`,
		runID, cycles, simDays,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// GetRun returns a run by id.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	var r Run
	err := s.db.QueryRow(ctx, `
		SELECT id, started_at, finished_at, agent_count, cycles, sim_days
		FROM runs WHERE id = $1`, runID,
	).Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.AgentCount, &r.Cycles, &r.SimDays)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &r, nil
}
