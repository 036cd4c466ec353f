package store

import (
	"context"
	"fmt"
	"time"
)

// TranscriptLine is one entry in a run's transcript: a thought, an action,
// a chat line or a narration, stamped with simulated time.
type TranscriptLine struct {
	RunID   string
	SimTime time.Time
	Agent   string
	Kind    string
	Text    string
}

// AppendTranscript stores one transcript line for a run.
func (s *Store) AppendTranscript(ctx context.Context, line TranscriptLine) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO transcript (id, run_id, sim_time, agent, kind, text)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)`,
		line.RunID, line.SimTime, line.Agent, line.Kind, line.Text,
	)
	if err != nil {
		return fmt.Errorf("append transcript: %w", err)
	}
	return nil
}

// RecentTranscript returns the newest lines for a run in chronological
// order.
func (s *Store) RecentTranscript(ctx context.Context, runID string, limit int) ([]TranscriptLine, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(ctx, `
		SELECT run_id, sim_time, agent, kind, text
		FROM (
			SELECT run_id, sim_time, agent, kind, text, created_at
			FROM transcript
			WHERE run_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) latest
		ORDER BY created_at ASC`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transcript: %w", err)
	}
	defer rows.Close()

	var lines []TranscriptLine
	for rows.Next() {
		var l TranscriptLine
		if err := rows.Scan(&l.RunID, &l.SimTime, &l.Agent, &l.Kind, &l.Text); err != nil {
			return nil, fmt.Errorf("scan transcript line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, nil
}
