package store

import (
	"context"
	"fmt"

	"go-voiceagent/internal/models"
)

// NextSequence returns max existing sequence + 1 for the interaction, or 1
// when no turns exist yet.
func (r *Repository) NextSequence(ctx context.Context, interactionID string) (int, error) {
	var next int
	err := r.db.QueryRow(ctx,
		"SELECT COALESCE(MAX(turn_sequence), 0) + 1 FROM interaction_turns WHERE interaction_id = $1",
		interactionID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to get next turn sequence: %w", err)
	}
	return next, nil
}

// AppendTurn inserts a turn into the ledger and returns its id. The ledger is
// append-only and idempotent: a retried delivery hitting the same
// (interaction, sequence, speaker) slot gets the existing row's id back
// instead of an error or a duplicate.
func (r *Repository) AppendTurn(ctx context.Context, t *models.Turn) (string, error) {
	query := `
		INSERT INTO interaction_turns (interaction_id, thread_id, speaker, text, turn_sequence, artifacts_json, raw_payload)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, '{}'::jsonb), COALESCE($7, '{}'::jsonb))
		RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		t.InteractionID, t.ThreadID, t.Speaker, t.Text, t.Sequence,
		jsonbArg(t.Artifacts), jsonbArg(t.RawPayload)).
		Scan(&t.ID, &t.CreatedAt)

	if isUniqueViolation(err) {
		var existingID string
		lookupErr := r.db.QueryRow(ctx,
			"SELECT id FROM interaction_turns WHERE interaction_id = $1 AND turn_sequence = $2 AND speaker = $3",
			t.InteractionID, t.Sequence, t.Speaker).Scan(&existingID)
		if lookupErr != nil {
			return "", fmt.Errorf("failed to read back turn after conflict: %w", lookupErr)
		}
		t.ID = existingID
		return existingID, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to save turn: %w", err)
	}
	return t.ID, nil
}

// RecentTurns returns up to limit turns for the interaction, oldest first, as
// bounded context for prompt assembly.
func (r *Repository) RecentTurns(ctx context.Context, interactionID string, limit int) ([]models.Turn, error) {
	query := `
		SELECT id, interaction_id, thread_id, speaker, text, turn_sequence, artifacts_json, created_at
		FROM interaction_turns
		WHERE interaction_id = $1
		ORDER BY turn_sequence ASC
		LIMIT $2`
	rows, err := r.db.Query(ctx, query, interactionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation turns: %w", err)
	}
	defer rows.Close()

	var turns []models.Turn
	for rows.Next() {
		var t models.Turn
		if err := rows.Scan(&t.ID, &t.InteractionID, &t.ThreadID, &t.Speaker, &t.Text, &t.Sequence, &t.Artifacts, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turns: %w", err)
	}
	return turns, nil
}
