package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"go-voiceagent/internal/models"
)

const interactionColumns = "id, thread_id, user_id, channel, direction, provider, provider_ref, started_at, ended_at"

func scanInteraction(row pgx.Row) (*models.Interaction, error) {
	var in models.Interaction
	err := row.Scan(&in.ID, &in.ThreadID, &in.UserID, &in.Channel, &in.Direction,
		&in.Provider, &in.ProviderRef, &in.StartedAt, &in.EndedAt)
	if err != nil {
		return nil, err
	}
	return &in, nil
}

// InteractionByProviderRef looks up the interaction for a gateway call
// reference. Returns (nil, nil) when none exists.
func (r *Repository) InteractionByProviderRef(ctx context.Context, provider, ref string) (*models.Interaction, error) {
	row := r.db.QueryRow(ctx,
		"SELECT "+interactionColumns+" FROM interactions WHERE provider = $1 AND provider_ref = $2",
		provider, ref)
	in, err := scanInteraction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get interaction by provider ref: %w", err)
	}
	return in, nil
}

// InteractionByID returns (nil, nil) when the id is unknown.
func (r *Repository) InteractionByID(ctx context.Context, id string) (*models.Interaction, error) {
	row := r.db.QueryRow(ctx, "SELECT "+interactionColumns+" FROM interactions WHERE id = $1", id)
	in, err := scanInteraction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get interaction: %w", err)
	}
	return in, nil
}

// CreateInteraction inserts a new interaction and fills in its id. A
// concurrent create for the same provider ref resolves to the existing row
// instead of failing: interactions are created at most once per call.
func (r *Repository) CreateInteraction(ctx context.Context, in *models.Interaction) error {
	query := `
		INSERT INTO interactions (thread_id, user_id, channel, direction, provider, provider_ref)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, started_at`
	err := r.db.QueryRow(ctx, query, in.ThreadID, in.UserID, in.Channel, in.Direction, in.Provider, in.ProviderRef).
		Scan(&in.ID, &in.StartedAt)
	if isUniqueViolation(err) {
		existing, lookupErr := r.InteractionByProviderRef(ctx, in.Provider, in.ProviderRef)
		if lookupErr != nil || existing == nil {
			return fmt.Errorf("failed to read back interaction after conflict: %w", err)
		}
		*in = *existing
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create interaction: %w", err)
	}
	return nil
}

// BindInteractionRef replaces an interaction's placeholder reference with the
// real call SID once the gateway connects the call.
func (r *Repository) BindInteractionRef(ctx context.Context, id, ref string) error {
	_, err := r.db.Exec(ctx,
		"UPDATE interactions SET provider_ref = $1 WHERE id = $2",
		ref, id)
	if err != nil {
		return fmt.Errorf("failed to bind interaction provider ref: %w", err)
	}
	return nil
}

// CloseInteraction stamps ended_at and records the final gateway payload.
func (r *Repository) CloseInteraction(ctx context.Context, id string, raw []byte) error {
	_, err := r.db.Exec(ctx,
		"UPDATE interactions SET ended_at = now(), raw_payload = COALESCE($1, raw_payload) WHERE id = $2 AND ended_at IS NULL",
		jsonbArg(raw), id)
	if err != nil {
		return fmt.Errorf("failed to close interaction: %w", err)
	}
	return nil
}

func (r *Repository) CreateThread(ctx context.Context, t *models.Thread) error {
	query := `
		INSERT INTO threads (primary_user_id, subject, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	if t.Status == "" {
		t.Status = "open"
	}
	err := r.db.QueryRow(ctx, query, t.PrimaryUserID, t.Subject, t.Status).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create thread: %w", err)
	}
	return nil
}
