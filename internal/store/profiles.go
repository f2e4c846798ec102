package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"go-voiceagent/internal/models"
)

// ProfileByUserID returns (nil, nil) when no profile exists yet.
func (r *Repository) ProfileByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := r.db.QueryRow(ctx, `
		SELECT user_id, first_name, last_name, headline, location, industries, availability_type, updated_at
		FROM people_profiles WHERE user_id = $1`, userID).
		Scan(&p.UserID, &p.FirstName, &p.LastName, &p.Headline, &p.Location, &p.Industries, &p.AvailabilityType, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// UpsertProfile merges a partial update into the profile row. Nil patch
// fields never overwrite stored values.
func (r *Repository) UpsertProfile(ctx context.Context, userID string, patch models.ProfilePatch) error {
	query := `
		INSERT INTO people_profiles (user_id, first_name, last_name, headline, location, industries, availability_type, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (user_id) DO UPDATE SET
			first_name        = COALESCE(EXCLUDED.first_name, people_profiles.first_name),
			last_name         = COALESCE(EXCLUDED.last_name, people_profiles.last_name),
			headline          = COALESCE(EXCLUDED.headline, people_profiles.headline),
			location          = COALESCE(EXCLUDED.location, people_profiles.location),
			industries        = COALESCE(EXCLUDED.industries, people_profiles.industries),
			availability_type = COALESCE(EXCLUDED.availability_type, people_profiles.availability_type),
			updated_at        = now()`
	var industries any
	if len(patch.Industries) > 0 {
		industries = patch.Industries
	}
	_, err := r.db.Exec(ctx, query, userID,
		patch.FirstName, patch.LastName, patch.Headline, patch.Location, industries, patch.AvailabilityType)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// AuthoritativeRole returns the caller's highest-confidence role assignment,
// or (nil, nil) when none is recorded.
func (r *Repository) AuthoritativeRole(ctx context.Context, userID string) (*models.RoleAssignment, error) {
	var ra models.RoleAssignment
	err := r.db.QueryRow(ctx, `
		SELECT user_id, role, confidence, evidence, updated_at
		FROM role_assignments
		WHERE user_id = $1
		ORDER BY confidence DESC
		LIMIT 1`, userID).
		Scan(&ra.UserID, &ra.Role, &ra.Confidence, &ra.Evidence, &ra.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role assignment: %w", err)
	}
	return &ra, nil
}

// UpsertRoleAssignment records a role assertion keyed by (user, role).
func (r *Repository) UpsertRoleAssignment(ctx context.Context, ra *models.RoleAssignment) error {
	query := `
		INSERT INTO role_assignments (user_id, role, confidence, evidence, updated_at)
		VALUES ($1, $2, $3, COALESCE($4, '{}'::jsonb), now())
		ON CONFLICT (user_id, role) DO UPDATE SET
			confidence = EXCLUDED.confidence,
			evidence   = EXCLUDED.evidence,
			updated_at = now()`
	_, err := r.db.Exec(ctx, query, ra.UserID, ra.Role, ra.Confidence, jsonbArg(ra.Evidence))
	if err != nil {
		return fmt.Errorf("failed to upsert role assignment: %w", err)
	}
	return nil
}

// ModePreference returns the user's last-known mode preference ("talent" or
// "hirer"), or "" when none is stored.
func (r *Repository) ModePreference(ctx context.Context, userID string) (string, error) {
	var lastMode, defaultMode *string
	err := r.db.QueryRow(ctx,
		"SELECT last_mode, default_mode FROM user_preferences WHERE user_id = $1", userID).
		Scan(&lastMode, &defaultMode)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get user preferences: %w", err)
	}
	for _, mode := range []*string{lastMode, defaultMode} {
		if mode != nil && models.ValidRole(*mode) {
			return *mode, nil
		}
	}
	return "", nil
}

// FindOrganizationByName matches case-insensitively; (nil, nil) when absent.
func (r *Repository) FindOrganizationByName(ctx context.Context, name string) (*models.Organization, error) {
	var org models.Organization
	err := r.db.QueryRow(ctx, `
		SELECT id, name, industry, location, created_by_user_id, created_at
		FROM organizations WHERE name ILIKE $1
		LIMIT 1`, name).
		Scan(&org.ID, &org.Name, &org.Industry, &org.Location, &org.CreatedByUserID, &org.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	return &org, nil
}

// UpdateOrganization merges industry/location into an existing org; nil
// arguments leave the stored values alone.
func (r *Repository) UpdateOrganization(ctx context.Context, id string, industry, location *string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE organizations
		SET industry = COALESCE($1, industry), location = COALESCE($2, location)
		WHERE id = $3`, industry, location, id)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	return nil
}

func (r *Repository) CreateOrganization(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (name, industry, location, created_by_user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query, org.Name, org.Industry, org.Location, org.CreatedByUserID).
		Scan(&org.ID, &org.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

// LatestOrganizationByOwner returns the caller's most recently created org,
// used to attach a role-posting draft; (nil, nil) when they own none.
func (r *Repository) LatestOrganizationByOwner(ctx context.Context, userID string) (*models.Organization, error) {
	var org models.Organization
	err := r.db.QueryRow(ctx, `
		SELECT id, name, industry, location, created_by_user_id, created_at
		FROM organizations
		WHERE created_by_user_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, userID).
		Scan(&org.ID, &org.Name, &org.Industry, &org.Location, &org.CreatedByUserID, &org.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization by owner: %w", err)
	}
	return &org, nil
}

// DraftPosting returns the user's single draft posting, or (nil, nil).
func (r *Repository) DraftPosting(ctx context.Context, userID string) (*models.RolePosting, error) {
	var p models.RolePosting
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, organization_id, title, location, engagement_type, status, created_at, updated_at
		FROM role_postings
		WHERE user_id = $1 AND status = 'draft'
		ORDER BY created_at DESC
		LIMIT 1`, userID).
		Scan(&p.ID, &p.UserID, &p.OrganizationID, &p.Title, &p.Location, &p.EngagementType, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft posting: %w", err)
	}
	return &p, nil
}

// UpdatePosting merges a partial update into a draft posting.
func (r *Repository) UpdatePosting(ctx context.Context, id string, patch models.PostingPatch) error {
	_, err := r.db.Exec(ctx, `
		UPDATE role_postings
		SET organization_id = COALESCE($1, organization_id),
		    title           = COALESCE($2, title),
		    location        = COALESCE($3, location),
		    engagement_type = COALESCE($4, engagement_type),
		    updated_at      = now()
		WHERE id = $5`,
		patch.OrganizationID, patch.Title, patch.Location, patch.EngagementType, id)
	if err != nil {
		return fmt.Errorf("failed to update posting: %w", err)
	}
	return nil
}

func (r *Repository) CreatePosting(ctx context.Context, p *models.RolePosting) error {
	if p.Status == "" {
		p.Status = "draft"
	}
	query := `
		INSERT INTO role_postings (user_id, organization_id, title, location, engagement_type, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query, p.UserID, p.OrganizationID, p.Title, p.Location, p.EngagementType, p.Status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create posting: %w", err)
	}
	return nil
}
