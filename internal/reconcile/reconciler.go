// Package reconcile applies provider-extracted facts to durable profile,
// role, organization and posting records. Each table is an independent
// best-effort step: one failure is logged and reported, never propagated, and
// never blocks the other tables.
package reconcile

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"go-voiceagent/internal/ai"
	"go-voiceagent/internal/models"
	"go-voiceagent/internal/normalize"
)

// Store is the slice of the repository the reconciler writes through.
type Store interface {
	UpsertProfile(ctx context.Context, userID string, patch models.ProfilePatch) error
	AuthoritativeRole(ctx context.Context, userID string) (*models.RoleAssignment, error)
	UpsertRoleAssignment(ctx context.Context, ra *models.RoleAssignment) error
	FindOrganizationByName(ctx context.Context, name string) (*models.Organization, error)
	UpdateOrganization(ctx context.Context, id string, industry, location *string) error
	CreateOrganization(ctx context.Context, org *models.Organization) error
	LatestOrganizationByOwner(ctx context.Context, userID string) (*models.Organization, error)
	DraftPosting(ctx context.Context, userID string) (*models.RolePosting, error)
	UpdatePosting(ctx context.Context, id string, patch models.PostingPatch) error
	CreatePosting(ctx context.Context, p *models.RolePosting) error
}

// Report maps table name to whether its write succeeded. Tables with nothing
// to write are absent.
type Report map[string]bool

type Reconciler struct {
	store         Store
	canon         *normalize.Canon
	lockThreshold float64
}

func New(store Store, canon *normalize.Canon, lockThreshold float64) *Reconciler {
	return &Reconciler{store: store, canon: canon, lockThreshold: lockThreshold}
}

type step struct {
	table string
	apply func(ctx context.Context) (bool, error)
}

// Apply reconciles one turn's extracted updates for the given user. Returns
// the per-table success map; it never returns an error.
func (r *Reconciler) Apply(ctx context.Context, userID, interactionID string, updates ai.Updates) Report {
	report := Report{}
	if userID == "" || updates.Empty() {
		return report
	}

	steps := []step{
		{"people_profiles", func(ctx context.Context) (bool, error) {
			return r.applyProfile(ctx, userID, updates.Profile)
		}},
		{"role_assignments", func(ctx context.Context) (bool, error) {
			return r.applyRole(ctx, userID, interactionID, updates.Role)
		}},
		{"organizations", func(ctx context.Context) (bool, error) {
			return r.applyOrganization(ctx, userID, updates.Organization)
		}},
		{"role_postings", func(ctx context.Context) (bool, error) {
			return r.applyPosting(ctx, userID, updates.Posting)
		}},
	}

	for _, s := range steps {
		applied, err := s.apply(ctx)
		if err != nil {
			log.Printf("⚠️ Failed to reconcile %s for user %s: %v", s.table, userID, err)
			report[s.table] = false
			continue
		}
		if applied {
			report[s.table] = true
		}
	}
	return report
}

// applyProfile merges non-null profile fields. Free-text industries are
// normalized against the closed enum; unmatched values are dropped rather
// than stored raw. Locations are kept exactly as spoken: the city matters and
// there is no closed enum to normalize against.
func (r *Reconciler) applyProfile(ctx context.Context, userID string, up *ai.ProfileUpdate) (bool, error) {
	if up == nil {
		return false, nil
	}

	patch := models.ProfilePatch{
		FirstName: nonEmpty(up.FirstName),
		LastName:  nonEmpty(up.LastName),
		Location:  nonEmpty(up.Location),
	}
	if headline := nonEmpty(up.Headline); headline != nil {
		normalized := normalize.RoleTitle(*headline)
		patch.Headline = &normalized
	}
	patch.Industries = r.canon.Industries(up.Industries)

	if patch.FirstName == nil && patch.LastName == nil && patch.Headline == nil &&
		patch.Location == nil && len(patch.Industries) == 0 {
		return false, nil
	}
	return true, r.store.UpsertProfile(ctx, userID, patch)
}

// applyRole upserts a role assertion. An established role above the lock
// threshold is final: an assertion of the opposite polarity is dropped here
// even if a stale agent let one through.
func (r *Reconciler) applyRole(ctx context.Context, userID, interactionID string, up *ai.RoleUpdate) (bool, error) {
	if up == nil || !models.ValidRole(up.Role) {
		return false, nil
	}

	existing, err := r.store.AuthoritativeRole(ctx, userID)
	if err != nil {
		return false, err
	}
	if existing != nil && existing.Confidence >= r.lockThreshold && string(existing.Role) != up.Role {
		log.Printf("⚠️ Ignoring role %q for user %s: role %q already established", up.Role, userID, existing.Role)
		return false, nil
	}

	evidence, _ := json.Marshal(map[string]any{
		"source":         "qualification_call",
		"interaction_id": interactionID,
		"extracted_at":   time.Now().UTC().Format(time.RFC3339),
	})
	ra := &models.RoleAssignment{
		UserID:     userID,
		Role:       models.Role(up.Role),
		Confidence: up.RoleConfidence(),
		Evidence:   evidence,
	}
	return true, r.store.UpsertRoleAssignment(ctx, ra)
}

// applyOrganization matches by case-insensitive name, merging into an
// existing org or creating one owned by the caller.
func (r *Reconciler) applyOrganization(ctx context.Context, userID string, up *ai.OrganizationUpdate) (bool, error) {
	if up == nil {
		return false, nil
	}
	name := nonEmpty(up.Name)
	if name == nil {
		return false, nil
	}

	var industry *string
	if raw := nonEmpty(up.Industry); raw != nil {
		if canonical, ok := r.canon.Industry(*raw); ok {
			industry = &canonical
		}
	}
	location := nonEmpty(up.Location)

	existing, err := r.store.FindOrganizationByName(ctx, *name)
	if err != nil {
		return false, err
	}
	if existing != nil {
		if industry == nil && location == nil {
			return true, nil
		}
		return true, r.store.UpdateOrganization(ctx, existing.ID, industry, location)
	}

	org := &models.Organization{
		Name:            *name,
		Industry:        industry,
		Location:        location,
		CreatedByUserID: &userID,
	}
	return true, r.store.CreateOrganization(ctx, org)
}

// applyPosting keeps at most one draft posting per user, updated in place.
func (r *Reconciler) applyPosting(ctx context.Context, userID string, up *ai.PostingUpdate) (bool, error) {
	if up == nil {
		return false, nil
	}

	patch := models.PostingPatch{Location: nonEmpty(up.Location)}
	if title := nonEmpty(up.Title); title != nil {
		normalized := normalize.RoleTitle(*title)
		patch.Title = &normalized
	}
	if engagement := nonEmpty(up.EngagementType); engagement != nil {
		normalized := normalize.Availability(*engagement)
		patch.EngagementType = &normalized
	}
	if patch.Title == nil && patch.Location == nil && patch.EngagementType == nil {
		return false, nil
	}

	if org, err := r.store.LatestOrganizationByOwner(ctx, userID); err == nil && org != nil {
		patch.OrganizationID = &org.ID
	}

	draft, err := r.store.DraftPosting(ctx, userID)
	if err != nil {
		return false, err
	}
	if draft != nil {
		return true, r.store.UpdatePosting(ctx, draft.ID, patch)
	}

	posting := &models.RolePosting{
		UserID:         userID,
		OrganizationID: patch.OrganizationID,
		Title:          patch.Title,
		Location:       patch.Location,
		EngagementType: patch.EngagementType,
		Status:         "draft",
	}
	return true, r.store.CreatePosting(ctx, posting)
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
