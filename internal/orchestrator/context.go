package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"go-voiceagent/internal/models"
)

// ErrNoInteraction means no interaction can be derived for the webhook
// (unknown call, missing job, missing thread). It is terminal for the call:
// the orchestrator ends gracefully instead of retrying.
var ErrNoInteraction = errors.New("no interaction resolvable for call")

// CallContext is everything the turn path needs, reconstructed from durable
// state on every request. Nothing here is authoritative between requests.
type CallContext struct {
	Interaction    *models.Interaction
	ThreadID       *string
	UserID         string
	DeclaredIntent string
	Profile        *models.Profile
	Role           *models.RoleAssignment
}

// resolveContext finds or creates the interaction for a call and loads the
// caller's known facts.
func (o *Orchestrator) resolveContext(ctx context.Context, callSID, jobID string) (*CallContext, error) {
	interaction, err := o.store.InteractionByProviderRef(ctx, provider, callSID)
	if err != nil {
		return nil, err
	}

	var job *models.Job
	if jobID != "" {
		if job, err = o.store.JobByID(ctx, jobID); err != nil {
			return nil, err
		}
	}

	if interaction == nil {
		interaction, err = o.adoptOrCreateInteraction(ctx, callSID, job)
		if err != nil {
			return nil, err
		}
	}

	cc := &CallContext{Interaction: interaction, ThreadID: interaction.ThreadID}
	if interaction.UserID != nil {
		cc.UserID = *interaction.UserID
	}
	if cc.UserID == "" && job != nil && job.UserID != nil {
		cc.UserID = *job.UserID
	}

	if cc.UserID != "" {
		if cc.Profile, err = o.store.ProfileByUserID(ctx, cc.UserID); err != nil {
			log.Printf("⚠️ Could not fetch profile for user %s: %v", cc.UserID, err)
		}
		if cc.Role, err = o.store.AuthoritativeRole(ctx, cc.UserID); err != nil {
			log.Printf("⚠️ Could not fetch role for user %s: %v", cc.UserID, err)
		}
	}

	cc.DeclaredIntent = o.declaredIntent(ctx, job, cc)
	return cc, nil
}

// adoptOrCreateInteraction handles the first webhook of a call: adopt the
// job's interaction if it already has one, otherwise create a new interaction
// bound to the job's thread and backfill the job's reference.
func (o *Orchestrator) adoptOrCreateInteraction(ctx context.Context, callSID string, job *models.Job) (*models.Interaction, error) {
	if job == nil {
		return nil, ErrNoInteraction
	}

	if job.InteractionID != nil {
		existing, err := o.store.InteractionByID(ctx, *job.InteractionID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			// Interactions created at enqueue carry a placeholder reference
			// until the first webhook reveals the call SID.
			if existing.ProviderRef != callSID {
				if err := o.store.BindInteractionRef(ctx, existing.ID, callSID); err != nil {
					log.Printf("⚠️ Could not bind call %s to interaction %s: %v", callSID, existing.ID, err)
				} else {
					existing.ProviderRef = callSID
				}
			}
			return existing, nil
		}
	}

	if job.ThreadID == nil {
		return nil, ErrNoInteraction
	}

	interaction := &models.Interaction{
		ThreadID:    job.ThreadID,
		UserID:      job.UserID,
		Channel:     "voice",
		Direction:   "outbound",
		Provider:    provider,
		ProviderRef: callSID,
	}
	if err := o.store.CreateInteraction(ctx, interaction); err != nil {
		return nil, err
	}
	if err := o.store.SetJobInteraction(ctx, job.ID, interaction.ID); err != nil {
		log.Printf("⚠️ Could not backfill interaction on job %s: %v", job.ID, err)
	}
	return interaction, nil
}

// declaredIntent resolves the caller's declared purpose with priority: job
// artifacts, then an already-recorded role, then the last-known mode
// preference. Unknown is a valid answer.
func (o *Orchestrator) declaredIntent(ctx context.Context, job *models.Job, cc *CallContext) string {
	if job != nil && len(job.Artifacts) > 0 {
		var artifacts struct {
			SignupMode string `json:"signup_mode"`
		}
		if err := json.Unmarshal(job.Artifacts, &artifacts); err == nil && models.ValidRole(artifacts.SignupMode) {
			return artifacts.SignupMode
		}
	}

	if cc.Role != nil {
		return string(cc.Role.Role)
	}

	if cc.UserID != "" {
		mode, err := o.store.ModePreference(ctx, cc.UserID)
		if err != nil {
			log.Printf("⚠️ Could not fetch mode preference for user %s: %v", cc.UserID, err)
		} else if mode != "" {
			return mode
		}
	}
	return ""
}
