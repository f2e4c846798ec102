// Package agent builds the qualification prompt, calls the language-generation
// provider and enforces role stability on whatever comes back.
package agent

import (
	"context"
	"log"

	"go-voiceagent/internal/ai"
	"go-voiceagent/internal/models"
)

type Agent struct {
	client        ai.Client
	assistantName string
	companyName   string
	lockThreshold float64
}

func New(client ai.Client, assistantName, companyName string, lockThreshold float64) *Agent {
	return &Agent{
		client:        client,
		assistantName: assistantName,
		companyName:   companyName,
		lockThreshold: lockThreshold,
	}
}

// Request is everything the agent needs for one turn. Role must be the
// freshly-loaded assignment from the datastore, not a cached copy.
type Request struct {
	Turns          []models.Turn
	DeclaredIntent string
	Profile        *models.Profile
	Role           *models.RoleAssignment
}

// Respond generates the next assistant message and extraction payload. It
// always returns a usable contract object; provider or parse failures degrade
// to the fixed fallback.
func (a *Agent) Respond(ctx context.Context, req Request) ai.Response {
	locked, lockedRole := a.authoritativeRole(req)

	messages := []ai.Message{{Role: ai.RoleSystem, Content: a.systemPrompt(req, locked, lockedRole)}}
	for _, turn := range req.Turns {
		role := ai.RoleAssistant
		if turn.Speaker == models.SpeakerUser {
			role = ai.RoleUser
		}
		messages = append(messages, ai.Message{Role: role, Content: turn.Text})
	}

	raw, err := a.client.Complete(ctx, messages)
	if err != nil {
		log.Printf("⚠️ Language generation failed: %v", err)
		return ai.Fallback()
	}

	resp := ai.Parse(raw)
	a.enforceRoleStability(&resp, locked, lockedRole)
	return resp
}

// authoritativeRole reports whether a role is locked for this caller. Above
// the confidence threshold the classification is fixed for good.
func (a *Agent) authoritativeRole(req Request) (bool, models.Role) {
	if req.Role != nil && req.Role.Confidence >= a.lockThreshold {
		return true, req.Role.Role
	}
	return false, ""
}

func (a *Agent) systemPrompt(req Request, locked bool, lockedRole models.Role) string {
	track := ""
	switch {
	case locked:
		track = string(lockedRole)
	case models.ValidRole(req.DeclaredIntent):
		track = req.DeclaredIntent
	case req.Role != nil:
		// A sub-threshold assignment still steers prompt selection; it just
		// is not locked yet.
		track = string(req.Role.Role)
	}

	var prompt string
	switch track {
	case string(models.RoleHirer):
		prompt = hirerPrompt(a.assistantName, a.companyName)
	case string(models.RoleTalent):
		prompt = talentPrompt(a.assistantName, a.companyName)
	default:
		prompt = talentPrompt(a.assistantName, a.companyName) + roleDiscoveryAddendum
	}

	return prompt + contextSection(req.DeclaredIntent, req.Profile, req.Role)
}

// enforceRoleStability drops any extracted role that contradicts an
// established one. Once a classification is made it is never reversed by a
// later turn.
func (a *Agent) enforceRoleStability(resp *ai.Response, locked bool, lockedRole models.Role) {
	ru := resp.ExtractedUpdates.Role
	if ru == nil {
		return
	}
	if !models.ValidRole(ru.Role) {
		resp.ExtractedUpdates.Role = nil
		return
	}
	if locked && ru.Role != string(lockedRole) {
		log.Printf("⚠️ Provider asserted role %q against established %q; ignoring", ru.Role, lockedRole)
		resp.ExtractedUpdates.Role = nil
	}
}
