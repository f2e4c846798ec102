package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-voiceagent/internal/ai"
	"go-voiceagent/internal/models"
)

type stubClient struct {
	reply    string
	err      error
	messages []ai.Message
}

func (s *stubClient) Complete(_ context.Context, messages []ai.Message) (string, error) {
	s.messages = messages
	return s.reply, s.err
}

func newTestAgent(client ai.Client) *Agent {
	return New(client, "Ava", "HireVox", 0.8)
}

func lockedRole(role models.Role, confidence float64) *models.RoleAssignment {
	return &models.RoleAssignment{UserID: "u1", Role: role, Confidence: confidence}
}

func TestRespondBuildsHistory(t *testing.T) {
	client := &stubClient{reply: `{"assistant_text":"And your surname?","next_state":"collect_name"}`}
	a := newTestAgent(client)

	resp := a.Respond(context.Background(), Request{
		Turns: []models.Turn{
			{Speaker: models.SpeakerAssistant, Text: "What's your first name?", Sequence: 1},
			{Speaker: models.SpeakerUser, Text: "It's Sarah", Sequence: 2},
		},
	})

	assert.Equal(t, "And your surname?", resp.AssistantText)
	require.Len(t, client.messages, 3)
	assert.Equal(t, ai.RoleSystem, client.messages[0].Role)
	assert.Equal(t, ai.RoleAssistant, client.messages[1].Role)
	assert.Equal(t, ai.RoleUser, client.messages[2].Role)
	assert.Equal(t, "It's Sarah", client.messages[2].Content)
}

func TestRespondProviderFailureFallsBack(t *testing.T) {
	a := newTestAgent(&stubClient{err: errors.New("api down")})

	resp := a.Respond(context.Background(), Request{})

	assert.Equal(t, ai.Fallback().AssistantText, resp.AssistantText)
	assert.False(t, resp.IsComplete)
	assert.True(t, resp.ExtractedUpdates.Empty())
}

func TestLockedRoleDropsContradiction(t *testing.T) {
	client := &stubClient{reply: `{"assistant_text":"ok","extracted_updates":{"role_assignments":{"role":"hirer","confidence":0.95}}}`}
	a := newTestAgent(client)

	resp := a.Respond(context.Background(), Request{Role: lockedRole(models.RoleTalent, 0.9)})

	assert.Nil(t, resp.ExtractedUpdates.Role, "contradictory role must be dropped once locked")
}

func TestLockedRoleKeepsAgreement(t *testing.T) {
	client := &stubClient{reply: `{"assistant_text":"ok","extracted_updates":{"role_assignments":{"role":"talent","confidence":0.95}}}`}
	a := newTestAgent(client)

	resp := a.Respond(context.Background(), Request{Role: lockedRole(models.RoleTalent, 0.9)})

	require.NotNil(t, resp.ExtractedUpdates.Role)
	assert.Equal(t, "talent", resp.ExtractedUpdates.Role.Role)
}

func TestSubThresholdRoleNotLocked(t *testing.T) {
	client := &stubClient{reply: `{"assistant_text":"ok","extracted_updates":{"role_assignments":{"role":"hirer","confidence":0.7}}}`}
	a := newTestAgent(client)

	resp := a.Respond(context.Background(), Request{Role: lockedRole(models.RoleTalent, 0.5)})

	require.NotNil(t, resp.ExtractedUpdates.Role, "below the lock threshold the role may still change")
	assert.Equal(t, "hirer", resp.ExtractedUpdates.Role.Role)
}

func TestInvalidExtractedRoleDropped(t *testing.T) {
	client := &stubClient{reply: `{"assistant_text":"ok","extracted_updates":{"role_assignments":{"role":"wizard"}}}`}
	a := newTestAgent(client)

	resp := a.Respond(context.Background(), Request{})

	assert.Nil(t, resp.ExtractedUpdates.Role)
}

func TestSystemPromptTrackSelection(t *testing.T) {
	a := newTestAgent(&stubClient{})

	tests := []struct {
		name     string
		req      Request
		contains string
	}{
		{"locked talent", Request{Role: lockedRole(models.RoleTalent, 0.9)}, "TALENT track"},
		{"declared hirer", Request{DeclaredIntent: "hirer"}, "HIRER track"},
		{"unknown gets discovery", Request{}, "ROLE DETECTION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locked, role := a.authoritativeRole(tt.req)
			prompt := a.systemPrompt(tt.req, locked, role)
			assert.Contains(t, prompt, tt.contains)
		})
	}
}
