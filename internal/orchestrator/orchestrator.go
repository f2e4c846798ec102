// Package orchestrator is the per-webhook decision core: it reconstructs
// conversation state from the durable ledger, decides what to say next and
// emits the gateway instruction document. It is stateless per request; all
// durable truth lives in the store, because deliveries for the same call may
// land on different workers or be retried.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"go-voiceagent/internal/agent"
	"go-voiceagent/internal/ai"
	"go-voiceagent/internal/models"
	"go-voiceagent/internal/reconcile"
	"go-voiceagent/internal/telephony"
)

const provider = "twilio"

const errorClosing = "Sorry, there was an error. Goodbye."

// Ledger is the append-only turn log.
type Ledger interface {
	NextSequence(ctx context.Context, interactionID string) (int, error)
	AppendTurn(ctx context.Context, t *models.Turn) (string, error)
	RecentTurns(ctx context.Context, interactionID string, limit int) ([]models.Turn, error)
}

// ContextStore resolves calls to interactions and loads caller facts.
type ContextStore interface {
	InteractionByProviderRef(ctx context.Context, provider, ref string) (*models.Interaction, error)
	InteractionByID(ctx context.Context, id string) (*models.Interaction, error)
	CreateInteraction(ctx context.Context, in *models.Interaction) error
	BindInteractionRef(ctx context.Context, id, ref string) error
	JobByID(ctx context.Context, id string) (*models.Job, error)
	SetJobInteraction(ctx context.Context, jobID, interactionID string) error
	ProfileByUserID(ctx context.Context, userID string) (*models.Profile, error)
	AuthoritativeRole(ctx context.Context, userID string) (*models.RoleAssignment, error)
	ModePreference(ctx context.Context, userID string) (string, error)
}

// Responder generates the next assistant message; it never errors, only
// degrades (see agent.Agent).
type Responder interface {
	Respond(ctx context.Context, req agent.Request) ai.Response
}

// AudioProvider resolves utterance text to a playable audio path.
type AudioProvider interface {
	AudioPath(ctx context.Context, text string) (string, error)
}

// FactApplier reconciles extracted updates into durable records.
type FactApplier interface {
	Apply(ctx context.Context, userID, interactionID string, updates ai.Updates) reconcile.Report
}

type Config struct {
	BaseURL       string
	AssistantName string
	CompanyName   string
	HistoryWindow int
}

type Orchestrator struct {
	ledger  Ledger
	store   ContextStore
	agent   Responder
	facts   FactApplier
	speaker AudioProvider
	cfg     Config
}

func New(ledger Ledger, store ContextStore, responder Responder, facts FactApplier, speaker AudioProvider, cfg Config) *Orchestrator {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 20
	}
	return &Orchestrator{
		ledger:  ledger,
		store:   store,
		agent:   responder,
		facts:   facts,
		speaker: speaker,
		cfg:     cfg,
	}
}

// TurnInput is one webhook delivery. Speech is empty on the very first
// request of a call and on gather timeouts.
type TurnInput struct {
	CallSID          string
	JobID            string
	Speech           string
	SpeechConfidence string
}

// HandleTurn runs one turn of the conversation state machine. It always
// returns a valid instruction document; every failure path degrades to an
// apology plus hangup rather than letting an error reach the gateway.
func (o *Orchestrator) HandleTurn(ctx context.Context, in TurnInput) *telephony.Document {
	cc, err := o.resolveContext(ctx, in.CallSID, in.JobID)
	if err != nil {
		log.Printf("⚠️ Could not resolve context for call %s (job_id=%q): %v", in.CallSID, in.JobID, err)
		return telephony.SayAndHangup(errorClosing, "")
	}

	if in.Speech == "" {
		// The initial webhook and a mid-call gather timeout both arrive
		// without speech; only the ledger can tell them apart.
		nextSeq, err := o.ledger.NextSequence(ctx, cc.Interaction.ID)
		if err != nil {
			log.Printf("⚠️ Could not peek turn sequence for %s: %v", cc.Interaction.ID, err)
			return telephony.SayAndHangup(errorClosing, "")
		}
		if nextSeq == 1 {
			return o.openingTurn(ctx, cc, in)
		}
		return o.repromptTurn(ctx, cc, in)
	}

	return o.speechTurn(ctx, cc, in)
}

// openingTurn greets the caller, persists turn 1 and starts listening.
func (o *Orchestrator) openingTurn(ctx context.Context, cc *CallContext, in TurnInput) *telephony.Document {
	message := o.openingMessage(cc.DeclaredIntent)
	o.appendAssistantTurn(ctx, cc, message, map[string]any{
		"state":           "intro",
		"declared_intent": cc.DeclaredIntent,
	})
	return o.listen(ctx, message, in.JobID)
}

// repromptTurn handles a gather timeout mid-call: repeat the last assistant
// utterance instead of restarting the greeting.
func (o *Orchestrator) repromptTurn(ctx context.Context, cc *CallContext, in TurnInput) *telephony.Document {
	lastAssistant := "Could you say that again?"
	turns, err := o.ledger.RecentTurns(ctx, cc.Interaction.ID, o.cfg.HistoryWindow)
	if err != nil {
		log.Printf("⚠️ Could not load turns for reprompt on %s: %v", cc.Interaction.ID, err)
	}
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Speaker == models.SpeakerAssistant && turns[i].Text != "" {
			lastAssistant = turns[i].Text
			break
		}
	}

	message := "Sorry, I didn't catch that. " + lastAssistant
	o.appendAssistantTurn(ctx, cc, message, map[string]any{
		"state": "reprompt_no_input",
	})
	return o.listen(ctx, message, in.JobID)
}

// speechTurn is the normal mid-conversation path.
func (o *Orchestrator) speechTurn(ctx context.Context, cc *CallContext, in TurnInput) *telephony.Document {
	o.appendUserTurn(ctx, cc, in)

	if wantsToEndCall(in.Speech) {
		message := "No problem at all, I'll stop here. You're welcome to pick this up again anytime. Thanks for your time, goodbye."
		o.appendAssistantTurn(ctx, cc, message, map[string]any{
			"next_state":  "complete",
			"is_complete": true,
			"confidence":  1.0,
			"ended_by":    "user_request",
		})
		return o.hangup(ctx, message)
	}

	turns, err := o.ledger.RecentTurns(ctx, cc.Interaction.ID, o.cfg.HistoryWindow)
	if err != nil {
		log.Printf("⚠️ Could not load conversation turns for %s: %v", cc.Interaction.ID, err)
	}

	// Refresh the authoritative role from the store right before generation:
	// a role committed in a previous turn must win over the context loaded at
	// the top of this request.
	if cc.UserID != "" {
		if role, err := o.store.AuthoritativeRole(ctx, cc.UserID); err != nil {
			log.Printf("⚠️ Could not refresh role for user %s: %v", cc.UserID, err)
		} else if role != nil {
			cc.Role = role
		}
	}

	resp := o.agent.Respond(ctx, agent.Request{
		Turns:          turns,
		DeclaredIntent: cc.DeclaredIntent,
		Profile:        cc.Profile,
		Role:           cc.Role,
	})

	if cc.UserID != "" && !resp.ExtractedUpdates.Empty() {
		report := o.facts.Apply(ctx, cc.UserID, cc.Interaction.ID, resp.ExtractedUpdates)
		if len(report) > 0 {
			log.Printf("📝 Applied updates for user %s: %v", cc.UserID, report)
		}
	}

	o.appendAssistantTurn(ctx, cc, resp.AssistantText, map[string]any{
		"next_state":  resp.NextState,
		"is_complete": resp.IsComplete,
		"confidence":  resp.Confidence,
	})

	if resp.IsComplete {
		return o.hangup(ctx, resp.AssistantText)
	}
	return o.listen(ctx, resp.AssistantText, in.JobID)
}

// listen wraps a message in a gather document pointing back at the turn
// endpoint. Audio synthesis failure falls back to gateway-side speech.
func (o *Orchestrator) listen(ctx context.Context, message, jobID string) *telephony.Document {
	return telephony.GatherSpeech(message, o.audioURL(ctx, message), o.turnURL(jobID))
}

func (o *Orchestrator) hangup(ctx context.Context, message string) *telephony.Document {
	return telephony.SayAndHangup(message, o.audioURL(ctx, message))
}

func (o *Orchestrator) audioURL(ctx context.Context, message string) string {
	path, err := o.speaker.AudioPath(ctx, message)
	if err != nil {
		log.Printf("⚠️ Audio synthesis failed: %v", err)
		return ""
	}
	return o.cfg.BaseURL + path
}

func (o *Orchestrator) turnURL(jobID string) string {
	url := o.cfg.BaseURL + "/voice/qualify"
	if jobID != "" {
		url += "?job_id=" + jobID
	}
	return url
}

// appendUserTurn saves the caller's speech. Ledger failures are logged and
// the turn continues; the reply matters more than the bookkeeping.
func (o *Orchestrator) appendUserTurn(ctx context.Context, cc *CallContext, in TurnInput) {
	seq, err := o.ledger.NextSequence(ctx, cc.Interaction.ID)
	if err != nil {
		log.Printf("⚠️ Could not get next sequence for %s: %v", cc.Interaction.ID, err)
		return
	}
	raw, _ := json.Marshal(map[string]any{
		"speech_confidence": in.SpeechConfidence,
		"call_sid":          in.CallSID,
	})
	turn := &models.Turn{
		InteractionID: cc.Interaction.ID,
		ThreadID:      cc.ThreadID,
		Speaker:       models.SpeakerUser,
		Text:          in.Speech,
		Sequence:      seq,
		RawPayload:    raw,
	}
	if _, err := o.ledger.AppendTurn(ctx, turn); err != nil {
		log.Printf("⚠️ Could not save user turn %d on %s: %v", seq, cc.Interaction.ID, err)
	}
}

func (o *Orchestrator) appendAssistantTurn(ctx context.Context, cc *CallContext, text string, artifacts map[string]any) {
	seq, err := o.ledger.NextSequence(ctx, cc.Interaction.ID)
	if err != nil {
		log.Printf("⚠️ Could not get next sequence for %s: %v", cc.Interaction.ID, err)
		return
	}
	artifactsJSON, _ := json.Marshal(artifacts)
	turn := &models.Turn{
		InteractionID: cc.Interaction.ID,
		ThreadID:      cc.ThreadID,
		Speaker:       models.SpeakerAssistant,
		Text:          text,
		Sequence:      seq,
		Artifacts:     artifactsJSON,
	}
	if _, err := o.ledger.AppendTurn(ctx, turn); err != nil {
		log.Printf("⚠️ Could not save assistant turn %d on %s: %v", seq, cc.Interaction.ID, err)
	}
}

// openingMessage is role-tailored: talent and hirer get a matching welcome,
// anyone else is asked to clarify.
func (o *Orchestrator) openingMessage(declaredIntent string) string {
	intro := fmt.Sprintf("Hi, this is %s from %s.", o.cfg.AssistantName, o.cfg.CompanyName)
	switch declaredIntent {
	case string(models.RoleTalent):
		return intro + " I noticed you just signed up looking for executive opportunities. Have I caught you at a bad time?"
	case string(models.RoleHirer):
		return intro + " I noticed you just signed up looking for executive talent for your organization. Have I caught you at a bad time?"
	default:
		return intro + " I noticed you just signed up, and I wasn't sure whether you're looking for executive talent for your organization, or you're an executive looking for opportunities. Is this a bad time to talk?"
	}
}

// CommonPrompts are pre-cached at startup so early calls skip synthesis
// latency for the fixed parts of the script.
func (o *Orchestrator) CommonPrompts() []string {
	return []string{
		o.openingMessage(string(models.RoleTalent)),
		o.openingMessage(string(models.RoleHirer)),
		o.openingMessage(""),
		"Great, thanks. What's your first name?",
		"Sorry, I didn't catch that. Could you say that again?",
		"No problem at all, I'll stop here. You're welcome to pick this up again anytime. Thanks for your time, goodbye.",
		errorClosing,
	}
}
