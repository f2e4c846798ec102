package web

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-voiceagent/internal/orchestrator"
	"go-voiceagent/internal/telephony"
)

// handleVoiceTurn serves both the initial call webhook and every subsequent
// speech result. One spoken turn in, one instruction document out.
func (s *Server) handleVoiceTurn(c *gin.Context) {
	params := formParams(c)
	if err := s.validator.Verify(s.requestURL(c), params, c.GetHeader("X-Twilio-Signature")); err != nil {
		log.Printf("🚫 Rejected voice webhook: %v", err)
		c.String(http.StatusForbidden, "invalid signature")
		return
	}

	doc := s.orch.HandleTurn(c.Request.Context(), orchestrator.TurnInput{
		CallSID:          params["CallSid"],
		JobID:            c.Query("job_id"),
		Speech:           params["SpeechResult"],
		SpeechConfidence: params["Confidence"],
	})

	s.renderTwiML(c, doc)
}

// handleCallStatus receives terminal call state from the gateway. It always
// answers 200: the gateway retries non-2xx responses and a retried terminal
// status has nothing new to say.
func (s *Server) handleCallStatus(c *gin.Context) {
	params := formParams(c)
	if err := s.validator.Verify(s.requestURL(c), params, c.GetHeader("X-Twilio-Signature")); err != nil {
		log.Printf("🚫 Rejected status webhook: %v", err)
		c.String(http.StatusForbidden, "invalid signature")
		return
	}

	callSID := params["CallSid"]
	callStatus := params["CallStatus"]
	log.Printf("📊 Call %s status: %s", callSID, callStatus)

	status, terminal := telephony.MapCallStatus(callStatus)
	if !terminal {
		c.String(http.StatusOK, "ok")
		return
	}

	ctx := c.Request.Context()
	job, err := s.repo.JobByCallSID(ctx, callSID)
	if err != nil {
		log.Printf("⚠️ Could not look up job for call %s: %v", callSID, err)
		c.String(http.StatusOK, "ok")
		return
	}
	if job == nil {
		log.Printf("⚠️ Status for unknown call %s, ignoring", callSID)
		c.String(http.StatusOK, "ok")
		return
	}

	artifacts := statusArtifacts(callStatus)
	if err := s.repo.SetJobStatus(ctx, job.ID, status, artifacts); err != nil {
		log.Printf("⚠️ Could not update job %s to %s: %v", job.ID, status, err)
	}

	if job.InteractionID != nil {
		if err := s.repo.CloseInteraction(ctx, *job.InteractionID, artifacts); err != nil {
			log.Printf("⚠️ Could not close interaction %s: %v", *job.InteractionID, err)
		}
	}

	c.String(http.StatusOK, "ok")
}

// statusArtifacts encodes the raw gateway status for the job and interaction
// records. The status is provider-controlled text, so it goes through the
// encoder rather than string assembly.
func statusArtifacts(callStatus string) []byte {
	artifacts, err := json.Marshal(map[string]string{"final_call_status": callStatus})
	if err != nil {
		return []byte(`{}`)
	}
	return artifacts
}

func (s *Server) renderTwiML(c *gin.Context, doc *telephony.Document) {
	xml, err := doc.Render()
	if err != nil {
		log.Printf("⚠️ Could not render response document: %v", err)
		c.String(http.StatusInternalServerError, "render error")
		return
	}
	c.Data(http.StatusOK, "application/xml", []byte(xml))
}
