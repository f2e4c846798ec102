package web

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go-voiceagent/internal/models"
)

type enqueueRequest struct {
	UserID     string `json:"user_id"`
	Phone      string `json:"phone" binding:"required"`
	SignupMode string `json:"signup_mode"`
}

// handleEnqueue registers an outbound call request. The dedupe key is scoped
// to the user and the current hour, so a burst of signup events collapses
// into a single call and re-posting returns the existing job.
func (s *Server) handleEnqueue(c *gin.Context) {
	var req enqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.SignupMode != "" && !models.ValidRole(req.SignupMode) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "signup_mode must be talent or hirer"})
		return
	}

	var userID *string
	dedupeOwner := req.Phone
	if req.UserID != "" {
		userID = &req.UserID
		dedupeOwner = req.UserID
	}
	dedupeKey := fmt.Sprintf("qualification-%s-%s", dedupeOwner, time.Now().UTC().Format("2006010215"))

	var artifacts []byte
	if req.SignupMode != "" {
		artifacts, _ = json.Marshal(map[string]string{"signup_mode": req.SignupMode})
	}

	job, err := s.repo.EnqueueCall(c.Request.Context(), userID, req.Phone, dedupeKey, artifacts)
	if err != nil {
		log.Printf("⚠️ Could not enqueue call for %s: %v", req.Phone, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue call"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":     job.ID,
		"status":     job.Status,
		"dedupe_key": job.DedupeKey,
	})
}
