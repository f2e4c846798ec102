package telephony

import (
	"go-voiceagent/internal/models"
)

// MapCallStatus maps the gateway's call status enum to a job status.
// ok=false means the status is non-terminal and the job is left unchanged.
func MapCallStatus(callStatus string) (models.JobStatus, bool) {
	switch callStatus {
	case "completed":
		return models.JobSucceeded, true
	case "failed", "busy", "no-answer", "canceled":
		return models.JobFailed, true
	default:
		// queued, initiated, ringing, in-progress, answered
		return "", false
	}
}
