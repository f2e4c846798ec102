// Package dispatcher drains the outbound call queue: it claims due jobs,
// places calls through the telephony gateway and handles retry scheduling.
// State transitions in the store are the source of truth, so a crashed
// dispatcher loses nothing but time.
package dispatcher

import (
	"context"
	"fmt"
	"log"
	"time"

	"go-voiceagent/internal/models"
)

const maxBackoff = 60 * time.Minute

// Queue is the slice of the store the dispatcher needs.
type Queue interface {
	DueJobs(ctx context.Context, limit int) ([]models.Job, error)
	ClaimJob(ctx context.Context, jobID string) (int, bool, error)
	RecordCallPlaced(ctx context.Context, jobID, callSID string) error
	RescheduleJob(ctx context.Context, jobID string, nextRun time.Time, lastErr string) error
	FailJobPermanently(ctx context.Context, jobID, lastErr string) error
}

// Caller places an outbound call and returns the provider's call reference.
type Caller interface {
	PlaceCall(ctx context.Context, to, voiceURL, statusURL string) (string, error)
}

// Alerter gets told about jobs that ran out of attempts. It may be nil.
type Alerter interface {
	JobFailed(job *models.Job, lastErr string) error
}

type Config struct {
	BaseURL     string
	Interval    time.Duration
	Limit       int
	MaxAttempts int
}

type Dispatcher struct {
	queue   Queue
	caller  Caller
	alerter Alerter
	cfg     Config
}

func New(queue Queue, caller Caller, alerter Alerter, cfg Config) *Dispatcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Dispatcher{queue: queue, caller: caller, alerter: alerter, cfg: cfg}
}

// Run polls the queue on a ticker until the context is canceled. One batch
// runs immediately on start so a fresh dispatcher doesn't sit idle for a
// full interval.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Printf("📞 Dispatcher started (interval=%s, limit=%d)", d.cfg.Interval, d.cfg.Limit)

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	d.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Println("📞 Dispatcher stopping")
			return
		case <-ticker.C:
			d.RunOnce(ctx)
		}
	}
}

// RunOnce processes a single batch of due jobs and returns how many calls
// were placed.
func (d *Dispatcher) RunOnce(ctx context.Context) int {
	jobs, err := d.queue.DueJobs(ctx, d.cfg.Limit)
	if err != nil {
		log.Printf("⚠️ Could not fetch due jobs: %v", err)
		return 0
	}

	placed := 0
	for i := range jobs {
		if ctx.Err() != nil {
			return placed
		}
		if d.dispatch(ctx, &jobs[i]) {
			placed++
		}
	}
	return placed
}

// dispatch claims one job and places its call. The claim is a conditional
// update, so two dispatchers racing on the same job resolve in the database:
// the loser sees no row and walks away.
func (d *Dispatcher) dispatch(ctx context.Context, job *models.Job) bool {
	attempts, claimed, err := d.queue.ClaimJob(ctx, job.ID)
	if err != nil {
		log.Printf("⚠️ Could not claim job %s: %v", job.ID, err)
		return false
	}
	if !claimed {
		return false
	}
	job.Attempts = attempts

	voiceURL := d.cfg.BaseURL + "/voice/qualify?job_id=" + job.ID
	statusURL := d.cfg.BaseURL + "/voice/status"

	callSID, err := d.caller.PlaceCall(ctx, job.PhoneE164, voiceURL, statusURL)
	if err != nil {
		d.handlePlacementFailure(ctx, job, err)
		return false
	}

	if err := d.queue.RecordCallPlaced(ctx, job.ID, callSID); err != nil {
		log.Printf("⚠️ Could not record call %s on job %s: %v", callSID, job.ID, err)
	}
	log.Printf("✅ Placed call %s for job %s (attempt %d)", callSID, job.ID, job.Attempts)
	return true
}

// handlePlacementFailure reschedules with exponential backoff, or gives up
// and alerts once the attempt budget is spent.
func (d *Dispatcher) handlePlacementFailure(ctx context.Context, job *models.Job, placeErr error) {
	lastErr := fmt.Sprintf("failed to place call: %v", placeErr)

	if job.Attempts >= d.cfg.MaxAttempts {
		log.Printf("❌ Job %s failed permanently after %d attempts: %v", job.ID, job.Attempts, placeErr)
		if err := d.queue.FailJobPermanently(ctx, job.ID, lastErr); err != nil {
			log.Printf("⚠️ Could not mark job %s failed: %v", job.ID, err)
		}
		if d.alerter != nil {
			if err := d.alerter.JobFailed(job, lastErr); err != nil {
				log.Printf("⚠️ Could not send failure alert for job %s: %v", job.ID, err)
			}
		}
		return
	}

	nextRun := time.Now().Add(Backoff(job.Attempts))
	log.Printf("🔁 Job %s attempt %d failed, retrying at %s: %v", job.ID, job.Attempts, nextRun.Format(time.RFC3339), placeErr)
	if err := d.queue.RescheduleJob(ctx, job.ID, nextRun, lastErr); err != nil {
		log.Printf("⚠️ Could not reschedule job %s: %v", job.ID, err)
	}
}

// Backoff doubles per attempt in minutes and tops out at an hour.
func Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := time.Duration(1<<uint(attempts)) * time.Minute
	if delay > maxBackoff {
		return maxBackoff
	}
	return delay
}
