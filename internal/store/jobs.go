package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"go-voiceagent/internal/models"
)

const jobColumns = `id, user_id, phone_e164, status, attempts, dedupe_key, next_run_at,
	thread_id, interaction_id, call_sid, artifacts, last_error, created_at, updated_at`

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.UserID, &j.PhoneE164, &j.Status, &j.Attempts, &j.DedupeKey, &j.NextRunAt,
		&j.ThreadID, &j.InteractionID, &j.CallSID, &j.Artifacts, &j.LastError, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// JobByID returns (nil, nil) when the job does not exist.
func (r *Repository) JobByID(ctx context.Context, id string) (*models.Job, error) {
	row := r.db.QueryRow(ctx, "SELECT "+jobColumns+" FROM outbound_call_jobs WHERE id = $1", id)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

// JobByCallSID finds the job a gateway status callback belongs to.
func (r *Repository) JobByCallSID(ctx context.Context, callSID string) (*models.Job, error) {
	row := r.db.QueryRow(ctx, "SELECT "+jobColumns+" FROM outbound_call_jobs WHERE call_sid = $1", callSID)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job by call sid: %w", err)
	}
	return j, nil
}

// SetJobInteraction backfills the job's interaction reference after the
// context resolver created one on its behalf.
func (r *Repository) SetJobInteraction(ctx context.Context, jobID, interactionID string) error {
	_, err := r.db.Exec(ctx,
		"UPDATE outbound_call_jobs SET interaction_id = $1, updated_at = now() WHERE id = $2",
		interactionID, jobID)
	if err != nil {
		return fmt.Errorf("failed to set job interaction: %w", err)
	}
	return nil
}

// pendingRef is the placeholder provider reference an interaction carries
// between enqueue and the first gateway webhook, which rebinds it to the real
// call SID.
func pendingRef(threadID string) string {
	return "pending-" + threadID
}

func (r *Repository) jobByDedupeKey(ctx context.Context, dedupeKey string) (*models.Job, error) {
	row := r.db.QueryRow(ctx, "SELECT "+jobColumns+" FROM outbound_call_jobs WHERE dedupe_key = $1", dedupeKey)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job by dedupe key: %w", err)
	}
	return j, nil
}

// EnqueueCall creates the thread + interaction + job triple for one outbound
// call, idempotently keyed by dedupeKey. The dedupe key is checked up front
// so a repeat enqueue inside the window resolves to the existing job without
// leaving an orphan thread behind; the unique-violation read-back only covers
// the race between two concurrent first enqueues.
func (r *Repository) EnqueueCall(ctx context.Context, userID *string, phone, dedupeKey string, artifacts []byte) (*models.Job, error) {
	if existing, err := r.jobByDedupeKey(ctx, dedupeKey); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	thread := &models.Thread{PrimaryUserID: userID, Subject: "Qualification call"}
	if err := r.CreateThread(ctx, thread); err != nil {
		return nil, err
	}

	interaction := &models.Interaction{
		ThreadID:    &thread.ID,
		UserID:      userID,
		Channel:     "voice",
		Direction:   "outbound",
		Provider:    Provider,
		ProviderRef: pendingRef(thread.ID),
	}
	if err := r.CreateInteraction(ctx, interaction); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO outbound_call_jobs (user_id, phone_e164, status, dedupe_key, thread_id, interaction_id, artifacts)
		VALUES ($1, $2, 'queued', $3, $4, $5, COALESCE($6, '{}'::jsonb))
		RETURNING ` + jobColumns
	row := r.db.QueryRow(ctx, query, userID, phone, dedupeKey, thread.ID, interaction.ID, jsonbArg(artifacts))
	j, err := scanJob(row)
	if isUniqueViolation(err) {
		j, err = r.jobByDedupeKey(ctx, dedupeKey)
		if err != nil || j == nil {
			return nil, fmt.Errorf("failed to read back job after dedupe conflict: %w", err)
		}
		return j, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue call job: %w", err)
	}
	return j, nil
}

// DueJobs returns queued jobs whose retry time has elapsed, oldest first.
func (r *Repository) DueJobs(ctx context.Context, limit int) ([]models.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM outbound_call_jobs
		WHERE status = 'queued' AND (next_run_at IS NULL OR next_run_at <= now())
		ORDER BY created_at ASC
		LIMIT $1`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}
	return jobs, nil
}

// ClaimJob transitions a queued job to running and bumps its attempt counter.
// The conditional update is what keeps two pollers from dispatching the same
// job: only one of them observes status='queued'. Returns the new attempt
// count and whether this poller won the claim.
func (r *Repository) ClaimJob(ctx context.Context, jobID string) (int, bool, error) {
	var attempts int
	err := r.db.QueryRow(ctx, `
		UPDATE outbound_call_jobs
		SET status = 'running', attempts = attempts + 1, updated_at = now()
		WHERE id = $1 AND status = 'queued'
		RETURNING attempts`, jobID).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to claim job: %w", err)
	}
	return attempts, true, nil
}

// RecordCallPlaced stores the gateway call reference on a running job.
func (r *Repository) RecordCallPlaced(ctx context.Context, jobID, callSID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE outbound_call_jobs
		SET call_sid = $1,
		    artifacts = artifacts || jsonb_build_object('call_sid', $1::text, 'call_initiated_at', now()),
		    updated_at = now()
		WHERE id = $2`, callSID, jobID)
	if err != nil {
		return fmt.Errorf("failed to record placed call: %w", err)
	}
	return nil
}

// RescheduleJob requeues a failed placement for a later attempt.
func (r *Repository) RescheduleJob(ctx context.Context, jobID string, nextRun time.Time, lastErr string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE outbound_call_jobs
		SET status = 'queued', next_run_at = $1, last_error = $2, updated_at = now()
		WHERE id = $3`, nextRun, lastErr, jobID)
	if err != nil {
		return fmt.Errorf("failed to reschedule job: %w", err)
	}
	return nil
}

// FailJobPermanently marks a job failed for good; no further attempts are
// scheduled and the failure is surfaced for manual follow-up.
func (r *Repository) FailJobPermanently(ctx context.Context, jobID, lastErr string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE outbound_call_jobs
		SET status = 'failed', next_run_at = NULL, last_error = $1, updated_at = now()
		WHERE id = $2`, lastErr, jobID)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}
	return nil
}

// SetJobStatus applies a status-callback outcome and merges call metadata into
// the job's artifacts.
func (r *Repository) SetJobStatus(ctx context.Context, jobID string, status models.JobStatus, artifacts []byte) error {
	_, err := r.db.Exec(ctx, `
		UPDATE outbound_call_jobs
		SET status = $1, artifacts = artifacts || COALESCE($2, '{}'::jsonb), updated_at = now()
		WHERE id = $3`, status, jsonbArg(artifacts), jobID)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}
