package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-voiceagent/internal/models"
)

type fakeQueue struct {
	due []models.Job

	claimed     []string
	unclaimable map[string]bool
	placed      map[string]string
	rescheduled map[string]time.Time
	failed      map[string]string
	lastErrors  map[string]string
	dueErr      error
}

func newFakeQueue(jobs ...models.Job) *fakeQueue {
	return &fakeQueue{
		due:         jobs,
		unclaimable: map[string]bool{},
		placed:      map[string]string{},
		rescheduled: map[string]time.Time{},
		failed:      map[string]string{},
		lastErrors:  map[string]string{},
	}
}

func (f *fakeQueue) DueJobs(_ context.Context, limit int) ([]models.Job, error) {
	if f.dueErr != nil {
		return nil, f.dueErr
	}
	if len(f.due) > limit {
		return f.due[:limit], nil
	}
	return f.due, nil
}

func (f *fakeQueue) ClaimJob(_ context.Context, jobID string) (int, bool, error) {
	if f.unclaimable[jobID] {
		return 0, false, nil
	}
	f.claimed = append(f.claimed, jobID)
	for i := range f.due {
		if f.due[i].ID == jobID {
			f.due[i].Attempts++
			return f.due[i].Attempts, true, nil
		}
	}
	return 1, true, nil
}

func (f *fakeQueue) RecordCallPlaced(_ context.Context, jobID, callSID string) error {
	f.placed[jobID] = callSID
	return nil
}

func (f *fakeQueue) RescheduleJob(_ context.Context, jobID string, nextRun time.Time, lastErr string) error {
	f.rescheduled[jobID] = nextRun
	f.lastErrors[jobID] = lastErr
	return nil
}

func (f *fakeQueue) FailJobPermanently(_ context.Context, jobID, lastErr string) error {
	f.failed[jobID] = lastErr
	return nil
}

type fakeCaller struct {
	err   error
	calls []string
	sid   string
}

func (f *fakeCaller) PlaceCall(_ context.Context, to, voiceURL, statusURL string) (string, error) {
	f.calls = append(f.calls, to+"|"+voiceURL+"|"+statusURL)
	if f.err != nil {
		return "", f.err
	}
	if f.sid == "" {
		f.sid = "CA1"
	}
	return f.sid, nil
}

type fakeAlerter struct {
	jobs []string
}

func (f *fakeAlerter) JobFailed(job *models.Job, _ string) error {
	f.jobs = append(f.jobs, job.ID)
	return nil
}

func testConfig() Config {
	return Config{
		BaseURL:     "https://agent.example.com",
		Interval:    time.Second,
		Limit:       10,
		MaxAttempts: 3,
	}
}

func job(id string) models.Job {
	return models.Job{ID: id, PhoneE164: "+353871234567", Status: models.JobQueued}
}

func TestRunOncePlacesCalls(t *testing.T) {
	q := newFakeQueue(job("j1"), job("j2"))
	caller := &fakeCaller{sid: "CA42"}
	d := New(q, caller, nil, testConfig())

	placed := d.RunOnce(context.Background())

	assert.Equal(t, 2, placed)
	assert.Equal(t, "CA42", q.placed["j1"])
	require.Len(t, caller.calls, 2)
	assert.Contains(t, caller.calls[0], "https://agent.example.com/voice/qualify?job_id=j1")
	assert.Contains(t, caller.calls[0], "https://agent.example.com/voice/status")
}

func TestLostClaimSkipsJob(t *testing.T) {
	q := newFakeQueue(job("j1"))
	q.unclaimable["j1"] = true
	caller := &fakeCaller{}
	d := New(q, caller, nil, testConfig())

	placed := d.RunOnce(context.Background())

	assert.Equal(t, 0, placed)
	assert.Empty(t, caller.calls, "a job claimed elsewhere is never dialed twice")
}

func TestPlacementFailureReschedules(t *testing.T) {
	q := newFakeQueue(job("j1"))
	d := New(q, &fakeCaller{err: errors.New("gateway 500")}, nil, testConfig())

	before := time.Now()
	d.RunOnce(context.Background())

	next, ok := q.rescheduled["j1"]
	require.True(t, ok)
	assert.Empty(t, q.failed)
	assert.Contains(t, q.lastErrors["j1"], "gateway 500")

	// first attempt backs off 2 minutes
	delay := next.Sub(before)
	assert.Greater(t, delay, time.Minute)
	assert.Less(t, delay, 3*time.Minute)
}

func TestExhaustedAttemptsFailPermanentlyAndAlert(t *testing.T) {
	j := job("j1")
	j.Attempts = 2 // claim bumps to 3, the configured max
	q := newFakeQueue(j)
	alerter := &fakeAlerter{}
	d := New(q, &fakeCaller{err: errors.New("number unreachable")}, alerter, testConfig())

	d.RunOnce(context.Background())

	assert.Empty(t, q.rescheduled)
	assert.Contains(t, q.failed["j1"], "number unreachable")
	assert.Equal(t, []string{"j1"}, alerter.jobs)
}

func TestQueueErrorIsNonFatal(t *testing.T) {
	q := newFakeQueue()
	q.dueErr = errors.New("db down")
	d := New(q, &fakeCaller{}, nil, testConfig())

	assert.Equal(t, 0, d.RunOnce(context.Background()))
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 2 * time.Minute},
		{1, 2 * time.Minute},
		{2, 4 * time.Minute},
		{3, 8 * time.Minute},
		{5, 32 * time.Minute},
		{6, 60 * time.Minute},
		{10, 60 * time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Backoff(tt.attempts), "attempts=%d", tt.attempts)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	q := newFakeQueue()
	d := New(q, &fakeCaller{}, nil, Config{Interval: 5 * time.Millisecond, Limit: 1, MaxAttempts: 3, BaseURL: "http://x"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after cancel")
	}
}
