package models

import (
	"time"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

type Role string

const (
	RoleTalent Role = "talent"
	RoleHirer  Role = "hirer"
)

// Job is one queued request to place an outbound call. Mutated only by the
// dispatcher and the status callback.
type Job struct {
	ID            string     `json:"id"`
	UserID        *string    `json:"user_id,omitempty"`
	PhoneE164     string     `json:"phone_e164"`
	Status        JobStatus  `json:"status"`
	Attempts      int        `json:"attempts"`
	DedupeKey     string     `json:"dedupe_key"`
	NextRunAt     *time.Time `json:"next_run_at,omitempty"`
	ThreadID      *string    `json:"thread_id,omitempty"`
	InteractionID *string    `json:"interaction_id,omitempty"`
	CallSID       *string    `json:"call_sid,omitempty"`
	Artifacts     []byte     `json:"artifacts,omitempty"` // Raw JSONB
	LastError     *string    `json:"last_error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type Thread struct {
	ID            string    `json:"id"`
	PrimaryUserID *string   `json:"primary_user_id,omitempty"`
	Subject       string    `json:"subject"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// Interaction is the durable record of a single phone call. Created at most
// once per provider call reference, never deleted.
type Interaction struct {
	ID          string     `json:"id"`
	ThreadID    *string    `json:"thread_id,omitempty"`
	UserID      *string    `json:"user_id,omitempty"`
	Channel     string     `json:"channel"`
	Direction   string     `json:"direction"`
	Provider    string     `json:"provider"`
	ProviderRef string     `json:"provider_ref"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
}

// Turn is one utterance within an interaction. Append-only; sequence numbers
// are 1-based, dense and monotonic per interaction.
type Turn struct {
	ID            string    `json:"id"`
	InteractionID string    `json:"interaction_id"`
	ThreadID      *string   `json:"thread_id,omitempty"`
	Speaker       Speaker   `json:"speaker"`
	Text          string    `json:"text"`
	Sequence      int       `json:"turn_sequence"`
	Artifacts     []byte    `json:"artifacts_json,omitempty"` // Raw JSONB
	RawPayload    []byte    `json:"raw_payload,omitempty"`    // Raw JSONB
	CreatedAt     time.Time `json:"created_at"`
}

type Profile struct {
	UserID           string    `json:"user_id"`
	FirstName        *string   `json:"first_name,omitempty"`
	LastName         *string   `json:"last_name,omitempty"`
	Headline         *string   `json:"headline,omitempty"`
	Location         *string   `json:"location,omitempty"`
	Industries       []string  `json:"industries,omitempty"`
	AvailabilityType *string   `json:"availability_type,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ProfilePatch is a partial profile update. Nil fields are left untouched.
type ProfilePatch struct {
	FirstName        *string
	LastName         *string
	Headline         *string
	Location         *string
	Industries       []string
	AvailabilityType *string
}

type RoleAssignment struct {
	UserID     string    `json:"user_id"`
	Role       Role      `json:"role"`
	Confidence float64   `json:"confidence"`
	Evidence   []byte    `json:"evidence,omitempty"` // Raw JSONB
	UpdatedAt  time.Time `json:"updated_at"`
}

type Organization struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Industry        *string   `json:"industry,omitempty"`
	Location        *string   `json:"location,omitempty"`
	CreatedByUserID *string   `json:"created_by_user_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type RolePosting struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	OrganizationID *string   `json:"organization_id,omitempty"`
	Title          *string   `json:"title,omitempty"`
	Location       *string   `json:"location,omitempty"`
	EngagementType *string   `json:"engagement_type,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PostingPatch is a partial role-posting update. Nil fields are left untouched.
type PostingPatch struct {
	OrganizationID *string
	Title          *string
	Location       *string
	EngagementType *string
}

// ValidRole reports whether s is one of the two known role polarities.
func ValidRole(s string) bool {
	return s == string(RoleTalent) || s == string(RoleHirer)
}
