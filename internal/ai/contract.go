package ai

import (
	"encoding/json"
	"strings"
)

// Response is the fixed per-turn contract. Every code path produces one, even
// when the provider fails or returns garbage.
type Response struct {
	AssistantText    string  `json:"assistant_text"`
	ExtractedUpdates Updates `json:"extracted_updates"`
	NextState        string  `json:"next_state"`
	IsComplete       bool    `json:"is_complete"`
	Confidence       float64 `json:"confidence"`
}

// Updates carries per-table partial records extracted from the conversation.
// Nil sections mean "nothing extracted for that table".
type Updates struct {
	Profile      *ProfileUpdate      `json:"people_profiles,omitempty"`
	Role         *RoleUpdate         `json:"role_assignments,omitempty"`
	Organization *OrganizationUpdate `json:"organizations,omitempty"`
	Posting      *PostingUpdate      `json:"role_postings,omitempty"`
}

func (u Updates) Empty() bool {
	return u.Profile == nil && u.Role == nil && u.Organization == nil && u.Posting == nil
}

type ProfileUpdate struct {
	FirstName  *string    `json:"first_name"`
	LastName   *string    `json:"last_name"`
	Headline   *string    `json:"headline"`
	Location   *string    `json:"location"`
	Industries StringList `json:"industries"`
}

type RoleUpdate struct {
	Role       string   `json:"role"`
	Confidence *float64 `json:"confidence"`
}

type OrganizationUpdate struct {
	Name     *string `json:"name"`
	Industry *string `json:"industry"`
	Location *string `json:"location"`
}

type PostingUpdate struct {
	Title          *string `json:"title"`
	Location       *string `json:"location"`
	EngagementType *string `json:"engagement_type"`
}

// StringList accepts either a JSON string or an array of strings; the provider
// is inconsistent about which it sends for industries.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*s = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*s = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	if single == "" {
		*s = nil
		return nil
	}
	*s = []string{single}
	return nil
}

// RoleConfidence returns the asserted confidence clamped to [0,1], defaulting
// to 0.5 when the provider omitted it.
func (r *RoleUpdate) RoleConfidence() float64 {
	if r.Confidence == nil {
		return 0.5
	}
	return clamp01(*r.Confidence)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
