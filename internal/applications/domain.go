package applications

import "time"

// Status tracks the review lifecycle of a whitelist application.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// Application is a whitelist request submitted by a prospective player.
type Application struct {
	ID            int64      `json:"id"`
	ApplicantID   string     `json:"applicant_id"`
	ApplicantName string     `json:"applicant_name"`
	CharacterName string     `json:"character_name"`
	Backstory     string     `json:"backstory"`
	Status        Status     `json:"status"`
	ReviewerID    *string    `json:"reviewer_id,omitempty"`
	ReviewNote    *string    `json:"review_note,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
}
