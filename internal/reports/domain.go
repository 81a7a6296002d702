package reports

import "time"

// Status tracks the lifecycle of a support report.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusClosed     Status = "closed"
)

// ValidStatus reports whether s is a known status value.
func ValidStatus(s Status) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// canTransition encodes the allowed status moves. Closed reports can be
// reopened by staff, which lands them back in in_progress.
func canTransition(from, to Status) bool {
	switch from {
	case StatusOpen:
		return to == StatusInProgress || to == StatusClosed
	case StatusInProgress:
		return to == StatusClosed
	case StatusClosed:
		return to == StatusInProgress
	}
	return false
}

// Report is a support ticket raised by a player in-game or via the panel.
type Report struct {
	ID         int64      `json:"id"`
	AuthorID   string     `json:"author_id"`
	AuthorName string     `json:"author_name"`
	Subject    string     `json:"subject"`
	Body       string     `json:"body"`
	Status     Status     `json:"status"`
	ClaimedBy  *string    `json:"claimed_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
}

// Message is one entry in a report's conversation thread.
type Message struct {
	ID        int64     `json:"id"`
	ReportID  int64     `json:"report_id"`
	AuthorID  string    `json:"author_id"`
	FromStaff bool      `json:"from_staff"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFilter narrows report listings.
type ListFilter struct {
	Status   Status
	AuthorID string
	Claimed  *bool
}
