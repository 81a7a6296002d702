package leaderboard

import "time"

// Kind selects which ranking a board shows.
type Kind string

const (
	KindWealth       Kind = "wealth"
	KindVehicles     Kind = "vehicles"
	KindReports      Kind = "reports"
	KindApplications Kind = "applications"
)

// ValidKind reports whether k is a known board kind.
func ValidKind(k Kind) bool {
	switch k {
	case KindWealth, KindVehicles, KindReports, KindApplications:
		return true
	}
	return false
}

// Entry is one ranked row on a board. SubjectID is a player id for the
// player boards and a staff user id for the staff boards.
type Entry struct {
	Rank         int    `json:"rank"`
	SubjectID    string `json:"subject_id"`
	Name         string `json:"name"`
	Job          string `json:"job,omitempty"`
	Score        int64  `json:"score"`
	DisplayScore string `json:"display_score"`
}

// Board is a generated ranking snapshot.
type Board struct {
	Kind        Kind      `json:"kind"`
	GeneratedAt time.Time `json:"generated_at"`
	Entries     []Entry   `json:"entries"`
}

// Overview bundles every board for the panel front page.
type Overview struct {
	Wealth       Board `json:"wealth"`
	Vehicles     Board `json:"vehicles"`
	Reports      Board `json:"reports"`
	Applications Board `json:"applications"`
}
