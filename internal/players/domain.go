package players

import "time"

// Player is a game-server character record surfaced in the panel.
type Player struct {
	ID         int64      `json:"id"`
	Identifier string     `json:"identifier"`
	Name       string     `json:"name"`
	Job        string     `json:"job"`
	JobGrade   int        `json:"job_grade"`
	Cash       int64      `json:"cash"`
	Bank       int64      `json:"bank"`
	Banned     bool       `json:"banned"`
	BanReason  *string    `json:"ban_reason,omitempty"`
	BannedBy   *string    `json:"banned_by,omitempty"`
	LastSeen   *time.Time `json:"last_seen,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Vehicle is an owned vehicle tied to a player.
type Vehicle struct {
	ID       int64  `json:"id"`
	PlayerID int64  `json:"player_id"`
	Plate    string `json:"plate"`
	Model    string `json:"model"`
	Garage   string `json:"garage"`
	Stored   bool   `json:"stored"`
}

// ListQuery narrows and orders the roster listing.
type ListQuery struct {
	Search string
	Job    string
	Banned *bool
	Sort   string
	Desc   bool
}

// sortColumns whitelists sortable fields against SQL injection.
var sortColumns = map[string]string{
	"name":      "name",
	"job":       "job",
	"cash":      "cash",
	"bank":      "bank",
	"last_seen": "last_seen",
}
