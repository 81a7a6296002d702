package gameserver

import "time"

// Status is the cached snapshot served to the panel.
type Status struct {
	Online     bool           `json:"online"`
	Hostname   string         `json:"hostname,omitempty"`
	Gametype   string         `json:"gametype,omitempty"`
	Mapname    string         `json:"mapname,omitempty"`
	Players    int            `json:"players"`
	MaxPlayers int            `json:"max_players"`
	PlayerList []OnlinePlayer `json:"player_list,omitempty"`
	CheckedAt  time.Time      `json:"checked_at"`
}

// RestartStatus tracks the lifecycle of a restart request.
type RestartStatus string

const (
	RestartPending   RestartStatus = "pending"
	RestartCompleted RestartStatus = "completed"
	RestartCancelled RestartStatus = "cancelled"
)

// RestartRequest is a staff-initiated server restart record. The actual
// restart is performed out of band by the host tooling, which marks the
// row completed.
type RestartRequest struct {
	ID          int64         `json:"id"`
	RequestedBy string        `json:"requested_by"`
	Reason      string        `json:"reason"`
	Status      RestartStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty"`
}
