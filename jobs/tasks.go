package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskLeaderboardRefresh rebuilds the cached ranking snapshots.
	TaskLeaderboardRefresh = "leaderboard:refresh"
	// TaskSessionCleanup removes expired session rows from postgres.
	TaskSessionCleanup = "sessions:cleanup"
	// TaskAuditPurge trims old audit log entries.
	TaskAuditPurge = "audit:purge"
)

// LeaderboardRefreshPayload parameterises a ranking rebuild.
type LeaderboardRefreshPayload struct {
	Reason string `json:"reason"`
}

// NewLeaderboardRefreshTask constructs an Asynq task.
func NewLeaderboardRefreshTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(LeaderboardRefreshPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeaderboardRefresh, data), nil
}

// AuditPurgePayload carries the retention window in days.
type AuditPurgePayload struct {
	RetentionDays int `json:"retention_days"`
}

// NewAuditPurgeTask constructs an Asynq task.
func NewAuditPurgeTask(retentionDays int) (*asynq.Task, error) {
	data, err := json.Marshal(AuditPurgePayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPurge, data), nil
}

// NewSessionCleanupTask constructs an Asynq task.
func NewSessionCleanupTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskSessionCleanup, nil), nil
}
