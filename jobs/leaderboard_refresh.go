package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/ftwrp/companion/internal/leaderboard"
)

// LeaderboardRefreshJob rebuilds cached ranking snapshots on a schedule.
type LeaderboardRefreshJob struct {
	service *leaderboard.Service
	logger  *slog.Logger
}

// NewLeaderboardRefreshJob constructs the job.
func NewLeaderboardRefreshJob(service *leaderboard.Service, logger *slog.Logger) *LeaderboardRefreshJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &LeaderboardRefreshJob{service: service, logger: logger}
}

// Handle processes TaskLeaderboardRefresh tasks.
func (j *LeaderboardRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload LeaderboardRefreshPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if err := j.service.Refresh(ctx); err != nil {
		j.logger.Error("leaderboard refresh", slog.Any("error", err))
		return err
	}
	j.logger.Info("leaderboard refreshed", slog.String("reason", payload.Reason))
	return nil
}
