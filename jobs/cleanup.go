package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ftwrp/companion/internal/audit"
)

// defaultAuditRetentionDays is used when the task payload carries no window.
const defaultAuditRetentionDays = 180

// SessionCleanupJob deletes expired session rows from postgres. Redis
// entries expire on their own; the postgres copy exists for auditing and
// needs an explicit sweep.
type SessionCleanupJob struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewSessionCleanupJob constructs the job.
func NewSessionCleanupJob(pool *pgxpool.Pool, logger *slog.Logger) *SessionCleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionCleanupJob{pool: pool, logger: logger}
}

// Handle processes TaskSessionCleanup tasks.
func (j *SessionCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	tag, err := j.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		j.logger.Error("session cleanup", slog.Any("error", err))
		return err
	}
	j.logger.Info("session cleanup", slog.Int64("removed", tag.RowsAffected()))
	return nil
}

// AuditPurgeJob trims audit log entries past the retention window.
type AuditPurgeJob struct {
	repo   *audit.Repository
	logger *slog.Logger
}

// NewAuditPurgeJob constructs the job.
func NewAuditPurgeJob(repo *audit.Repository, logger *slog.Logger) *AuditPurgeJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditPurgeJob{repo: repo, logger: logger}
}

// Handle processes TaskAuditPurge tasks.
func (j *AuditPurgeJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload AuditPurgePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	days := payload.RetentionDays
	if days <= 0 {
		days = defaultAuditRetentionDays
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	removed, err := j.repo.PurgeBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("audit purge", slog.Any("error", err))
		return err
	}
	j.logger.Info("audit purge", slog.Int64("removed", removed), slog.Int("retention_days", days))
	return nil
}
