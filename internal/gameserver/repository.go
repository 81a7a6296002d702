package gameserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists restart requests.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateRestart inserts a pending restart request.
func (r *Repository) CreateRestart(ctx context.Context, requestedBy, reason string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO restart_requests (requested_by, reason, status, created_at)
		VALUES ($1, $2, 'pending', NOW())
		RETURNING id`, requestedBy, reason).Scan(&id)
	return id, err
}

// PendingRestart returns the open restart request, if any.
func (r *Repository) PendingRestart(ctx context.Context) (*RestartRequest, error) {
	var req RestartRequest
	err := r.pool.QueryRow(ctx, `
		SELECT id, requested_by, reason, status, created_at, resolved_at
		FROM restart_requests
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT 1`).
		Scan(&req.ID, &req.RequestedBy, &req.Reason, &req.Status, &req.CreatedAt, &req.ResolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoPendingRestart
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ResolveRestart closes a pending request with the given outcome.
func (r *Repository) ResolveRestart(ctx context.Context, id int64, status RestartStatus, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE restart_requests SET status = $2, resolved_at = $3
		WHERE id = $1 AND status = 'pending'`, id, string(status), at.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoPendingRestart
	}
	return nil
}

// ListRestarts returns recent restart requests, newest first.
func (r *Repository) ListRestarts(ctx context.Context, limit int) ([]RestartRequest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, requested_by, reason, status, created_at, resolved_at
		FROM restart_requests
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list restarts: %w", err)
	}
	defer rows.Close()

	var out []RestartRequest
	for rows.Next() {
		var req RestartRequest
		if err := rows.Scan(&req.ID, &req.RequestedBy, &req.Reason, &req.Status, &req.CreatedAt, &req.ResolvedAt); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

var _ RestartStore = (*Repository)(nil)
