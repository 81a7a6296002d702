package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the audit_logs table written by shared.AuditLogger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TimelineWindow returns up to limit rows inside the filter window,
// newest first, skipping offset rows.
func (r *Repository) TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]TimelineRow, error) {
	cond, args := buildConditions(filters)
	query := fmt.Sprintf(`
		SELECT a.occurred_at, a.actor_id, COALESCE(u.username, ''), a.action, a.entity, a.entity_id, a.meta
		FROM audit_logs a
		LEFT JOIN users u ON u.id = a.actor_id
		WHERE %s
		ORDER BY a.occurred_at DESC, a.id DESC
		OFFSET $%d LIMIT $%d`, cond, len(args)+1, len(args)+2)
	args = append(args, offset, limit)
	return r.query(ctx, query, args)
}

// TimelineAll returns every row in the filter window for exports.
func (r *Repository) TimelineAll(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	cond, args := buildConditions(filters)
	query := fmt.Sprintf(`
		SELECT a.occurred_at, a.actor_id, COALESCE(u.username, ''), a.action, a.entity, a.entity_id, a.meta
		FROM audit_logs a
		LEFT JOIN users u ON u.id = a.actor_id
		WHERE %s
		ORDER BY a.occurred_at DESC, a.id DESC`, cond)
	return r.query(ctx, query, args)
}

// PurgeBefore deletes audit rows older than the cutoff and reports how
// many were removed.
func (r *Repository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func buildConditions(filters TimelineFilters) (string, []any) {
	where := []string{"1=1"}
	args := []any{}
	idx := 1
	if !filters.From.IsZero() {
		where = append(where, fmt.Sprintf("a.occurred_at >= $%d", idx))
		args = append(args, filters.From.UTC())
		idx++
	}
	if !filters.To.IsZero() {
		// The upper bound is a date, include the whole day.
		where = append(where, fmt.Sprintf("a.occurred_at < $%d", idx))
		args = append(args, filters.To.UTC().Add(24*time.Hour))
		idx++
	}
	if v := strings.TrimSpace(filters.Actor); v != "" {
		where = append(where, fmt.Sprintf("a.actor_id = $%d", idx))
		args = append(args, v)
		idx++
	}
	if v := strings.TrimSpace(filters.Entity); v != "" {
		where = append(where, fmt.Sprintf("a.entity = $%d", idx))
		args = append(args, v)
		idx++
	}
	if v := strings.TrimSpace(filters.Action); v != "" {
		where = append(where, fmt.Sprintf("a.action = $%d", idx))
		args = append(args, v)
		idx++
	}
	return strings.Join(where, " AND "), args
}

func (r *Repository) query(ctx context.Context, query string, args []any) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit timeline: %w", err)
	}
	defer rows.Close()

	var out []TimelineRow
	for rows.Next() {
		var row TimelineRow
		if err := rows.Scan(&row.At, &row.Actor, &row.ActorName, &row.Action, &row.Entity, &row.EntityID, &row.Meta); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

var _ TimelineSource = (*Repository)(nil)
