package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ftwrp/companion/internal/shared"
)

// Repository provides PostgreSQL backed persistence for reports.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const reportColumns = `r.id, r.author_id, COALESCE(u.username, ''), r.subject, r.body, r.status, r.claimed_by, r.created_at, r.updated_at, r.closed_at`

// List returns reports matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter, page shared.Pagination) ([]Report, int, error) {
	where := []string{"1=1"}
	args := []any{}
	idx := 1
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("r.status = $%d", idx))
		args = append(args, string(filter.Status))
		idx++
	}
	if filter.AuthorID != "" {
		where = append(where, fmt.Sprintf("r.author_id = $%d", idx))
		args = append(args, filter.AuthorID)
		idx++
	}
	if filter.Claimed != nil {
		if *filter.Claimed {
			where = append(where, "r.claimed_by IS NOT NULL")
		} else {
			where = append(where, "r.claimed_by IS NULL")
		}
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reports r WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM reports r
		LEFT JOIN users u ON u.id = r.author_id
		WHERE %s
		ORDER BY r.created_at DESC
		LIMIT $%d OFFSET $%d`, reportColumns, cond, idx, idx+1)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		var rep Report
		if err := rows.Scan(&rep.ID, &rep.AuthorID, &rep.AuthorName, &rep.Subject, &rep.Body, &rep.Status, &rep.ClaimedBy, &rep.CreatedAt, &rep.UpdatedAt, &rep.ClosedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, rep)
	}
	return out, total, rows.Err()
}

// Get fetches a single report by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Report, error) {
	var rep Report
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM reports r
		LEFT JOIN users u ON u.id = r.author_id
		WHERE r.id = $1`, reportColumns), id).
		Scan(&rep.ID, &rep.AuthorID, &rep.AuthorName, &rep.Subject, &rep.Body, &rep.Status, &rep.ClaimedBy, &rep.CreatedAt, &rep.UpdatedAt, &rep.ClosedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// Create inserts a new report and returns its id.
func (r *Repository) Create(ctx context.Context, rep Report) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO reports (author_id, subject, body, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id`,
		rep.AuthorID, rep.Subject, rep.Body, string(rep.Status)).Scan(&id)
	return id, err
}

// UpdateStatus moves a report to a new status; closedAt may be nil.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status Status, closedAt *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE reports SET status = $2, closed_at = $3, updated_at = NOW() WHERE id = $1`,
		id, string(status), closedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Claim records the staff member handling the report.
func (r *Repository) Claim(ctx context.Context, id int64, staffID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE reports SET claimed_by = $2, updated_at = NOW() WHERE id = $1`,
		id, staffID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Messages returns the conversation thread for a report in order.
func (r *Repository) Messages(ctx context.Context, reportID int64) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, report_id, author_id, from_staff, body, created_at
		FROM report_messages
		WHERE report_id = $1
		ORDER BY created_at ASC, id ASC`, reportID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ReportID, &m.AuthorID, &m.FromStaff, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AddMessage appends a message to the thread and bumps the report.
func (r *Repository) AddMessage(ctx context.Context, msg Message) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO report_messages (report_id, author_id, from_staff, body, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id`,
		msg.ReportID, msg.AuthorID, msg.FromStaff, msg.Body).Scan(&id)
	if err != nil {
		return 0, err
	}
	_, err = r.pool.Exec(ctx, `UPDATE reports SET updated_at = NOW() WHERE id = $1`, msg.ReportID)
	return id, err
}

// CountOpenByAuthor returns the number of non-closed reports for a player.
func (r *Repository) CountOpenByAuthor(ctx context.Context, authorID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM reports WHERE author_id = $1 AND status <> 'closed'`, authorID).Scan(&n)
	return n, err
}

var _ Store = (*Repository)(nil)
