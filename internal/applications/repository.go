package applications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ftwrp/companion/internal/shared"
)

// Repository provides PostgreSQL backed persistence for applications.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const applicationColumns = `a.id, a.applicant_id, COALESCE(u.username, ''), a.character_name, a.backstory, a.status, a.reviewer_id, a.review_note, a.created_at, a.reviewed_at`

func scanApplication(row pgx.Row) (*Application, error) {
	var app Application
	err := row.Scan(&app.ID, &app.ApplicantID, &app.ApplicantName, &app.CharacterName, &app.Backstory, &app.Status, &app.ReviewerID, &app.ReviewNote, &app.CreatedAt, &app.ReviewedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// List returns applications filtered by status, newest first.
func (r *Repository) List(ctx context.Context, status Status, page shared.Pagination) ([]Application, int, error) {
	cond := "1=1"
	args := []any{}
	if status != "" {
		cond = "a.status = $1"
		args = append(args, string(status))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM applications a WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM applications a
		LEFT JOIN users u ON u.id = a.applicant_id
		WHERE %s
		ORDER BY a.created_at DESC
		LIMIT $%d OFFSET $%d`, applicationColumns, cond, len(args)+1, len(args)+2)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *app)
	}
	return out, total, rows.Err()
}

// Get fetches a single application.
func (r *Repository) Get(ctx context.Context, id int64) (*Application, error) {
	return scanApplication(r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM applications a
		LEFT JOIN users u ON u.id = a.applicant_id
		WHERE a.id = $1`, applicationColumns), id))
}

// GetPendingByApplicant returns the applicant's pending application if any.
func (r *Repository) GetPendingByApplicant(ctx context.Context, applicantID string) (*Application, error) {
	return scanApplication(r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM applications a
		LEFT JOIN users u ON u.id = a.applicant_id
		WHERE a.applicant_id = $1 AND a.status = 'pending'`, applicationColumns), applicantID))
}

// Create inserts a new pending application.
func (r *Repository) Create(ctx context.Context, app Application) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO applications (applicant_id, character_name, backstory, status, created_at)
		VALUES ($1, $2, $3, 'pending', NOW())
		RETURNING id`,
		app.ApplicantID, app.CharacterName, app.Backstory).Scan(&id)
	return id, err
}

// Review stores the verdict. Only pending rows can be reviewed, which makes
// concurrent double-reviews a no-op for the loser.
func (r *Repository) Review(ctx context.Context, id int64, status Status, reviewerID, note string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE applications
		SET status = $2, reviewer_id = $3, review_note = NULLIF($4, ''), reviewed_at = $5
		WHERE id = $1 AND status = 'pending'`,
		id, string(status), reviewerID, note, at.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyReviewed
	}
	return nil
}

var _ Store = (*Repository)(nil)
