package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository aggregates ranking data from the game and staff tables.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TopByWealth ranks unbanned players by combined cash and bank balance.
func (r *Repository) TopByWealth(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, name, job, cash + bank AS score
		FROM players
		WHERE NOT banned
		ORDER BY score DESC, name ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("wealth ranking: %w", err)
	}
	return scanEntries(rows)
}

// TopByVehicles ranks unbanned players by garage size.
func (r *Repository) TopByVehicles(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id::text, p.name, p.job, COUNT(v.id) AS score
		FROM players p
		JOIN vehicles v ON v.player_id = p.id
		WHERE NOT p.banned
		GROUP BY p.id, p.name, p.job
		ORDER BY score DESC, p.name ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("vehicle ranking: %w", err)
	}
	return scanEntries(rows)
}

// TopStaffByReports ranks staff by reports they claimed and closed since the
// given cutoff. Credit goes to the claimant, not whoever flipped the status.
func (r *Repository) TopStaffByReports(ctx context.Context, since time.Time, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id::text, u.username, '' AS job, COUNT(*) AS score
		FROM reports rep
		JOIN users u ON u.id = rep.claimed_by
		WHERE rep.status = 'closed' AND rep.closed_at >= $1
		GROUP BY u.id, u.username
		ORDER BY score DESC, u.username ASC
		LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("report ranking: %w", err)
	}
	return scanEntries(rows)
}

// TopStaffByApplications ranks staff by applications reviewed since the given
// cutoff, approvals and denials alike.
func (r *Repository) TopStaffByApplications(ctx context.Context, since time.Time, limit int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id::text, u.username, '' AS job, COUNT(*) AS score
		FROM applications a
		JOIN users u ON u.id = a.reviewer_id
		WHERE a.reviewed_at >= $1
		GROUP BY u.id, u.username
		ORDER BY score DESC, u.username ASC
		LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("application ranking: %w", err)
	}
	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.SubjectID, &e.Name, &e.Job, &e.Score); err != nil {
			return nil, err
		}
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ Source = (*Repository)(nil)
