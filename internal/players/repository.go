package players

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ftwrp/companion/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the player roster.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const playerColumns = `id, identifier, name, job, job_grade, cash, bank, banned, ban_reason, banned_by, last_seen, created_at`

func scanPlayer(row pgx.Row) (*Player, error) {
	var p Player
	err := row.Scan(&p.ID, &p.Identifier, &p.Name, &p.Job, &p.JobGrade, &p.Cash, &p.Bank, &p.Banned, &p.BanReason, &p.BannedBy, &p.LastSeen, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns roster entries matching the query.
func (r *Repository) List(ctx context.Context, q ListQuery, page shared.Pagination) ([]Player, int, error) {
	where := []string{"1=1"}
	args := []any{}
	idx := 1
	if q.Search != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR identifier ILIKE $%d)", idx, idx))
		args = append(args, "%"+q.Search+"%")
		idx++
	}
	if q.Job != "" {
		where = append(where, fmt.Sprintf("job = $%d", idx))
		args = append(args, q.Job)
		idx++
	}
	if q.Banned != nil {
		where = append(where, fmt.Sprintf("banned = $%d", idx))
		args = append(args, *q.Banned)
		idx++
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM players WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count players: %w", err)
	}

	order, ok := sortColumns[q.Sort]
	if !ok {
		order = "name"
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT %s FROM players
		WHERE %s
		ORDER BY %s %s NULLS LAST, id ASC
		LIMIT $%d OFFSET $%d`, playerColumns, cond, order, dir, idx, idx+1)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var out []Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

// Get fetches a roster entry by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Player, error) {
	return scanPlayer(r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM players WHERE id = $1`, playerColumns), id))
}

// Vehicles returns the player's garage contents.
func (r *Repository) Vehicles(ctx context.Context, playerID int64) ([]Vehicle, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, player_id, plate, model, garage, stored
		FROM vehicles WHERE player_id = $1 ORDER BY plate ASC`, playerID)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	var out []Vehicle
	for rows.Next() {
		var v Vehicle
		if err := rows.Scan(&v.ID, &v.PlayerID, &v.Plate, &v.Model, &v.Garage, &v.Stored); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// AdjustBalance applies signed deltas to the player's cash and bank. The
// CHECK constraints on the table keep balances non-negative.
func (r *Repository) AdjustBalance(ctx context.Context, id int64, cashDelta, bankDelta int64) (*Player, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE players SET cash = cash + $2, bank = bank + $3
		WHERE id = $1
		RETURNING %s`, playerColumns), id, cashDelta, bankDelta)
	return scanPlayer(row)
}

// SetBan flips the ban flag with its metadata.
func (r *Repository) SetBan(ctx context.Context, id int64, banned bool, reason, actorID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE players
		SET banned = $2, ban_reason = NULLIF($3, ''), banned_by = NULLIF($4, '')
		WHERE id = $1`, id, banned, reason, actorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Store = (*Repository)(nil)
