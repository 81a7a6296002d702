package news

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ftwrp/companion/internal/shared"
)

// Repository provides PostgreSQL backed persistence for news posts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const postColumns = `n.id, n.slug, n.title, n.body, n.author_id, COALESCE(u.username, ''), n.published, n.published_at, n.created_at, n.updated_at`

func scanPost(row pgx.Row) (*Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.Body, &p.AuthorID, &p.AuthorName, &p.Published, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns posts, optionally restricted to published ones.
func (r *Repository) List(ctx context.Context, publishedOnly bool, page shared.Pagination) ([]Post, int, error) {
	cond := "1=1"
	if publishedOnly {
		cond = "n.published = TRUE"
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM news_posts n WHERE `+cond).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM news_posts n
		LEFT JOIN users u ON u.id = n.author_id
		WHERE %s
		ORDER BY COALESCE(n.published_at, n.created_at) DESC
		LIMIT $1 OFFSET $2`, postColumns, cond), page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var out []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

// GetBySlug fetches a post by slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*Post, error) {
	return scanPost(r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM news_posts n
		LEFT JOIN users u ON u.id = n.author_id
		WHERE n.slug = $1`, postColumns), slug))
}

// Get fetches a post by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Post, error) {
	return scanPost(r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s FROM news_posts n
		LEFT JOIN users u ON u.id = n.author_id
		WHERE n.id = $1`, postColumns), id))
}

// SlugExists reports whether a slug is already taken.
func (r *Repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM news_posts WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}

// Create inserts a new post.
func (r *Repository) Create(ctx context.Context, p Post) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO news_posts (slug, title, body, author_id, published, published_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id`,
		p.Slug, p.Title, p.Body, p.AuthorID, p.Published, p.PublishedAt).Scan(&id)
	return id, err
}

// Update rewrites the mutable fields of a post.
func (r *Repository) Update(ctx context.Context, id int64, title, body string, published bool, publishedAt *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE news_posts
		SET title = $2, body = $3, published = $4, published_at = $5, updated_at = NOW()
		WHERE id = $1`, id, title, body, published, publishedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a post.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM news_posts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Store = (*Repository)(nil)
