package news

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/ftwrp/companion/internal/shared"
)

var ErrNotFound = errors.New("post not found")

// Store defines persistence operations used by the service.
type Store interface {
	List(ctx context.Context, publishedOnly bool, page shared.Pagination) ([]Post, int, error)
	Get(ctx context.Context, id int64) (*Post, error)
	GetBySlug(ctx context.Context, slug string) (*Post, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Create(ctx context.Context, p Post) (int64, error)
	Update(ctx context.Context, id int64, title, body string, published bool, publishedAt *time.Time) error
	Delete(ctx context.Context, id int64) error
}

// Service provides business logic for announcements.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService constructs a news service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// ListPublished returns published posts for the public feed.
func (s *Service) ListPublished(ctx context.Context, page shared.Pagination) ([]Post, int, error) {
	return s.store.List(ctx, true, page)
}

// ListAll returns every post including drafts.
func (s *Service) ListAll(ctx context.Context, page shared.Pagination) ([]Post, int, error) {
	return s.store.List(ctx, false, page)
}

// GetPublished fetches a published post by slug.
func (s *Service) GetPublished(ctx context.Context, slug string) (*Post, error) {
	p, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !p.Published {
		return nil, ErrNotFound
	}
	return p, nil
}

// Get fetches any post by id.
func (s *Service) Get(ctx context.Context, id int64) (*Post, error) {
	return s.store.Get(ctx, id)
}

// Create stores a new post, deriving a unique slug from the title.
func (s *Service) Create(ctx context.Context, authorID, title, body string, publish bool) (*Post, error) {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if title == "" || body == "" {
		return nil, fmt.Errorf("title and body are required")
	}

	slug, err := s.uniqueSlug(ctx, title)
	if err != nil {
		return nil, err
	}

	p := Post{
		Slug:      slug,
		Title:     title,
		Body:      body,
		AuthorID:  authorID,
		Published: publish,
	}
	if publish {
		t := s.now().UTC()
		p.PublishedAt = &t
	}
	id, err := s.store.Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	p.ID = id
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	return &p, nil
}

// Update rewrites a post. The slug is stable across edits so shared links
// keep working; first publication stamps published_at.
func (s *Service) Update(ctx context.Context, id int64, title, body string, publish bool) (*Post, error) {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if title == "" || body == "" {
		return nil, fmt.Errorf("title and body are required")
	}
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	publishedAt := existing.PublishedAt
	if publish && publishedAt == nil {
		t := s.now().UTC()
		publishedAt = &t
	}
	if err := s.store.Update(ctx, id, title, body, publish, publishedAt); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// Delete removes a post.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

func (s *Service) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := Slugify(title)
	if base == "" {
		base = "post"
	}
	slug := base
	for i := 2; ; i++ {
		exists, err := s.store.SlugExists(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("check slug: %w", err)
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// Slugify lowercases the title and collapses runs of non-alphanumerics
// into single hyphens.
func Slugify(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.Trim(b.String(), "-")
}
