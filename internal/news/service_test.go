package news

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftwrp/companion/internal/shared"
	_ "github.com/ftwrp/companion/testing"
)

type mockStore struct {
	posts  map[int64]*Post
	nextID int64
}

func newMockStore() *mockStore {
	return &mockStore{posts: make(map[int64]*Post)}
}

func (m *mockStore) List(ctx context.Context, publishedOnly bool, page shared.Pagination) ([]Post, int, error) {
	var out []Post
	for _, p := range m.posts {
		if publishedOnly && !p.Published {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (m *mockStore) Get(ctx context.Context, id int64) (*Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *mockStore) GetBySlug(ctx context.Context, slug string) (*Post, error) {
	for _, p := range m.posts {
		if p.Slug == slug {
			clone := *p
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	_, err := m.GetBySlug(ctx, slug)
	return err == nil, nil
}

func (m *mockStore) Create(ctx context.Context, p Post) (int64, error) {
	m.nextID++
	p.ID = m.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.posts[p.ID] = &p
	return p.ID, nil
}

func (m *mockStore) Update(ctx context.Context, id int64, title, body string, published bool, publishedAt *time.Time) error {
	p, ok := m.posts[id]
	if !ok {
		return ErrNotFound
	}
	p.Title = title
	p.Body = body
	p.Published = published
	p.PublishedAt = publishedAt
	return nil
}

func (m *mockStore) Delete(ctx context.Context, id int64) error {
	if _, ok := m.posts[id]; !ok {
		return ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Server Maintenance: Friday Night!": "server-maintenance-friday-night",
		"  Mixed   CASE  Title  ":           "mixed-case-title",
		"100% Uptime??":                     "100-uptime",
		"---":                               "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "input %q", in)
	}
}

func TestCreateDraftHasNoPublishedAt(t *testing.T) {
	svc := NewService(newMockStore())

	post, err := svc.Create(context.Background(), "editor-1", "Summer event schedule", "The full schedule follows.", false)
	require.NoError(t, err)
	assert.False(t, post.Published)
	assert.Nil(t, post.PublishedAt)
	assert.Equal(t, "summer-event-schedule", post.Slug)
}

func TestCreateDuplicateTitleGetsNumberedSlug(t *testing.T) {
	svc := NewService(newMockStore())

	first, err := svc.Create(context.Background(), "editor-1", "Patch notes", "Week one changes.", true)
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), "editor-1", "Patch notes", "Week two changes.", true)
	require.NoError(t, err)

	assert.Equal(t, "patch-notes", first.Slug)
	assert.Equal(t, "patch-notes-2", second.Slug)
}

func TestPublishStampsTimestampOnce(t *testing.T) {
	store := newMockStore()
	svc := NewService(store)

	post, err := svc.Create(context.Background(), "editor-1", "Launch day", "We are live.", false)
	require.NoError(t, err)

	published, err := svc.Update(context.Background(), post.ID, "Launch day", "We are live.", true)
	require.NoError(t, err)
	require.NotNil(t, published.PublishedAt)
	firstStamp := *published.PublishedAt

	// Later edits keep the original publication time.
	edited, err := svc.Update(context.Background(), post.ID, "Launch day", "We are live, updated.", true)
	require.NoError(t, err)
	require.NotNil(t, edited.PublishedAt)
	assert.Equal(t, firstStamp, *edited.PublishedAt)
}

func TestGetPublishedHidesDrafts(t *testing.T) {
	svc := NewService(newMockStore())

	post, err := svc.Create(context.Background(), "editor-1", "Hidden draft", "Not ready yet.", false)
	require.NoError(t, err)

	_, err = svc.GetPublished(context.Background(), post.Slug)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUnknownPost(t *testing.T) {
	svc := NewService(newMockStore())

	err := svc.Delete(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
}
