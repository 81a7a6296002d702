package applications

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
	apps   map[int64]*Application
	nextID int64
}

func newMockStore() *mockStore {
	return &mockStore{apps: make(map[int64]*Application)}
}

func (m *mockStore) List(ctx context.Context, status Status, page shared.Pagination) ([]Application, int, error) {
	var out []Application
	for _, app := range m.apps {
		if status != "" && app.Status != status {
			continue
		}
		out = append(out, *app)
	}
	return out, len(out), nil
}

func (m *mockStore) Get(ctx context.Context, id int64) (*Application, error) {
	app, ok := m.apps[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *app
	return &clone, nil
}

func (m *mockStore) GetPendingByApplicant(ctx context.Context, applicantID string) (*Application, error) {
	for _, app := range m.apps {
		if app.ApplicantID == applicantID && app.Status == StatusPending {
			clone := *app
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockStore) Create(ctx context.Context, app Application) (int64, error) {
	m.nextID++
	app.ID = m.nextID
	app.Status = StatusPending
	app.CreatedAt = time.Now()
	m.apps[app.ID] = &app
	return app.ID, nil
}

func (m *mockStore) Review(ctx context.Context, id int64, status Status, reviewerID, note string, at time.Time) error {
	app, ok := m.apps[id]
	if !ok || app.Status != StatusPending {
		return ErrAlreadyReviewed
	}
	app.Status = status
	app.ReviewerID = &reviewerID
	if note != "" {
		app.ReviewNote = &note
	}
	app.ReviewedAt = &at
	return nil
}

const backstory = "Born in the harbor district, worked the fishing boats until the debts caught up."

func TestSubmitApplication(t *testing.T) {
	store := newMockStore()
	svc := NewService(store)

	app, err := svc.Submit(context.Background(), "user-1", "  Marla Voss  ", backstory)
	require.NoError(t, err)
	assert.Equal(t, "Marla Voss", app.CharacterName)
	assert.Equal(t, StatusPending, app.Status)
}

func TestSubmitRejectsSecondPending(t *testing.T) {
	store := newMockStore()
	svc := NewService(store)

	_, err := svc.Submit(context.Background(), "user-1", "Marla Voss", backstory)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), "user-1", "Other Name", backstory)
	assert.ErrorIs(t, err, ErrAlreadyPending)
}

func TestSubmitAllowedAfterDenial(t *testing.T) {
	store := newMockStore()
	svc := NewService(store)

	first, err := svc.Submit(context.Background(), "user-1", "Marla Voss", backstory)
	require.NoError(t, err)
	_, err = svc.Deny(context.Background(), first.ID, "staff-1", "needs more detail")
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), "user-1", "Marla Voss", backstory)
	assert.NoError(t, err)
}

func TestApproveRecordsReviewer(t *testing.T) {
	store := newMockStore()
	svc := NewService(store)
	created, err := svc.Submit(context.Background(), "user-1", "Marla Voss", backstory)
	require.NoError(t, err)

	app, err := svc.Approve(context.Background(), created.ID, "staff-1", "welcome aboard")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, app.Status)
	require.NotNil(t, app.ReviewerID)
	assert.Equal(t, "staff-1", *app.ReviewerID)
	require.NotNil(t, app.ReviewNote)
	assert.Equal(t, "welcome aboard", *app.ReviewNote)
	assert.NotNil(t, app.ReviewedAt)
}

func TestDoubleReviewRejected(t *testing.T) {
	store := newMockStore()
	svc := NewService(store)
	created, err := svc.Submit(context.Background(), "user-1", "Marla Voss", backstory)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), created.ID, "staff-1", "")
	require.NoError(t, err)

	_, err = svc.Deny(context.Background(), created.ID, "staff-2", "changed my mind")
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
}

func TestReviewUnknownApplication(t *testing.T) {
	svc := NewService(newMockStore())

	_, err := svc.Approve(context.Background(), 99, "staff-1", "")
	assert.ErrorIs(t, err, ErrNotFound)
}
