package gameserver

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/ftwrp/companion/testing"
)

func newStatusServer(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/dynamic.json", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"hostname":"FTW Roleplay","gametype":"Roleplay","mapname":"Los Santos","clients":2,"sv_maxclients":"64"}`))
	})
	mux.HandleFunc("/players.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"name":"Marla Voss","ping":40},{"id":2,"name":"Ed Toh","ping":65}]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(t *testing.T, baseURL string) (*Service, *mockRestartStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	client, err := NewClient(baseURL, time.Second)
	require.NoError(t, err)
	store := newMockRestartStore()
	svc := NewService(slog.New(slog.DiscardHandler), client, store, redisClient, time.Minute)
	return svc, store
}

type mockRestartStore struct {
	requests map[int64]*RestartRequest
	nextID   int64
}

func newMockRestartStore() *mockRestartStore {
	return &mockRestartStore{requests: make(map[int64]*RestartRequest)}
}

func (m *mockRestartStore) CreateRestart(ctx context.Context, requestedBy, reason string) (int64, error) {
	m.nextID++
	m.requests[m.nextID] = &RestartRequest{
		ID:          m.nextID,
		RequestedBy: requestedBy,
		Reason:      reason,
		Status:      RestartPending,
		CreatedAt:   time.Now(),
	}
	return m.nextID, nil
}

func (m *mockRestartStore) PendingRestart(ctx context.Context) (*RestartRequest, error) {
	for _, req := range m.requests {
		if req.Status == RestartPending {
			clone := *req
			return &clone, nil
		}
	}
	return nil, ErrNoPendingRestart
}

func (m *mockRestartStore) ResolveRestart(ctx context.Context, id int64, status RestartStatus, at time.Time) error {
	req, ok := m.requests[id]
	if !ok || req.Status != RestartPending {
		return ErrNoPendingRestart
	}
	req.Status = status
	req.ResolvedAt = &at
	return nil
}

func (m *mockRestartStore) ListRestarts(ctx context.Context, limit int) ([]RestartRequest, error) {
	var out []RestartRequest
	for _, req := range m.requests {
		out = append(out, *req)
	}
	return out, nil
}

func TestStatusOnline(t *testing.T) {
	var hits atomic.Int64
	srv := newStatusServer(t, &hits)
	svc, _ := newTestService(t, srv.URL)

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Online)
	assert.Equal(t, "FTW Roleplay", status.Hostname)
	assert.Equal(t, "Los Santos", status.Mapname)
	assert.Equal(t, 64, status.MaxPlayers)
	assert.Equal(t, 2, status.Players)
	require.Len(t, status.PlayerList, 2)
}

func TestStatusCached(t *testing.T) {
	var hits atomic.Int64
	srv := newStatusServer(t, &hits)
	svc, _ := newTestService(t, srv.URL)

	_, err := svc.Status(context.Background())
	require.NoError(t, err)
	_, err = svc.Status(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), hits.Load())
}

func TestStatusOfflineWhenUnreachable(t *testing.T) {
	// Port 1 refuses connections.
	svc, _ := newTestService(t, "http://127.0.0.1:1")

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Online)
	assert.Zero(t, status.Players)
	assert.False(t, status.CheckedAt.IsZero())
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("not a url", time.Second)
	assert.Error(t, err)
}

func TestRequestRestartSinglePending(t *testing.T) {
	var hits atomic.Int64
	srv := newStatusServer(t, &hits)
	svc, _ := newTestService(t, srv.URL)

	created, err := svc.RequestRestart(context.Background(), "staff-1", "memory leak")
	require.NoError(t, err)
	assert.Equal(t, RestartPending, created.Status)

	_, err = svc.RequestRestart(context.Background(), "staff-2", "me too")
	assert.ErrorIs(t, err, ErrRestartPending)
}

func TestCancelRestart(t *testing.T) {
	var hits atomic.Int64
	srv := newStatusServer(t, &hits)
	svc, store := newTestService(t, srv.URL)

	created, err := svc.RequestRestart(context.Background(), "staff-1", "memory leak")
	require.NoError(t, err)

	require.NoError(t, svc.CancelRestart(context.Background()))
	assert.Equal(t, RestartCancelled, store.requests[created.ID].Status)

	// Nothing pending anymore.
	err = svc.CancelRestart(context.Background())
	assert.ErrorIs(t, err, ErrNoPendingRestart)
}

func TestRequestRestartRequiresReason(t *testing.T) {
	var hits atomic.Int64
	srv := newStatusServer(t, &hits)
	svc, _ := newTestService(t, srv.URL)

	_, err := svc.RequestRestart(context.Background(), "staff-1", "  ")
	assert.Error(t, err)
}
