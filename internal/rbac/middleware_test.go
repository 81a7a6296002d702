package rbac_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftwrp/companion/internal/rbac"
	"github.com/ftwrp/companion/internal/shared"
	_ "github.com/ftwrp/companion/testing"
)

func requestWithUser(t *testing.T, userID string) *http.Request {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	manager := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/admin/thing", nil)
	sess, err := manager.Load(context.Background(), req)
	require.NoError(t, err)
	if userID != "" {
		sess.SetUser(userID)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func staticResolver(grants map[string][]rbac.RoleGrant) *rbac.Resolver {
	return rbac.NewResolver(rbac.ResolverConfig{
		Source: rbac.SourceFunc(func(ctx context.Context, userID string) ([]rbac.RoleGrant, error) {
			return grants[userID], nil
		}),
		Logger: slog.New(slog.DiscardHandler),
	})
}

func TestRequireAnyAllowsGrantedUser(t *testing.T) {
	resolver := staticResolver(map[string][]rbac.RoleGrant{
		"staff-1": {{RoleID: 1, Identifier: "support", Permissions: []string{"support.read"}}},
	})
	mw := rbac.Middleware{Resolver: resolver, Logger: slog.New(slog.DiscardHandler)}

	handler := mw.RequireAny(shared.PermSupportRead)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, requestWithUser(t, "staff-1"))
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestRequireAnyDeniesMissingPermission(t *testing.T) {
	resolver := staticResolver(map[string][]rbac.RoleGrant{
		"player-1": {{RoleID: 1, Identifier: "helper", Permissions: []string{"bugs.read"}}},
	})
	mw := rbac.Middleware{Resolver: resolver}

	handler := mw.RequireAny(shared.PermSupportRead)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, requestWithUser(t, "player-1"))
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestRequireAnyDeniesAnonymous(t *testing.T) {
	mw := rbac.Middleware{Resolver: staticResolver(nil)}

	handler := mw.RequireAny(shared.PermSupportRead)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, requestWithUser(t, ""))
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestRequireAnyLegacyGroupToken(t *testing.T) {
	// Older game-server checks still gate on the derived group token.
	resolver := staticResolver(map[string][]rbac.RoleGrant{
		"staff-1": {{RoleID: 1, Identifier: "admin", Permissions: []string{"admin.players"}}},
	})
	mw := rbac.Middleware{Resolver: resolver}

	handler := mw.RequireAny(rbac.GroupAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, requestWithUser(t, "staff-1"))
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestRequireAllNeedsEveryPermission(t *testing.T) {
	resolver := staticResolver(map[string][]rbac.RoleGrant{
		"staff-1": {{RoleID: 1, Identifier: "support", Permissions: []string{"support.read", "support.reply"}}},
	})
	mw := rbac.Middleware{Resolver: resolver}

	allowed := mw.RequireAll(shared.PermSupportRead, shared.PermSupportReply)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	res := httptest.NewRecorder()
	allowed.ServeHTTP(res, requestWithUser(t, "staff-1"))
	assert.Equal(t, http.StatusOK, res.Code)

	denied := mw.RequireAll(shared.PermSupportRead, shared.PermSupportClose)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))
	res = httptest.NewRecorder()
	denied.ServeHTTP(res, requestWithUser(t, "staff-1"))
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestRequireAuth(t *testing.T) {
	mw := rbac.Middleware{Resolver: staticResolver(nil)}
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, requestWithUser(t, "player-1"))
	assert.Equal(t, http.StatusOK, res.Code)

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, requestWithUser(t, ""))
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}
