package rbac

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL bounds how stale a resolved permission set may be.
const DefaultCacheTTL = 5 * time.Minute

// CacheMetrics receives resolver cache statistics.
type CacheMetrics interface {
	PermCacheHit()
	PermCacheMiss()
}

// Resolver resolves a user identifier to the effective, deduplicated set of
// permission identifiers the user holds, including derived legacy group
// tokens. Resolved sets are cached per user with a fixed TTL measured from
// computation time. The resolver is fail-closed: any error degrades to an
// empty set, never to cached or default privileges.
type Resolver struct {
	source  Source
	logger  *slog.Logger
	ttl     time.Duration
	now     func() time.Time
	metrics CacheMetrics

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	perms     PermissionSet
	expiresAt time.Time
}

// ResolverConfig collects Resolver dependencies.
type ResolverConfig struct {
	Source  Source
	Logger  *slog.Logger
	TTL     time.Duration
	Now     func() time.Time
	Metrics CacheMetrics
}

// NewResolver constructs a Resolver. Source is required; the remaining fields
// fall back to sensible defaults.
func NewResolver(cfg ResolverConfig) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		source:  cfg.Source,
		logger:  logger,
		ttl:     ttl,
		now:     now,
		metrics: cfg.Metrics,
		entries: make(map[string]cacheEntry),
	}
}

// UserPermissions returns the user's effective permission set. It never
// returns an error: a blank user id, a source failure, or malformed data all
// resolve to an empty set. Source failures are not cached, so the next call
// retries against the source.
func (r *Resolver) UserPermissions(ctx context.Context, userID string) PermissionSet {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		r.logger.Warn("rbac: permissions requested for blank user id")
		return PermissionSet{}
	}

	if cached, ok := r.lookup(userID); ok {
		if r.metrics != nil {
			r.metrics.PermCacheHit()
		}
		return cached
	}
	if r.metrics != nil {
		r.metrics.PermCacheMiss()
	}

	grants, err := r.source.UserRoleGrants(ctx, userID)
	if err != nil {
		r.logger.Error("rbac: load role grants",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return PermissionSet{}
	}

	perms := make(PermissionSet)
	for _, grant := range grants {
		for _, p := range grant.Permissions {
			p = strings.TrimSpace(p)
			if p == "" {
				r.logger.Warn("rbac: skipping blank permission identifier",
					slog.String("user_id", userID),
					slog.String("role", grant.Identifier))
				continue
			}
			perms[p] = struct{}{}
		}
	}
	applyLegacyGroups(perms)

	r.store(userID, perms)
	return perms.clone()
}

// HasPermission reports whether the user holds perm.
func (r *Resolver) HasPermission(ctx context.Context, userID, perm string) bool {
	return r.UserPermissions(ctx, userID).Has(perm)
}

// HasAnyPermission reports whether the user holds at least one of perms.
func (r *Resolver) HasAnyPermission(ctx context.Context, userID string, perms ...string) bool {
	return r.UserPermissions(ctx, userID).HasAny(perms...)
}

// HasAllPermissions reports whether the user holds every one of perms.
func (r *Resolver) HasAllPermissions(ctx context.Context, userID string, perms ...string) bool {
	return r.UserPermissions(ctx, userID).HasAll(perms...)
}

// Invalidate drops the cached entry for a single user. Call it on sign-out
// and on sign-in or token refresh with the new user id, so a stale set never
// leaks across sessions.
func (r *Resolver) Invalidate(userID string) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return
	}
	r.mu.Lock()
	delete(r.entries, userID)
	r.mu.Unlock()
}

// Reset clears every cached entry.
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.entries = make(map[string]cacheEntry)
	r.mu.Unlock()
}

func (r *Resolver) lookup(userID string) (PermissionSet, bool) {
	r.mu.RLock()
	entry, ok := r.entries[userID]
	r.mu.RUnlock()
	if !ok || r.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.perms.clone(), true
}

func (r *Resolver) store(userID string, perms PermissionSet) {
	entry := cacheEntry{perms: perms.clone(), expiresAt: r.now().Add(r.ttl)}
	r.mu.Lock()
	r.entries[userID] = entry
	r.mu.Unlock()
}
