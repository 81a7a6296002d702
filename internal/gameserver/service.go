package gameserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrNoPendingRestart = errors.New("no pending restart request")
	ErrRestartPending   = errors.New("a restart request is already pending")
)

const statusCacheKey = "gameserver:status"

// StatusSource fetches live data from the game server.
type StatusSource interface {
	Dynamic(ctx context.Context) (*Dynamic, error)
	Players(ctx context.Context) ([]OnlinePlayer, error)
}

// RestartStore persists restart requests.
type RestartStore interface {
	CreateRestart(ctx context.Context, requestedBy, reason string) (int64, error)
	PendingRestart(ctx context.Context) (*RestartRequest, error)
	ResolveRestart(ctx context.Context, id int64, status RestartStatus, at time.Time) error
	ListRestarts(ctx context.Context, limit int) ([]RestartRequest, error)
}

// Service proxies game server status with a short Redis cache, and
// manages restart requests.
type Service struct {
	logger   *slog.Logger
	source   StatusSource
	store    RestartStore
	redis    *redis.Client
	cacheTTL time.Duration
	now      func() time.Time
}

// NewService constructs a game server service.
func NewService(logger *slog.Logger, source StatusSource, store RestartStore, client *redis.Client, cacheTTL time.Duration) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &Service{
		logger:   logger,
		source:   source,
		store:    store,
		redis:    client,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// Status returns the current server snapshot. Lookups hit the cache
// first; an unreachable server yields an offline snapshot, which is
// cached too so a dead box does not get hammered.
func (s *Service) Status(ctx context.Context) (Status, error) {
	if s.redis != nil {
		payload, err := s.redis.Get(ctx, statusCacheKey).Bytes()
		if err == nil {
			var cached Status
			if err := json.Unmarshal(payload, &cached); err == nil {
				return cached, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("status cache read", slog.Any("error", err))
		}
	}

	status := s.probe(ctx)

	if s.redis != nil {
		raw, err := json.Marshal(status)
		if err == nil {
			if err := s.redis.Set(ctx, statusCacheKey, raw, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("status cache write", slog.Any("error", err))
			}
		}
	}
	return status, nil
}

func (s *Service) probe(ctx context.Context) Status {
	status := Status{CheckedAt: s.now().UTC()}
	dyn, err := s.source.Dynamic(ctx)
	if err != nil {
		s.logger.Warn("game server dynamic", slog.Any("error", err))
		return status
	}
	status.Online = true
	status.Hostname = dyn.Hostname
	status.Gametype = dyn.Gametype
	status.Mapname = dyn.Mapname
	status.Players = dyn.Clients
	if max, err := strconv.Atoi(dyn.MaxClients); err == nil {
		status.MaxPlayers = max
	}

	players, err := s.source.Players(ctx)
	if err != nil {
		s.logger.Warn("game server players", slog.Any("error", err))
		return status
	}
	status.Players = len(players)
	status.PlayerList = players
	return status
}

// RequestRestart queues a restart; only one may be pending at a time.
func (s *Service) RequestRestart(ctx context.Context, requestedBy, reason string) (*RestartRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("restart reason is required")
	}
	if _, err := s.store.PendingRestart(ctx); err == nil {
		return nil, ErrRestartPending
	} else if !errors.Is(err, ErrNoPendingRestart) {
		return nil, err
	}

	id, err := s.store.CreateRestart(ctx, requestedBy, reason)
	if err != nil {
		return nil, fmt.Errorf("create restart request: %w", err)
	}
	return &RestartRequest{
		ID:          id,
		RequestedBy: requestedBy,
		Reason:      reason,
		Status:      RestartPending,
		CreatedAt:   s.now(),
	}, nil
}

// CancelRestart withdraws the pending request.
func (s *Service) CancelRestart(ctx context.Context) error {
	pending, err := s.store.PendingRestart(ctx)
	if err != nil {
		return err
	}
	return s.store.ResolveRestart(ctx, pending.ID, RestartCancelled, s.now())
}

// RestartHistory lists recent restart requests.
func (s *Service) RestartHistory(ctx context.Context, limit int) ([]RestartRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.ListRestarts(ctx, limit)
}
