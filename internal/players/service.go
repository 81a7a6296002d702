package players

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ftwrp/companion/internal/shared"
)

var (
	ErrNotFound      = errors.New("player not found")
	ErrAlreadyBanned = errors.New("player already banned")
	ErrNotBanned     = errors.New("player is not banned")
)

// maxAdjustment caps a single economy correction.
const maxAdjustment = 10_000_000

// Store defines persistence operations used by the service.
type Store interface {
	List(ctx context.Context, q ListQuery, page shared.Pagination) ([]Player, int, error)
	Get(ctx context.Context, id int64) (*Player, error)
	Vehicles(ctx context.Context, playerID int64) ([]Vehicle, error)
	AdjustBalance(ctx context.Context, id int64, cashDelta, bankDelta int64) (*Player, error)
	SetBan(ctx context.Context, id int64, banned bool, reason, actorID string) error
}

// Service provides business logic for roster management.
type Service struct {
	store Store
}

// NewService constructs a player service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns the roster page for the query.
func (s *Service) List(ctx context.Context, q ListQuery, page shared.Pagination) ([]Player, int, error) {
	q.Search = strings.TrimSpace(q.Search)
	return s.store.List(ctx, q, page)
}

// Get fetches a player together with their vehicles.
func (s *Service) Get(ctx context.Context, id int64) (*Player, []Vehicle, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	vehicles, err := s.store.Vehicles(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return p, vehicles, nil
}

// AdjustBalance applies an economy correction to a player.
func (s *Service) AdjustBalance(ctx context.Context, id int64, cashDelta, bankDelta int64) (*Player, error) {
	if cashDelta == 0 && bankDelta == 0 {
		return nil, fmt.Errorf("adjustment must change at least one balance")
	}
	if abs(cashDelta) > maxAdjustment || abs(bankDelta) > maxAdjustment {
		return nil, fmt.Errorf("adjustment exceeds the per-operation limit")
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Cash+cashDelta < 0 || p.Bank+bankDelta < 0 {
		return nil, fmt.Errorf("adjustment would make a balance negative")
	}
	return s.store.AdjustBalance(ctx, id, cashDelta, bankDelta)
}

// Ban flags the player with a mandatory reason.
func (s *Service) Ban(ctx context.Context, id int64, reason, actorID string) (*Player, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("ban reason is required")
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Banned {
		return nil, ErrAlreadyBanned
	}
	if err := s.store.SetBan(ctx, id, true, reason, actorID); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

// Unban clears the ban flag.
func (s *Service) Unban(ctx context.Context, id int64) (*Player, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Banned {
		return nil, ErrNotBanned
	}
	if err := s.store.SetBan(ctx, id, false, "", ""); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
