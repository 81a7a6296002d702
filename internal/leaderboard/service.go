package leaderboard

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// defaultLimit bounds board size when callers pass nothing sensible.
const defaultLimit = 25

// staffWindow is how far back the staff boards count reports and reviews.
const staffWindow = 30 * 24 * time.Hour

// Source provides the underlying ranking queries.
type Source interface {
	TopByWealth(ctx context.Context, limit int) ([]Entry, error)
	TopByVehicles(ctx context.Context, limit int) ([]Entry, error)
	TopStaffByReports(ctx context.Context, since time.Time, limit int) ([]Entry, error)
	TopStaffByApplications(ctx context.Context, since time.Time, limit int) ([]Entry, error)
}

// Service builds ranked boards with snapshot caching.
type Service struct {
	source  Source
	cache   *Cache
	now     func() time.Time
	printer *message.Printer
}

// NewService constructs a leaderboard service. cache may be nil, in which
// case every call recomputes.
func NewService(source Source, cache *Cache) *Service {
	return &Service{
		source:  source,
		cache:   cache,
		now:     time.Now,
		printer: message.NewPrinter(language.AmericanEnglish),
	}
}

// Board returns one ranking, served from the snapshot cache when warm.
func (s *Service) Board(ctx context.Context, kind Kind, limit int) (Board, error) {
	if !ValidKind(kind) {
		return Board{}, fmt.Errorf("unknown board kind %q", kind)
	}
	if limit <= 0 || limit > 100 {
		limit = defaultLimit
	}

	key, err := s.cache.BuildKey(ctx, keyBoard(kind, limit))
	if err != nil {
		return Board{}, err
	}
	var board Board
	err = s.cache.FetchJSON(ctx, key, &board, func(ctx context.Context) (interface{}, error) {
		return s.build(ctx, kind, limit)
	})
	if err != nil {
		return Board{}, err
	}
	return board, nil
}

// Overview fetches every board concurrently.
func (s *Service) Overview(ctx context.Context, limit int) (Overview, error) {
	var overview Overview
	g, ctx := errgroup.WithContext(ctx)

	targets := map[Kind]*Board{
		KindWealth:       &overview.Wealth,
		KindVehicles:     &overview.Vehicles,
		KindReports:      &overview.Reports,
		KindApplications: &overview.Applications,
	}
	for kind, dst := range targets {
		g.Go(func() error {
			board, err := s.Board(ctx, kind, limit)
			if err != nil {
				return err
			}
			*dst = board
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return overview, nil
}

// Refresh invalidates cached snapshots and warms the default boards.
// The worker calls this on a schedule.
func (s *Service) Refresh(ctx context.Context) error {
	if err := s.cache.Bump(ctx); err != nil {
		return fmt.Errorf("bump cache: %w", err)
	}
	_, err := s.Overview(ctx, defaultLimit)
	return err
}

func (s *Service) build(ctx context.Context, kind Kind, limit int) (Board, error) {
	var (
		entries []Entry
		err     error
	)
	switch kind {
	case KindWealth:
		entries, err = s.source.TopByWealth(ctx, limit)
	case KindVehicles:
		entries, err = s.source.TopByVehicles(ctx, limit)
	case KindReports:
		entries, err = s.source.TopStaffByReports(ctx, s.now().Add(-staffWindow), limit)
	case KindApplications:
		entries, err = s.source.TopStaffByApplications(ctx, s.now().Add(-staffWindow), limit)
	}
	if err != nil {
		return Board{}, err
	}
	for i := range entries {
		entries[i].DisplayScore = s.formatScore(kind, entries[i].Score)
	}
	return Board{Kind: kind, GeneratedAt: s.now().UTC(), Entries: entries}, nil
}

func (s *Service) formatScore(kind Kind, score int64) string {
	if kind == KindWealth {
		return s.printer.Sprintf("$%d", score)
	}
	return s.printer.Sprintf("%d", score)
}
