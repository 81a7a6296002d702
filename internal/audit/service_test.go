package audit

import (
	"context"
	"strings"
	"testing"
	"time"

	_ "github.com/ftwrp/companion/testing"
)

type stubTimelineRepo struct {
	windowRows []TimelineRow
	allRows    []TimelineRow
	lastOffset int
	lastLimit  int
	lastAll    TimelineFilters
}

func (s *stubTimelineRepo) TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]TimelineRow, error) {
	s.lastOffset = offset
	s.lastLimit = limit
	return s.windowRows, nil
}

func (s *stubTimelineRepo) TimelineAll(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	s.lastAll = filters
	return s.allRows, nil
}

func mockRow(ts, actor, action, entity, entityID string) TimelineRow {
	tval, _ := time.Parse(time.RFC3339, ts)
	return TimelineRow{At: tval, Actor: actor, Action: action, Entity: entity, EntityID: entityID}
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{
		windowRows: []TimelineRow{
			mockRow("2026-08-10T10:00:00Z", "staff-1", "player.ban", "player", "1"),
			mockRow("2026-08-09T09:00:00Z", "staff-1", "report.status", "report", "2"),
			mockRow("2026-08-08T08:00:00Z", "staff-2", "report.claim", "report", "3"),
		},
	}
	svc := NewService(repo)
	result, err := svc.Timeline(context.Background(), TimelineFilters{
		From:     time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		Page:     1,
		PageSize: 2,
	})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(result.Rows))
	}
	if !result.Paging.HasNext {
		t.Fatalf("expected hasNext true")
	}
	if repo.lastLimit != 3 {
		t.Fatalf("expected limit 3, got %d", repo.lastLimit)
	}
	if repo.lastOffset != 0 {
		t.Fatalf("expected offset 0, got %d", repo.lastOffset)
	}
}

func TestServiceTimelineClampsPageSize(t *testing.T) {
	repo := &stubTimelineRepo{}
	svc := NewService(repo)
	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 3, PageSize: 500})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if result.Paging.PageSize != maxPageSize {
		t.Fatalf("expected page size %d, got %d", maxPageSize, result.Paging.PageSize)
	}
	if repo.lastOffset != 2*maxPageSize {
		t.Fatalf("expected offset %d, got %d", 2*maxPageSize, repo.lastOffset)
	}
	if result.Paging.PrevPage != 2 {
		t.Fatalf("expected prev page 2, got %d", result.Paging.PrevPage)
	}
}

func TestServiceExportReturnsAllRows(t *testing.T) {
	repo := &stubTimelineRepo{
		allRows: []TimelineRow{
			mockRow("2026-08-10T10:00:00Z", "staff-1", "player.ban", "player", "1"),
			mockRow("2026-08-09T09:00:00Z", "staff-2", "news.create", "news", "launch-day"),
		},
	}
	svc := NewService(repo)
	rows, err := svc.Export(context.Background(), TimelineFilters{Actor: "staff-1"})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if repo.lastAll.Actor != "staff-1" {
		t.Fatalf("expected actor filter forwarded, got %q", repo.lastAll.Actor)
	}
}

func TestWriteCSV(t *testing.T) {
	rows := []TimelineRow{
		{
			At:       time.Date(2026, 8, 10, 10, 0, 0, 0, time.UTC),
			Actor:    "staff-1",
			Action:   "player.ban",
			Entity:   "player",
			EntityID: "42",
			Meta:     map[string]any{"reason": "combat logging"},
		},
	}
	out, err := WriteCSV(rows)
	if err != nil {
		t.Fatalf("write csv: %v", err)
	}
	text := string(out)
	if !strings.HasPrefix(text, "at,actor,actor_name,action,entity,entity_id,meta\n") {
		t.Fatalf("unexpected header: %q", text)
	}
	if !strings.Contains(text, "2026-08-10T10:00:00Z") {
		t.Fatalf("expected timestamp in output: %q", text)
	}
	if !strings.Contains(text, "combat logging") {
		t.Fatalf("expected meta in output: %q", text)
	}
}
