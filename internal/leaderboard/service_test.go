package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/ftwrp/companion/testing"
)

type fakeSource struct {
	wealthCalls      int
	vehicleCalls     int
	reportCalls      int
	applicationCalls int
	lastSince        time.Time
}

func (f *fakeSource) TopByWealth(ctx context.Context, limit int) ([]Entry, error) {
	f.wealthCalls++
	return []Entry{
		{Rank: 1, SubjectID: "1", Name: "Marla Voss", Job: "mechanic", Score: 1250000},
		{Rank: 2, SubjectID: "2", Name: "Ed Toh", Job: "taxi", Score: 90000},
	}, nil
}

func (f *fakeSource) TopByVehicles(ctx context.Context, limit int) ([]Entry, error) {
	f.vehicleCalls++
	return []Entry{
		{Rank: 1, SubjectID: "2", Name: "Ed Toh", Job: "taxi", Score: 7},
	}, nil
}

func (f *fakeSource) TopStaffByReports(ctx context.Context, since time.Time, limit int) ([]Entry, error) {
	f.reportCalls++
	f.lastSince = since
	return []Entry{
		{Rank: 1, SubjectID: "a0b1", Name: "supervisor", Score: 14},
		{Rank: 2, SubjectID: "c2d3", Name: "support", Score: 9},
	}, nil
}

func (f *fakeSource) TopStaffByApplications(ctx context.Context, since time.Time, limit int) ([]Entry, error) {
	f.applicationCalls++
	return []Entry{
		{Rank: 1, SubjectID: "a0b1", Name: "supervisor", Score: 5},
	}, nil
}

func newTestService(t *testing.T) (*Service, *fakeSource) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	source := &fakeSource{}
	return NewService(source, NewCache(client, time.Minute)), source
}

func TestBoardFormatsScores(t *testing.T) {
	svc, _ := newTestService(t)

	board, err := svc.Board(context.Background(), KindWealth, 10)
	require.NoError(t, err)
	require.Len(t, board.Entries, 2)
	assert.Equal(t, "$1,250,000", board.Entries[0].DisplayScore)
	assert.Equal(t, "$90,000", board.Entries[1].DisplayScore)
	assert.Equal(t, KindWealth, board.Kind)
	assert.False(t, board.GeneratedAt.IsZero())
}

func TestBoardUnknownKind(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Board(context.Background(), Kind("playtime"), 10)
	assert.Error(t, err)
}

func TestBoardServedFromCache(t *testing.T) {
	svc, source := newTestService(t)

	_, err := svc.Board(context.Background(), KindWealth, 10)
	require.NoError(t, err)
	_, err = svc.Board(context.Background(), KindWealth, 10)
	require.NoError(t, err)

	assert.Equal(t, 1, source.wealthCalls)
}

func TestStaffReportBoard(t *testing.T) {
	svc, source := newTestService(t)
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	board, err := svc.Board(context.Background(), KindReports, 10)
	require.NoError(t, err)
	require.Len(t, board.Entries, 2)
	assert.Equal(t, "supervisor", board.Entries[0].Name)
	assert.Equal(t, "14", board.Entries[0].DisplayScore)
	assert.Equal(t, fixed.Add(-staffWindow), source.lastSince)
}

func TestStaffApplicationBoard(t *testing.T) {
	svc, _ := newTestService(t)

	board, err := svc.Board(context.Background(), KindApplications, 10)
	require.NoError(t, err)
	require.Len(t, board.Entries, 1)
	assert.Equal(t, "5", board.Entries[0].DisplayScore)
	assert.Equal(t, KindApplications, board.Kind)
}

func TestRefreshBumpsVersionAndRecomputes(t *testing.T) {
	svc, source := newTestService(t)

	_, err := svc.Board(context.Background(), KindWealth, defaultLimit)
	require.NoError(t, err)
	require.Equal(t, 1, source.wealthCalls)

	require.NoError(t, svc.Refresh(context.Background()))

	// Refresh warms every board under the new cache version.
	assert.Equal(t, 2, source.wealthCalls)
	assert.Equal(t, 1, source.vehicleCalls)
	assert.Equal(t, 1, source.reportCalls)
	assert.Equal(t, 1, source.applicationCalls)

	_, err = svc.Board(context.Background(), KindWealth, defaultLimit)
	require.NoError(t, err)
	assert.Equal(t, 2, source.wealthCalls)
}

func TestOverviewFetchesAllBoards(t *testing.T) {
	svc, _ := newTestService(t)

	overview, err := svc.Overview(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, overview.Wealth.Entries, 2)
	assert.Len(t, overview.Vehicles.Entries, 1)
	assert.Len(t, overview.Reports.Entries, 2)
	assert.Len(t, overview.Applications.Entries, 1)
	assert.Equal(t, "7", overview.Vehicles.Entries[0].DisplayScore)
}
