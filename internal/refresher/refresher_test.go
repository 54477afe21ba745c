package refresher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mselser95/polymarket-edge/internal/opportunity"
	"github.com/mselser95/polymarket-edge/internal/storage"
	"github.com/mselser95/polymarket-edge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRunner struct {
	mu      sync.Mutex
	results []*opportunity.Result
	errs    []error
	calls   int
}

func (s *stubRunner) FetchDetailed(ctx context.Context, opts opportunity.Options) (*opportunity.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	return s.results[i], s.errs[i]
}

func (s *stubRunner) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingStorage struct {
	mu    sync.Mutex
	snaps []*storage.Snapshot
	err   error
}

func (r *recordingStorage) StoreSnapshot(ctx context.Context, snap *storage.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
	return r.err
}

func (r *recordingStorage) Close() error { return nil }

func result(at time.Time, ids ...string) *opportunity.Result {
	opps := make([]types.Opportunity, 0, len(ids))
	for _, id := range ids {
		opps = append(opps, types.Opportunity{ID: id, UpdatedAt: at, ComparisonBasis: types.BasisNone})
	}
	return &opportunity.Result{
		Opportunities: opps,
		Lines:         map[string][]types.EventLines{},
		Failures:      []opportunity.SportFailure{{Sport: "icehockey_nhl", Message: "boom"}},
		FetchedAt:     at,
	}
}

func TestRefresh_StoresSnapshotAndServesView(t *testing.T) {
	fetched := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	now := fetched.Add(30 * time.Second)
	runner := &stubRunner{results: []*opportunity.Result{result(fetched, "polymarket:a", "polymarket:b")}, errs: []error{nil}}
	store := &recordingStorage{}

	svc := New(&Config{
		Runner:   runner,
		Storage:  store,
		Interval: 5 * time.Minute,
		Logger:   zap.NewNop(),
		Now:      func() time.Time { return now },
	})

	_, ok := svc.Snapshot()
	assert.False(t, ok)

	require.NoError(t, svc.Refresh(context.Background()))

	view, ok := svc.Snapshot()
	require.True(t, ok)
	assert.Equal(t, fetched, view.AsOf)
	assert.Equal(t, 30*time.Second, view.Age)
	assert.False(t, view.Stale)
	assert.Len(t, view.Opportunities, 2)
	assert.False(t, view.Opportunities[0].IsStale)

	require.Len(t, store.snaps, 1)
	assert.Equal(t, []string{"icehockey_nhl"}, store.snaps[0].Failures)
	assert.Len(t, store.snaps[0].Opportunities, 2)

	select {
	case <-svc.Ready():
	default:
		t.Fatal("expected ready after successful refresh")
	}
}

func TestSnapshot_MarksStale(t *testing.T) {
	fetched := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	now := fetched.Add(5*time.Minute + time.Second)
	runner := &stubRunner{results: []*opportunity.Result{result(fetched, "polymarket:a")}, errs: []error{nil}}

	svc := New(&Config{
		Runner:   runner,
		Interval: 5 * time.Minute,
		Now:      func() time.Time { return now },
	})
	require.NoError(t, svc.Refresh(context.Background()))

	view, ok := svc.Snapshot()
	require.True(t, ok)
	assert.True(t, view.Stale)
	assert.True(t, view.Opportunities[0].IsStale)
}

func TestSnapshot_DoesNotMutateLatest(t *testing.T) {
	fetched := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	now := fetched.Add(time.Hour)
	res := result(fetched, "polymarket:a")
	runner := &stubRunner{results: []*opportunity.Result{res}, errs: []error{nil}}

	svc := New(&Config{Runner: runner, Interval: time.Minute, Now: func() time.Time { return now }})
	require.NoError(t, svc.Refresh(context.Background()))

	view, _ := svc.Snapshot()
	require.True(t, view.Opportunities[0].IsStale)
	assert.False(t, res.Opportunities[0].IsStale)
}

func TestRefresh_FailureKeepsPrevious(t *testing.T) {
	fetched := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	upstream := errors.New("gamma down")
	runner := &stubRunner{
		results: []*opportunity.Result{result(fetched, "polymarket:a"), nil},
		errs:    []error{nil, upstream},
	}

	svc := New(&Config{Runner: runner, Interval: time.Minute, Now: func() time.Time { return fetched }})
	require.NoError(t, svc.Refresh(context.Background()))

	err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, upstream)
	assert.ErrorIs(t, svc.LastError(), upstream)

	view, ok := svc.Snapshot()
	require.True(t, ok)
	assert.Len(t, view.Opportunities, 1)
}

func TestRefresh_StorageErrorDoesNotFail(t *testing.T) {
	fetched := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	runner := &stubRunner{results: []*opportunity.Result{result(fetched, "polymarket:a")}, errs: []error{nil}}
	store := &recordingStorage{err: errors.New("disk full")}

	svc := New(&Config{Runner: runner, Storage: store, Interval: time.Minute, Now: func() time.Time { return fetched }})

	require.NoError(t, svc.Refresh(context.Background()))
	_, ok := svc.Snapshot()
	assert.True(t, ok)
}

func TestView_Find(t *testing.T) {
	fetched := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	runner := &stubRunner{results: []*opportunity.Result{result(fetched, "polymarket:a", "polymarket:b")}, errs: []error{nil}}
	svc := New(&Config{Runner: runner, Interval: time.Minute, Now: func() time.Time { return fetched }})
	require.NoError(t, svc.Refresh(context.Background()))

	view, ok := svc.Snapshot()
	require.True(t, ok)

	opp, found := view.Find("polymarket:b")
	require.True(t, found)
	assert.Equal(t, "polymarket:b", opp.ID)

	_, found = view.Find("polymarket:zzz")
	assert.False(t, found)
}

func TestView_Failure(t *testing.T) {
	view := View{Failures: []opportunity.SportFailure{{Sport: "icehockey_nhl", Message: "upstream 500"}}}

	f, ok := view.Failure("icehockey_nhl")
	require.True(t, ok)
	assert.Equal(t, "upstream 500", f.Message)

	_, ok = view.Failure("basketball_nba")
	assert.False(t, ok)
}

func TestRun_StopsOnCancel(t *testing.T) {
	fetched := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	runner := &stubRunner{results: []*opportunity.Result{result(fetched, "polymarket:a")}, errs: []error{nil}}
	svc := New(&Config{Runner: runner, Interval: time.Hour, Now: func() time.Time { return fetched }})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	select {
	case <-svc.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("initial refresh did not complete")
	}
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 1, runner.Calls())
}

func TestRefresh_OnRefreshHook(t *testing.T) {
	fetched := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	runner := &stubRunner{
		results: []*opportunity.Result{result(fetched, "polymarket:a"), nil},
		errs:    []error{nil, errors.New("gamma down")},
	}

	var seen []error
	svc := New(&Config{
		Runner:    runner,
		Interval:  time.Minute,
		Now:       func() time.Time { return fetched },
		OnRefresh: func(err error) { seen = append(seen, err) },
	})

	require.NoError(t, svc.Refresh(context.Background()))
	require.Error(t, svc.Refresh(context.Background()))

	require.Len(t, seen, 2)
	assert.NoError(t, seen[0])
	assert.ErrorContains(t, seen[1], "gamma down")
}
