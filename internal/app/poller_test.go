package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Spaces/internal/domain"
)

func TestPollerSkipsOverlappingFetch(t *testing.T) {
	gate := make(chan struct{})
	repo := &fakeRepo{space: testSpace(time.Now()), fetchGate: gate}

	var mu sync.Mutex
	fetches := 0
	p := &Poller{
		Repo:    repo,
		SpaceID: "space-1",
		Period:  time.Second,
		OnFetch: func(ctx context.Context, s *domain.Space, changed bool) {
			mu.Lock()
			fetches++
			mu.Unlock()
		},
	}

	done := make(chan struct{})
	go func() {
		p.RefreshNow(context.Background())
		close(done)
	}()
	waitFor(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return repo.fetchCount == 1
	}, "first fetch to start")

	// A tick arriving while the first fetch is outstanding is skipped.
	p.RefreshNow(context.Background())

	repo.mu.Lock()
	count := repo.fetchCount
	repo.mu.Unlock()
	if count != 1 {
		t.Fatalf("expected overlapping fetch to be skipped, got %d fetches", count)
	}

	close(gate)
	<-done
	mu.Lock()
	defer mu.Unlock()
	if fetches != 1 {
		t.Fatalf("expected one OnFetch, got %d", fetches)
	}
}

func TestPollerReportsChangeOnce(t *testing.T) {
	repo := &fakeRepo{space: testSpace(time.Now())}
	var changes []bool
	p := &Poller{
		Repo:    repo,
		SpaceID: "space-1",
		Period:  time.Second,
		OnFetch: func(ctx context.Context, s *domain.Space, changed bool) {
			changes = append(changes, changed)
		},
	}

	p.RefreshNow(context.Background())
	p.RefreshNow(context.Background())

	if len(changes) != 2 || !changes[0] || changes[1] {
		t.Fatalf("expected [true false], got %v", changes)
	}
}

func TestPollerErrorKeepsPolling(t *testing.T) {
	repo := &fakeRepo{fetchErr: errors.New("backend down")}
	var errs int
	p := &Poller{
		Repo:    repo,
		SpaceID: "space-1",
		Period:  time.Second,
		OnFetch: func(context.Context, *domain.Space, bool) { t.Fatal("OnFetch on error") },
		OnError: func(error) { errs++ },
	}

	p.RefreshNow(context.Background())
	p.RefreshNow(context.Background())
	if errs != 2 {
		t.Fatalf("expected 2 error reports, got %d", errs)
	}
}

func TestPollerMissingSpace(t *testing.T) {
	repo := &fakeRepo{}
	missing := false
	p := &Poller{
		Repo:      repo,
		SpaceID:   "space-1",
		Period:    time.Second,
		OnFetch:   func(context.Context, *domain.Space, bool) { t.Fatal("OnFetch on missing") },
		OnMissing: func() { missing = true },
	}

	p.RefreshNow(context.Background())
	if !missing {
		t.Fatal("expected OnMissing for nil space")
	}
}

func TestPollerCancelDiscardsInFlight(t *testing.T) {
	gate := make(chan struct{})
	repo := &fakeRepo{space: testSpace(time.Now()), fetchGate: gate}
	p := &Poller{
		Repo:    repo,
		SpaceID: "space-1",
		Period:  time.Second,
		OnFetch: func(context.Context, *domain.Space, bool) { t.Error("completion after cancel must be discarded") },
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.RefreshNow(ctx)
		close(done)
	}()
	waitFor(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return repo.fetchCount == 1
	}, "fetch to start")

	cancel()
	close(gate)
	<-done
}

func TestPollerRunTicks(t *testing.T) {
	repo := &fakeRepo{space: testSpace(time.Now())}
	p := &Poller{
		Repo:    repo,
		SpaceID: "space-1",
		Period:  5 * time.Millisecond,
		OnFetch: func(context.Context, *domain.Space, bool) {},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)
	waitFor(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return repo.fetchCount >= 3
	}, "periodic fetches")
	cancel()
}
