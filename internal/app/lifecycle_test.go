package app

import (
	"context"
	"testing"
	"time"

	"github.com/dkeye/Spaces/internal/domain"
)

func lifecycleWith(t *testing.T, space *domain.Space, now time.Time) (*Lifecycle, *fakeRepo, *fakeEngine, *fakeNav) {
	t.Helper()
	repo := &fakeRepo{space: space}
	engine := newFakeEngine()
	nav := &fakeNav{}
	store := NewStore()
	store.SetDerive(phaseFor)
	store.Apply("test.seed", func(st *State) {
		st.Space = space
		st.Loading = false
		st.Derived = domain.Derive(space, now)
	})

	l := &Lifecycle{
		Repo:     repo,
		Engine:   engine,
		Store:    store,
		Nav:      nav,
		Clock:    func() time.Time { return now },
		NavDelay: time.Millisecond,
	}
	return l, repo, engine, nav
}

func TestLifecycleBanMakesSessionTerminal(t *testing.T) {
	now := time.Now()
	space := testSpace(now)
	space.Banned = []domain.UserID{"user-2"}
	l, repo, engine, nav := lifecycleWith(t, space, now)

	l.HandleSnapshot(context.Background(), space, "user-2")

	st := l.Store.Current()
	if !st.Banned || st.Phase != PhaseBanned {
		t.Fatalf("expected banned phase, got %+v", st.Phase)
	}
	if st.Message != msgBanned {
		t.Fatalf("unexpected message %q", st.Message)
	}
	repo.mu.Lock()
	leaves := append([]domain.UserID(nil), repo.leaves...)
	repo.mu.Unlock()
	if len(leaves) != 1 || leaves[0] != "user-2" {
		t.Fatalf("expected leave for banned user, got %v", leaves)
	}
	if engine.disconnectCount() != 1 {
		t.Fatal("expected engine disconnect")
	}
	waitFor(t, func() bool { return nav.homeCount() == 1 }, "navigation away")

	// A second cycle must not leave or disconnect again.
	l.HandleSnapshot(context.Background(), space, "user-2")
	repo.mu.Lock()
	again := len(repo.leaves)
	repo.mu.Unlock()
	if again != 1 || engine.disconnectCount() != 1 {
		t.Fatal("ban handling must be one-shot")
	}
}

func TestLifecycleExpiryEndsSpace(t *testing.T) {
	now := time.Now()
	space := testSpace(now)
	space.StartedAt = now.Add(-20 * time.Minute).UnixMilli() // duration 12m, so past end
	l, repo, _, nav := lifecycleWith(t, space, now)

	l.HandleSnapshot(context.Background(), space, "user-2")

	st := l.Store.Current()
	if st.Phase != PhaseEnded || st.Message != msgSpaceEnded {
		t.Fatalf("expected ended, got phase=%v message=%q", st.Phase, st.Message)
	}
	if repo.endCount() != 1 {
		t.Fatal("expected backend end call on expiry")
	}
	waitFor(t, func() bool { return nav.homeCount() >= 1 }, "navigation away")

	// Latched: the next cycle does not end again.
	l.HandleSnapshot(context.Background(), space, "user-2")
	if repo.endCount() != 1 {
		t.Fatal("expiry handling must be one-shot")
	}
}

func TestLifecycleBackendRecordedEnd(t *testing.T) {
	now := time.Now()
	space := testSpace(now)
	space.EndedAt = now.Add(-time.Minute).UnixMilli()
	space.Active = false
	l, repo, _, nav := lifecycleWith(t, space, now)

	l.HandleSnapshot(context.Background(), space, "user-2")

	st := l.Store.Current()
	if st.Phase != PhaseEnded || st.Message != msgSpaceEnded {
		t.Fatalf("expected ended, got phase=%v message=%q", st.Phase, st.Message)
	}
	if repo.endCount() != 0 {
		t.Fatal("backend already recorded the end, no extra call")
	}
	waitFor(t, func() bool { return nav.homeCount() >= 1 }, "navigation away")
}

func TestLifecycleEndingSoonWarningFiresOnce(t *testing.T) {
	now := time.Now()
	space := testSpace(now)
	space.StartedAt = now.Add(-(12*time.Minute - 30*time.Second)).UnixMilli() // 30s left
	l, repo, _, _ := lifecycleWith(t, space, now)

	warnings := 0
	l.Store.OnChange(func(st State) {
		if st.Message == msgEndingSoon {
			warnings++
		}
	})

	l.HandleSnapshot(context.Background(), space, "user-2")
	l.HandleSnapshot(context.Background(), space, "user-2")

	if warnings != 1 {
		t.Fatalf("expected a single warning, got %d", warnings)
	}
	if repo.endCount() != 0 {
		t.Fatal("warning must not end the space")
	}
	if l.Store.Current().Phase.Terminal() {
		t.Fatal("warning must not be terminal")
	}
}
