package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"adaptive-quiz-service/internal/domain"
)

func TestSessionStoreVersioning(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	session := &domain.Session{ID: "s1", CurrentSet: 1, Version: 1, StartedAt: time.Now()}
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second := first

	first.CurrentSet = 2
	if err := store.Update(ctx, &first); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if first.Version != 2 {
		t.Fatalf("expected version bump to 2, got %d", first.Version)
	}

	// The second writer still holds version 1 and must lose.
	second.CurrentSet = 3
	if err := store.Update(ctx, &second); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}

	stored, _ := store.Get(ctx, "s1")
	if stored.CurrentSet != 2 {
		t.Fatalf("conflicting write must not apply, got set=%d", stored.CurrentSet)
	}
}

func TestSessionStoreGetUnknown(t *testing.T) {
	store := NewSessionStore()
	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSessionStoreDeleteStale(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	old := &domain.Session{ID: "old", Version: 1, StartedAt: time.Now().Add(-48 * time.Hour)}
	fresh := &domain.Session{ID: "fresh", Version: 1, StartedAt: time.Now()}
	done := &domain.Session{ID: "done", Version: 1, Completed: true, StartedAt: time.Now().Add(-48 * time.Hour)}
	for _, s := range []*domain.Session{old, fresh, done} {
		if err := store.Create(ctx, s); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	removed, err := store.DeleteStale(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("delete stale: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := store.Get(ctx, "old"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected old session swept")
	}
	// Completed sessions are history, not leaks; the sweep leaves them alone.
	if _, err := store.Get(ctx, "done"); err != nil {
		t.Fatalf("completed session should survive: %v", err)
	}
}
