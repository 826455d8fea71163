package apikey

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestResolve_CachesLookup(t *testing.T) {
	projectID := uuid.New()
	calls := 0
	a := New(func(context.Context, string) (uuid.UUID, error) {
		calls++
		return projectID, nil
	})

	for i := 0; i < 3; i++ {
		got, err := a.Resolve(context.Background(), "key-1")
		if err != nil {
			t.Fatalf("Resolve error: %v", err)
		}
		if got != projectID {
			t.Errorf("Resolve() = %v, want %v", got, projectID)
		}
	}
	if calls != 1 {
		t.Errorf("lookup called %d times, want 1 (cached)", calls)
	}
}

func TestResolve_PropagatesLookupError(t *testing.T) {
	a := New(func(context.Context, string) (uuid.UUID, error) {
		return uuid.Nil, errors.New("unknown key")
	})
	if _, err := a.Resolve(context.Background(), "bad-key"); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestResolve_EmptyKey(t *testing.T) {
	a := New(func(context.Context, string) (uuid.UUID, error) { return uuid.New(), nil })
	if _, err := a.Resolve(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestInvalidate_ForcesRefetch(t *testing.T) {
	calls := 0
	a := New(func(context.Context, string) (uuid.UUID, error) {
		calls++
		return uuid.New(), nil
	})

	a.Resolve(context.Background(), "key-1")
	a.Invalidate("key-1")
	a.Resolve(context.Background(), "key-1")

	if calls != 2 {
		t.Errorf("lookup called %d times, want 2 (post-invalidate refetch)", calls)
	}
}
