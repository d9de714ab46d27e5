// ABOUTME: Tests for session reference resolution and startup session selection.

package session

import (
	"errors"
	"testing"
)

func TestResolveFullID(t *testing.T) {
	s := newTestStore(t)
	meta, _ := s.CreateSession("full id")
	r := NewResolver(s)

	got, err := r.Resolve(meta.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != meta.ID {
		t.Errorf("resolved %s, want %s", got.ID, meta.ID)
	}
}

func TestResolvePrefix(t *testing.T) {
	s := newTestStore(t)
	meta, _ := s.CreateSession("prefix match")
	r := NewResolver(s)

	got, err := r.Resolve(meta.ID[:8])
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != meta.ID {
		t.Errorf("resolved %s, want %s", got.ID, meta.ID)
	}
}

func TestResolveTitleSubstring(t *testing.T) {
	s := newTestStore(t)
	s.CreateSession("refactor the parser")
	meta, _ := s.CreateSession("Fix Login Bug")
	r := NewResolver(s)

	got, err := r.Resolve("login")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != meta.ID {
		t.Errorf("resolved %q, want %q", got.Title, meta.Title)
	}
}

func TestResolveTooShortForTitle(t *testing.T) {
	s := newTestStore(t)
	s.CreateSession("ab session")
	r := NewResolver(s)

	// Two chars: prefix matching only, no title search.
	if _, err := r.Resolve("ab"); err == nil {
		t.Error("2-char input must not match by title")
	}
}

func TestResolveNotFound(t *testing.T) {
	s := newTestStore(t)
	r := NewResolver(s)
	_, err := r.Resolve("nothing-here")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestPickStartupPrefersLastSession(t *testing.T) {
	s := newTestStore(t)
	first, _ := s.CreateSession("first")
	second, _ := s.CreateSession("second")
	s.AppendTurn(NewTurn(second.ID, TurnUser, "user", "x"))
	s.SetLastSession(first.ID)

	r := NewResolver(s)
	got, err := r.PickStartup()
	if err != nil {
		t.Fatalf("PickStartup: %v", err)
	}
	if got == nil || got.ID != first.ID {
		t.Errorf("startup picked %v, want recorded last session", got)
	}
}

func TestPickStartupFallsBackToMostRecent(t *testing.T) {
	s := newTestStore(t)
	s.CreateSession("old")
	recent, _ := s.CreateSession("recent")
	s.AppendTurn(NewTurn(recent.ID, TurnUser, "user", "x"))
	s.SetLastSession("deadbeefdeadbeefdeadbeefdeadbeef") // dangling pointer

	r := NewResolver(s)
	got, err := r.PickStartup()
	if err != nil {
		t.Fatalf("PickStartup: %v", err)
	}
	if got == nil || got.ID != recent.ID {
		t.Errorf("startup picked %v, want most recently updated", got)
	}
}

func TestPickStartupEmptyStore(t *testing.T) {
	s := newTestStore(t)
	r := NewResolver(s)
	got, err := r.PickStartup()
	if err != nil {
		t.Fatalf("PickStartup: %v", err)
	}
	if got != nil {
		t.Errorf("empty store should pick nothing, got %v", got)
	}
}
