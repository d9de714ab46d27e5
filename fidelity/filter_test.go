// ABOUTME: Tests for sensitive redaction: separator forms filtered, prose preserved, idempotent.

package fidelity

import (
	"testing"

	"github.com/bytecraft-dev/bytecraft/session"
)

func TestFilterRedactsKeyValueButNotProse(t *testing.T) {
	f := NewSensitiveFilter()
	in := "my api_key: sk-1234567890 and I'd like a secure password strategy"
	want := "my api_key: [FILTERED] and I'd like a secure password strategy"
	if got := f.FilterText(in); got != want {
		t.Errorf("FilterText = %q, want %q", got, want)
	}
}

func TestFilterForms(t *testing.T) {
	f := NewSensitiveFilter()
	cases := []struct{ in, want string }{
		{"password=hunter2", "password: [FILTERED]"},
		{"token: abc123", "token: [FILTERED]"},
		{"authorization: Bearer eyJhbGciOi.payload", "authorization: [FILTERED]"},
		{`api_key = "sk-test-99"`, "api_key: [FILTERED]"},
		{"secret_key:s3cr3t", "secret_key: [FILTERED]"},
	}
	for _, tc := range cases {
		if got := f.FilterText(tc.in); got != tc.want {
			t.Errorf("FilterText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFilterLongestKeyWins(t *testing.T) {
	f := NewSensitiveFilter()
	got := f.FilterText("access_token: abcdef")
	if got != "access_token: [FILTERED]" {
		t.Errorf("FilterText = %q; short key must not shadow long key", got)
	}
}

func TestFilterIdempotent(t *testing.T) {
	f := NewSensitiveFilter()
	in := "api_key: sk-123 password=pw token: t1"
	once := f.FilterText(in)
	twice := f.FilterText(once)
	if once != twice {
		t.Errorf("filter not idempotent: %q vs %q", once, twice)
	}
}

func TestFilterLeavesProseAlone(t *testing.T) {
	f := NewSensitiveFilter()
	in := "explain how token buckets work and why auth matters for key rotation"
	if got := f.FilterText(in); got != in {
		t.Errorf("prose was altered: %q", got)
	}
}

func TestFilterDoesNotReorderCallerKeys(t *testing.T) {
	keys := []string{"key", "api_key", "token"}
	f := NewSensitiveFilter(keys...)
	want := []string{"key", "api_key", "token"}
	for i, k := range keys {
		if k != want[i] {
			t.Fatalf("caller slice reordered: %v", keys)
		}
	}
	if got := f.FilterText("api_key: sk-9"); got != "api_key: [FILTERED]" {
		t.Errorf("longest-first matching broken: %q", got)
	}
}

func TestFilterTurnsDoesNotMutateInput(t *testing.T) {
	f := NewSensitiveFilter()
	turn := session.NewTurn("s1", session.TurnUser, "user", "password: hunter2")
	out := f.FilterTurns([]*session.Turn{turn})

	if turn.Message.Content != "password: hunter2" {
		t.Error("stored turn must keep original content")
	}
	if out[0].Message.Content != "password: [FILTERED]" {
		t.Errorf("projection = %q", out[0].Message.Content)
	}
	if len(out) != 1 || out[0].Type != turn.Type {
		t.Error("filter must preserve count and role")
	}
}
