// ABOUTME: Tests for curation: failed rounds dropped, idempotence, pass-through turns.

package fidelity

import (
	"testing"

	"github.com/bytecraft-dev/bytecraft/session"
)

func mkTurn(typ session.TurnType, role, content string) *session.Turn {
	return session.NewTurn("s1", typ, role, content)
}

func TestCurateDropsFailedRound(t *testing.T) {
	turns := []*session.Turn{
		mkTurn(session.TurnUser, "user", "hi"),
		mkTurn(session.TurnAssistant, "assistant", "hello! how can I help?"),
		mkTurn(session.TurnUser, "user", "do X"),
		mkTurn(session.TurnAssistant, "assistant", "❌ ERROR: failed"),
		mkTurn(session.TurnUser, "user", "explain JS"),
		mkTurn(session.TurnAssistant, "assistant", "JS is a dynamic language used in browsers."),
	}

	out, stats := Curate(turns)
	if len(out) != 4 {
		t.Fatalf("kept %d turns, want 4", len(out))
	}
	if stats.DroppedRounds != 1 {
		t.Errorf("dropped rounds = %d, want 1", stats.DroppedRounds)
	}
	for _, turn := range out {
		if turn.Message.Content == "do X" || turn.Message.Content == "❌ ERROR: failed" {
			t.Errorf("failed round turn survived: %q", turn.Message.Content)
		}
	}
}

func TestCurateIdempotent(t *testing.T) {
	turns := []*session.Turn{
		mkTurn(session.TurnUser, "user", "question one"),
		mkTurn(session.TurnAssistant, "assistant", "a proper answer with substance"),
		mkTurn(session.TurnUser, "user", "question two"),
		mkTurn(session.TurnAssistant, "assistant", "Error: upstream died"),
	}
	once, _ := Curate(turns)
	twice, stats := Curate(once)
	if len(once) != len(twice) {
		t.Errorf("curate not idempotent: %d then %d turns", len(once), len(twice))
	}
	if stats.DroppedRounds != 0 {
		t.Errorf("second pass dropped %d rounds, want 0", stats.DroppedRounds)
	}
}

func TestCurateKeepsRoundWithOneValidAssistant(t *testing.T) {
	turns := []*session.Turn{
		mkTurn(session.TurnUser, "user", "try this"),
		mkTurn(session.TurnAssistant, "assistant", "Processing... hold on"),
		mkTurn(session.TurnAssistant, "assistant", "done: the refactor is complete"),
	}
	out, stats := Curate(turns)
	if len(out) != 3 {
		t.Errorf("kept %d turns, want 3 (round has a valid reply)", len(out))
	}
	if stats.DroppedRounds != 0 {
		t.Errorf("dropped %d rounds, want 0", stats.DroppedRounds)
	}
}

func TestCuratePassesThroughSystemAndToolTurns(t *testing.T) {
	turns := []*session.Turn{
		mkTurn(session.TurnSystem, "system", "sys note"),
		mkTurn(session.TurnUser, "user", "run it"),
		mkTurn(session.TurnAssistant, "assistant", "FAILED to execute"),
		mkTurn(session.TurnTool, "tool", `{"success":true}`),
	}
	out, _ := Curate(turns)
	types := map[session.TurnType]int{}
	for _, turn := range out {
		types[turn.Type]++
	}
	if types[session.TurnSystem] != 1 || types[session.TurnTool] != 1 {
		t.Errorf("system/tool turns must pass through, got %v", types)
	}
	if types[session.TurnUser] != 0 || types[session.TurnAssistant] != 0 {
		t.Errorf("failed round should be dropped, got %v", types)
	}
}

func TestCurateTrailingUserSurvives(t *testing.T) {
	turns := []*session.Turn{
		mkTurn(session.TurnUser, "user", "still waiting for a reply"),
	}
	out, _ := Curate(turns)
	if len(out) != 1 {
		t.Errorf("user turn with no assistant reply must survive, got %d turns", len(out))
	}
}
