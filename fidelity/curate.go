// ABOUTME: Drops failed rounds from history: a user turn whose assistant replies all failed validation.
// ABOUTME: System and tool turns pass through untouched.

package fidelity

import (
	"log"

	"github.com/bytecraft-dev/bytecraft/session"
)

// CurationStats reports what the curator removed.
type CurationStats struct {
	OriginalTurns int
	KeptTurns     int
	DroppedRounds int
	DropReasons   []string
}

// Curate removes failed rounds. A round is a user turn plus the assistant
// turns that follow it before the next user turn; it is dropped when it has
// at least one assistant turn and every one of them fails validation.
func Curate(turns []*session.Turn) ([]*session.Turn, CurationStats) {
	stats := CurationStats{OriginalTurns: len(turns)}
	var out []*session.Turn

	i := 0
	for i < len(turns) {
		t := turns[i]
		if t.Type != session.TurnUser {
			out = append(out, t)
			i++
			continue
		}

		// Collect the round: this user turn plus following assistant turns.
		round := []*session.Turn{t}
		j := i + 1
		for j < len(turns) && turns[j].Type == session.TurnAssistant {
			round = append(round, turns[j])
			j++
		}

		assistants := round[1:]
		if reasons, invalid := allInvalid(assistants); len(assistants) > 0 && invalid {
			stats.DroppedRounds++
			stats.DropReasons = append(stats.DropReasons, reasons...)
			log.Printf("component=fidelity.curate action=drop_round user_turn=%s assistants=%d", t.UUID, len(assistants))
		} else {
			out = append(out, round...)
		}
		i = j
	}

	stats.KeptTurns = len(out)
	return out, stats
}

func allInvalid(assistants []*session.Turn) ([]string, bool) {
	var reasons []string
	for _, a := range assistants {
		v := ValidateResponse(a.Message.Content)
		if v.Valid {
			return nil, false
		}
		reasons = append(reasons, v.Reason)
	}
	return reasons, true
}
