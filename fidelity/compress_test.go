// ABOUTME: Tests for summarization compression: trigger conditions and failure fallback.

package fidelity

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bytecraft-dev/bytecraft/session"
)

func summarizerReturning(reply string, err error) Summarizer {
	return SummarizerFunc(func(_ context.Context, prompt string) (string, error) {
		return reply, err
	})
}

func someTurns() []*session.Turn {
	return []*session.Turn{
		mkTurn(session.TurnUser, "user", "set up the database schema"),
		mkTurn(session.TurnAssistant, "assistant", "created tables users and posts"),
	}
}

func TestCompressBelowThresholdDoesNothing(t *testing.T) {
	res := Compress(context.Background(), someTurns(), summarizerReturning("要点", nil), 1000, 100, 0.7, false)
	if res.Compressed {
		t.Error("compression must not fire below threshold")
	}
}

func TestCompressAtThreshold(t *testing.T) {
	res := Compress(context.Background(), someTurns(), summarizerReturning("- 建立了数据库表", nil), 1000, 700, 0.7, false)
	if !res.Compressed {
		t.Fatal("compression should fire at threshold")
	}
	sum := res.Summary
	if !strings.HasPrefix(sum.Message.Content, SummaryPrefix) {
		t.Errorf("summary content = %q, want %q prefix", sum.Message.Content, SummaryPrefix)
	}
	if !sum.IsSidechain {
		t.Error("summary turn must be marked internal")
	}
	if sum.Type != session.TurnAssistant {
		t.Errorf("summary type = %s, want assistant", sum.Type)
	}
}

func TestCompressForce(t *testing.T) {
	res := Compress(context.Background(), someTurns(), summarizerReturning("ok摘要", nil), 1000, 1, 0.7, true)
	if !res.Compressed {
		t.Error("force must override the threshold")
	}
}

func TestCompressSummarizerFailure(t *testing.T) {
	res := Compress(context.Background(), someTurns(), summarizerReturning("", errors.New("model down")), 1000, 900, 0.7, false)
	if res.Compressed {
		t.Error("summarizer failure must yield compressed=false")
	}
}

func TestCompressEmptyReply(t *testing.T) {
	res := Compress(context.Background(), someTurns(), summarizerReturning("   ", nil), 1000, 900, 0.7, false)
	if res.Compressed {
		t.Error("empty reply must yield compressed=false")
	}
}

func TestCompressNilSummarizer(t *testing.T) {
	res := Compress(context.Background(), someTurns(), nil, 1000, 900, 0.7, true)
	if res.Compressed {
		t.Error("nil summarizer must be a no-op")
	}
}

func TestTranscriptShape(t *testing.T) {
	turns := someTurns()
	got := transcript(turns)
	if !strings.Contains(got, "] user: set up the database schema") {
		t.Errorf("transcript missing role line: %q", got)
	}
	if strings.Count(got, "\n") != 2 {
		t.Errorf("transcript lines = %d, want 2", strings.Count(got, "\n"))
	}
}

func TestLastSummaryIndex(t *testing.T) {
	turns := someTurns()
	if got := LastSummaryIndex(turns); got != -1 {
		t.Errorf("no summary: index = %d, want -1", got)
	}
	sum := mkTurn(session.TurnAssistant, "assistant", SummaryPrefix+"先前讨论的要点")
	turns = append(turns, sum, mkTurn(session.TurnUser, "user", "next question"))
	if got := LastSummaryIndex(turns); got != 2 {
		t.Errorf("summary index = %d, want 2", got)
	}
	if !HasSummary(turns) {
		t.Error("HasSummary should be true")
	}
}
