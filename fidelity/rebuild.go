// ABOUTME: Rebuilds model context when an existing session is reopened.
// ABOUTME: Auto mode picks full history, summary-based, hybrid, or sliding window.

package fidelity

import (
	"context"
	"log"

	"github.com/bytecraft-dev/bytecraft/llm"
	"github.com/bytecraft-dev/bytecraft/session"
)

// RebuildStrategy selects how stored history becomes model context at startup.
type RebuildStrategy string

const (
	RebuildAuto          RebuildStrategy = "auto"
	RebuildFullHistory   RebuildStrategy = "full_history"
	RebuildSummaryBased  RebuildStrategy = "summary_based"
	RebuildSlidingWindow RebuildStrategy = "sliding_window"
	RebuildHybrid        RebuildStrategy = "hybrid"
)

const (
	autoFullHistoryMaxSinceSummary  = 20
	autoSummaryBasedMinSinceSummary = 5
)

// Rebuild converts stored turns into the in-memory message context for a
// reopened session. The returned strategy is the one actually applied.
func (p *Pipeline) Rebuild(ctx context.Context, turns []*session.Turn, strategy RebuildStrategy) ([]llm.Message, RebuildStrategy) {
	if len(turns) == 0 {
		return nil, RebuildFullHistory
	}

	if strategy == RebuildAuto || strategy == "" {
		strategy = p.chooseRebuildStrategy(turns)
	}

	switch strategy {
	case RebuildFullHistory:
		return turnsToMessages(turns), RebuildFullHistory

	case RebuildSummaryBased:
		idx := LastSummaryIndex(turns)
		if idx < 0 {
			return turnsToMessages(turns), RebuildFullHistory
		}
		return turnsToMessages(turns[idx:]), RebuildSummaryBased

	case RebuildHybrid:
		msgs, ok := p.rebuildHybrid(ctx, turns)
		if ok {
			return msgs, RebuildHybrid
		}
		return p.rebuildSlidingWindow(turns), RebuildSlidingWindow

	default:
		return p.rebuildSlidingWindow(turns), RebuildSlidingWindow
	}
}

func (p *Pipeline) chooseRebuildStrategy(turns []*session.Turn) RebuildStrategy {
	tokens := EstimateTexts(turnContents(turns), p.cfg.EstimationMode)
	// Without a summary marker, the since-summary gate is vacuously satisfied.
	sinceSummary := 0
	if idx := LastSummaryIndex(turns); idx >= 0 {
		sinceSummary = len(turns) - idx - 1
	}

	short := float64(tokens) < p.cfg.CompressionThreshold*float64(p.cfg.MaxTokens)
	switch {
	case short && sinceSummary < autoFullHistoryMaxSinceSummary:
		return RebuildFullHistory
	case HasSummary(turns) && sinceSummary > autoSummaryBasedMinSinceSummary:
		return RebuildSummaryBased
	case p.summarizer != nil && !short:
		return RebuildHybrid
	default:
		return RebuildSlidingWindow
	}
}

// rebuildHybrid compresses everything but a recent tail, then stitches the
// summary in front of the tail.
func (p *Pipeline) rebuildHybrid(ctx context.Context, turns []*session.Turn) ([]llm.Message, bool) {
	tail := p.cfg.MinRecentMessages * 2
	if tail < 1 {
		tail = 10
	}
	if tail >= len(turns) {
		return turnsToMessages(turns), true
	}
	head := turns[:len(turns)-tail]
	recent := turns[len(turns)-tail:]

	current := EstimateTexts(turnContents(head), p.cfg.EstimationMode)
	res := Compress(ctx, head, p.summarizer, p.cfg.MaxTokens, current, p.cfg.CompressionThreshold, true)
	if !res.Compressed {
		log.Printf("component=fidelity.rebuild action=hybrid_compress_failed turns=%d", len(head))
		return nil, false
	}

	stitched := append([]*session.Turn{res.Summary}, recent...)
	return turnsToMessages(stitched), true
}

func (p *Pipeline) rebuildSlidingWindow(turns []*session.Turn) []llm.Message {
	return Truncate(turnsToMessages(turns), p.cfg)
}

func turnsToMessages(turns []*session.Turn) []llm.Message {
	msgs := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, turnToMessage(t))
	}
	return msgs
}
