// ABOUTME: Tests for stream consumption: delta coalescing and error propagation.

package agent

import (
	"errors"
	"strings"
	"testing"

	"github.com/bytecraft-dev/bytecraft/llm"
)

func streamOf(events ...llm.StreamEvent) <-chan llm.StreamEvent {
	ch := make(chan llm.StreamEvent, len(events))
	for _, e := range events {
		ch <- e
	}
	close(ch)
	return ch
}

func TestConsumeStreamCoalescesDeltas(t *testing.T) {
	sink := &recordingSink{}
	big := strings.Repeat("a", deltaFlushThreshold)
	resp := &llm.Response{Message: llm.AssistantMessage(big + "tail")}

	_, err := consumeStream(streamOf(
		llm.StreamEvent{Type: llm.EventMessageStart},
		llm.StreamEvent{Type: llm.EventTextDelta, Text: big[:50]},
		llm.StreamEvent{Type: llm.EventTextDelta, Text: big[50:]},
		llm.StreamEvent{Type: llm.EventTextDelta, Text: "tail"},
		llm.StreamEvent{Type: llm.EventMessageStop, Response: resp},
	), sink)
	if err != nil {
		t.Fatalf("consumeStream: %v", err)
	}

	// Small deltas buffer until the threshold; the remainder flushes at stop.
	if len(sink.tokens) != 2 {
		t.Errorf("flushes = %d (%q), want 2", len(sink.tokens), sink.tokens)
	}
	if strings.Join(sink.tokens, "") != big+"tail" {
		t.Error("token content lost in coalescing")
	}
}

func TestConsumeStreamReturnsResponse(t *testing.T) {
	sink := &recordingSink{}
	want := &llm.Response{Message: llm.AssistantMessage("done here"), FinishReason: llm.FinishStop}
	got, err := consumeStream(streamOf(
		llm.StreamEvent{Type: llm.EventMessageStart},
		llm.StreamEvent{Type: llm.EventMessageStop, Response: want},
	), sink)
	if err != nil {
		t.Fatalf("consumeStream: %v", err)
	}
	if got.Message.Content != "done here" {
		t.Errorf("response content = %q", got.Message.Content)
	}
}

func TestConsumeStreamError(t *testing.T) {
	sink := &recordingSink{}
	boom := errors.New("transport died")
	_, err := consumeStream(streamOf(
		llm.StreamEvent{Type: llm.EventMessageStart},
		llm.StreamEvent{Type: llm.EventTextDelta, Text: "partial"},
		llm.StreamEvent{Type: llm.EventError, Error: boom},
	), sink)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want the stream error", err)
	}
	// The partial text still reached the sink before the failure.
	if strings.Join(sink.tokens, "") != "partial" {
		t.Errorf("tokens = %q", sink.tokens)
	}
}

func TestConsumeStreamTruncatedStream(t *testing.T) {
	sink := &recordingSink{}
	_, err := consumeStream(streamOf(
		llm.StreamEvent{Type: llm.EventMessageStart},
		llm.StreamEvent{Type: llm.EventTextDelta, Text: "never finished"},
	), sink)
	if err == nil {
		t.Error("stream without message_stop must error")
	}
}
