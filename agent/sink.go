// ABOUTME: Sink is the callback surface the loop streams progress through.
// ABOUTME: EventSink adapts the synchronous sink to a buffered channel for async consumers.

package agent

import "log"

// Sink receives loop progress. Implementations must be fast; the loop calls
// them synchronously. Token emissions are best-effort and may be coalesced.
type Sink interface {
	OnToken(text string)
	OnToolCall(name, args string)
	OnToolResult(name, result string)
	OnComplete(final string)
	OnError(err error)
}

// NopSink ignores every event.
type NopSink struct{}

func (NopSink) OnToken(string)              {}
func (NopSink) OnToolCall(string, string)   {}
func (NopSink) OnToolResult(string, string) {}
func (NopSink) OnComplete(string)           {}
func (NopSink) OnError(error)               {}

// EventType discriminates EventSink events.
type EventType string

const (
	EventToken      EventType = "token"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventComplete   EventType = "complete"
	EventFailure    EventType = "error"
)

// Event is one loop progress event in channel form.
type Event struct {
	Type    EventType
	Text    string
	Name    string
	Payload string
	Err     error
}

const eventBufferSize = 64

// EventSink fans sink callbacks out to a buffered channel. When the consumer
// falls behind, events are dropped rather than blocking the loop.
type EventSink struct {
	ch chan Event
}

// NewEventSink creates a sink with the standard buffer.
func NewEventSink() *EventSink {
	return &EventSink{ch: make(chan Event, eventBufferSize)}
}

// Events returns the consumer side of the sink.
func (s *EventSink) Events() <-chan Event { return s.ch }

// Close releases the channel. Call only after the loop has returned.
func (s *EventSink) Close() { close(s.ch) }

func (s *EventSink) emit(e Event) {
	select {
	case s.ch <- e:
	default:
		log.Printf("component=agent.sink action=event_dropped type=%s", e.Type)
	}
}

func (s *EventSink) OnToken(text string) { s.emit(Event{Type: EventToken, Text: text}) }

func (s *EventSink) OnToolCall(name, args string) {
	s.emit(Event{Type: EventToolCall, Name: name, Payload: args})
}

func (s *EventSink) OnToolResult(name, result string) {
	s.emit(Event{Type: EventToolResult, Name: name, Payload: result})
}

func (s *EventSink) OnComplete(final string) { s.emit(Event{Type: EventComplete, Text: final}) }

func (s *EventSink) OnError(err error) { s.emit(Event{Type: EventFailure, Err: err}) }

var _ Sink = (*EventSink)(nil)
var _ Sink = NopSink{}
