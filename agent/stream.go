// ABOUTME: Consumes a provider stream, coalescing text deltas into OnToken calls.
// ABOUTME: Returns the assembled final response once the stream stops.

package agent

import (
	"fmt"

	"github.com/bytecraft-dev/bytecraft/llm"
)

// deltaFlushThreshold batches small text deltas before they reach the sink.
const deltaFlushThreshold = 200

// consumeStream drains events until message_stop or error. Text deltas are
// buffered and flushed to OnToken when the buffer crosses the threshold or a
// non-text event arrives.
func consumeStream(events <-chan llm.StreamEvent, sink Sink) (*llm.Response, error) {
	var pending []byte
	flush := func() {
		if len(pending) > 0 {
			sink.OnToken(string(pending))
			pending = pending[:0]
		}
	}

	var resp *llm.Response
	for ev := range events {
		switch ev.Type {
		case llm.EventTextDelta:
			pending = append(pending, ev.Text...)
			if len(pending) >= deltaFlushThreshold {
				flush()
			}
		case llm.EventMessageStop:
			flush()
			resp = ev.Response
		case llm.EventError:
			flush()
			return nil, ev.Error
		default:
			flush()
		}
	}

	if resp == nil {
		return nil, fmt.Errorf("stream ended without a final response")
	}
	return resp, nil
}
