// ABOUTME: ProviderAdapter interface implemented by concrete model backends.
// ABOUTME: Holds shared helpers: call-id generation and request validation.

package llm

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ProviderAdapter is a model backend. Stream returns a channel that is closed
// after the final message_stop or error event.
type ProviderAdapter interface {
	Name() string
	Complete(ctx context.Context, req *Request) (*Response, error)
	Stream(ctx context.Context, req *Request) (<-chan StreamEvent, error)
	Close() error
}

// NewCallID generates an identifier for a synthesized tool call.
func NewCallID() string {
	return "call_" + uuid.NewString()
}

// validateRequest checks the invariants every adapter relies on.
func validateRequest(req *Request) error {
	if req == nil {
		return fmt.Errorf("nil request")
	}
	if req.Model == "" {
		return fmt.Errorf("request missing model")
	}
	if len(req.Messages) == 0 && req.System == "" {
		return fmt.Errorf("request has no messages")
	}
	for i, m := range req.Messages {
		if m.Role == RoleTool && m.ToolCallID == "" {
			return fmt.Errorf("message %d: tool message missing tool_call_id", i)
		}
	}
	return nil
}
