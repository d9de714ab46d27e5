// ABOUTME: Core data model for the chat-completion client: messages, tools, requests, responses.
// ABOUTME: Defines the flat Message shape consumed by providers and the streaming event variants.

package llm

import (
	"encoding/json"
	"time"
)

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model-initiated tool invocation carried on an assistant message.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ArgumentsMap parses the raw JSON arguments into a map. Malformed arguments
// yield an empty map rather than an error so callers can still dispatch.
func (tc ToolCall) ArgumentsMap() map[string]any {
	var m map[string]any
	if err := json.Unmarshal([]byte(tc.Arguments), &m); err != nil {
		return map[string]any{}
	}
	return m
}

// Message is a single conversation message. Assistant messages may carry tool
// calls; tool messages carry the ToolCallID they answer.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// SystemMessage builds a system message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserMessage builds a user message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage builds a plain-text assistant message.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// ToolResultMessage builds a tool message answering the given tool call.
func ToolResultMessage(toolCallID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

// HasToolCalls reports whether the message requests any tool invocations.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// ToolDefinition describes a tool exposed to the model. Parameters is a JSON
// Schema object with root type "object".
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Usage tracks token consumption for one model call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Total returns input plus output tokens.
func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }

// Add accumulates another usage into this one.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// FinishReason is the normalized reason a completion stopped.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishToolCalls FinishReason = "tool_calls"
	FinishLength    FinishReason = "length"
	FinishOther     FinishReason = "other"
)

// Request is the provider-independent completion request.
type Request struct {
	Model       string
	System      string
	Messages    []Message
	Tools       []ToolDefinition
	MaxTokens   int
	Temperature *float64
}

// Response is a completed model turn.
type Response struct {
	ID           string       `json:"id"`
	Model        string       `json:"model"`
	Message      Message      `json:"message"`
	FinishReason FinishReason `json:"finish_reason"`
	Usage        Usage        `json:"usage"`
}

// Text returns the textual content of the response message.
func (r *Response) Text() string { return r.Message.Content }

// StreamEventType discriminates streaming events.
type StreamEventType string

const (
	EventMessageStart StreamEventType = "message_start"
	EventTextDelta    StreamEventType = "text_delta"
	EventToolCall     StreamEventType = "tool_call"
	EventMessageStop  StreamEventType = "message_stop"
	EventError        StreamEventType = "error"
)

// StreamEvent is one event in a streaming completion. Text is set for
// text_delta, ToolCall for tool_call, Response for message_stop, Error for
// error events.
type StreamEvent struct {
	Type     StreamEventType
	Text     string
	ToolCall *ToolCall
	Response *Response
	Error    error
}

// Timeouts holds the client-side timeout knobs.
type Timeouts struct {
	Request time.Duration
	Stream  time.Duration
}

// DefaultTimeouts returns the default timeout configuration.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Request: 120 * time.Second,
		Stream:  300 * time.Second,
	}
}
