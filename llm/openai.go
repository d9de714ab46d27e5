// ABOUTME: Chat Completions adapter over the official openai-go SDK.
// ABOUTME: Supports custom base URLs for OpenAI-compatible gateways; streams via ChatCompletionAccumulator.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultMaxTokens = 4096

// OpenAIAdapter implements ProviderAdapter using the OpenAI Chat Completions
// API (/v1/chat/completions), which compatible providers also serve.
type OpenAIAdapter struct {
	client openai.Client
	name   string
	model  string
}

// OpenAIOption configures an OpenAIAdapter.
type OpenAIOption func(*openaiConfig)

type openaiConfig struct {
	baseURL string
	name    string
}

// WithBaseURL points the adapter at an OpenAI-compatible gateway.
func WithBaseURL(url string) OpenAIOption {
	return func(c *openaiConfig) { c.baseURL = url }
}

// WithProviderName overrides the adapter name used in routing and errors.
func WithProviderName(name string) OpenAIOption {
	return func(c *openaiConfig) { c.name = name }
}

// NewOpenAIAdapter creates an adapter with the given API key and default model.
func NewOpenAIAdapter(apiKey, model string, opts ...OpenAIOption) *OpenAIAdapter {
	cfg := openaiConfig{name: "openai"}
	for _, opt := range opts {
		opt(&cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &OpenAIAdapter{
		client: openai.NewClient(reqOpts...),
		name:   cfg.name,
		model:  model,
	}
}

func (a *OpenAIAdapter) Name() string { return a.name }

// Close releases adapter resources. The SDK client holds none.
func (a *OpenAIAdapter) Close() error { return nil }

// Complete sends a request and returns the full response.
func (a *OpenAIAdapter) Complete(ctx context.Context, req *Request) (*Response, error) {
	params := a.buildParams(req)
	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, a.wrapError(err)
	}
	return a.convertResponse(resp), nil
}

// Stream sends a request and returns a channel of streaming events. The
// channel closes after message_stop or error.
func (a *OpenAIAdapter) Stream(ctx context.Context, req *Request) (<-chan StreamEvent, error) {
	params := a.buildParams(req)
	stream := a.client.Chat.Completions.NewStreaming(ctx, params)

	events := make(chan StreamEvent, 100)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("component=llm.openai action=stream_panic recovered=%v", r)
				events <- StreamEvent{
					Type:  EventError,
					Error: fmt.Errorf("panic in stream processing: %v", r),
				}
			}
			close(events)
		}()

		var acc openai.ChatCompletionAccumulator

		events <- StreamEvent{Type: EventMessageStart}

		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)

			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				events <- StreamEvent{
					Type: EventTextDelta,
					Text: chunk.Choices[0].Delta.Content,
				}
			}

			if toolCall, ok := acc.JustFinishedToolCall(); ok {
				events <- StreamEvent{
					Type: EventToolCall,
					ToolCall: &ToolCall{
						ID:        toolCall.ID,
						Name:      toolCall.Name,
						Arguments: toolCall.Arguments,
					},
				}
			}
		}

		if err := stream.Err(); err != nil {
			events <- StreamEvent{Type: EventError, Error: a.wrapError(err)}
			return
		}

		events <- StreamEvent{
			Type:     EventMessageStop,
			Response: a.convertResponse(&acc.ChatCompletion),
		}
	}()

	return events, nil
}

func (a *OpenAIAdapter) buildParams(req *Request) openai.ChatCompletionNewParams {
	model := req.Model
	if model == "" {
		model = a.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model:               model,
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case RoleAssistant:
			messages = append(messages, convertAssistantMessage(msg))
		case RoleTool:
			messages = append(messages, openai.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}
	params.Messages = messages

	if len(req.Tools) > 0 {
		tools := make([]openai.ChatCompletionToolParam, 0, len(req.Tools))
		for _, tool := range req.Tools {
			var schema map[string]any
			if err := json.Unmarshal(tool.Parameters, &schema); err != nil {
				schema = map[string]any{"type": "object"}
			}
			tools = append(tools, openai.ChatCompletionToolParam{
				Type: "function",
				Function: openai.FunctionDefinitionParam{
					Name:        tool.Name,
					Description: openai.String(tool.Description),
					Parameters:  openai.FunctionParameters(schema),
				},
			})
		}
		params.Tools = tools
	}

	return params
}

func convertAssistantMessage(msg Message) openai.ChatCompletionMessageParamUnion {
	if len(msg.ToolCalls) == 0 {
		return openai.AssistantMessage(msg.Content)
	}

	toolCalls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
			ID:   tc.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}

	asst := openai.ChatCompletionAssistantMessageParam{
		Role:      "assistant",
		ToolCalls: toolCalls,
	}
	if msg.Content != "" {
		asst.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.String(msg.Content),
		}
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &asst}
}

func (a *OpenAIAdapter) convertResponse(resp *openai.ChatCompletion) *Response {
	result := &Response{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}

	if len(resp.Choices) == 0 {
		result.Message = AssistantMessage("")
		result.FinishReason = FinishOther
		return result
	}

	choice := resp.Choices[0]
	msg := Message{Role: RoleAssistant, Content: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		id := tc.ID
		if id == "" {
			id = NewCallID()
		}
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	result.Message = msg

	switch choice.FinishReason {
	case "stop":
		result.FinishReason = FinishStop
	case "tool_calls":
		result.FinishReason = FinishToolCalls
	case "length":
		result.FinishReason = FinishLength
	default:
		if msg.HasToolCalls() {
			result.FinishReason = FinishToolCalls
		} else {
			result.FinishReason = FinishStop
		}
	}

	return result
}

// wrapError maps SDK errors into the typed hierarchy.
func (a *OpenAIAdapter) wrapError(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		wrapped := classifyProviderError(a.name, apierr.StatusCode, apierr.Message, err)
		var rl *RateLimitError
		if errors.As(wrapped, &rl) && apierr.Response != nil {
			if after := apierr.Response.Header.Get("Retry-After"); after != "" {
				if secs, perr := strconv.Atoi(after); perr == nil && secs > 0 {
					rl.RetryAfter = time.Duration(secs) * time.Second
				}
			}
		}
		return wrapped
	}
	return classifyProviderError(a.name, 0, err.Error(), err)
}

var _ ProviderAdapter = (*OpenAIAdapter)(nil)
