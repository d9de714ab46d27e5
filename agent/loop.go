// ABOUTME: The agent loop: alternates model calls and tool dispatch until a final answer.
// ABOUTME: Persists every turn of the round in emission order; capped at 25 cycles.

package agent

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/oklog/ulid/v2"

	"github.com/bytecraft-dev/bytecraft/fidelity"
	"github.com/bytecraft-dev/bytecraft/llm"
	"github.com/bytecraft-dev/bytecraft/session"
	"github.com/bytecraft-dev/bytecraft/tools"
)

// maxCycles bounds model→tools→model round trips per user message.
const maxCycles = 25

const loopWarning = "You appear to be repeating the same tool call with the same arguments. " +
	"Stop retrying it: either change your approach or answer with the information you already have."

// LimitError reports the recursion cap being hit.
type LimitError struct {
	Cycles int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("agent loop exceeded %d cycles", e.Cycles)
}

// Config assembles a Loop. Client, Store, Pipeline, and Registry are required.
type Config struct {
	Client       *llm.Client
	Provider     string
	Model        string
	Store        *session.Store
	Pipeline     *fidelity.Pipeline
	Registry     *tools.Registry
	SystemPrompt string
	Sink         Sink
	Streaming    bool
}

// Loop drives one conversation round at a time against a single session.
type Loop struct {
	client       *llm.Client
	provider     string
	model        string
	store        *session.Store
	pipeline     *fidelity.Pipeline
	registry     *tools.Registry
	systemPrompt string
	sink         Sink
	streaming    bool
	cwd          string
	detector     *loopDetector
}

// NewLoop creates a loop. A nil Sink becomes a NopSink.
func NewLoop(cfg Config) *Loop {
	sink := cfg.Sink
	if sink == nil {
		sink = NopSink{}
	}
	cwd, _ := os.Getwd()
	return &Loop{
		client:       cfg.Client,
		provider:     cfg.Provider,
		model:        cfg.Model,
		store:        cfg.Store,
		pipeline:     cfg.Pipeline,
		registry:     cfg.Registry,
		systemPrompt: cfg.SystemPrompt,
		sink:         sink,
		streaming:    cfg.Streaming,
		cwd:          cwd,
		detector:     newLoopDetector(),
	}
}

// SetModel switches the model used for subsequent rounds.
func (l *Loop) SetModel(model string) { l.model = model }

// Model returns the active model name.
func (l *Loop) Model() string { return l.model }

// ProcessMessage runs one full round for userText against the session and
// returns the final assistant text. All turns of the round are appended to
// the store in emission order; a failure mid-round leaves the store
// consistent up to the last appended turn.
func (l *Loop) ProcessMessage(ctx context.Context, sessionID, userText string) (string, error) {
	runID := ulid.Make().String()

	history, err := l.store.LoadTurns(sessionID)
	if err != nil {
		l.sink.OnError(err)
		return "", err
	}

	if firstUserMessage(history) {
		if err := l.store.UpdateTitle(sessionID, session.TitleFromText(userText)); err != nil {
			log.Printf("component=agent.loop action=title_update_failed session=%s err=%v", sessionID, err)
		}
	}

	// The user turn is durable before the first model call.
	userTurn := l.newTurn(sessionID, session.TurnUser, "user", userText)
	if err := l.store.AppendTurn(userTurn); err != nil {
		l.sink.OnError(err)
		return "", err
	}

	messages, stats := l.pipeline.Optimize(ctx, history, l.systemPrompt, userText)
	log.Printf("component=agent.loop action=context_ready run=%s session=%s messages=%d tokens=%d fallback=%v",
		runID, sessionID, stats.FinalMessages, stats.EstimatedTokens, stats.Fallback)

	defs := l.registry.Definitions()
	parent := userTurn.UUID
	l.detector.reset()

	for cycle := 0; cycle < maxCycles; cycle++ {
		resp, err := l.invokeModel(ctx, messages, defs)
		if err != nil {
			l.sink.OnError(err)
			return "", err
		}

		msg := resp.Message
		if !msg.HasToolCalls() {
			final := l.newTurn(sessionID, session.TurnAssistant, "assistant", msg.Content)
			final.ParentUUID = parent
			if err := l.store.AppendTurn(final); err != nil {
				l.sink.OnError(err)
				return "", err
			}
			if err := l.store.SetLastSession(sessionID); err != nil {
				log.Printf("component=agent.loop action=lastsession_failed err=%v", err)
			}
			l.sink.OnComplete(msg.Content)
			return msg.Content, nil
		}

		messages = append(messages, msg)
		parent, err = l.runTools(ctx, sessionID, parent, msg, &messages)
		if err != nil {
			l.sink.OnError(err)
			return "", err
		}
	}

	log.Printf("component=agent.loop action=cycle_limit run=%s session=%s cycles=%d", runID, sessionID, maxCycles)
	limitErr := &LimitError{Cycles: maxCycles}
	terminal := l.newTurn(sessionID, session.TurnAssistant, "assistant",
		fmt.Sprintf("The request could not be completed: the tool loop hit the %d-cycle limit.", maxCycles))
	terminal.ParentUUID = parent
	if err := l.store.AppendTurn(terminal); err != nil {
		log.Printf("component=agent.loop action=terminal_append_failed session=%s err=%v", sessionID, err)
	}
	l.sink.OnError(limitErr)
	return "", limitErr
}

// runTools dispatches each requested call in order, persisting a call turn
// and a result turn per invocation, and extends the message list with the
// tool results. Returns the uuid the next turn should parent to.
func (l *Loop) runTools(ctx context.Context, sessionID, parent string, msg llm.Message, messages *[]llm.Message) (string, error) {
	for i, tc := range msg.ToolCalls {
		content := ""
		if i == 0 {
			content = msg.Content
		}
		callTurn := l.newTurn(sessionID, session.TurnAssistant, "assistant", content)
		callTurn.ParentUUID = parent
		callTurn.Tool = &session.ToolRecord{CallID: tc.ID, Name: tc.Name, Arguments: tc.Arguments}
		if err := l.store.AppendTurn(callTurn); err != nil {
			return parent, err
		}

		l.sink.OnToolCall(tc.Name, tc.Arguments)
		result := l.registry.Invoke(ctx, tc.Name, tc.Arguments)
		l.sink.OnToolResult(tc.Name, result)

		resultTurn := l.newTurn(sessionID, session.TurnTool, "tool", result)
		resultTurn.ParentUUID = callTurn.UUID
		resultTurn.Tool = &session.ToolRecord{CallID: tc.ID, Name: tc.Name, Result: result}
		if err := l.store.AppendTurn(resultTurn); err != nil {
			return parent, err
		}
		parent = resultTurn.UUID

		*messages = append(*messages, llm.ToolResultMessage(tc.ID, result))

		if l.detector.record(tc.Name, tc.Arguments) {
			log.Printf("component=agent.loop action=tool_loop_detected tool=%s", tc.Name)
			*messages = append(*messages, llm.UserMessage(loopWarning))
		}
	}
	return parent, nil
}

func (l *Loop) invokeModel(ctx context.Context, messages []llm.Message, defs []llm.ToolDefinition) (*llm.Response, error) {
	req := &llm.Request{
		Model:    l.model,
		Messages: messages,
		Tools:    defs,
	}

	if l.streaming {
		events, err := l.client.Stream(ctx, l.provider, req)
		if err != nil {
			return nil, err
		}
		return consumeStream(events, l.sink)
	}
	return l.client.Complete(ctx, l.provider, req)
}

func (l *Loop) newTurn(sessionID string, typ session.TurnType, role, content string) *session.Turn {
	t := session.NewTurn(sessionID, typ, role, content)
	t.CWD = l.cwd
	return t
}

// firstUserMessage reports whether the session has no external user turn yet.
func firstUserMessage(history []*session.Turn) bool {
	for _, t := range history {
		if t.Type == session.TurnUser && !t.IsSidechain {
			return false
		}
	}
	return true
}
