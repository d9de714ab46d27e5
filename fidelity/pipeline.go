// ABOUTME: The context pipeline: filter → curate → compress → messages → truncate → normalize.
// ABOUTME: Also rebuilds model context when an existing session is reopened.

package fidelity

import (
	"context"
	"log"
	"strings"

	"github.com/bytecraft-dev/bytecraft/llm"
	"github.com/bytecraft-dev/bytecraft/session"
)

// Pipeline composes the context stages behind one Optimize call.
type Pipeline struct {
	cfg        Config
	filter     *SensitiveFilter
	summarizer Summarizer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSummarizer enables the compression stage.
func WithSummarizer(s Summarizer) Option {
	return func(p *Pipeline) { p.summarizer = s }
}

// WithFilterKeys overrides the sensitive key set.
func WithFilterKeys(keys ...string) Option {
	return func(p *Pipeline) { p.filter = NewSensitiveFilter(keys...) }
}

// NewPipeline creates a pipeline with the given config.
func NewPipeline(cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, filter: NewSensitiveFilter()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the pipeline's configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// OptimizeStats reports what each stage did.
type OptimizeStats struct {
	OriginalTurns      int
	CuratedTurns       int
	FinalMessages      int
	FilterApplied      bool
	CurationApplied    bool
	CompressionApplied bool
	EstimatedTokens    int
	TotalBytes         int
	TotalLines         int
	TruncationReasons  []string
	Curation           CurationStats
	Fallback           bool
	FallbackReason     string
}

// Optimize turns raw history plus the new user message into a bounded,
// ordered message list for the model. The returned list starts with the
// system message (when a system prompt is supplied) and ends with the
// current user message.
func (p *Pipeline) Optimize(ctx context.Context, turns []*session.Turn, systemPrompt, currentUserMessage string) (msgs []llm.Message, stats *OptimizeStats) {
	stats = &OptimizeStats{OriginalTurns: len(turns)}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("component=fidelity.pipeline action=stage_panic recovered=%v", r)
			msgs = p.fallback(turns, currentUserMessage, stats, "stage panic")
		}
	}()

	if err := p.cfg.Validate(); err != nil {
		log.Printf("component=fidelity.pipeline action=config_invalid err=%v", err)
		return p.fallback(turns, currentUserMessage, stats, err.Error()), stats
	}

	// Stage 1: sensitive redaction (model-input projection only).
	if p.cfg.EnableSensitiveFiltering {
		turns = p.filter.FilterTurns(turns)
		stats.FilterApplied = true
	}

	// Stage 2: curation.
	if p.cfg.EnableCuration {
		turns, stats.Curation = Curate(turns)
		stats.CurationApplied = true
	}
	stats.CuratedTurns = len(turns)

	// Stage 3: compression.
	if p.summarizer != nil {
		current := EstimateTexts(turnContents(turns), p.cfg.EstimationMode)
		res := Compress(ctx, turns, p.summarizer, p.cfg.MaxTokens, current, p.cfg.CompressionThreshold, false)
		if res.Compressed {
			turns = []*session.Turn{res.Summary}
			stats.CompressionApplied = true
		}
	}

	// Stage 4: turns → messages, system first, current user last.
	msgs = make([]llm.Message, 0, len(turns)+2)
	if systemPrompt != "" {
		msgs = append(msgs, llm.SystemMessage(systemPrompt))
	}
	for _, t := range turns {
		msgs = append(msgs, turnToMessage(t))
	}
	msgs = append(msgs, llm.UserMessage(currentUserMessage))

	// Stage 5: truncation.
	before := len(msgs)
	msgs = Truncate(msgs, p.cfg)
	if len(msgs) < before {
		stats.TruncationReasons = append(stats.TruncationReasons, "message_budget")
	}

	// Stage 6: exactly one system message, at the front.
	msgs = p.normalizeSystem(msgs, systemPrompt)

	// Byte and line caps are absolute; shed oldest non-system history.
	msgs = p.enforceByteLineLimits(msgs, stats)

	stats.FinalMessages = len(msgs)
	stats.EstimatedTokens = EstimateMessages(msgs, p.cfg.EstimationMode)
	stats.TotalBytes, stats.TotalLines = sizeOf(msgs)
	return msgs, stats
}

// fallback is the degraded path: the most recent turns as plain messages
// plus the current user message, no system prompt.
func (p *Pipeline) fallback(turns []*session.Turn, currentUserMessage string, stats *OptimizeStats, reason string) []llm.Message {
	stats.Fallback = true
	stats.FallbackReason = reason

	n := p.cfg.MinRecentMessages
	if n <= 0 {
		n = 5
	}
	if n > len(turns) {
		n = len(turns)
	}
	recent := turns[len(turns)-n:]

	msgs := make([]llm.Message, 0, n+1)
	for _, t := range recent {
		msgs = append(msgs, turnToMessage(t))
	}
	msgs = append(msgs, llm.UserMessage(currentUserMessage))
	stats.FinalMessages = len(msgs)
	return msgs
}

func (p *Pipeline) normalizeSystem(msgs []llm.Message, systemPrompt string) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	var firstSystem *llm.Message
	for i := range msgs {
		if msgs[i].Role == llm.RoleSystem {
			if firstSystem == nil {
				firstSystem = &msgs[i]
			}
			continue
		}
		out = append(out, msgs[i])
	}
	if systemPrompt == "" {
		return out
	}
	head := llm.SystemMessage(systemPrompt)
	if firstSystem != nil {
		head = *firstSystem
	}
	return append([]llm.Message{head}, out...)
}

func (p *Pipeline) enforceByteLineLimits(msgs []llm.Message, stats *OptimizeStats) []llm.Message {
	for {
		bytes, lines := sizeOf(msgs)
		if bytes <= p.cfg.MaxBytes && lines <= p.cfg.MaxLines {
			return msgs
		}

		// Find the oldest droppable message: non-system and not the final
		// (current user) message.
		dropped := false
		for i := range msgs {
			if msgs[i].Role == llm.RoleSystem || i == len(msgs)-1 {
				continue
			}
			msgs = append(msgs[:i], msgs[i+1:]...)
			dropped = true
			break
		}
		if !dropped {
			// Nothing left to shed; the current message alone exceeds the
			// cap. Return it anyway: never an empty list.
			if bytes > p.cfg.MaxBytes {
				stats.TruncationReasons = append(stats.TruncationReasons, "byte_budget_unsatisfiable")
			}
			return msgs
		}
		if bytes > p.cfg.MaxBytes {
			appendUnique(&stats.TruncationReasons, "byte_budget")
		} else {
			appendUnique(&stats.TruncationReasons, "line_budget")
		}
	}
}

func appendUnique(list *[]string, v string) {
	for _, s := range *list {
		if s == v {
			return
		}
	}
	*list = append(*list, v)
}

func sizeOf(msgs []llm.Message) (bytes, lines int) {
	for _, m := range msgs {
		bytes += len(m.Content)
		lines += strings.Count(m.Content, "\n") + 1
	}
	return bytes, lines
}

func turnContents(turns []*session.Turn) []string {
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.Message.Content
	}
	return out
}

// turnToMessage projects a stored turn into the runtime message shape.
func turnToMessage(t *session.Turn) llm.Message {
	role := llm.Role(t.Message.Role)
	switch t.Type {
	case session.TurnUser:
		role = llm.RoleUser
	case session.TurnAssistant:
		role = llm.RoleAssistant
	case session.TurnSystem:
		role = llm.RoleSystem
	case session.TurnTool:
		role = llm.RoleTool
	}
	msg := llm.Message{Role: role, Content: t.Message.Content}
	if t.Type == session.TurnTool && t.Tool != nil {
		msg.ToolCallID = t.Tool.CallID
	}
	return msg
}
