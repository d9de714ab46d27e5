// ABOUTME: LLM-backed history compression: turns a range of turns into one summary turn.
// ABOUTME: The summary is prefixed with a fixed marker so later stages can detect it.

package fidelity

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bytecraft-dev/bytecraft/session"
)

// SummaryPrefix marks synthetic summary turns. Detection elsewhere relies on
// this exact prefix, trailing space included.
const SummaryPrefix = "[对话摘要] "

// Summarizer is the injected capability the compressor calls.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// SummarizerFunc adapts a function to the Summarizer interface.
type SummarizerFunc func(ctx context.Context, prompt string) (string, error)

func (f SummarizerFunc) Summarize(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// CompressResult reports the outcome of a compression attempt.
type CompressResult struct {
	Compressed bool
	Summary    *session.Turn
	OrigTokens int
	NewTokens  int
}

const summaryInstruction = `请将以下对话历史压缩为结构化的中文摘要。要求：
- 使用条目式要点（bullet points）
- 保留所有技术细节：文件路径、命令、代码改动、配置值
- 保留已经做出的决定及其原因
- 保留尚未解决的问题和待办事项
- 不要添加对话中没有的信息

对话记录：
`

// Compress asks the summarizer to replace the turns with one summary turn.
// It fires when force is set or currentTokens crosses threshold × tokenLimit.
// Any summarizer failure or empty reply yields {Compressed: false}; the
// caller falls back to truncation.
func Compress(ctx context.Context, turns []*session.Turn, summarizer Summarizer, tokenLimit, currentTokens int, threshold float64, force bool) CompressResult {
	result := CompressResult{OrigTokens: currentTokens}
	if summarizer == nil || len(turns) == 0 {
		return result
	}
	if !force && float64(currentTokens) < threshold*float64(tokenLimit) {
		return result
	}

	prompt := summaryInstruction + transcript(turns)
	reply, err := summarizer.Summarize(ctx, prompt)
	if err != nil {
		log.Printf("component=fidelity.compress action=summarize_failed err=%v", err)
		return result
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		log.Printf("component=fidelity.compress action=summarize_empty")
		return result
	}

	summary := session.NewTurn(turns[0].SessionID, session.TurnAssistant, "assistant", SummaryPrefix+reply)
	summary.IsSidechain = true

	result.Compressed = true
	result.Summary = summary
	result.NewTokens = EstimateText(summary.Message.Content, EstimateEnhanced)
	return result
}

// transcript renders turns as a time-ordered readable log.
func transcript(turns []*session.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&b, "[%s] %s: %s\n", t.Timestamp.Format("15:04:05"), t.Message.Role, t.Message.Content)
	}
	return b.String()
}

// HasSummary reports whether any turn carries the summary marker.
func HasSummary(turns []*session.Turn) bool {
	return LastSummaryIndex(turns) >= 0
}

// LastSummaryIndex returns the index of the most recent summary turn, or -1.
func LastSummaryIndex(turns []*session.Turn) int {
	for i := len(turns) - 1; i >= 0; i-- {
		if strings.HasPrefix(turns[i].Message.Content, SummaryPrefix) {
			return i
		}
	}
	return -1
}
