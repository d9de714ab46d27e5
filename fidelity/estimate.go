// ABOUTME: Language-aware token estimation without a real tokenizer.
// ABOUTME: CJK, latin, and other character classes weigh differently in enhanced mode.

package fidelity

import (
	"math"
	"unicode"

	"github.com/bytecraft-dev/bytecraft/llm"
)

// perMessageOverhead approximates the role and framing tokens the provider
// adds around each message.
const perMessageOverhead = 4

// EstimateText estimates tokens for one content string.
func EstimateText(content string, mode EstimationMode) int {
	switch mode {
	case EstimateSimple:
		n := len([]rune(content))
		return int(math.Ceil(float64(n) / 3))
	case EstimatePrecise:
		// Real BPE integration pending; enhanced is the stand-in.
		return enhancedEstimate(content)
	default:
		return enhancedEstimate(content)
	}
}

func enhancedEstimate(content string) int {
	var cjk, latin, other int
	for _, r := range content {
		switch {
		case isCJK(r):
			cjk++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
		default:
			other++
		}
	}
	tokens := math.Ceil(float64(cjk)/1.5) +
		math.Ceil(float64(latin)/0.75) +
		math.Ceil(float64(other)/2)
	return int(tokens)
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}

// EstimateMessages estimates the token count of a full message list.
// In simple mode the per-message overhead is skipped: the estimate is a pure
// character ratio.
func EstimateMessages(msgs []llm.Message, mode EstimationMode) int {
	total := 0
	for _, m := range msgs {
		total += EstimateMessage(m, mode)
	}
	return total
}

// EstimateMessage estimates one message including tool-call payloads.
func EstimateMessage(m llm.Message, mode EstimationMode) int {
	content := m.Content
	for _, tc := range m.ToolCalls {
		content += tc.Name + tc.Arguments
	}
	if mode == EstimateSimple {
		return EstimateText(content, mode)
	}
	return perMessageOverhead + EstimateText(content, mode)
}

// EstimateTexts estimates a set of plain strings as message contents.
func EstimateTexts(contents []string, mode EstimationMode) int {
	total := 0
	for _, c := range contents {
		if mode == EstimateSimple {
			total += EstimateText(c, mode)
		} else {
			total += perMessageOverhead + EstimateText(c, mode)
		}
	}
	return total
}
