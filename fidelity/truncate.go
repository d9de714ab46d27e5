// ABOUTME: Three truncation strategies that fit a message list into configured limits.
// ABOUTME: All strategies are deterministic and preserve original message order.

package fidelity

import (
	"sort"
	"strings"

	"github.com/bytecraft-dev/bytecraft/llm"
)

var importanceKeywords = []string{"error", "bug", "fix", "important", "warning", "config", "setup"}

// Truncate applies the configured strategy. The last message (the current
// user message) always survives.
func Truncate(msgs []llm.Message, cfg Config) []llm.Message {
	switch cfg.Strategy {
	case StrategySimpleSlidingWindow:
		return truncateSimple(msgs, cfg)
	case StrategyImportanceBased:
		return truncateImportance(msgs, cfg)
	default:
		return truncateSmart(msgs, cfg)
	}
}

func splitSystem(msgs []llm.Message) (systems, rest []llm.Message) {
	for _, m := range msgs {
		if m.Role == llm.RoleSystem {
			systems = append(systems, m)
		} else {
			rest = append(rest, m)
		}
	}
	return systems, rest
}

// truncateSimple keeps all system messages plus the last K non-system
// messages. Token, byte, and line limits are not re-checked here.
func truncateSimple(msgs []llm.Message, cfg Config) []llm.Message {
	systems, rest := splitSystem(msgs)

	k := cfg.MaxMessages - len(systems)
	if k < cfg.MinRecentMessages {
		k = cfg.MinRecentMessages
	}
	// The final message (the current user message) always survives.
	if k < 1 {
		k = 1
	}
	if k > len(rest) {
		k = len(rest)
	}
	kept := rest[len(rest)-k:]

	out := make([]llm.Message, 0, len(systems)+len(kept))
	out = append(out, systems...)
	out = append(out, kept...)
	return out
}

// truncateSmart applies the system-message policy, fills with the most
// recent non-system messages, then sheds oldest messages until the token
// estimate fits, never going below MinRecentMessages.
func truncateSmart(msgs []llm.Message, cfg Config) []llm.Message {
	systems, rest := splitSystem(msgs)
	systems = applySystemHandling(systems, cfg.SystemHandling)

	// The final message (the current user message) always survives.
	budget := cfg.MaxMessages - len(systems)
	if budget < 1 {
		budget = 1
	}
	if budget > len(rest) {
		budget = len(rest)
	}
	kept := rest[len(rest)-budget:]

	floor := cfg.MinRecentMessages
	if floor < 1 {
		floor = 1
	}
	for len(kept) > floor {
		total := EstimateMessages(systems, cfg.EstimationMode) + EstimateMessages(kept, cfg.EstimationMode)
		if total <= cfg.MaxTokens {
			break
		}
		kept = kept[1:]
	}

	out := make([]llm.Message, 0, len(systems)+len(kept))
	out = append(out, systems...)
	out = append(out, kept...)
	return out
}

func applySystemHandling(systems []llm.Message, policy SystemHandling) []llm.Message {
	if len(systems) <= 1 {
		return systems
	}
	switch policy {
	case SystemLatestOnly:
		return systems[len(systems)-1:]
	case SystemSmartMerge:
		parts := make([]string, len(systems))
		for i, m := range systems {
			parts[i] = m.Content
		}
		return []llm.Message{llm.SystemMessage(strings.Join(parts, "\n\n---\n\n"))}
	default:
		return systems
	}
}

// truncateImportance scores every message and greedily keeps the best until
// the message or token budget would be exceeded. Output preserves input order.
func truncateImportance(msgs []llm.Message, cfg Config) []llm.Message {
	if len(msgs) == 0 {
		return msgs
	}

	type scored struct {
		index int
		score float64
	}
	total := len(msgs)
	items := make([]scored, total)
	for i, m := range msgs {
		items[i] = scored{index: i, score: scoreMessage(m, i, total)}
	}
	sort.SliceStable(items, func(a, b int) bool {
		if items[a].score != items[b].score {
			return items[a].score > items[b].score
		}
		return items[a].index > items[b].index
	})

	// The current user message is always in; it anchors the selection.
	last := total - 1
	selected := map[int]bool{last: true}
	count := 1
	tokens := EstimateMessage(msgs[last], cfg.EstimationMode)

	for _, it := range items {
		if selected[it.index] {
			continue
		}
		cost := EstimateMessage(msgs[it.index], cfg.EstimationMode)
		if count+1 > cfg.MaxMessages || tokens+cost > cfg.MaxTokens {
			break
		}
		selected[it.index] = true
		count++
		tokens += cost
	}

	out := make([]llm.Message, 0, count)
	for i, m := range msgs {
		if selected[i] {
			out = append(out, m)
		}
	}
	return out
}

// scoreMessage rates a message in [0, 1].
func scoreMessage(m llm.Message, index, total int) float64 {
	if m.Role == llm.RoleSystem {
		return 1.0
	}
	score := 0.5

	lower := strings.ToLower(m.Content)
	matches := 0
	for _, kw := range importanceKeywords {
		if strings.Contains(lower, kw) {
			matches++
			if matches == 3 {
				break
			}
		}
	}
	score += 0.1 * float64(matches)

	score += 0.3 * float64(index) / float64(total)

	n := len([]rune(m.Content))
	switch {
	case n >= 100 && n <= 500:
		score += 0.1
	case n > 1000:
		score -= 0.1
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}
