// ABOUTME: Classifies assistant responses as valid or failed for the curator.
// ABOUTME: Detects error markers, stuck progress text, broken JSON, and token loops.

package fidelity

import (
	"encoding/json"
	"strings"
)

// Validity is the validator verdict with a structured reason for logging.
type Validity struct {
	Valid  bool
	Reason string
}

var failureMarkers = []string{
	"[error]", "failed", "❌", "错误", "失败", "无法完成",
	"error:", "exception:", "failed to", "unable to", "cannot process",
}

var inProgressMarkers = []string{
	"processing...", "thinking...", "loading...",
	"正在处理", "请稍等", "正在生成",
}

const (
	minResponseChars   = 5
	repetitionMinWords = 10
	repetitionRatio    = 0.3
)

// ValidateResponse classifies an assistant message's content.
func ValidateResponse(content string) Validity {
	trimmed := strings.TrimSpace(content)
	if len([]rune(trimmed)) < minResponseChars {
		return Validity{Valid: false, Reason: "too_short"}
	}

	lower := strings.ToLower(trimmed)
	for _, marker := range failureMarkers {
		if strings.Contains(lower, marker) {
			return Validity{Valid: false, Reason: "failure_marker:" + marker}
		}
	}
	for _, marker := range inProgressMarkers {
		if strings.Contains(lower, marker) {
			return Validity{Valid: false, Reason: "in_progress_marker:" + marker}
		}
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
			return Validity{Valid: false, Reason: "malformed_json"}
		}
	}

	if reason, bad := pathologicalRepetition(trimmed); bad {
		return Validity{Valid: false, Reason: reason}
	}

	return Validity{Valid: true}
}

// pathologicalRepetition flags responses where one token dominates the output,
// a common failure shape of looping models.
func pathologicalRepetition(content string) (string, bool) {
	words := strings.Fields(content)
	if len(words) < repetitionMinWords {
		return "", false
	}
	counts := make(map[string]int)
	for _, w := range words {
		if len([]rune(w)) > 2 {
			counts[w]++
		}
	}
	limit := int(float64(len(words)) * repetitionRatio)
	for w, n := range counts {
		if n > limit {
			return "repetition:" + w, true
		}
	}
	return "", false
}
