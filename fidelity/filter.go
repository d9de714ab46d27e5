// ABOUTME: Redacts credential-shaped key:value substrings before content reaches the model.
// ABOUTME: Prose mentions of the key words pass through; only separator forms are filtered.

package fidelity

import (
	"regexp"
	"sort"

	"github.com/bytecraft-dev/bytecraft/session"
)

// FilteredMarker replaces redacted values.
const FilteredMarker = "[FILTERED]"

// DefaultSensitiveKeys is the default credential key set.
var DefaultSensitiveKeys = []string{
	"authorization", "access_token", "refresh_token", "secret_key",
	"password", "api_key", "bearer", "secret", "token", "auth", "key",
}

type sensitiveRule struct {
	key string
	re  *regexp.Regexp
}

// SensitiveFilter redacts values paired with credential keys.
type SensitiveFilter struct {
	rules []sensitiveRule
}

// NewSensitiveFilter builds a filter for the given keys, or the default set
// when keys is empty. Longer keys are processed first so `key` never shadows
// `api_key`.
func NewSensitiveFilter(keys ...string) *SensitiveFilter {
	if len(keys) == 0 {
		keys = DefaultSensitiveKeys
	}
	// Sort a copy; the caller's slice is not reordered.
	keys = append([]string(nil), keys...)
	sort.SliceStable(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	f := &SensitiveFilter{}
	for _, key := range keys {
		// The value is a bounded run of identifier/quote characters; the
		// replacement marker starts with '[' and so never re-matches.
		pattern := `(?i)\b(` + regexp.QuoteMeta(key) + `)\s*[:=]\s*`
		if key == "authorization" {
			pattern += `(?:Bearer\s+)?`
		}
		pattern += `["']?[A-Za-z0-9_\-./~+]+["']?`
		f.rules = append(f.rules, sensitiveRule{key: key, re: regexp.MustCompile(pattern)})
	}
	return f
}

// FilterText redacts one content string.
func (f *SensitiveFilter) FilterText(content string) string {
	for _, rule := range f.rules {
		content = rule.re.ReplaceAllString(content, "$1: "+FilteredMarker)
	}
	return content
}

// FilterTurns returns a redacted projection of the turns. The input turns are
// not mutated: stored history keeps the original content, redaction applies
// only to what the model sees.
func (f *SensitiveFilter) FilterTurns(turns []*session.Turn) []*session.Turn {
	out := make([]*session.Turn, len(turns))
	for i, t := range turns {
		filtered := f.FilterText(t.Message.Content)
		if filtered == t.Message.Content {
			out[i] = t
			continue
		}
		clone := *t
		clone.Message.Content = filtered
		out[i] = &clone
	}
	return out
}
