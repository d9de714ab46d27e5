// ABOUTME: Tests for output truncation modes and limits.

package tools

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateOutputUnderLimit(t *testing.T) {
	lim := OutputLimit{MaxChars: 100, MaxLines: 10, Mode: OutputHeadTail}
	in := "short output"
	if got := TruncateOutput(in, lim); got != in {
		t.Errorf("under-limit output changed: %q", got)
	}
}

func TestTruncateOutputHeadTailChars(t *testing.T) {
	lim := OutputLimit{MaxChars: 20, Mode: OutputHeadTail}
	in := strings.Repeat("a", 50) + strings.Repeat("b", 50)
	got := TruncateOutput(in, lim)
	if !strings.HasPrefix(got, "aaaa") || !strings.HasSuffix(got, "bbbb") {
		t.Errorf("head_tail should keep both ends: %q", got)
	}
	if !strings.Contains(got, "truncated") {
		t.Error("elision marker missing")
	}
}

func TestTruncateOutputTailLines(t *testing.T) {
	lim := OutputLimit{MaxLines: 3, Mode: OutputTail}
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, "line")
	}
	lines[9] = "final"
	got := TruncateOutput(strings.Join(lines, "\n"), lim)
	if !strings.HasSuffix(got, "final") {
		t.Errorf("tail mode must keep the end: %q", got)
	}
	if !strings.Contains(got, "7 lines truncated") {
		t.Errorf("marker should count dropped lines: %q", got)
	}
}

func TestTruncateOutputCharsKeepValidUTF8(t *testing.T) {
	in := strings.Repeat("世界你好", 25)
	for _, mode := range []OutputMode{OutputHeadTail, OutputTail} {
		got := TruncateOutput(in, OutputLimit{MaxChars: 21, Mode: mode})
		if !utf8.ValidString(got) {
			t.Errorf("%s produced invalid UTF-8: %q", mode, got)
		}
		if !strings.Contains(got, "79 chars truncated") {
			t.Errorf("%s marker should count dropped runes: %q", mode, got)
		}
	}
}

func TestTruncateOutputZeroLimitsPassThrough(t *testing.T) {
	in := strings.Repeat("z", 1000)
	if got := TruncateOutput(in, OutputLimit{}); got != in {
		t.Error("zero limits must not truncate")
	}
}
