// ABOUTME: Bounds tool output before it is fed back to the model.
// ABOUTME: head_tail keeps both ends of large output; tail keeps the end.

package tools

import (
	"fmt"
	"strings"
)

// OutputMode selects which part of oversized output survives.
type OutputMode string

const (
	OutputHeadTail OutputMode = "head_tail"
	OutputTail     OutputMode = "tail"
)

// OutputLimit bounds one tool's output.
type OutputLimit struct {
	MaxChars int
	MaxLines int
	Mode     OutputMode
}

// DefaultOutputLimit is a sane bound for shell-ish tools.
func DefaultOutputLimit() OutputLimit {
	return OutputLimit{MaxChars: 30000, MaxLines: 400, Mode: OutputHeadTail}
}

// TruncateOutput applies the limit, inserting an elision marker that states
// how much was dropped.
func TruncateOutput(s string, lim OutputLimit) string {
	if lim.MaxChars <= 0 && lim.MaxLines <= 0 {
		return s
	}

	if lim.MaxLines > 0 {
		lines := strings.Split(s, "\n")
		if len(lines) > lim.MaxLines {
			dropped := len(lines) - lim.MaxLines
			switch lim.Mode {
			case OutputTail:
				s = elision(dropped, "lines") + "\n" + strings.Join(lines[len(lines)-lim.MaxLines:], "\n")
			default:
				head := lim.MaxLines / 2
				tail := lim.MaxLines - head
				s = strings.Join(lines[:head], "\n") +
					"\n" + elision(dropped, "lines") + "\n" +
					strings.Join(lines[len(lines)-tail:], "\n")
			}
		}
	}

	if lim.MaxChars > 0 {
		// Slice on rune boundaries so multi-byte output stays valid UTF-8.
		runes := []rune(s)
		if len(runes) > lim.MaxChars {
			dropped := len(runes) - lim.MaxChars
			switch lim.Mode {
			case OutputTail:
				s = elision(dropped, "chars") + string(runes[len(runes)-lim.MaxChars:])
			default:
				head := lim.MaxChars / 2
				tail := lim.MaxChars - head
				s = string(runes[:head]) + elision(dropped, "chars") + string(runes[len(runes)-tail:])
			}
		}
	}
	return s
}

func elision(n int, unit string) string {
	return fmt.Sprintf("... [%d %s truncated] ...", n, unit)
}
