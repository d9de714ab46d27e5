// ABOUTME: Detects tool-call loops: the same call signature repeating in a short window.

package agent

import (
	"fmt"
	"hash/fnv"
)

const (
	loopWindowSize    = 6
	loopRepeatTrigger = 3
)

// loopDetector watches a sliding window of tool-call signatures. A signature
// repeating loopRepeatTrigger times within the window flags a loop.
type loopDetector struct {
	window []string
}

func newLoopDetector() *loopDetector {
	return &loopDetector{}
}

// record adds a call and reports whether it closes a loop.
func (d *loopDetector) record(name, args string) bool {
	sig := callSignature(name, args)
	d.window = append(d.window, sig)
	if len(d.window) > loopWindowSize {
		d.window = d.window[1:]
	}

	count := 0
	for _, s := range d.window {
		if s == sig {
			count++
		}
	}
	return count >= loopRepeatTrigger
}

func (d *loopDetector) reset() {
	d.window = d.window[:0]
}

func callSignature(name, args string) string {
	h := fnv.New64a()
	h.Write([]byte(args))
	return fmt.Sprintf("%s:%x", name, h.Sum64())
}
