// ABOUTME: Tests for code tool argument validation and timeout clamping.

package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func codeInvoke(t *testing.T, args map[string]any) Result {
	t.Helper()
	tool := NewCodeTool()
	raw, _ := json.Marshal(args)
	return decodeResult(t, tool.Invoke(context.Background(), string(raw)))
}

func TestCodeUnsupportedLanguage(t *testing.T) {
	res := codeInvoke(t, map[string]any{"language": "cobol", "code": "DISPLAY 'HI'."})
	if res.Success || !strings.Contains(res.Error, "unsupported language") {
		t.Errorf("result = %+v", res)
	}
}

func TestCodeSourceTooLarge(t *testing.T) {
	res := codeInvoke(t, map[string]any{"language": "python", "code": strings.Repeat("#", maxSourceBytes+1)})
	if res.Success || !strings.Contains(res.Error, "source too large") {
		t.Errorf("result = %+v", res)
	}
}

func TestCodeBlockedPattern(t *testing.T) {
	res := codeInvoke(t, map[string]any{"language": "python", "code": `import subprocess; subprocess.call("rm -rf /tmp/x")`})
	if res.Success || !strings.Contains(res.Error, "blocked pattern") {
		t.Errorf("result = %+v", res)
	}
}

func TestCodeRunsBash(t *testing.T) {
	res := codeInvoke(t, map[string]any{"language": "bash", "code": "echo from-script"})
	if !res.Success {
		t.Fatalf("bash run failed: %+v", res)
	}
	if strings.TrimSpace(res.Stdout) != "from-script" {
		t.Errorf("stdout = %q", res.Stdout)
	}
}

func TestClampTimeout(t *testing.T) {
	cases := []struct {
		ms   int
		want time.Duration
	}{
		{0, defaultExecTimeout},
		{-5, defaultExecTimeout},
		{500, minExecTimeout},
		{5000, 5 * time.Second},
		{10_000_000, maxExecTimeout},
	}
	for _, tc := range cases {
		if got := clampTimeout(tc.ms); got != tc.want {
			t.Errorf("clampTimeout(%d) = %v, want %v", tc.ms, got, tc.want)
		}
	}
}

func TestCodeInvalidArguments(t *testing.T) {
	tool := NewCodeTool()
	res := decodeResult(t, tool.Invoke(context.Background(), "not json at all"))
	if res.Success {
		t.Error("invalid arguments must fail")
	}
}
