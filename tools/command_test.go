// ABOUTME: Tests for the command tool and shared safety policy.

package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func cmdInvoke(t *testing.T, tool *CommandTool, args map[string]any) Result {
	t.Helper()
	raw, _ := json.Marshal(args)
	return decodeResult(t, tool.Invoke(context.Background(), string(raw)))
}

func TestCommandRun(t *testing.T) {
	tool := NewCommandTool(t.TempDir())
	res := cmdInvoke(t, tool, map[string]any{"action": "run", "command": "echo hello"})
	if !res.Success {
		t.Fatalf("run failed: %+v", res)
	}
	if strings.TrimSpace(res.Stdout) != "hello" {
		t.Errorf("stdout = %q", res.Stdout)
	}
	if res.ExitCode == nil || *res.ExitCode != 0 {
		t.Errorf("exit code = %v", res.ExitCode)
	}
}

func TestCommandNonZeroExit(t *testing.T) {
	tool := NewCommandTool(t.TempDir())
	res := cmdInvoke(t, tool, map[string]any{"action": "run", "command": "exit 3"})
	if res.Success {
		t.Error("non-zero exit must not be success")
	}
	if res.ExitCode == nil || *res.ExitCode != 3 {
		t.Errorf("exit code = %v", res.ExitCode)
	}
}

func TestCommandTimeout(t *testing.T) {
	tool := NewCommandTool(t.TempDir())
	res := cmdInvoke(t, tool, map[string]any{"action": "run", "command": "sleep 5", "timeout": 100})
	if res.Success || res.Error != "timeout" {
		t.Errorf("result = %+v, want timeout failure", res)
	}
}

func TestCommandBlockedPattern(t *testing.T) {
	tool := NewCommandTool(t.TempDir())
	res := cmdInvoke(t, tool, map[string]any{"action": "run", "command": "rm -rf / --no-preserve-root"})
	if res.Success {
		t.Error("destructive command must be blocked")
	}
	if !strings.Contains(res.Error, "blocked pattern") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestCommandBackgroundLifecycle(t *testing.T) {
	tool := NewCommandTool(t.TempDir())
	res := cmdInvoke(t, tool, map[string]any{"action": "run_background", "command": "sleep 30"})
	if !res.Success || res.ProcessID == "" {
		t.Fatalf("run_background = %+v", res)
	}

	list := cmdInvoke(t, tool, map[string]any{"action": "list"})
	if len(list.Processes) != 1 {
		t.Fatalf("processes = %v", list.Processes)
	}

	kill := cmdInvoke(t, tool, map[string]any{"action": "kill", "processId": res.ProcessID})
	if !kill.Success {
		t.Fatalf("kill = %+v", kill)
	}
	again := cmdInvoke(t, tool, map[string]any{"action": "kill", "processId": res.ProcessID})
	if again.Success {
		t.Error("killing twice must fail")
	}
	tool.KillAll()
}

func TestCommandUnknownAction(t *testing.T) {
	tool := NewCommandTool(t.TempDir())
	res := cmdInvoke(t, tool, map[string]any{"action": "dance"})
	if res.Success {
		t.Error("unknown action must fail")
	}
}

func TestCheckDestructive(t *testing.T) {
	blocked := []string{
		"rm -rf / ",
		"sudo shutdown now",
		":(){ :|:& };:",
		`subprocess.call("rm -rf data")`,
	}
	for _, c := range blocked {
		if _, bad := checkDestructive(c); !bad {
			t.Errorf("%q should be blocked", c)
		}
	}
	allowed := []string{
		"rm -rf ./build",
		"echo shutting down gracefully",
		"ls -la /tmp",
	}
	for _, c := range allowed {
		if p, bad := checkDestructive(c); bad {
			t.Errorf("%q wrongly blocked by %q", c, p)
		}
	}
}
