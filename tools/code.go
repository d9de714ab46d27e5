// ABOUTME: Code execution tool: whitelisted languages, bounded source size and runtime.
// ABOUTME: Sources run from an isolated temp dir that is removed afterwards.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const maxSourceBytes = 50 * 1024

const (
	minExecTimeout     = 1 * time.Second
	maxExecTimeout     = 300 * time.Second
	defaultExecTimeout = 30 * time.Second
)

type launcher struct {
	filename string
	command  func(path string) (string, []string)
}

var launchers = map[string]launcher{
	"python": {
		filename: "main.py",
		command:  func(p string) (string, []string) { return "python3", []string{p} },
	},
	"javascript": {
		filename: "main.js",
		command:  func(p string) (string, []string) { return "node", []string{p} },
	},
	"typescript": {
		filename: "main.ts",
		command:  func(p string) (string, []string) { return "npx", []string{"tsx", p} },
	},
	"bash": {
		filename: "main.sh",
		command:  func(p string) (string, []string) { return "bash", []string{p} },
	},
	"go": {
		filename: "main.go",
		command:  func(p string) (string, []string) { return "go", []string{"run", p} },
	},
}

// CodeTool executes short programs in a fixed language set.
type CodeTool struct{}

// NewCodeTool creates the code execution tool.
func NewCodeTool() *CodeTool { return &CodeTool{} }

func (t *CodeTool) Name() string { return "code" }

func (t *CodeTool) Description() string {
	return "Execute a code snippet. Supported languages: python, javascript, typescript, bash, go. Source is limited to 50KB."
}

func (t *CodeTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"language": {"type": "string", "enum": ["python", "javascript", "typescript", "bash", "go"]},
			"code": {"type": "string"},
			"timeout": {"type": "integer", "description": "Timeout in milliseconds, clamped to [1000, 300000]"}
		},
		"required": ["language", "code"]
	}`)
}

type codeArgs struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Timeout  int    `json:"timeout"`
}

func (t *CodeTool) Invoke(ctx context.Context, argsJSON string) string {
	var args codeArgs
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return Failure("invalid arguments: " + err.Error())
	}

	launch, ok := launchers[args.Language]
	if !ok {
		return Failure("unsupported language: " + args.Language)
	}
	if len(args.Code) > maxSourceBytes {
		return Failure(fmt.Sprintf("source too large: %d bytes (max %d)", len(args.Code), maxSourceBytes))
	}
	if pattern, bad := checkDestructive(args.Code); bad {
		return Failure("blocked pattern: " + pattern)
	}

	timeout := clampTimeout(args.Timeout)

	dir, err := os.MkdirTemp("", "bytecraft-code-*")
	if err != nil {
		return Failure(err.Error())
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, launch.filename)
	if err := os.WriteFile(src, []byte(args.Code), 0o600); err != nil {
		return Failure(err.Error())
	}

	name, cmdArgs := launch.command(src)
	out := runCommand(ctx, dir, timeout, name, cmdArgs...)
	if out.timedOut {
		return Result{
			Success:       false,
			Error:         "timeout",
			Stdout:        out.stdout,
			Stderr:        out.stderr,
			ExecutionTime: out.duration.Milliseconds(),
		}.Encode()
	}
	if out.err != nil {
		return Failure(out.err.Error())
	}
	return Result{
		Success:       out.exitCode == 0,
		Stdout:        out.stdout,
		Stderr:        out.stderr,
		ExitCode:      intPtr(out.exitCode),
		ExecutionTime: out.duration.Milliseconds(),
	}.Encode()
}

// clampTimeout converts a millisecond argument into the allowed range.
func clampTimeout(ms int) time.Duration {
	if ms <= 0 {
		return defaultExecTimeout
	}
	d := time.Duration(ms) * time.Millisecond
	if d < minExecTimeout {
		return minExecTimeout
	}
	if d > maxExecTimeout {
		return maxExecTimeout
	}
	return d
}
