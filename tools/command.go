// ABOUTME: Shell command tool: foreground runs with a timeout, background runs tracked by id.
// ABOUTME: The background map is bounded; the same destructive blocklist applies.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	defaultCommandTimeout = 30 * time.Second
	maxBackgroundProcs    = 12
)

type bgProcess struct {
	id      string
	command string
	cmd     *exec.Cmd
	started time.Time
	done    chan struct{}
}

// CommandTool runs shell commands in the workspace.
type CommandTool struct {
	dir string

	mu    sync.Mutex
	procs map[string]*bgProcess
}

// NewCommandTool creates a command tool working in dir.
func NewCommandTool(dir string) *CommandTool {
	return &CommandTool{dir: dir, procs: make(map[string]*bgProcess)}
}

func (t *CommandTool) Name() string { return "command" }

func (t *CommandTool) Description() string {
	return "Run a shell command. Actions: run (foreground, 30s default timeout), run_background, list, kill."
}

func (t *CommandTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"action": {"type": "string", "enum": ["run", "run_background", "list", "kill"]},
			"command": {"type": "string"},
			"timeout": {"type": "integer", "description": "Foreground timeout in milliseconds"},
			"processId": {"type": "string", "description": "Background process id for kill"}
		},
		"required": ["action"]
	}`)
}

type commandArgs struct {
	Action    string `json:"action"`
	Command   string `json:"command"`
	Timeout   int    `json:"timeout"`
	ProcessID string `json:"processId"`
}

func (t *CommandTool) Invoke(ctx context.Context, argsJSON string) string {
	var args commandArgs
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return Failure("invalid arguments: " + err.Error())
	}

	switch args.Action {
	case "run":
		return t.run(ctx, args)
	case "run_background":
		return t.runBackground(args)
	case "list":
		return t.list()
	case "kill":
		return t.kill(args.ProcessID)
	default:
		return Failure("unknown action: " + args.Action)
	}
}

func (t *CommandTool) run(ctx context.Context, args commandArgs) string {
	if args.Command == "" {
		return Failure("empty command")
	}
	if pattern, bad := checkDestructive(args.Command); bad {
		return Failure("blocked pattern: " + pattern)
	}

	timeout := defaultCommandTimeout
	if args.Timeout > 0 {
		timeout = time.Duration(args.Timeout) * time.Millisecond
	}

	out := runCommand(ctx, t.dir, timeout, "bash", "-c", args.Command)
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

func (t *CommandTool) runBackground(args commandArgs) string {
	if args.Command == "" {
		return Failure("empty command")
	}
	if pattern, bad := checkDestructive(args.Command); bad {
		return Failure("blocked pattern: " + pattern)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.reapLocked()
	if len(t.procs) >= maxBackgroundProcs {
		return Failure(fmt.Sprintf("too many background processes (max %d)", maxBackgroundProcs))
	}

	cmd := exec.Command("bash", "-c", args.Command)
	cmd.Dir = t.dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return Failure(err.Error())
	}

	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.New(rand.NewSource(time.Now().UnixNano()))).String()
	proc := &bgProcess{
		id:      id,
		command: args.Command,
		cmd:     cmd,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	t.procs[id] = proc

	go func() {
		cmd.Wait()
		close(proc.done)
	}()

	return Result{Success: true, ProcessID: id}.Encode()
}

func (t *CommandTool) list() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reapLocked()

	procs := make([]string, 0, len(t.procs))
	for _, p := range t.procs {
		procs = append(procs, fmt.Sprintf("%s pid=%d age=%s cmd=%s",
			p.id, p.cmd.Process.Pid, time.Since(p.started).Round(time.Second), p.command))
	}
	return Result{Success: true, Processes: procs}.Encode()
}

func (t *CommandTool) kill(id string) string {
	if id == "" {
		return Failure("missing processId")
	}
	t.mu.Lock()
	proc, ok := t.procs[id]
	if ok {
		delete(t.procs, id)
	}
	t.mu.Unlock()
	if !ok {
		return Failure("unknown process: " + id)
	}

	killProcessGroup(proc.cmd.Process.Pid)
	return Result{Success: true, ProcessID: id}.Encode()
}

// reapLocked drops finished processes from the map. Caller holds mu.
func (t *CommandTool) reapLocked() {
	for id, p := range t.procs {
		select {
		case <-p.done:
			delete(t.procs, id)
		default:
		}
	}
}

// KillAll terminates every tracked background process; used at shutdown.
func (t *CommandTool) KillAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, p := range t.procs {
		killProcessGroup(p.cmd.Process.Pid)
		delete(t.procs, id)
	}
}
