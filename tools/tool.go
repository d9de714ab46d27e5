// ABOUTME: The tool contract: JSON string in, JSON string out, never panic through.
// ABOUTME: Result helpers build the standard success/failure envelope.

package tools

import (
	"context"
	"encoding/json"
)

// Tool is one capability exposed to the model. Invoke receives the raw
// arguments JSON and returns a JSON result string; it must not panic or
// return non-JSON.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Invoke(ctx context.Context, argsJSON string) string
}

// Result is the standard envelope every tool returns.
type Result struct {
	Success       bool   `json:"success"`
	Stdout        string `json:"stdout,omitempty"`
	Stderr        string `json:"stderr,omitempty"`
	ExitCode      *int   `json:"exitCode,omitempty"`
	ExecutionTime int64  `json:"executionTime,omitempty"`
	Error         string `json:"error,omitempty"`

	// Tool-specific payloads.
	Content   string   `json:"content,omitempty"`
	Files     []string `json:"files,omitempty"`
	Path      string   `json:"path,omitempty"`
	ProcessID string   `json:"processId,omitempty"`
	Processes []string `json:"processes,omitempty"`
}

// Encode renders the result as the JSON string the dispatcher hands back.
func (r Result) Encode() string {
	data, err := json.Marshal(r)
	if err != nil {
		return `{"success":false,"error":"result encoding failed"}`
	}
	return string(data)
}

// Failure builds an encoded failure result.
func Failure(msg string) string {
	return Result{Success: false, Error: msg}.Encode()
}

func intPtr(v int) *int { return &v }
