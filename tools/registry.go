// ABOUTME: Tool registry and dispatcher: name routing, panic containment, output bounding.
// ABOUTME: Always returns a JSON string, whatever the tool did.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/bytecraft-dev/bytecraft/llm"
)

// ToolError wraps a dispatch-level failure. Tool-internal failures travel in
// the result envelope instead.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// Registry routes tool invocations by name.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	limits map[string]OutputLimit
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		limits: make(map[string]OutputLimit),
	}
}

// Register adds a tool. Later registrations with the same name replace
// earlier ones.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// SetOutputLimit bounds one tool's result size before it reaches the model.
func (r *Registry) SetOutputLimit(name string, lim OutputLimit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limits[name] = lim
}

// List returns registered tool names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions renders the registry as model-facing tool definitions.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]llm.ToolDefinition, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return defs
}

// Invoke dispatches by name and returns a JSON result string. Unknown names,
// tool panics, and non-JSON tool output all become failure envelopes; the
// dispatcher never raises.
func (r *Registry) Invoke(ctx context.Context, name, argsJSON string) (out string) {
	r.mu.RLock()
	t, ok := r.tools[name]
	lim, hasLim := r.limits[name]
	r.mu.RUnlock()

	if !ok {
		return Failure("unknown tool")
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("component=tools.registry action=tool_panic tool=%s recovered=%v", name, rec)
			out = Failure(fmt.Sprintf("tool panicked: %v", rec))
		}
	}()

	out = t.Invoke(ctx, argsJSON)
	if !json.Valid([]byte(out)) {
		log.Printf("component=tools.registry action=non_json_output tool=%s bytes=%d", name, len(out))
		return Failure("non-json tool output")
	}
	if hasLim {
		out = boundResult(out, lim)
	}
	return out
}

// boundResult truncates the stdout/content fields of an encoded result.
// Anything that does not decode as the standard envelope passes unchanged.
func boundResult(encoded string, lim OutputLimit) string {
	var res Result
	if err := json.Unmarshal([]byte(encoded), &res); err != nil {
		return encoded
	}
	res.Stdout = TruncateOutput(res.Stdout, lim)
	res.Stderr = TruncateOutput(res.Stderr, lim)
	res.Content = TruncateOutput(res.Content, lim)
	return res.Encode()
}
