// ABOUTME: Workspace file tool: read/write/list/delete on relative paths only.
// ABOUTME: Rejects escapes, skips a default ignore set, refuses binary reads.

package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

var defaultIgnoreNames = map[string]bool{
	"node_modules":      true,
	".git":              true,
	"dist":              true,
	"build":             true,
	"target":            true,
	".idea":             true,
	".vscode":           true,
	".DS_Store":         true,
	"package-lock.json": true,
	"yarn.lock":         true,
	"pnpm-lock.yaml":    true,
	"go.sum":            true,
}

// FileTool performs filesystem operations inside one workspace root.
type FileTool struct {
	root string
}

// NewFileTool creates a file tool rooted at dir.
func NewFileTool(dir string) *FileTool {
	return &FileTool{root: dir}
}

func (t *FileTool) Name() string { return "file" }

func (t *FileTool) Description() string {
	return "Read, write, list, and delete files in the workspace. Paths are relative to the workspace root."
}

func (t *FileTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"operation": {"type": "string", "enum": ["read", "write", "list", "delete"]},
			"path": {"type": "string", "description": "Relative path inside the workspace"},
			"content": {"type": "string", "description": "File content for write"}
		},
		"required": ["operation", "path"]
	}`)
}

type fileArgs struct {
	Operation string `json:"operation"`
	Path      string `json:"path"`
	Content   string `json:"content"`
}

func (t *FileTool) Invoke(_ context.Context, argsJSON string) string {
	var args fileArgs
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return Failure("invalid arguments: " + err.Error())
	}

	rel, err := t.safePath(args.Path)
	if err != nil {
		return Failure(err.Error())
	}
	abs := filepath.Join(t.root, rel)

	switch args.Operation {
	case "read":
		return t.read(abs, rel)
	case "write":
		return t.write(abs, rel, args.Content)
	case "list":
		return t.list(abs, rel)
	case "delete":
		return t.delete(abs, rel)
	default:
		return Failure("unknown operation: " + args.Operation)
	}
}

// safePath validates that the path stays inside the workspace.
func (t *FileTool) safePath(p string) (string, error) {
	if p == "" {
		return "", pathError("empty path")
	}
	if filepath.IsAbs(p) {
		return "", pathError("absolute paths are not allowed")
	}
	cleaned := filepath.Clean(p)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", pathError("path escapes the workspace")
	}
	return cleaned, nil
}

type pathError string

func (e pathError) Error() string { return string(e) }

func (t *FileTool) read(abs, rel string) string {
	data, err := os.ReadFile(abs)
	if err != nil {
		return Failure(err.Error())
	}
	if isBinary(data) {
		return Failure("binary file: " + rel)
	}
	return Result{Success: true, Path: rel, Content: string(data)}.Encode()
}

func (t *FileTool) write(abs, rel, content string) string {
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return Failure(err.Error())
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return Failure(err.Error())
	}
	return Result{Success: true, Path: rel}.Encode()
}

func (t *FileTool) list(abs, rel string) string {
	entries, err := os.ReadDir(abs)
	if err != nil {
		return Failure(err.Error())
	}
	var files []string
	for _, e := range entries {
		if defaultIgnoreNames[e.Name()] || strings.HasPrefix(e.Name(), ".env") {
			continue
		}
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		files = append(files, name)
	}
	sort.Strings(files)
	return Result{Success: true, Path: rel, Files: files}.Encode()
}

func (t *FileTool) delete(abs, rel string) string {
	info, err := os.Stat(abs)
	if err != nil {
		return Failure(err.Error())
	}
	if info.IsDir() {
		return Failure("refusing to delete a directory: " + rel)
	}
	if err := os.Remove(abs); err != nil {
		return Failure(err.Error())
	}
	return Result{Success: true, Path: rel}.Encode()
}

// isBinary samples the content: any NUL byte, or a high ratio of control
// characters, marks the file binary.
func isBinary(data []byte) bool {
	sample := data
	if len(sample) > 8000 {
		sample = sample[:8000]
	}
	if len(sample) == 0 {
		return false
	}
	control := 0
	for _, b := range sample {
		if b == 0 {
			return true
		}
		r := rune(b)
		if r != '\n' && r != '\r' && r != '\t' && unicode.IsControl(r) {
			control++
		}
	}
	return float64(control)/float64(len(sample)) > 0.3
}
