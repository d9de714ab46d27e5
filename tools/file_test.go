// ABOUTME: Tests for the file tool: path safety, round-trips, ignore set, binary refusal.

package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func fileInvoke(t *testing.T, tool *FileTool, args map[string]any) Result {
	t.Helper()
	raw, _ := json.Marshal(args)
	return decodeResult(t, tool.Invoke(context.Background(), string(raw)))
}

func TestFileWriteReadDelete(t *testing.T) {
	tool := NewFileTool(t.TempDir())

	w := fileInvoke(t, tool, map[string]any{"operation": "write", "path": "notes/todo.txt", "content": "buy milk"})
	if !w.Success {
		t.Fatalf("write failed: %+v", w)
	}

	r := fileInvoke(t, tool, map[string]any{"operation": "read", "path": "notes/todo.txt"})
	if !r.Success || r.Content != "buy milk" {
		t.Fatalf("read = %+v", r)
	}

	d := fileInvoke(t, tool, map[string]any{"operation": "delete", "path": "notes/todo.txt"})
	if !d.Success {
		t.Fatalf("delete failed: %+v", d)
	}
	r2 := fileInvoke(t, tool, map[string]any{"operation": "read", "path": "notes/todo.txt"})
	if r2.Success {
		t.Error("read after delete should fail")
	}
}

func TestFileRejectsEscapes(t *testing.T) {
	tool := NewFileTool(t.TempDir())
	cases := []string{
		"/etc/passwd",
		"../outside.txt",
		"a/../../outside.txt",
		"..",
	}
	for _, p := range cases {
		res := fileInvoke(t, tool, map[string]any{"operation": "read", "path": p})
		if res.Success {
			t.Errorf("path %q must be rejected", p)
		}
	}
}

func TestFileInteriorDotDotIsFine(t *testing.T) {
	tool := NewFileTool(t.TempDir())
	// Normalizes to dir/file.txt, still inside the workspace.
	w := fileInvoke(t, tool, map[string]any{"operation": "write", "path": "dir/sub/../file.txt", "content": "x"})
	if !w.Success {
		t.Errorf("normalized interior path rejected: %+v", w)
	}
}

func TestFileListSkipsIgnored(t *testing.T) {
	dir := t.TempDir()
	tool := NewFileTool(dir)
	os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755)
	os.MkdirAll(filepath.Join(dir, "src"), 0o755)
	os.WriteFile(filepath.Join(dir, ".env"), []byte("SECRET=1"), 0o644)
	os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0o644)

	res := fileInvoke(t, tool, map[string]any{"operation": "list", "path": "."})
	if !res.Success {
		t.Fatalf("list failed: %+v", res)
	}
	for _, f := range res.Files {
		if f == "node_modules/" || f == ".env" {
			t.Errorf("ignored entry listed: %q", f)
		}
	}
	found := map[string]bool{}
	for _, f := range res.Files {
		found[f] = true
	}
	if !found["src/"] || !found["main.go"] {
		t.Errorf("expected entries missing: %v", res.Files)
	}
}

func TestFileRefusesBinaryRead(t *testing.T) {
	dir := t.TempDir()
	tool := NewFileTool(dir)
	os.WriteFile(filepath.Join(dir, "blob.bin"), []byte{0x7f, 'E', 'L', 'F', 0x00, 0x01, 0x02}, 0o644)

	res := fileInvoke(t, tool, map[string]any{"operation": "read", "path": "blob.bin"})
	if res.Success {
		t.Error("binary read must fail")
	}
}

func TestFileRefusesDirectoryDelete(t *testing.T) {
	dir := t.TempDir()
	tool := NewFileTool(dir)
	os.MkdirAll(filepath.Join(dir, "keep"), 0o755)
	res := fileInvoke(t, tool, map[string]any{"operation": "delete", "path": "keep"})
	if res.Success {
		t.Error("directory delete must fail")
	}
}

func TestIsBinary(t *testing.T) {
	if isBinary([]byte("plain text\nwith lines\n")) {
		t.Error("text misclassified as binary")
	}
	if !isBinary([]byte{0x00, 0x01, 0x02}) {
		t.Error("NUL bytes must classify as binary")
	}
	if isBinary(nil) {
		t.Error("empty content is not binary")
	}
}
