package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/excalibur/internal/models"
	"github.com/starford/excalibur/internal/storage"
	"github.com/starford/excalibur/internal/testutil"
)

type openRecorder struct {
	paths []string
	err   error
}

func (o *openRecorder) open(_ context.Context, path string) error {
	o.paths = append(o.paths, path)
	return o.err
}

func testServer(t *testing.T) (*Server, *openRecorder, string) {
	t.Helper()

	db := testutil.TestRecents(t)
	if err := db.Touch(context.Background(), models.KindDiagram, "/tmp/flow.mmd", "flow", 10); err != nil {
		t.Fatal(err)
	}
	rec := &openRecorder{}
	srv := New(storage.NewFS(), db, rec.open, 10)
	return srv, rec, t.TempDir()
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_recents":
		result, err = srv.listRecents(ctx, req)
	case "read_drawing":
		result, err = srv.readDrawing(ctx, req)
	case "read_diagram":
		result, err = srv.readDiagram(ctx, req)
	case "open_file":
		result, err = srv.openFile(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestListRecents(t *testing.T) {
	srv, _, _ := testServer(t)

	r := callTool(t, srv, "list_recents", map[string]interface{}{})
	var entries []models.RecentEntry
	if err := json.Unmarshal([]byte(resultText(r)), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != models.KindDiagram || entries[0].Name != "flow" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestReadDrawingRepairsElements(t *testing.T) {
	srv, _, dir := testServer(t)
	path := writeFile(t, dir, "plan.excalidraw",
		`{"type":"excalidraw","version":2,"elements":[{"id":"a","type":"rectangle","boundElements":"bad"}]}`)

	r := callTool(t, srv, "read_drawing", map[string]interface{}{"path": path})
	if r.IsError {
		t.Fatalf("error: %s", resultText(r))
	}
	text := resultText(r)
	if !strings.Contains(text, `"groupIds": []`) || !strings.Contains(text, `"boundElements": null`) {
		t.Errorf("drawing = %s", text)
	}
}

func TestReadDrawingMalformed(t *testing.T) {
	srv, _, dir := testServer(t)
	path := writeFile(t, dir, "bad.excalidraw", "{nope")

	r := callTool(t, srv, "read_drawing", map[string]interface{}{"path": path})
	if !r.IsError {
		t.Error("expected error for malformed drawing")
	}
}

func TestReadDiagram(t *testing.T) {
	srv, _, dir := testServer(t)
	path := writeFile(t, dir, "flow.mmd", "---\ntitle: Checkout\n---\nsequenceDiagram\nA->>B: hi")

	r := callTool(t, srv, "read_diagram", map[string]interface{}{"path": "file://" + filepath.ToSlash(path)})
	var got DiagramResult
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Path != path || got.Type != "sequenceDiagram" || got.Title != "Checkout" {
		t.Errorf("diagram = %+v", got)
	}
}

func TestReadMissing(t *testing.T) {
	srv, _, dir := testServer(t)
	r := callTool(t, srv, "read_diagram", map[string]interface{}{"path": filepath.Join(dir, "nope.mmd")})
	if !r.IsError || !strings.HasPrefix(resultText(r), "not found") {
		t.Errorf("result = %q, IsError = %v", resultText(r), r.IsError)
	}
}

func TestOpenFile(t *testing.T) {
	srv, rec, dir := testServer(t)
	path := filepath.Join(dir, "plan.excalidraw")

	r := callTool(t, srv, "open_file", map[string]interface{}{"path": path})
	if r.IsError || len(rec.paths) != 1 || rec.paths[0] != path {
		t.Errorf("result = %q, forwarded = %v", resultText(r), rec.paths)
	}

	rec.err = errors.New("connection refused")
	r = callTool(t, srv, "open_file", map[string]interface{}{"path": path})
	if !r.IsError {
		t.Error("expected error when forwarding fails")
	}
}

func TestOpenFileWithoutInstance(t *testing.T) {
	srv := New(storage.NewFS(), testutil.TestRecents(t), nil, 10)
	r := callTool(t, srv, "open_file", map[string]interface{}{"path": "/tmp/a.mmd"})
	if !r.IsError {
		t.Error("expected error without a running instance")
	}
}
