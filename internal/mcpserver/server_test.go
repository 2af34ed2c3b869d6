package mcpserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/maxwell/internal/index"
	"github.com/starford/maxwell/internal/memory"
	"github.com/starford/maxwell/internal/testutil"
)

var fixedNow = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	root, notes := testutil.TestNotes(t)
	db := testutil.TestDB(t)
	clock := func() time.Time { return fixedNow }
	ix := index.NewIndexer(db, notes, testutil.Logger(), index.WithClock(clock))
	svc := memory.NewService(db, ix,
		memory.WithClock(clock),
		memory.WithLogger(testutil.Logger()),
		memory.WithCurated(notes),
	)
	return New(svc, true), root
}

func seed(t *testing.T, srv *Server, root string) {
	t.Helper()
	testutil.WriteNote(t, root, "daily/2026-01-30.md",
		"- [[Maxwell]]\n    - [ ] ship v1\n    - [[Bob]] reviewed the sqlite design\n## Email Actions\n- replied to alice\n")
	r := callTool(t, srv, "index_notes", nil)
	if r.IsError {
		t.Fatalf("index_notes: %s", resultText(r))
	}
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process call helper, so dispatch to the handlers directly.
	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"search_memory":     srv.searchMemory,
		"build_context":     srv.buildContext,
		"get_pending_tasks": srv.getPendingTasks,
		"get_stats":         srv.getStats,
		"find_entity":       srv.findEntity,
		"activity_digest":   srv.activityDigest,
		"index_notes":       srv.indexNotes,
	}
	h, ok := handlers[name]
	if !ok {
		t.Fatalf("unknown tool: %s", name)
	}
	result, err := h(ctx, req)
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

func TestIndexNotes(t *testing.T) {
	srv, root := testServer(t)
	testutil.WriteNote(t, root, "projects/maxwell.md", "- [[Maxwell]]\n")

	r := callTool(t, srv, "index_notes", nil)
	if got := resultText(r); got != "scanned 1, indexed 1, skipped 0, failed 0" {
		t.Errorf("index_notes = %q", got)
	}
	r = callTool(t, srv, "index_notes", nil)
	if got := resultText(r); got != "scanned 1, indexed 0, skipped 1, failed 0" {
		t.Errorf("second index_notes = %q", got)
	}
}

func TestSearchMemory(t *testing.T) {
	srv, root := testServer(t)
	seed(t, srv, root)

	r := callTool(t, srv, "search_memory", map[string]any{"query": "sqlite", "limit": float64(5)})
	if r.IsError {
		t.Fatalf("search error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"name": "Maxwell"`) {
		t.Errorf("search result missing Maxwell:\n%s", resultText(r))
	}

	r = callTool(t, srv, "search_memory", map[string]any{"query": "zebra"})
	if resultText(r) != "no matches" {
		t.Errorf("empty search = %q", resultText(r))
	}
}

func TestSearchMemory_Errors(t *testing.T) {
	srv, _ := testServer(t)

	if r := callTool(t, srv, "search_memory", map[string]any{}); !r.IsError {
		t.Error("missing query should be an error")
	}
	if r := callTool(t, srv, "search_memory", map[string]any{"query": `"open`}); !r.IsError {
		t.Error("unterminated phrase should be an error")
	}
	if r := callTool(t, srv, "search_memory", map[string]any{"query": "x", "limit": float64(500)}); !r.IsError {
		t.Error("limit over 100 should be an error")
	}
}

func TestBuildContext(t *testing.T) {
	srv, root := testServer(t)
	seed(t, srv, root)
	testutil.WriteNote(t, root, "RESET.md", "launch week")

	r := callTool(t, srv, "build_context", map[string]any{
		"entity":                "Maxwell",
		"include_pending_tasks": true,
		"curated":               true,
	})
	text := resultText(r)
	if !strings.HasPrefix(text, "# Operational Context (RESET.md)\nlaunch week\n\n---\n\n## Maxwell") {
		t.Errorf("unexpected context:\n%s", text)
	}
	if !strings.Contains(text, "## Pending Tasks") {
		t.Errorf("context missing pending tasks:\n%s", text)
	}
}

func TestBuildContext_Empty(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "build_context", map[string]any{"entity": "nobody"})
	if resultText(r) != "no context found" {
		t.Errorf("got %q", resultText(r))
	}
}

func TestGetPendingTasks(t *testing.T) {
	srv, root := testServer(t)
	seed(t, srv, root)

	r := callTool(t, srv, "get_pending_tasks", map[string]any{"entity": "maxwell"})
	if !strings.Contains(resultText(r), `"content": "ship v1"`) {
		t.Errorf("tasks = %s", resultText(r))
	}
	r = callTool(t, srv, "get_pending_tasks", map[string]any{"entity": "nobody"})
	if !r.IsError {
		t.Error("unknown entity should be an error")
	}
}

func TestFindEntity(t *testing.T) {
	srv, root := testServer(t)
	seed(t, srv, root)

	r := callTool(t, srv, "find_entity", map[string]any{"name": "bob"})
	text := resultText(r)
	if !strings.Contains(text, `"permalink": "bob"`) || !strings.Contains(text, `"name": "Maxwell"`) {
		t.Errorf("find_entity = %s", text)
	}

	r = callTool(t, srv, "find_entity", map[string]any{"name": "nobody"})
	if !r.IsError || resultText(r) != "not found" {
		t.Errorf("unknown entity = %q", resultText(r))
	}
}

func TestGetStats(t *testing.T) {
	srv, root := testServer(t)
	seed(t, srv, root)

	r := callTool(t, srv, "get_stats", nil)
	if !strings.Contains(resultText(r), `"observations": 4`) {
		t.Errorf("stats = %s", resultText(r))
	}
}

func TestActivityDigest(t *testing.T) {
	srv, root := testServer(t)
	seed(t, srv, root)

	r := callTool(t, srv, "activity_digest", map[string]any{"days": float64(7)})
	text := resultText(r)
	if !strings.Contains(text, "## 2026-01-30") || !strings.Contains(text, "- replied to alice") {
		t.Errorf("digest = %s", text)
	}
	if !strings.HasSuffix(text, "(1 comms, 0 code)") {
		t.Errorf("digest counts = %s", text)
	}
}

func TestResources(t *testing.T) {
	srv, root := testServer(t)
	testutil.WriteNote(t, root, "USER.md", "likes tea")

	contents, err := srv.readCuratedResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc := contents[0].(mcp.TextResourceContents)
	if tc.Text != "# About You (USER.md)\nlikes tea" {
		t.Errorf("curated = %q", tc.Text)
	}

	contents, err = srv.readNoteFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(contents[0].(mcp.TextResourceContents).Text, "Email Actions") {
		t.Error("note format resource missing example")
	}
}
