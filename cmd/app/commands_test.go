package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/maxwell/internal/index"
	"github.com/starford/maxwell/internal/models"
)

// testConfig writes a config file pointing at a temp notes root and DB.
func testConfig(t *testing.T) (cfgPath, notesRoot string) {
	t.Helper()
	dir := t.TempDir()
	notesRoot = filepath.Join(dir, "notes")
	cfgPath = filepath.Join(dir, "config.yaml")
	yaml := fmt.Sprintf("notes:\n  root: %s\nsqlite:\n  path: %s\n", notesRoot, filepath.Join(dir, "maxwell.db"))
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath, notesRoot
}

func writeNote(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func run(t *testing.T, cfgPath string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	argv := append([]string{"maxwell", "--config", cfgPath}, args...)
	if err := app.Run(context.Background(), argv); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out.String()
}

func TestIndexSearchStats(t *testing.T) {
	cfg, root := testConfig(t)
	writeNote(t, root, "daily/2026-01-30.md", "- [[Maxwell]]\n    - [ ] ship v1\n    - decided to use sqlite\n")

	var rep index.Report
	if err := json.Unmarshal([]byte(run(t, cfg, "index", "--verify")), &rep); err != nil {
		t.Fatal(err)
	}
	if rep.Indexed != 1 {
		t.Errorf("report = %+v", rep)
	}

	out := run(t, cfg, "search", "sqlite")
	if !strings.Contains(out, `"name": "Maxwell"`) {
		t.Errorf("search output:\n%s", out)
	}

	var st models.Stats
	if err := json.Unmarshal([]byte(run(t, cfg, "stats")), &st); err != nil {
		t.Fatal(err)
	}
	if st.Observations != 3 {
		t.Errorf("stats = %+v", st)
	}

	out = run(t, cfg, "tasks", "--entity", "maxwell")
	if !strings.HasPrefix(out, "- [ ] ship v1 (daily/2026-01-30.md:2)") {
		t.Errorf("tasks output = %q", out)
	}

	out = run(t, cfg, "context", "--entity", "Maxwell")
	if !strings.HasPrefix(out, "## Maxwell\n") {
		t.Errorf("context output = %q", out)
	}
}

func TestLogCommand(t *testing.T) {
	cfg, root := testConfig(t)

	out := run(t, cfg, "log", "--date", "2026-01-30", "--header", "Email Actions", "replied to bob")
	if strings.TrimSpace(out) != "appended 1 line(s)" {
		t.Errorf("log output = %q", out)
	}
	data, err := os.ReadFile(filepath.Join(root, "daily", "2026-01-30.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "## Email Actions\n- replied to bob\n" {
		t.Errorf("daily note = %q", data)
	}

	out = run(t, cfg, "log", "--event", "--date", "2026-01-30", "--kind", "push", "pushed", "3", "commits")
	var ev models.IntegrationEvent
	if err := json.Unmarshal([]byte(out), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Line != "pushed 3 commits" || ev.ID == "" {
		t.Errorf("event = %+v", ev)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	cfg, _ := testConfig(t)
	app := newApp()
	app.Writer = &bytes.Buffer{}
	if err := app.Run(context.Background(), []string{"maxwell", "--config", cfg, "search"}); err == nil {
		t.Error("expected error for empty query")
	}
}
