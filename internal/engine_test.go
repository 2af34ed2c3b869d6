package internal

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/maxwell/internal/testutil"
)

func testEngine(t *testing.T, mutate func(*Config)) (*Config, *Engine) {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Notes.Root = filepath.Join(dir, "notes")
	cfg.SQLite.Path = filepath.Join(dir, "maxwell.db")
	if mutate != nil {
		mutate(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	eng, err := OpenEngine(cfg, testutil.Logger())
	if err != nil {
		t.Fatalf("OpenEngine: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return cfg, eng
}

func TestOpenEngine_CreatesNotesRoot(t *testing.T) {
	cfg, _ := testEngine(t, nil)
	if info, err := os.Stat(cfg.Notes.Root); err != nil || !info.IsDir() {
		t.Fatalf("notes root not created: %v", err)
	}
}

func TestOpenEngine_IndexesConfiguredDirs(t *testing.T) {
	cfg, eng := testEngine(t, func(c *Config) { c.Notes.ProjectsDir = "work" })
	testutil.WriteNote(t, cfg.Notes.Root, "work/maxwell.md", "- [[Maxwell]]\n")
	testutil.WriteNote(t, cfg.Notes.Root, "projects/ignored.md", "- [[Ignored]]\n")

	rep, err := eng.Service.IndexAll()
	if err != nil {
		t.Fatal(err)
	}
	if rep.Indexed != 1 {
		t.Errorf("report = %+v, want 1 indexed", rep)
	}
}

func TestHTTPHandler_HealthAndAuth(t *testing.T) {
	cfg, eng := testEngine(t, func(c *Config) {
		c.Auth.Mode = AuthModeToken
		c.Auth.Token = "tok"
	})
	h := NewHTTPHandler(cfg, eng)

	for _, path := range []string{"/health/live", "/health/ready"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s = %d, want 200", path, w.Code)
		}
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/memory/stats", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated stats = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/memory/stats", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authenticated stats = %d, want 200", w.Code)
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(t.Context()); err == nil {
		t.Error("Run without config should fail")
	}
}

// syncBuffer guards a bytes.Buffer shared with the watcher goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStartWatcher_LogsStartFailure(t *testing.T) {
	_, eng := testEngine(t, nil)
	var out syncBuffer
	logger := NewLogger(&out, slog.LevelDebug)

	stop := startWatcher(context.Background(), eng, filepath.Join(t.TempDir(), "missing"), logger)
	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "watcher stopped") && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	stop()

	if !strings.Contains(out.String(), `"level":"ERROR"`) || !strings.Contains(out.String(), "watcher stopped") {
		t.Errorf("start failure not logged: %s", out.String())
	}
}

func TestStartWatcher_StopWaitsForExit(t *testing.T) {
	cfg, eng := testEngine(t, nil)
	var out syncBuffer
	logger := NewLogger(&out, slog.LevelDebug)

	stop := startWatcher(context.Background(), eng, cfg.Notes.Root, logger)
	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "watcher: started") && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	stop()

	if !strings.Contains(out.String(), "watcher: stopped") {
		t.Errorf("stop returned before the watcher exited: %s", out.String())
	}
}
