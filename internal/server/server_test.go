package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/salience/internal/config"
	"github.com/lazypower/salience/internal/memstore"
	"github.com/lazypower/salience/internal/metrics"
	"github.com/lazypower/salience/internal/query"
	"github.com/lazypower/salience/internal/track"
)

type fixedStore struct {
	memories []memstore.Memory
}

func (f *fixedStore) Retrieve(ctx context.Context, q query.Query, exclude map[string]struct{}) []memstore.Memory {
	var kept []memstore.Memory
	for _, m := range f.memories {
		if _, seen := exclude[m.ContentHash]; seen {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

// projectDir creates a directory whose basename becomes the detected project
// name, with a go.mod so the language comes out as Go.
func projectDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "salience")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module salience\n"), 0644))
	return dir
}

func testServer(t *testing.T, db *track.DB) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Hooks.TopicChange.DebounceMS = 0
	store := &fixedStore{memories: []memstore.Memory{{
		ContentHash: "h1",
		Content:     "Debugging the salience crash: fixed the watcher leak because restarts doubled the handler registration.",
		Tags:        []string{"salience"},
	}}}
	return New(cfg, store, db, zerolog.Nop(), metrics.New(), "test")
}

func do(t *testing.T, s *Server, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	db, err := track.OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	rec, out := do(t, testServer(t, db), http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "test", out["version"])
	assert.Equal(t, true, out["db"])
	assert.Equal(t, float64(0), out["sessions"])
}

func TestSessionLifecycle(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	db, err := track.OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	s := testServer(t, db)
	dir := projectDir(t)

	rec, out := do(t, s, http.MethodPost, "/api/sessions/init",
		map[string]string{"session_id": "s1", "project_dir": dir})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "salience", out["project"])
	assert.Equal(t, "Go", out["language"])

	rec, out = do(t, s, http.MethodPost, "/api/sessions/s1/update",
		map[string]string{"text": "Debugging the crash: the daemon keeps crashing with a segfault"})
	require.Equal(t, http.StatusOK, rec.Code)
	result := out["result"].(map[string]any)
	require.Equal(t, true, result["processed"], "result: %v", result)
	assert.Contains(t, out["context"], "memory context update")
	assert.Contains(t, out["context"], "Debugging the salience crash")

	rec, out = do(t, s, http.MethodGet, "/api/sessions/s1/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), out["update_count"])
	assert.Equal(t, float64(1), out["memories_loaded"])

	rec, _ = do(t, s, http.MethodPost, "/api/sessions/s1/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	_, out = do(t, s, http.MethodGet, "/api/sessions/s1/stats", nil)
	assert.Equal(t, float64(0), out["update_count"])

	rec, out = do(t, s, http.MethodPost, "/api/sessions/s1/end",
		map[string]string{"outcome": "completed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ended", out["status"])
	assert.Equal(t, float64(0), out["memories_injected"], "reset cleared the injected count")

	// The session is gone after end.
	rec, _ = do(t, s, http.MethodGet, "/api/sessions/s1/stats", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	summaries, err := db.ConversationContext("salience", track.ContextOptions{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "completed", summaries[0].Outcome)
}

func TestEndReportsInjectedAndWritesCache(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	db, err := track.OpenMemory()
	require.NoError(t, err)
	defer db.Close()

	s := testServer(t, db)
	dir := projectDir(t)

	_, _ = do(t, s, http.MethodPost, "/api/sessions/init",
		map[string]string{"session_id": "s1", "project_dir": dir})
	_, out := do(t, s, http.MethodPost, "/api/sessions/s1/update",
		map[string]string{"text": "Debugging the crash: the daemon keeps crashing with a segfault"})
	require.Equal(t, true, out["result"].(map[string]any)["processed"])

	rec, out := do(t, s, http.MethodPost, "/api/sessions/s1/end", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), out["memories_injected"])

	cache, err := track.ReadStatusCache(filepath.Join(home, ".salience", "status.json"))
	require.NoError(t, err)
	assert.Equal(t, 1, cache.MemoriesLoaded)
	assert.Equal(t, 1, cache.RecentCount)
}

func TestInitReturnsRecentSessions(t *testing.T) {
	db, err := track.OpenMemory()
	require.NoError(t, err)
	defer db.Close()
	_, err = db.StartSession("prev", "salience")
	require.NoError(t, err)
	require.NoError(t, db.EndSession("prev", "completed", 2))

	s := testServer(t, db)
	rec, out := do(t, s, http.MethodPost, "/api/sessions/init",
		map[string]string{"session_id": "s1", "project_dir": projectDir(t)})
	require.Equal(t, http.StatusOK, rec.Code)

	recent, ok := out["recent_sessions"].([]any)
	require.True(t, ok, "recent_sessions: %v", out["recent_sessions"])
	assert.Len(t, recent, 1)
}

func TestInitRequiresSessionID(t *testing.T) {
	rec, out := do(t, testServer(t, nil), http.MethodPost, "/api/sessions/init",
		map[string]string{"project_dir": "/tmp"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "session_id required", out["error"])
}

func TestUpdateUnknownSession(t *testing.T) {
	rec, out := do(t, testServer(t, nil), http.MethodPost, "/api/sessions/nope/update",
		map[string]string{"text": "hello"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "unknown session", out["error"])
}

func TestUpdateRequiresText(t *testing.T) {
	s := testServer(t, nil)
	_, _ = do(t, s, http.MethodPost, "/api/sessions/init",
		map[string]string{"session_id": "s1", "project_dir": projectDir(t)})

	rec, out := do(t, s, http.MethodPost, "/api/sessions/s1/update", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "text required", out["error"])
}

func TestEndUnknownSessionIsOK(t *testing.T) {
	rec, out := do(t, testServer(t, nil), http.MethodPost, "/api/sessions/nope/end", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "unknown session", out["note"])
}

func TestMetricsEndpoint(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	testServer(t, nil).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
