package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SCWR/qiankun/internal/config"
	"github.com/SCWR/qiankun/internal/logging"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()

	entry := filepath.Join(dir, "dashboard.js")
	require.NoError(t, os.WriteFile(entry, []byte(`window.booted = true;`), 0o644))

	manifest := filepath.Join(dir, "apps.yaml")
	require.NoError(t, os.WriteFile(manifest,
		[]byte("apps:\n  - name: dashboard\n    entry: "+entry+"\n"), 0o644))

	index := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(index,
		[]byte(`<html><head><title>Shell</title></head><body><div id="root"></div></body></html>`), 0o644))

	cfg := config.Default()
	cfg.Shell.Manifest = manifest
	cfg.Shell.IndexHTML = index

	srv, err := New(cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { srv.Apps().UnmountAll() })
	return srv
}

func do(srv *Server, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	w := do(srv, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "active_sandboxes")
}

func TestMountLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	w := do(srv, http.MethodPost, "/apps/dashboard/mount")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(srv, http.MethodPost, "/apps/dashboard/mount")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(srv, http.MethodGet, "/apps/dashboard/debug")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "booted"), w.Body.String())

	w = do(srv, http.MethodPost, "/apps/dashboard/unmount")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMountUnknownApp(t *testing.T) {
	srv := newTestServer(t)
	w := do(srv, http.MethodPost, "/apps/ghost/mount")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListApps(t *testing.T) {
	srv := newTestServer(t)
	w := do(srv, http.MethodGet, "/apps")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dashboard")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	do(srv, http.MethodPost, "/apps/dashboard/mount")
	defer do(srv, http.MethodPost, "/apps/dashboard/unmount")

	w := do(srv, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "qiankun_sandbox_activations_total")
}
