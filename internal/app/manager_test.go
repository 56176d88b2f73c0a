package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SCWR/qiankun/internal/document"
	"github.com/SCWR/qiankun/internal/global"
	"github.com/SCWR/qiankun/internal/sandbox"
)

func writeScript(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	shared := global.Platform()
	doc := sandbox.NewDocumentProxy(document.NewRoot(), nil, nil)
	m := NewManager(shared, doc)
	t.Cleanup(m.UnmountAll)
	return m
}

func TestRegisterAndList(t *testing.T) {
	m := newTestManager(t)

	app, err := m.Register("dashboard", "dashboard.js")
	require.NoError(t, err)
	assert.NotEmpty(t, app.ID)

	_, err = m.Register("dashboard", "other.js")
	assert.Error(t, err, "duplicate names must be rejected")

	list := m.List()
	require.Len(t, list, 1)
	assert.Equal(t, "dashboard", list[0].Name)
	assert.False(t, list[0].Mounted)
}

func TestMountUnmount(t *testing.T) {
	m := newTestManager(t)
	entry := writeScript(t, "app.js", `window.booted = true;`)
	_, err := m.Register("dashboard", entry)
	require.NoError(t, err)

	require.NoError(t, m.Mount(context.Background(), "dashboard"))
	assert.Error(t, m.Mount(context.Background(), "dashboard"), "double mount must fail")

	info, err := m.Debug("dashboard")
	require.NoError(t, err)
	assert.True(t, info.Running)
	assert.Contains(t, info.MutatedKeys, "booted")

	require.NoError(t, m.Unmount("dashboard"))
	err = m.Unmount("dashboard")
	assert.True(t, errors.Is(err, ErrNotMounted))
}

func TestRemountResumesState(t *testing.T) {
	m := newTestManager(t)
	first := writeScript(t, "app.js", `window.visits = (window.visits || 0) + 1;`)
	_, err := m.Register("counter", first)
	require.NoError(t, err)

	require.NoError(t, m.Mount(context.Background(), "counter"))
	require.NoError(t, m.Unmount("counter"))
	require.NoError(t, m.Mount(context.Background(), "counter"))
	defer m.Unmount("counter")

	info, err := m.Debug("counter")
	require.NoError(t, err)
	assert.Contains(t, info.MutatedKeys, "visits")

	v, _ := m.apps["counter"].sb.Global().Get("visits")
	assert.Equal(t, int64(2), v, "overlay state should survive remount")
}

func TestMountUnknownApp(t *testing.T) {
	m := newTestManager(t)
	err := m.Mount(context.Background(), "ghost")
	assert.True(t, errors.Is(err, ErrUnknownApp))
}

func TestMountScriptFailure(t *testing.T) {
	m := newTestManager(t)
	entry := writeScript(t, "bad.js", `throw new Error('boom');`)
	_, err := m.Register("broken", entry)
	require.NoError(t, err)

	err = m.Mount(context.Background(), "broken")
	assert.Error(t, err)

	list := m.List()
	require.Len(t, list, 1)
	assert.False(t, list[0].Mounted, "failed mount must roll back to unmounted")
	assert.Equal(t, int32(0), sandbox.ActiveCount(), "failed mount must not leak an active sandbox")
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apps.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
apps:
  - name: dashboard
    entry: dashboard.js
  - name: settings
    entry: settings.js
`), 0o644))

	manifest, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, manifest.Apps, 2)
	assert.Equal(t, "dashboard", manifest.Apps[0].Name)

	m := newTestManager(t)
	require.NoError(t, m.RegisterManifest(manifest))
	assert.Len(t, m.List(), 2)
}

func TestManifestValidation(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"missing name", "apps:\n  - entry: a.js\n"},
		{"missing entry", "apps:\n  - name: a\n"},
		{"duplicate name", "apps:\n  - name: a\n    entry: a.js\n  - name: a\n    entry: b.js\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "m.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := LoadManifest(path)
			assert.Error(t, err)
		})
	}
}
