// Package app orchestrates micro-app lifecycle: each registered app gets a
// sandbox and an engine, and is mounted and unmounted on demand. A remounted
// app keeps its sandbox, so it resumes with the global state it left behind;
// only a newly registered app starts from a fresh snapshot.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SCWR/qiankun/internal/engine"
	"github.com/SCWR/qiankun/internal/global"
	"github.com/SCWR/qiankun/internal/logging"
	"github.com/SCWR/qiankun/internal/monitoring"
	"github.com/SCWR/qiankun/internal/sandbox"
)

var (
	// ErrUnknownApp is returned for operations on unregistered names.
	ErrUnknownApp = errors.New("unknown app")

	// ErrAlreadyMounted is returned when mounting a mounted app.
	ErrAlreadyMounted = errors.New("app already mounted")

	// ErrNotMounted is returned when unmounting an app that is not mounted.
	ErrNotMounted = errors.New("app not mounted")
)

// MicroApp is one hosted module and its isolation state.
type MicroApp struct {
	ID    string
	Name  string
	Entry string

	sb  *sandbox.Sandbox
	eng *engine.Engine

	Mounted   bool
	MountedAt time.Time
}

// Status is a snapshot of a micro-app for the API surface.
type Status struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Entry     string    `json:"entry"`
	Mounted   bool      `json:"mounted"`
	MountedAt time.Time `json:"mounted_at,omitempty"`
}

// DebugInfo is the diagnostics view of a mounted app's sandbox.
type DebugInfo struct {
	Name        string            `json:"name"`
	Running     bool              `json:"running"`
	MutatedKeys []string          `json:"mutated_keys"`
	Console     []engine.LogEntry `json:"console"`
}

// Manager owns the registered micro-apps and the shared state they are
// sandboxed over.
type Manager struct {
	shared  *global.Object
	doc     *sandbox.DocumentProxy
	noise   sandbox.NoiseSuppressor
	metrics *monitoring.Metrics
	log     *logging.Logger
	engCfg  engine.Config
	verbose bool

	mu   sync.RWMutex
	apps map[string]*MicroApp
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithNoiseSuppressor wires the suppressor handed to every sandbox.
func WithNoiseSuppressor(n sandbox.NoiseSuppressor) ManagerOption {
	return func(m *Manager) { m.noise = n }
}

// WithMetrics wires Prometheus metrics.
func WithMetrics(metrics *monitoring.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = metrics }
}

// WithLogger wires structured logging.
func WithLogger(l *logging.Logger) ManagerOption {
	return func(m *Manager) { m.log = l }
}

// WithEngineConfig sets hosted execution limits.
func WithEngineConfig(cfg engine.Config) ManagerOption {
	return func(m *Manager) { m.engCfg = cfg }
}

// WithVerboseSandboxes enables mutation-set dumps on unmount.
func WithVerboseSandboxes(v bool) ManagerOption {
	return func(m *Manager) { m.verbose = v }
}

// NewManager creates a manager over the shared global object and the shared
// document proxy.
func NewManager(shared *global.Object, doc *sandbox.DocumentProxy, opts ...ManagerOption) *Manager {
	m := &Manager{
		shared: shared,
		doc:    doc,
		noise:  sandbox.NopSuppressor{},
		log:    logging.NewNop(),
		engCfg: engine.DefaultConfig(),
		apps:   make(map[string]*MicroApp),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds a micro-app by name and entry path.
func (m *Manager) Register(name, entry string) (*MicroApp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.apps[name]; dup {
		return nil, fmt.Errorf("register %q: duplicate name", name)
	}
	app := &MicroApp{
		ID:    uuid.New().String(),
		Name:  name,
		Entry: entry,
	}
	m.apps[name] = app
	m.log.Info("app registered", zap.String("app", name), zap.String("entry", entry))
	return app, nil
}

// RegisterManifest registers every entry of a manifest.
func (m *Manager) RegisterManifest(manifest *Manifest) error {
	for _, entry := range manifest.Apps {
		if _, err := m.Register(entry.Name, entry.Entry); err != nil {
			return err
		}
	}
	return nil
}

// Mount activates the app's sandbox and executes its entry script through
// the sandbox handles. The entry file is re-read on every mount so a
// remount picks up changed sources while keeping its overlay state.
func (m *Manager) Mount(ctx context.Context, name string) error {
	m.mu.Lock()
	app, ok := m.apps[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("mount %q: %w", name, ErrUnknownApp)
	}
	if app.Mounted {
		m.mu.Unlock()
		return fmt.Errorf("mount %q: %w", name, ErrAlreadyMounted)
	}
	if app.sb == nil {
		app.sb = sandbox.New(name, m.shared, m.doc,
			sandbox.WithNoiseSuppressor(m.meteredNoise(name)),
			sandbox.WithLogger(m.log),
			sandbox.WithVerbose(m.verbose),
		)
		app.eng = engine.New(app.sb, m.engCfg, m.log)
	}
	app.Mounted = true
	app.MountedAt = time.Now()
	m.mu.Unlock()

	src, err := os.ReadFile(app.Entry)
	if err != nil {
		m.setUnmounted(app)
		m.recordMount(name, err)
		return fmt.Errorf("mount %q: %w", name, err)
	}

	app.sb.Activate()
	if m.metrics != nil {
		m.metrics.Activations.Inc()
		m.metrics.SandboxesActive.Set(float64(sandbox.ActiveCount()))
	}

	// Tag the document before the module runs so element creation during
	// evaluation is attributed to this app.
	app.sb.Global().Get(sandbox.DocumentKey)

	start := time.Now()
	_, err = app.eng.Execute(ctx, string(src))
	if m.metrics != nil {
		m.metrics.RecordExecution(name, time.Since(start), err)
	}
	if err != nil {
		app.sb.Deactivate()
		if m.metrics != nil {
			m.metrics.SandboxesActive.Set(float64(sandbox.ActiveCount()))
		}
		m.setUnmounted(app)
		m.recordMount(name, err)
		return fmt.Errorf("mount %q: %w", name, err)
	}

	m.recordMount(name, nil)
	m.log.Info("app mounted", zap.String("app", name))
	return nil
}

// Unmount deactivates the app's sandbox. Its overlay stays intact for a
// later remount.
func (m *Manager) Unmount(name string) error {
	m.mu.Lock()
	app, ok := m.apps[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("unmount %q: %w", name, ErrUnknownApp)
	}
	if !app.Mounted {
		m.mu.Unlock()
		return fmt.Errorf("unmount %q: %w", name, ErrNotMounted)
	}
	app.Mounted = false
	m.mu.Unlock()

	app.sb.Deactivate()
	if m.metrics != nil {
		m.metrics.SandboxesActive.Set(float64(sandbox.ActiveCount()))
	}
	m.log.Info("app unmounted", zap.String("app", name))
	return nil
}

// List returns a status snapshot of every registered app.
func (m *Manager) List() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Status, 0, len(m.apps))
	for _, app := range m.apps {
		out = append(out, Status{
			ID:        app.ID,
			Name:      app.Name,
			Entry:     app.Entry,
			Mounted:   app.Mounted,
			MountedAt: app.MountedAt,
		})
	}
	return out
}

// Debug returns the diagnostics view of an app's sandbox.
func (m *Manager) Debug(name string) (*DebugInfo, error) {
	m.mu.RLock()
	app, ok := m.apps[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("debug %q: %w", name, ErrUnknownApp)
	}
	info := &DebugInfo{Name: name, MutatedKeys: []string{}, Console: []engine.LogEntry{}}
	if app.sb != nil {
		info.Running = app.sb.Running()
		info.MutatedKeys = app.sb.Global().MutatedKeys()
	}
	if app.eng != nil {
		info.Console = app.eng.Console()
	}
	return info, nil
}

// UnmountAll deactivates every mounted app, for host shutdown.
func (m *Manager) UnmountAll() {
	for _, status := range m.List() {
		if status.Mounted {
			_ = m.Unmount(status.Name)
		}
	}
}

func (m *Manager) setUnmounted(app *MicroApp) {
	m.mu.Lock()
	app.Mounted = false
	m.mu.Unlock()
}

func (m *Manager) recordMount(name string, err error) {
	if m.metrics != nil {
		m.metrics.RecordMount(name, err)
	}
}

// meteredNoise decorates the configured suppressor with per-app write
// counting.
func (m *Manager) meteredNoise(app string) sandbox.NoiseSuppressor {
	if m.metrics == nil {
		return m.noise
	}
	return &meteredSuppressor{inner: m.noise, app: app, metrics: m.metrics}
}

type meteredSuppressor struct {
	inner   sandbox.NoiseSuppressor
	app     string
	metrics *monitoring.Metrics
}

func (s *meteredSuppressor) OnWrite(key string, value any) {
	s.metrics.OverlayWrites.WithLabelValues(s.app).Inc()
	s.inner.OnWrite(key, value)
}

func (s *meteredSuppressor) Teardown(handle *sandbox.Proxy, lastActive bool) {
	s.inner.Teardown(handle, lastActive)
}
