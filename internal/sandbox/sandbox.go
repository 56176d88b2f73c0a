package sandbox

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/SCWR/qiankun/internal/global"
	"github.com/SCWR/qiankun/internal/logging"
)

// activeCount tracks how many sandboxes are running process-wide. Atomic so
// the last-active latch stays correct if the host ever goes multi-threaded.
var activeCount atomic.Int32

// ActiveCount returns the number of currently running sandboxes.
func ActiveCount() int32 {
	return activeCount.Load()
}

// Sandbox gives one hosted module an exclusive view of the shared global
// object and document root. The orchestrator creates it, binds its handles
// into the hosted module's execution context, and drives Activate and
// Deactivate at mount and unmount boundaries.
type Sandbox struct {
	name     string
	global   *Proxy
	document *DocumentProxy
	noise    NoiseSuppressor
	verbose  bool
	log      *logging.Logger

	mu      sync.Mutex
	running bool
}

// Option configures a Sandbox.
type Option func(*options)

type options struct {
	noise   NoiseSuppressor
	log     *logging.Logger
	verbose bool
}

// WithNoiseSuppressor wires the write/teardown collaborator.
func WithNoiseSuppressor(n NoiseSuppressor) Option {
	return func(o *options) { o.noise = n }
}

// WithLogger wires structured logging.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithVerbose enables the mutation-set dump on deactivate.
func WithVerbose(v bool) Option {
	return func(o *options) { o.verbose = v }
}

// New creates a sandbox over the shared global and the shared document
// proxy. Every sandbox starts from a fresh snapshot of the shared global;
// it never inherits another sandbox's overlay.
func New(name string, shared *global.Object, doc *DocumentProxy, opts ...Option) *Sandbox {
	o := options{noise: NopSuppressor{}, log: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	sb := &Sandbox{
		name:     name,
		document: doc,
		noise:    o.noise,
		verbose:  o.verbose,
		log:      o.log,
	}
	sb.global = newProxy(name, shared, doc, o.noise, o.log)
	return sb
}

// Name returns the sandbox's immutable identity.
func (sb *Sandbox) Name() string { return sb.name }

// Global returns the handle hosted code receives in place of the shared
// global object.
func (sb *Sandbox) Global() *Proxy { return sb.global }

// Document returns the document handle.
func (sb *Sandbox) Document() *DocumentProxy { return sb.document }

// Running reports whether the sandbox is active.
func (sb *Sandbox) Running() bool {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.running
}

// Activate marks the sandbox running. Idempotent: activating a running
// sandbox does not increment the process-wide counter again.
func (sb *Sandbox) Activate() {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if !sb.running {
		activeCount.Add(1)
	}
	sb.running = true
	sb.global.setActive(true)
	sb.log.Debug("sandbox activated", zap.String("sandbox", sb.name))
}

// Deactivate marks the sandbox inactive and runs the noise suppressor's
// teardown with the last-active latch. It always executes regardless of
// current state; the caller must not invoke it twice without an intervening
// Activate, or the process-wide counter under-flows.
func (sb *Sandbox) Deactivate() {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.verbose {
		sb.log.Info("sandbox modified globals",
			zap.String("sandbox", sb.name),
			zap.Strings("keys", sb.global.MutatedKeys()))
	}

	lastActive := activeCount.Add(-1) == 0
	sb.noise.Teardown(sb.global, lastActive)

	sb.running = false
	sb.global.setActive(false)
	sb.log.Debug("sandbox deactivated",
		zap.String("sandbox", sb.name),
		zap.Bool("lastActive", lastActive))
}
