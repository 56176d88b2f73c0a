package sandbox

import "github.com/SCWR/qiankun/internal/document"

// NoiseSuppressor observes overlay writes and sandbox teardown. Its job is
// to keep process-wide registries (notably the shared module loader's) from
// being corrupted by per-sandbox state.
type NoiseSuppressor interface {
	// OnWrite is called synchronously on every overlay write while running.
	OnWrite(key string, value any)

	// Teardown is called from Deactivate. lastActive is true when no other
	// sandbox remains running after this one.
	Teardown(handle *Proxy, lastActive bool)
}

// Appender resolves element-creation functions scoped to an owner identity.
// The shared document root implements it.
type Appender interface {
	ResolveCreateElement(owner string) document.Method
}

// NopSuppressor ignores everything. It is the default when the orchestrator
// wires no suppressor.
type NopSuppressor struct{}

func (NopSuppressor) OnWrite(string, any)   {}
func (NopSuppressor) Teardown(*Proxy, bool) {}
