// Package noise keeps process-wide registries quiet across sandboxes. The
// shared module loader keeps internal bookkeeping on the global object;
// per-sandbox writes to it stay confined to the writer's overlay, and when
// the last running sandbox tears down the shared entry is restored to its
// bootstrap value.
package noise

import (
	"sync"

	"go.uber.org/zap"

	"github.com/SCWR/qiankun/internal/global"
	"github.com/SCWR/qiankun/internal/logging"
	"github.com/SCWR/qiankun/internal/sandbox"
)

// Suppressor implements sandbox.NoiseSuppressor for the shared
// module-loader registry key.
type Suppressor struct {
	shared      *global.Object
	registryKey string
	log         *logging.Logger

	mu       sync.Mutex
	saved    any
	hasSaved bool
}

var _ sandbox.NoiseSuppressor = (*Suppressor)(nil)

// New snapshots the loader registry's bootstrap value so teardown can
// restore it.
func New(shared *global.Object, log *logging.Logger) *Suppressor {
	if log == nil {
		log = logging.NewNop()
	}
	s := &Suppressor{
		shared:      shared,
		registryKey: global.LoaderRegistryKey,
		log:         log,
	}
	if v, ok := shared.Get(s.registryKey); ok {
		s.saved = v
		s.hasSaved = true
	}
	return s
}

// OnWrite observes every overlay write. Writes to the loader registry are
// already confined to the writer's overlay; this only leaves a trace so
// loader misbehavior can be diagnosed.
func (s *Suppressor) OnWrite(key string, _ any) {
	if key == s.registryKey {
		s.log.Debug("loader registry write confined to sandbox overlay",
			zap.String("key", key))
	}
}

// Teardown restores the shared loader registry once the last running
// sandbox deactivates. While siblings remain running the shared entry is
// left alone.
func (s *Suppressor) Teardown(handle *sandbox.Proxy, lastActive bool) {
	if !lastActive {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasSaved {
		return
	}
	if err := s.shared.Set(s.registryKey, s.saved); err != nil {
		s.log.Warn("failed to restore loader registry",
			zap.String("sandbox", handle.Name()),
			zap.Error(err))
		return
	}
	s.log.Debug("loader registry restored", zap.String("sandbox", handle.Name()))
}
