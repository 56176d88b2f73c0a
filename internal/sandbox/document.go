package sandbox

import (
	"sync"

	"go.uber.org/zap"

	"github.com/SCWR/qiankun/internal/document"
	"github.com/SCWR/qiankun/internal/logging"
)

// OwnerKey is the attribution-tag key on the document handle. Writing it
// switches which sandbox subsequent element creation is attributed to.
const OwnerKey = "__sandboxOwner__"

// CreateElementKey is the element-creation key on the document handle.
const CreateElementKey = "createElement"

// DocumentProxy is the document interception layer. One proxy fronts the
// shared document root for all sandboxes; it carries a two-key local
// overlay — the attribution tag and the element-creation function bound to
// it — and serves every other key live from the root.
type DocumentProxy struct {
	root     *document.Root
	appender Appender
	log      *logging.Logger

	mu            sync.RWMutex
	owner         string
	hasOwner      bool
	createElement document.BoundMethod
}

// NewDocumentProxy fronts root with an interception layer. The appender
// resolves owner-scoped element creation; when nil, the root itself serves
// as appender.
func NewDocumentProxy(root *document.Root, appender Appender, log *logging.Logger) *DocumentProxy {
	if appender == nil {
		appender = root
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &DocumentProxy{root: root, appender: appender, log: log}
}

// Root returns the shared document root behind this proxy.
func (d *DocumentProxy) Root() *document.Root { return d.root }

// Owner returns the current attribution tag.
func (d *DocumentProxy) Owner() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.owner
}

// Set writes a key on the document handle. The attribution tag and the
// element-creation override land in the local overlay; the creation
// function is always rebound so it executes against the real document root.
// Other keys write through to the root.
func (d *DocumentProxy) Set(key string, value any) bool {
	switch key {
	case OwnerKey:
		owner, _ := value.(string)
		d.mu.Lock()
		if !d.hasOwner || owner != d.owner {
			d.owner = owner
			d.hasOwner = true
			d.createElement = document.Bind(d.appender.ResolveCreateElement(owner), d.root)
			d.mu.Unlock()
			d.log.Debug("document re-tagged", zap.String("owner", owner))
			return true
		}
		d.mu.Unlock()
		return true
	case CreateElementKey:
		d.mu.Lock()
		defer d.mu.Unlock()
		switch fn := value.(type) {
		case document.Method:
			d.createElement = document.Bind(fn, d.root)
		case document.BoundMethod:
			d.createElement = fn
		case func(args ...any) any:
			d.createElement = fn
		default:
			d.log.Warn("createElement override is not a function, ignored")
		}
		return true
	default:
		d.root.Set(key, value)
		return true
	}
}

// Get reads a key on the document handle. The two overlay keys come from
// the overlay; everything else reads live from the root, with
// function-typed results rebound to the root as receiver.
func (d *DocumentProxy) Get(key string) (any, bool) {
	switch key {
	case OwnerKey:
		d.mu.RLock()
		defer d.mu.RUnlock()
		if !d.hasOwner {
			return nil, false
		}
		return d.owner, true
	case CreateElementKey:
		d.mu.RLock()
		fn := d.createElement
		d.mu.RUnlock()
		if fn != nil {
			return fn, true
		}
	}

	v, ok := d.root.Get(key)
	if !ok {
		return nil, false
	}
	if m, isMethod := v.(document.Method); isMethod {
		return document.Bind(m, d.root), true
	}
	return v, true
}

// Has reports whether key is visible through the document handle.
func (d *DocumentProxy) Has(key string) bool {
	d.mu.RLock()
	local := (key == OwnerKey && d.hasOwner) || (key == CreateElementKey && d.createElement != nil)
	d.mu.RUnlock()
	return local || d.root.Has(key)
}

// Delete removes the attribution tag and the creation function together;
// their lifecycles are linked, an element-creation override without an
// owning tag is invalid. Deleting any other key is a no-op.
func (d *DocumentProxy) Delete(key string) bool {
	if key != OwnerKey && key != CreateElementKey {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.owner = ""
	d.hasOwner = false
	d.createElement = nil
	return true
}

// Keys returns the root's keys plus whichever overlay keys are populated.
func (d *DocumentProxy) Keys() []string {
	keys := d.root.Keys()
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.hasOwner {
		keys = append(keys, OwnerKey)
	}
	return keys
}
