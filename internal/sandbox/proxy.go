package sandbox

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/SCWR/qiankun/internal/global"
	"github.com/SCWR/qiankun/internal/logging"
)

// DocumentKey is the reserved key whose read yields the document handle.
const DocumentKey = "document"

// OwnCheckKey is the reserved identity-check key. Reading it yields a
// function that tests ownership against both the overlay and the shared
// global, so hosted feature detection keeps working.
const OwnCheckKey = "hasOwnProperty"

// descOrigin records where Describe last sourced a key's descriptor.
type descOrigin int

const (
	originOverlay descOrigin = iota
	originShared
)

// Proxy is the global interception layer: the handle hosted-module code
// receives in place of the shared global object. It is a stateless routing
// contract evaluated per access against the overlay, the shared global, the
// getter-backed key set, the mutation set, and the descriptor-origin map.
type Proxy struct {
	name   string
	shared *global.Object

	mu           sync.RWMutex
	overlay      map[string]global.Descriptor
	overlayOrder []string
	getterBacked map[string]struct{}
	mutated      map[string]struct{}
	origins      map[string]descOrigin
	active       bool

	doc   *DocumentProxy
	noise NoiseSuppressor
	log   *logging.Logger
}

func newProxy(name string, shared *global.Object, doc *DocumentProxy, noise NoiseSuppressor, log *logging.Logger) *Proxy {
	overlay, getterBacked := snapshot(shared)
	p := &Proxy{
		name:         name,
		shared:       shared,
		overlay:      overlay,
		getterBacked: getterBacked,
		mutated:      make(map[string]struct{}),
		origins:      make(map[string]descOrigin),
		doc:          doc,
		noise:        noise,
		log:          log,
	}
	// Seed enumeration order from the shared object's own order.
	for _, key := range shared.Keys() {
		if _, ok := overlay[key]; ok {
			p.overlayOrder = append(p.overlayOrder, key)
		}
	}
	return p
}

// Name returns the owning sandbox's identity.
func (p *Proxy) Name() string { return p.name }

// Shared returns the shared global object behind this handle.
func (p *Proxy) Shared() *global.Object { return p.shared }

func (p *Proxy) setActive(active bool) {
	p.mu.Lock()
	p.active = active
	p.mu.Unlock()
}

// Has reports whether key is visible through the handle.
func (p *Proxy) Has(key string) bool {
	if isSelfRef(key) {
		return true
	}
	p.mu.RLock()
	_, ok := p.overlay[key]
	p.mu.RUnlock()
	return ok || p.shared.Has(key)
}

// Get reads a key through the handle.
//
// Routing order: self-reference aliases resolve to the handle itself, the
// identity-check key resolves to an ownership tester, the document key
// re-tags and returns the document handle, getter-backed keys re-evaluate
// the live shared object, and everything else prefers the overlay over the
// shared object. Function-typed results are rebound so they execute against
// the real shared global.
func (p *Proxy) Get(key string) (any, bool) {
	if isSelfRef(key) {
		return p, true
	}
	if key == OwnCheckKey {
		return global.BoundMethod(func(args ...any) any {
			if len(args) == 0 {
				return false
			}
			k, _ := args[0].(string)
			return p.owns(k) || p.shared.Has(k)
		}), true
	}
	if key == DocumentKey {
		p.doc.Set(OwnerKey, p.name)
		return p.doc, true
	}
	if _, ok := p.getterBacked[key]; ok {
		return p.rebind(p.shared.Get(key))
	}

	p.mu.RLock()
	desc, ok := p.overlay[key]
	p.mu.RUnlock()
	if ok {
		if desc.IsAccessor() {
			if desc.Get == nil {
				return nil, true
			}
			// Accessors assume the shared object as receiver.
			return p.rebind(desc.Get(p.shared), true)
		}
		return p.rebind(desc.Value, true)
	}
	return p.rebind(p.shared.Get(key))
}

func (p *Proxy) rebind(v any, ok bool) (any, bool) {
	if !ok {
		return nil, false
	}
	if m, isMethod := v.(global.Method); isMethod {
		return global.Bind(m, p.shared), true
	}
	return v, true
}

// Set writes a key into the overlay. Writes from a sandbox that is not
// running are reported as a diagnostic and succeed without effect: hosted
// code may hold a stale handle after teardown and must never crash on it.
func (p *Proxy) Set(key string, value any) bool {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		p.log.Warn("write to inactive sandbox ignored",
			zap.String("sandbox", p.name),
			zap.String("key", key))
		return true
	}

	desc, ok := p.overlay[key]
	if ok && !desc.IsAccessor() {
		desc.Value = value
		p.overlay[key] = desc
	} else {
		p.overlay[key] = global.Data(value)
		if !ok {
			p.overlayOrder = append(p.overlayOrder, key)
		}
	}
	p.mutated[key] = struct{}{}
	p.mu.Unlock()

	p.noise.OnWrite(key, value)
	return true
}

// Delete removes a key the overlay owns. Deleting anything else is a no-op
// reported as success; there is no failure path.
func (p *Proxy) Delete(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.overlay[key]; !ok {
		return true
	}
	delete(p.overlay, key)
	delete(p.mutated, key)
	for i, k := range p.overlayOrder {
		if k == key {
			p.overlayOrder = append(p.overlayOrder[:i], p.overlayOrder[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the deduplicated union of the shared global's own keys and
// the overlay's own keys, first occurrence winning.
func (p *Proxy) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	seen := make(map[string]struct{})
	var keys []string
	for _, key := range p.shared.Keys() {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	for _, key := range p.overlayOrder {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// Describe returns the descriptor for key, preferring the overlay, and
// records where it came from so a later Define can route to the same place.
func (p *Proxy) Describe(key string) (global.Descriptor, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if desc, ok := p.overlay[key]; ok {
		p.origins[key] = originOverlay
		return desc, true
	}
	if desc, ok := p.shared.Describe(key); ok {
		p.origins[key] = originShared
		return desc, true
	}
	delete(p.origins, key)
	return global.Descriptor{}, false
}

// Define applies a property definition. Keys whose descriptor was last
// sourced from the shared object are defined there, inheriting the
// environment's native failure behavior; redefining them onto the overlay
// instead would break accessors that assume the shared object as receiver.
// Everything else lands in the overlay, which enforces the same
// redefinition rules on its own non-configurable entries.
func (p *Proxy) Define(key string, desc global.Descriptor) error {
	p.mu.Lock()
	origin, tracked := p.origins[key]
	p.mu.Unlock()

	if tracked && origin == originShared {
		return p.shared.Define(key, desc)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	cur, ok := p.overlay[key]
	if ok && !cur.Configurable {
		if err := global.ValidateRedefine(cur, desc); err != nil {
			return fmt.Errorf("define %q: %w", key, err)
		}
	}
	if !ok {
		p.overlayOrder = append(p.overlayOrder, key)
	}
	p.overlay[key] = desc
	return nil
}

// MutatedKeys returns the keys written through this handle since
// construction, sorted for stable diagnostics output.
func (p *Proxy) MutatedKeys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	keys := make([]string, 0, len(p.mutated))
	for key := range p.mutated {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (p *Proxy) owns(key string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.overlay[key]
	return ok
}
