package global

import (
	"encoding/base64"
	"time"
)

// Self-reference alias names: the keys by which the shared global refers to
// itself or a structural ancestor.
const (
	KeyWindow     = "window"
	KeySelf       = "self"
	KeyGlobalThis = "globalThis"
	KeyTop        = "top"
	KeyParent     = "parent"
)

// LoaderRegistryKey names the shared module-loader registry. Its internal
// bookkeeping must not be corrupted by per-sandbox writes.
const LoaderRegistryKey = "System"

// Platform builds the host's shared global object, seeded the way a browser
// environment seeds its window: self-reference aliases as non-configurable
// data properties, a live accessor-backed clock, and the module-loader
// registry.
func Platform() *Object {
	o := New()

	for _, alias := range []string{KeyWindow, KeySelf, KeyGlobalThis, KeyTop, KeyParent} {
		o.Define(alias, Descriptor{Value: o, Enumerable: alias == KeyWindow})
	}

	o.Define("navigator", Frozen(map[string]any{
		"userAgent": "qiankun-host/2.0 (goja)",
		"language":  "en-US",
	}))

	location := map[string]any{
		"protocol": "https:",
		"host":     "localhost",
		"href":     "https://localhost/",
	}
	o.Define("location", Accessor(func(*Object) any { return location }, nil))

	start := time.Now()
	o.Define("performance", Accessor(func(*Object) any {
		return map[string]any{
			"timeOrigin": float64(start.UnixMilli()),
			"elapsed":    float64(time.Since(start).Microseconds()) / 1000.0,
		}
	}, nil))

	o.Define(LoaderRegistryKey, Descriptor{
		Value:      map[string]any{},
		Writable:   true,
		Enumerable: true,
	})

	o.Define("btoa", Data(Method(func(_ *Object, args ...any) any {
		if len(args) == 0 {
			return ""
		}
		s, _ := args[0].(string)
		return base64.StdEncoding.EncodeToString([]byte(s))
	})))
	o.Define("atob", Data(Method(func(_ *Object, args ...any) any {
		if len(args) == 0 {
			return ""
		}
		s, _ := args[0].(string)
		raw, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return ""
		}
		return string(raw)
	})))

	// Timers are deliberately inert inside the host.
	noop := Method(func(_ *Object, _ ...any) any { return nil })
	o.Define("setTimeout", Data(noop))
	o.Define("setInterval", Data(noop))

	return o
}
