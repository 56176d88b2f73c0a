package engine

import (
	"github.com/dop251/goja"

	"github.com/SCWR/qiankun/internal/document"
	"github.com/SCWR/qiankun/internal/global"
	"github.com/SCWR/qiankun/internal/sandbox"
)

// globalAdapter exposes the sandbox's global handle to goja. Reads that
// resolve to the handle itself (self-reference aliases) map back to the one
// dynamic object, so hosted identity checks like `window === self` hold.
type globalAdapter struct {
	e *Engine
}

var _ goja.DynamicObject = (*globalAdapter)(nil)

func (a *globalAdapter) Get(key string) goja.Value {
	v, ok := a.e.sb.Global().Get(key)
	if !ok {
		return goja.Undefined()
	}
	return a.e.hostValue(v)
}

func (a *globalAdapter) Set(key string, val goja.Value) bool {
	return a.e.sb.Global().Set(key, val.Export())
}

func (a *globalAdapter) Has(key string) bool {
	return a.e.sb.Global().Has(key)
}

func (a *globalAdapter) Delete(key string) bool {
	return a.e.sb.Global().Delete(key)
}

func (a *globalAdapter) Keys() []string {
	return a.e.sb.Global().Keys()
}

// documentAdapter exposes the document handle to goja.
type documentAdapter struct {
	e *Engine
}

var _ goja.DynamicObject = (*documentAdapter)(nil)

func (a *documentAdapter) Get(key string) goja.Value {
	v, ok := a.e.sb.Document().Get(key)
	if !ok {
		return goja.Undefined()
	}
	return a.e.hostValue(v)
}

func (a *documentAdapter) Set(key string, val goja.Value) bool {
	// A hosted createElement override arrives as a JS function; carry it
	// across as a host closure so the document layer can cache it.
	if fn, ok := goja.AssertFunction(val); ok {
		return a.e.sb.Document().Set(key, document.BoundMethod(func(args ...any) any {
			res, err := fn(goja.Undefined(), a.e.jsValues(args)...)
			if err != nil || res == nil {
				return nil
			}
			return res.Export()
		}))
	}
	return a.e.sb.Document().Set(key, val.Export())
}

func (a *documentAdapter) Has(key string) bool {
	return a.e.sb.Document().Has(key)
}

func (a *documentAdapter) Delete(key string) bool {
	return a.e.sb.Document().Delete(key)
}

func (a *documentAdapter) Keys() []string {
	return a.e.sb.Document().Keys()
}

// hostValue converts a value routed through the sandbox layers into a goja
// value, preserving handle identity and proxying functions and elements.
func (e *Engine) hostValue(v any) goja.Value {
	switch t := v.(type) {
	case nil:
		return goja.Undefined()
	case *sandbox.Proxy:
		return e.handle
	case *sandbox.DocumentProxy:
		return e.docHandle
	case *global.Object:
		// The raw shared global must never cross into hosted code.
		return e.handle
	case global.BoundMethod:
		return e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return e.hostValue(t(e.exportArgs(call)...))
		})
	case document.BoundMethod:
		return e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			return e.hostValue(t(e.exportArgs(call)...))
		})
	case *document.Element:
		return e.vm.ToValue(e.elementProxy(t))
	case []*document.Element:
		proxies := make([]any, len(t))
		for i, el := range t {
			proxies[i] = e.elementProxy(el)
		}
		return e.vm.ToValue(proxies)
	default:
		return e.vm.ToValue(v)
	}
}

// elementProxy exposes a document element to hosted code.
func (e *Engine) elementProxy(el *document.Element) map[string]any {
	return map[string]any{
		"tagName":     el.TagName,
		"id":          el.ID,
		"className":   el.ClassName,
		"textContent": el.TextContent,
		"owner":       el.Owner,
		"getAttribute": func(name string) string {
			return el.GetAttribute(name)
		},
		"setAttribute": func(name, value string) {
			el.SetAttribute(name, value)
		},
	}
}

func (e *Engine) exportArgs(call goja.FunctionCall) []any {
	args := make([]any, len(call.Arguments))
	for i, arg := range call.Arguments {
		args[i] = arg.Export()
	}
	return args
}

func (e *Engine) jsValues(args []any) []goja.Value {
	vals := make([]goja.Value, len(args))
	for i, arg := range args {
		vals[i] = e.vm.ToValue(arg)
	}
	return vals
}
