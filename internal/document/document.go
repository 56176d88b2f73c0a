// Package document models the shared document root: one mutable element tree
// per host process, visible to every hosted module through its sandbox's
// document handle. Elements created through a sandbox are stamped with the
// creating sandbox's name so dynamically appended nodes can be attributed
// and swept without copying the tree.
package document

import (
	"strings"
	"sync"
)

// Method is a function-typed document property. Reads through a sandbox
// handle rebind it so it executes against the real document root.
type Method func(recv *Root, args ...any) any

// BoundMethod is a Method with its receiver fixed.
type BoundMethod func(args ...any) any

// Bind fixes a Method's receiver.
func Bind(m Method, recv *Root) BoundMethod {
	return func(args ...any) any {
		return m(recv, args...)
	}
}

// Element is a node in the shared document tree.
type Element struct {
	TagName     string
	ID          string
	ClassName   string
	TextContent string
	Attributes  map[string]string
	Children    []*Element
	Parent      *Element

	// Owner names the sandbox whose handle created this element.
	// Empty for nodes that existed before any hosted module ran.
	Owner string
}

// Root is the shared document root.
type Root struct {
	mu    sync.RWMutex
	tree  *Element
	props map[string]any
	order []string
}

// NewRoot creates a document root with an empty tree and the built-in
// document surface (title, query methods, native createElement).
func NewRoot() *Root {
	r := &Root{
		tree: &Element{
			TagName:    "document",
			Attributes: make(map[string]string),
		},
		props: make(map[string]any),
	}
	r.defineBuiltins()
	return r
}

// Tree returns the root element.
func (r *Root) Tree() *Element {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tree
}

// Has reports whether key is on the document surface.
func (r *Root) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.props[key]
	return ok
}

// Get reads a document property.
func (r *Root) Get(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.props[key]
	return v, ok
}

// Set stores a document property.
func (r *Root) Set(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.props[key]; !ok {
		r.order = append(r.order, key)
	}
	r.props[key] = value
}

// Keys returns document surface keys in insertion order.
func (r *Root) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, len(r.order))
	copy(keys, r.order)
	return keys
}

// ResolveCreateElement returns an element-creation function whose output is
// attributed to the given owner. Satisfies the sandbox layer's appender
// contract.
func (r *Root) ResolveCreateElement(owner string) Method {
	return func(recv *Root, args ...any) any {
		if len(args) == 0 {
			return nil
		}
		tag, _ := args[0].(string)
		el := &Element{
			TagName:    tag,
			Attributes: make(map[string]string),
			Owner:      owner,
		}
		if owner != "" {
			el.Attributes["data-owner"] = owner
		}
		return el
	}
}

// OwnedBy returns every element in the tree attributed to owner.
func (r *Root) OwnedBy(owner string) []*Element {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Element
	walk(r.tree, func(el *Element) {
		if el.Owner == owner {
			out = append(out, el)
		}
	})
	return out
}

func (r *Root) defineBuiltins() {
	r.props["title"] = ""
	r.props["body"] = r.tree
	r.order = append(r.order, "title", "body")

	r.define("createElement", r.ResolveCreateElement(""))
	r.define("getElementById", func(recv *Root, args ...any) any {
		if len(args) == 0 {
			return nil
		}
		id, _ := args[0].(string)
		return recv.Query("#" + id)
	})
	r.define("querySelector", func(recv *Root, args ...any) any {
		if len(args) == 0 {
			return nil
		}
		sel, _ := args[0].(string)
		return recv.Query(sel)
	})
	r.define("querySelectorAll", func(recv *Root, args ...any) any {
		if len(args) == 0 {
			return []*Element{}
		}
		sel, _ := args[0].(string)
		return recv.QueryAll(sel)
	})
	r.define("appendChild", func(recv *Root, args ...any) any {
		if len(args) == 0 {
			return nil
		}
		el, _ := args[0].(*Element)
		if el == nil {
			return nil
		}
		recv.mu.Lock()
		recv.tree.Append(el)
		recv.mu.Unlock()
		return el
	})
}

func (r *Root) define(name string, m Method) {
	r.props[name] = m
	r.order = append(r.order, name)
}

// Query returns the first element matching the selector, or nil.
func (r *Root) Query(selector string) *Element {
	if all := r.QueryAll(selector); len(all) > 0 {
		return all[0]
	}
	return nil
}

// QueryAll matches elements by #id, .class, or tag selector.
func (r *Root) QueryAll(selector string) []*Element {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Element
	match := func(*Element) bool { return false }
	switch {
	case strings.HasPrefix(selector, "#"):
		id := strings.TrimPrefix(selector, "#")
		match = func(el *Element) bool { return el.ID == id }
	case strings.HasPrefix(selector, "."):
		class := strings.TrimPrefix(selector, ".")
		match = func(el *Element) bool {
			return strings.Contains(" "+el.ClassName+" ", " "+class+" ")
		}
	default:
		match = func(el *Element) bool { return strings.EqualFold(el.TagName, selector) }
	}
	walk(r.tree, func(el *Element) {
		if match(el) {
			out = append(out, el)
		}
	})
	return out
}

func walk(el *Element, fn func(*Element)) {
	fn(el)
	for _, child := range el.Children {
		walk(child, fn)
	}
}

// Append attaches child to e.
func (e *Element) Append(child *Element) {
	child.Parent = e
	e.Children = append(e.Children, child)
}

// Detach removes e from its parent.
func (e *Element) Detach() {
	if e.Parent == nil {
		return
	}
	siblings := e.Parent.Children[:0]
	for _, child := range e.Parent.Children {
		if child != e {
			siblings = append(siblings, child)
		}
	}
	e.Parent.Children = siblings
	e.Parent = nil
}

// GetAttribute reads an attribute value.
func (e *Element) GetAttribute(name string) string {
	return e.Attributes[name]
}

// SetAttribute stores an attribute value.
func (e *Element) SetAttribute(name, value string) {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[name] = value
	switch name {
	case "id":
		e.ID = value
	case "class":
		e.ClassName = value
	}
}
