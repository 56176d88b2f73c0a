package global

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var (
	// ErrNotConfigurable is returned when redefining or deleting a
	// non-configurable property in a way the environment forbids.
	ErrNotConfigurable = errors.New("property is not configurable")

	// ErrReadOnly is returned when assigning to a non-writable data
	// property or an accessor without a setter.
	ErrReadOnly = errors.New("property is read-only")
)

// Object is a property bag with descriptor semantics and stable key order.
// Own keys enumerate in insertion order.
type Object struct {
	mu    sync.RWMutex
	props map[string]Descriptor
	order []string
}

// New creates an empty object.
func New() *Object {
	return &Object{props: make(map[string]Descriptor)}
}

// Has reports whether key is an own property.
func (o *Object) Has(key string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.props[key]
	return ok
}

// Get reads the value of an own property. Accessor properties are evaluated
// with this object as receiver.
func (o *Object) Get(key string) (any, bool) {
	o.mu.RLock()
	d, ok := o.props[key]
	o.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if d.IsAccessor() {
		if d.Get == nil {
			return nil, true
		}
		return d.Get(o), true
	}
	return d.Value, true
}

// Describe returns a copy of the property's descriptor.
func (o *Object) Describe(key string) (Descriptor, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	d, ok := o.props[key]
	return d, ok
}

// Set assigns a value. Accessor properties run their setter with this object
// as receiver; data properties must be writable. Absent keys are created as
// plain data properties.
func (o *Object) Set(key string, value any) error {
	o.mu.Lock()
	d, ok := o.props[key]
	if ok && d.IsAccessor() {
		o.mu.Unlock()
		if d.Set == nil {
			return fmt.Errorf("set %q: %w", key, ErrReadOnly)
		}
		d.Set(o, value)
		return nil
	}
	defer o.mu.Unlock()
	if ok {
		if !d.Writable {
			return fmt.Errorf("set %q: %w", key, ErrReadOnly)
		}
		d.Value = value
		o.props[key] = d
		return nil
	}
	o.props[key] = Data(value)
	o.order = append(o.order, key)
	return nil
}

// Define creates or redefines a property. Redefinition of a non-configurable
// property is rejected unless the change is limited to what the environment
// permits: a writable data property may change its value or drop writability,
// nothing else.
func (o *Object) Define(key string, d Descriptor) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	cur, ok := o.props[key]
	if ok && !cur.Configurable {
		if err := ValidateRedefine(cur, d); err != nil {
			return fmt.Errorf("define %q: %w", key, err)
		}
	}
	if !ok {
		o.order = append(o.order, key)
	}
	o.props[key] = d
	return nil
}

// ValidateRedefine reports whether the environment permits replacing a
// non-configurable descriptor with next: a writable data property may change
// its value or drop writability, nothing else may change.
func ValidateRedefine(cur, next Descriptor) error {
	switch {
	case next.Configurable:
		return ErrNotConfigurable
	case next.Enumerable != cur.Enumerable:
		return ErrNotConfigurable
	case cur.IsAccessor() != next.IsAccessor():
		return ErrNotConfigurable
	case cur.IsAccessor():
		// Accessor identity is not comparable; treat any rewrite as a change.
		return ErrNotConfigurable
	case !cur.Writable && (next.Writable || !reflect.DeepEqual(next.Value, cur.Value)):
		return ErrNotConfigurable
	}
	return nil
}

// Delete removes an own property. Deleting an absent key succeeds; deleting a
// non-configurable key fails the way the environment dictates.
func (o *Object) Delete(key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	d, ok := o.props[key]
	if !ok {
		return nil
	}
	if !d.Configurable {
		return fmt.Errorf("delete %q: %w", key, ErrNotConfigurable)
	}
	delete(o.props, key)
	for i, k := range o.order {
		if k == key {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	return nil
}

// Keys returns own keys in insertion order.
func (o *Object) Keys() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	keys := make([]string, len(o.order))
	copy(keys, o.order)
	return keys
}

// Len returns the number of own properties.
func (o *Object) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.props)
}
