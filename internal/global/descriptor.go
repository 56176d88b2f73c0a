package global

// Getter computes a property value against a receiver object.
type Getter func(recv *Object) any

// Setter stores a property value against a receiver object.
type Setter func(recv *Object, value any)

// Method is a function-typed property value. Its behavior may depend on the
// receiver it runs against, so reads through a sandbox handle must rebind it
// to the real shared object before handing it to hosted code.
type Method func(recv *Object, args ...any) any

// BoundMethod is a Method with its receiver fixed.
type BoundMethod func(args ...any) any

// Bind fixes a Method's receiver.
func Bind(m Method, recv *Object) BoundMethod {
	return func(args ...any) any {
		return m(recv, args...)
	}
}

// Descriptor is the attribute set associated with a property name.
// A descriptor is either data (Value) or accessor (Get/Set); never both.
// Descriptors are copied by value, so a copy handed out cannot be used to
// tamper with the stored one.
type Descriptor struct {
	Value any
	Get   Getter
	Set   Setter

	Writable     bool
	Enumerable   bool
	Configurable bool
}

// IsAccessor reports whether the descriptor carries a getter or setter.
func (d Descriptor) IsAccessor() bool {
	return d.Get != nil || d.Set != nil
}

// Data builds a plain mutable data descriptor.
func Data(value any) Descriptor {
	return Descriptor{Value: value, Writable: true, Enumerable: true, Configurable: true}
}

// Frozen builds a non-writable, non-configurable data descriptor.
func Frozen(value any) Descriptor {
	return Descriptor{Value: value, Enumerable: true}
}

// Accessor builds a non-configurable accessor descriptor.
func Accessor(get Getter, set Setter) Descriptor {
	return Descriptor{Get: get, Set: set, Enumerable: true}
}
