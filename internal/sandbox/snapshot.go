package sandbox

import "github.com/SCWR/qiankun/internal/global"

// selfRefKeys are the names by which the shared global refers to itself or
// a structural ancestor. Reads of these keys through a sandbox handle must
// return the handle, never the raw shared object, so hosted code cannot
// walk an alias chain out of its view.
var selfRefKeys = map[string]struct{}{
	global.KeyWindow:     {},
	global.KeySelf:       {},
	global.KeyGlobalThis: {},
	global.KeyTop:        {},
	global.KeyParent:     {},
}

func isSelfRef(key string) bool {
	_, ok := selfRefKeys[key]
	return ok
}

// snapshot seeds a sandbox overlay from the shared global's non-configurable
// own properties and records which of them are accessor-backed.
//
// Self-reference aliases are relaxed to configurable (and, for data
// descriptors, writable) so the handle can later substitute itself for the
// raw global without violating the environment's rule that a proxied read of
// a non-writable non-configurable data property must equal the target's
// literal value. Accessor-backed keys go into the getter-backed set: their
// overlay copy is never trusted, reads re-evaluate the live shared object.
func snapshot(shared *global.Object) (map[string]global.Descriptor, map[string]struct{}) {
	overlay := make(map[string]global.Descriptor)
	getterBacked := make(map[string]struct{})

	for _, key := range shared.Keys() {
		desc, ok := shared.Describe(key)
		if !ok || desc.Configurable {
			continue
		}
		if isSelfRef(key) {
			desc.Configurable = true
			if !desc.IsAccessor() {
				desc.Writable = true
			}
		}
		if desc.IsAccessor() {
			getterBacked[key] = struct{}{}
		}
		// Descriptors are value types; storing the copy freezes it against
		// later tampering with the shared object's entry.
		overlay[key] = desc
	}
	return overlay, getterBacked
}
