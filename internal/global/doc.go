/*
Package global models the shared global namespace visible to hosted modules.

The host process owns exactly one Object for its whole lifetime. It is seeded
with platform properties at bootstrap and handed to the sandbox layer, which
reads and selectively writes it but never constructs or destroys it.

Properties carry full descriptor semantics: a property is either data
(value + writable flag) or accessor (getter/setter evaluated against a
receiver object), and is independently enumerable and configurable.
Redefinition and deletion of non-configurable properties fail the way a
browser environment fails them; callers routing such operations here inherit
that behavior verbatim.
*/
package global
