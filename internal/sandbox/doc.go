/*
Package sandbox is the isolation core of the micro-frontend host.

# Overview

Multiple independently-authored hosted modules execute inside one shared
process. Each gets a Sandbox whose global handle presents an exclusive view
of the single shared global object, and whose document handle attributes
element creation to the sandbox that performed it. Isolation works by
layering, not copying:

 1. Snapshot: at construction, the non-configurable descriptors of the
    shared global are copied into a private overlay; accessor-backed keys
    are remembered so reads always re-evaluate live platform state.
 2. Interception: every access through the global handle is routed between
    the overlay and the shared object. Writes land in the overlay and never
    leak to siblings; reads fall through to the shared object when the
    overlay has nothing to say.
 3. Attribution: reading the document key re-tags the shared document
    handle with the reader's identity, so element creation resolved after
    that point is stamped with the correct owner.

# What this is not

Not a language-level sandbox: it does not bound memory, interrupt loops, or
guard prototype chains. It isolates mutable global property state and
attributes document creation, nothing more.

# Lifecycle

Sandboxes are created by the orchestrator and activated at mount,
deactivated at unmount. A process-wide counter tracks how many sandboxes
are running so that teardown work gated on "last active" does not fire
while a sibling is still mounted. Deactivation leaves the overlay intact;
a reactivated sandbox resumes with its prior global state.
*/
package sandbox
