package storage

/*

# Byte addressable storage for feeds

This package defines the byte range contract (RandomAccess) that all
feed streams are addressed through, together with the two backends:

  - Disk: a plain local file, with a configurable sync-on-write policy.
  - Secure: an object held by an access controlled secure storage
    engine, resolved by a create-or-open sequence under an
    authenticated session.

The secure storage engine itself is a collaborator, consumed through
the Engine interface. Engines are shared between callers via an
EngineHandle, which serialises the create-or-open sequence so that
concurrent construction against the same object identity observes a
consistent outcome.

All operations take a context for call scoping only; there is no retry,
backoff or cancellation at this layer. An operation runs to completion
or fails, and failures carry the offsets involved.
*/
