package feed

/*

# Feed reconstruction

A feed is the runtime state of a cryptographically authenticated append
only log: its full root set, committed length, availability bitfield,
tree index and key pair, bound to the storage streams that persist
them.

This package owns the typed stream layer (Store) over the raw
storage.RandomAccess contract, and the reconstruction that derives a
consistent feed from whatever bytes already exist:

 1. the signing key, when supplied, is validated by re-derivation
    before anything is persisted
 2. the verifying key is always persisted
 3. the bitfield is loaded if present, else initialised empty, and the
    tree index derived from it supplies the authoritative block count
 4. the full root set is recomputed from the block count alone and
    every expected root is fetched by flat index; a mismatched or
    missing root is index corruption, never "root not present"
 5. the byte length is the sum of the root subtree lengths

Construction either yields a ready feed or fails whole; no partially
reconstructed feed is observable. Growing the feed (append) is a layer
above, as is replication; the peer list here is a placeholder for it.
*/
