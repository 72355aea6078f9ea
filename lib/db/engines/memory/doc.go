// Package memory implements an in-process engine with named namespaces. It
// is the reference backend used when neither LMDB nor UpscaleDB environments
// are wanted, e.g. in tests or for throw-away shells.
//
// Key Components:
//
//   - memoryImpl: implements db.Engine. A concurrent registry (xsync.MapOf)
//     maps namespace names to their trees. The active namespace is cached
//     together with its name so that re-selecting it is free.
//
//   - internal.Namespace: the committed B-tree of one namespace. Keys are
//     ordered by their raw bytes, so enumeration follows the same order as
//     the disk based engines.
//
//   - internal.Txn: a write transaction working on a copy-on-write clone of
//     the committed tree. Commit swaps the clone in, Abort drops it. Readers
//     never see a partially applied write.
//
// Persistence:
//
// If the configuration names a path, it is a snapshot file. The snapshot is
// loaded on open and written on close through a temporary file that is
// renamed over the old one. The format is:
//  1. Magic number "EKVMEM\x00"
//  2. Version number (currently 1)
//  3. Number of namespaces
//  4. For each namespace: name, number of entries and the length prefixed
//     key and value of every entry in key order
//
// Read-only environments never write the snapshot.
//
// Thread-safety: like every engine, an environment is owned by one connection
// and not safe for concurrent use.
package memory
