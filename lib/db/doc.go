// Package db provides a unified command interface over embedded key-value
// engines whose native APIs differ: named sub-databases with explicit
// transactions (lmdb), numeric database handles (upscaledb) and an ordered
// in-memory tree (memory).
//
// Key Components:
//
//   - Engine Interface: the native capability set every backend implements
//     (Set, Get, Delete, ForEach, Count, Flush, Select, Databases). Engines
//     own exactly one live environment and one active namespace. They never
//     keep a transaction or cursor open across calls.
//
//   - Connection: implements the command level KVDB interface on top of any
//     Engine. Operations that are identical for every backend live here:
//     Rename (get, delete, set), DeleteMany (best effort), Scan (skip-count
//     cursor), Keys (exclusive range), TTL (not supported) and Select with a
//     fresh key count.
//
//   - Errors: every failure is an *Error with a generic ErrorKind
//     (InvalidArgument, PathError, NotSupported, NotConnected, EngineError,
//     NotFound). Use errors.Is with the sentinels, e.g.
//
//     if errors.Is(err, db.ErrNotFound) { ... }
//
//     Messages follow the "<CMD> function error: <native message>" format.
//
//   - Config: the backend tag, the storage path, EnvFlags, namespace limits
//     and the initial namespace. Engines copy it when they open.
//
//   - Feature Flags: engines advertise capabilities (named or numeric
//     namespaces, native counting, explicit transactions, persistence)
//     through SupportsFeature.
//
// Note on Namespaces:
//   - Selecting the current namespace again is a no-op. The engine compares
//     the requested label with its cached label before touching storage.
//   - A failed selection leaves the previous namespace active and usable.
//   - Missing namespaces are created on selection unless the environment is
//     read-only. Creation is bounded by Config.MaxNamespaces.
//
// Note on SCAN:
//
// The cursor is a skip count, not a position. Every call walks the namespace
// from the first key. When a page fills and any further entry exists, the
// returned cursor is cursor+count even if that entry does not match the
// pattern, so the final call of an iteration may return an empty page with
// cursor 0.
//
// Concurrency:
//
// Neither engines nor connections lock. One connection is used by one
// logical thread, callers that share it must serialize.
//
// Related Packages:
//
// The engines package (github.com/ValentinKolb/eKV/lib/db/engines) selects an
// engine at runtime from Config.Backend. The testing package runs the shared
// conformance suite against every engine.
package db
