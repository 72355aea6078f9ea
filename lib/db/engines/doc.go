// Package engines opens a db.KVDB for any supported backend.
//
// Each backend lives in its own subpackage and only exposes a native
// db.Engine. Open wraps the engine in a db.Connection, which adds the
// commands shared by all backends (RENAME, SCAN, KEYS, ...).
package engines
