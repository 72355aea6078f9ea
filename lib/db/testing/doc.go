// Package testing provides the conformance suite and benchmarks every
// backend behind db.KVDB has to pass.
//
// The suite checks the command contract, not engine internals:
//   - Set then Get returns the value, Get after Delete fails with NotFound
//   - Delete of a missing key fails with NotFound on every backend
//   - Rename of a missing key fails without mutation
//   - DeleteMany returns exactly the keys it removed
//   - FlushDB leaves DBKCount at zero
//   - KEYS bounds are exclusive and the limit truncates
//   - SCAN pages follow the skip-count cursor
//   - Select isolates namespaces and reports a fresh key count
//   - TTL commands are not supported
//   - every command fails with NotConnected after Close
//
// Example usage:
//
//	factory := func(tb testing.TB) db.KVDB {
//		engine, err := myengine.Open(db.DefaultConfig(db.ImplLMDB, tb.TempDir()))
//		require.NoError(tb, err)
//		return db.NewConnection(engine, ...)
//	}
//
//	dbtesting.RunKVDBTests(t, "MyEngine", factory)
//	dbtesting.RunKVDBBenchmarks(b, "MyEngine", factory)
package testing
