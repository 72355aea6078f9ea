// Package util provides the engine independent building blocks shared by
// all db.Engine implementations.
//
// The package contains:
//   - scan: the SCAN cursor paginator (ScanPage) and the KEYS range scanner
//     (RangeKeys). Both are driven by a Walker, i.e. an engine's read-only
//     cursor walk, so every backend gets identical semantics.
//   - functions: storage path checks (StatPath, ParentIsDir) and byte helpers
//   - statistics: a SizeHistogram and SampleNamespace, used by INFO to report
//     an estimate of key and value sizes without a full scan
//
// Nothing in this package keeps state between calls. It never opens
// transactions itself, the Walker passed in owns them.
package util
