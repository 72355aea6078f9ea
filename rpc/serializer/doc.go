// Package serializer turns common.Message values into bytes and back for the
// eKV RPC layer. Command arguments, replies (including nested arrays) and
// error kinds all survive the trip.
//
// Implementations:
//
//   - binarySerializerImpl: compact hand-written format. A flag byte marks the
//     fields that are present, replies are encoded recursively with a depth
//     limit. This is the default.
//
//   - jsonSerializerImpl: encoding/json, readable on the wire. Useful for
//     debugging with tools like tcpdump.
//
//   - gobSerializerImpl: encoding/gob. Slowest and largest, kept for
//     comparison in the benchmarks.
//
// ByName maps the --serializer flag values (binary, json, gob) to a serializer.
//
// Note that gob and json do not distinguish nil and empty slices. Only the
// binary format keeps an empty argument list or an empty string reply as such.
//
// All implementations are stateless and safe for concurrent use.
package serializer
