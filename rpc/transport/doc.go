// Package transport defines the interfaces for moving serialized RPC messages
// between an eKV client and server. Every request carries the id of the
// database connection it addresses, the server hands it to a single
// ServerHandleFunc.
//
// Implementations live in the sub packages:
//
//   - tcp and unix: framed streams on top of the base package
//   - http: one POST per request, the same listener also serves /metrics
package transport
