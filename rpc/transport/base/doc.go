// Package base implements the stream transport shared by the tcp and unix
// packages. The protocol specific parts (dialing, listening, socket options)
// are injected through IClientConnector and IServerConnector.
//
// Frame format (big endian):
//
//	connection id u64 | request id u64 | length u32 | payload
//
// The connection id selects the database connection on the server, the request
// id correlates responses on the client.
//
// Key Components:
//
//   - clientTransport: keeps one or more connections per endpoint and picks
//     one round robin for every request. Requests are written under a per
//     connection lock, a reader goroutine hands responses to the waiting
//     callers. Failed sends are retried with exponential backoff.
//
//   - serverTransport: accepts connections until Close is called. Each
//     connection reads frames in a loop and runs up to WorkersPerConn
//     handlers concurrently. Read buffers come from a sync.Pool.
//
// Thread Safety:
//
//	All exported methods are safe for concurrent use.
package base
