// Package tcp provides the TCP connectors for the base stream transport.
//
// Client and server apply the same socket options: TCP_NODELAY, keep-alive,
// linger and the kernel buffer sizes. The default server read buffer is 512 KB.
package tcp
