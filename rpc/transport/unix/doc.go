// Package unix provides the Unix domain socket connectors for the base stream
// transport. It is the fastest option when client and server share a machine.
//
// The server removes a stale socket file before listening. The default read
// buffer is 64 KB.
package unix
