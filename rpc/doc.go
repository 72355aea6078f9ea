// Package rpc exposes eKV database connections over the network. A server
// hosts one or more connections, each a command.Dispatcher over one engine,
// and clients address them by their numeric connection id.
//
// Subpackages:
//
//   - common: the Message protocol (command arguments in, typed reply or
//     error kind out), server and client configuration, and the logger
//     factory shared by all eKV packages.
//
//   - transport: framed byte transports (TCP, Unix sockets, HTTP). Every
//     request carries the id of the connection it targets.
//
//   - serializer: Message encodings (Binary, JSON, GOB).
//
//   - server: RPCServer opens the configured connections and routes each
//     request to its dispatcher. The command adapter (adapter_command.go)
//     answers pings and runs commands, one request at a time per connection.
//
//   - client: RPCExecutor implements command.Executor against a remote
//     connection, so the CLI runs the same commands locally or remotely.
package rpc
