// Package common provides the data structures shared by the rpc client,
// server, serializers and transports.
//
// Key Components:
//
//   - Message: the single structure used for requests and responses. A
//     command request carries the tokenized command line in Args, the
//     response carries a command.Reply or an error message together with its
//     db.ErrorKind, so that errors.Is works on the client side as well.
//
//   - MessageType: command, ping and the generic success/error types.
//
//   - ServerConfig: the connections hosted by a server (ID=backend:path),
//     transport and logging settings.
//
//   - ClientConfig: endpoints, timeouts and retry behavior of a client.
//
//   - Logger: a custom dragonboat logger.ILogger with consistent
//     "LEVEL | package | message" formatting on stderr. InitLoggers sets the
//     level of every logger of the application.
package common
