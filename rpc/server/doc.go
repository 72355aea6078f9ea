// Package server implements the eKV RPC server. It hosts one or more database
// connections, each addressed by a numeric id, and executes the commands
// clients send to them through the command layer.
//
// Key Components:
//
//   - RPCServer: opens the configured connections, registers itself as the
//     transport handler and serves until Close. Requests for the same
//     connection are serialized, requests for different connections run in
//     parallel.
//
//   - IRPCServerAdapter / NewCommandServerAdapter: turns a decoded message
//     into a dispatcher call. Ping answers with the backend name, QUIT is
//     rejected since hosted connections are shared.
//
// Usage Example:
//
//	conn, _ := common.ParseServerConnection("1=lmdb:/var/lib/ekv/main")
//	config := common.ServerConfig{
//	  Connections:   []common.ServerConnection{conn},
//	  Transport:     common.TransportConfig{Endpoint: "0.0.0.0:8080"},
//	  TimeoutSecond: 5,
//	  LogLevel:      "info",
//	}
//
//	s := server.NewRPCServer(config, tcp.NewTCPServerTransport(), serializer.NewBinarySerializer())
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// With MetricsEndpoint set the server also serves GET /metrics on a separate
// listener. The http transport serves it on its own listener anyway.
package server
