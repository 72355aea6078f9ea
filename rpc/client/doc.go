// Package client implements the eKV RPC client.
//
// RPCExecutor implements command.Executor on top of a transport and a
// serializer. Commands are sent as tokenized argument lists and executed by
// the server's dispatcher, replies and error kinds come back unchanged. QUIT
// closes the local transport, the server connection stays open for other
// clients.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  TimeoutSecond: 5,
//	  Transport: common.ClientTransportConfig{
//	    Endpoints:  []string{"localhost:8080"},
//	    RetryCount: 3,
//	  },
//	}
//
//	exec, err := client.NewRPCExecutor(1, config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	if err != nil {
//	  log.Fatal(err)
//	}
//	defer exec.Close()
//
//	reply, err := command.ExecuteLine(exec, `SET greeting "hello world"`)
//
// Thread Safety:
//
//	Execute may be called concurrently, the transports are safe for
//	concurrent use. Close must not race with Execute.
package client
