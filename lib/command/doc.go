// Package command implements the Redis inspired command layer on top of a
// db.KVDB connection.
//
// Every backend has its own command table, built once when the package is
// initialized and read-only afterwards. A table maps command names (and
// aliases such as DEL) to a synopsis, a summary and the accepted number of
// arguments. The Dispatcher resolves a tokenized command line against the
// table of its connection's backend, checks the arity and runs the handler.
//
// Results are typed Reply values (status, string, integer, array, nil). They
// can be rendered the way redis-cli prints them and are serialized as is by
// the rpc layer.
//
// Every executed command updates the following metrics
// (github.com/VictoriaMetrics/metrics):
//
//	ekv_commands_total{command, backend}
//	ekv_command_errors_total{command, backend, kind}
//	ekv_command_duration_seconds{command}
//
// Usage:
//
//	conn, _ := engines.Open(db.DefaultConfig(db.ImplLMDB, "/var/lib/ekv"))
//	d, _ := command.NewDispatcher(conn)
//	defer d.Close()
//
//	reply, err := command.ExecuteLine(d, `SET greeting "hello world"`)
//	fmt.Println(reply.Render()) // OK
package command
