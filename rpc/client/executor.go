package client

import (
	"strings"

	"github.com/ValentinKolb/eKV/lib/command"
	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/ValentinKolb/eKV/rpc/serializer"
	"github.com/ValentinKolb/eKV/rpc/transport"
)

// NewRPCExecutor creates a command executor for the server connection connID.
// The transport is connected and the connection is pinged, so a wrong id
// fails here and not on the first command.
func NewRPCExecutor(
	connID uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*RPCExecutor, error) {
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	e := &RPCExecutor{
		connID:     connID,
		config:     config,
		transport:  transport,
		serializer: serializer,
	}

	backend, err := e.Ping()
	if err != nil {
		_ = transport.Close()
		return nil, err
	}
	e.backend = db.Implementation(backend)

	return e, nil
}

// RPCExecutor runs commands on a remote connection. It implements
// command.Executor, so the shell and the kv commands work the same way
// against a local dispatcher and a server.
type RPCExecutor struct {
	connID     uint64
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
	backend    db.Implementation
	closed     bool
}

var _ command.Executor = (*RPCExecutor)(nil)

// Backend returns the backend of the remote connection as reported by Ping.
func (e *RPCExecutor) Backend() db.Implementation {
	return e.backend
}

// Ping checks that the server hosts the connection and returns its backend name.
func (e *RPCExecutor) Ping() (string, error) {
	if e.closed {
		return "", db.NotConnectedError("PING")
	}
	resp, err := invokeRPCRequest(e.connID, common.NewPingRequest(), e.transport, e.serializer)
	if err != nil {
		return "", err
	}
	return string(resp.Meta), nil
}

// Execute sends one command. QUIT is handled locally and closes the transport.
func (e *RPCExecutor) Execute(args []string) (command.Reply, error) {
	if len(args) > 0 && strings.EqualFold(args[0], "QUIT") {
		if len(args) != 1 {
			return command.Nil(), db.NewError(db.KindInvalidArgument, "QUIT", "wrong number of arguments")
		}
		if err := e.Close(); err != nil {
			return command.Nil(), err
		}
		return command.OK(), nil
	}
	if e.closed {
		cmd := ""
		if len(args) > 0 {
			cmd = strings.ToUpper(args[0])
		}
		return command.Nil(), db.NotConnectedError(cmd)
	}

	resp, err := invokeRPCRequest(e.connID, common.NewCommandRequest(args), e.transport, e.serializer)
	if err != nil {
		return command.Nil(), err
	}
	if resp.Reply == nil {
		return command.Nil(), nil
	}
	return *resp.Reply, nil
}

// Close closes the transport. It is safe to call more than once.
func (e *RPCExecutor) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.transport.Close()
}
