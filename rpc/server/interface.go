package server

import (
	"github.com/ValentinKolb/eKV/lib/command"
	"github.com/ValentinKolb/eKV/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests and responses
type IRPCServerAdapter interface {
	// Handle handles a request and returns a response
	// It takes a Message and the dispatcher of the addressed connection.
	// If an error occurs, it should be set in the response
	Handle(req *common.Message, dispatcher *command.Dispatcher) (resp *common.Message)
}
