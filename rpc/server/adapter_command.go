package server

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/eKV/lib/command"
	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/ValentinKolb/eKV/rpc/common"
)

func NewCommandServerAdapter() IRPCServerAdapter {
	return &commandServerAdapterImpl{}
}

type commandServerAdapterImpl struct{}

func (adapter *commandServerAdapterImpl) Handle(req *common.Message, dispatcher *command.Dispatcher) *common.Message {
	if dispatcher == nil {
		return common.NewErrorResponse(db.KindNotConnected, "handler: connection is nil")
	}

	switch req.MsgType {
	case common.MsgTPing:
		if !dispatcher.Conn().IsConnected() {
			return common.NewErrorResponse(db.KindNotConnected, "connection is closed")
		}
		return common.NewPingResponse([]byte(dispatcher.Conn().Backend()))
	case common.MsgTCommand:
		// the hosted connection is shared by all clients, it is only closed by the server
		if len(req.Args) > 0 && strings.EqualFold(req.Args[0], "QUIT") {
			return common.NewCommandResponse(command.Nil(),
				db.NewError(db.KindNotSupported, "QUIT", "the server connection can not be closed remotely"))
		}
		reply, err := dispatcher.Execute(req.Args)
		return common.NewCommandResponse(reply, err)
	default:
		return common.NewErrorResponse(db.KindInvalidArgument,
			fmt.Sprintf("RPC CommandAdapter - Unsupported message type: %s", req.MsgType))
	}
}
