package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"github.com/ValentinKolb/eKV/lib/command"
	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/ValentinKolb/eKV/lib/db/engines"
	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/ValentinKolb/eKV/rpc/serializer"
	"github.com/ValentinKolb/eKV/rpc/transport"
	httptransport "github.com/ValentinKolb/eKV/rpc/transport/http"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("rpc")

// serverConn is one hosted database connection. Connections are not safe for
// concurrent use, so every request holds mu.
type serverConn struct {
	mu         sync.Mutex
	dispatcher *command.Dispatcher
	adapter    IRPCServerAdapter
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	return &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		conns:      xsync.NewMapOf[uint64, *serverConn](),
	}
}

// RPCServer hosts database connections and executes the commands clients send to them.
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	conns      *xsync.MapOf[uint64, *serverConn]

	metricsServer *http.Server
}

// handle decodes one request, runs it on the addressed connection and returns
// the encoded response.
func (s *RPCServer) handle(connID uint64, req []byte) []byte {
	var msg common.Message
	var respMsg *common.Message

	conn, ok := s.conns.Load(connID)
	if !ok {
		respMsg = common.NewErrorResponse(db.KindNotConnected, fmt.Sprintf("connection %d not found", connID))
	} else if err := s.serializer.Deserialize(req, &msg); err != nil {
		respMsg = common.NewErrorResponse(db.KindInvalidArgument, fmt.Sprintf("failed to deserialize request: %s", err))
	} else {
		conn.mu.Lock()
		respMsg = conn.adapter.Handle(&msg, conn.dispatcher)
		conn.mu.Unlock()
	}

	metrics.GetOrCreateCounter(fmt.Sprintf(`ekv_rpc_requests_total{conn="%d"}`, connID)).Inc()
	if respMsg.MsgType == common.MsgTError {
		metrics.GetOrCreateCounter(fmt.Sprintf(`ekv_rpc_errors_total{conn="%d"}`, connID)).Inc()
	}

	val, err := s.serializer.Serialize(*respMsg)
	if err != nil {
		Logger.Errorf("failed to serialize response: %v", err)
		val, _ = s.serializer.Serialize(*common.NewErrorResponse(db.KindUnknown,
			fmt.Sprintf("failed to serialize response: %s", err)))
	}
	return val
}

// init opens every configured connection. On failure the connections opened
// so far are closed again.
func (s *RPCServer) init() error {
	if s.config.LogLevel != "" {
		if err := common.InitLoggers(s.config.LogLevel); err != nil {
			return err
		}
	}

	if len(s.config.Connections) == 0 {
		return fmt.Errorf("no connections configured")
	}

	for _, c := range s.config.Connections {
		if _, exists := s.conns.Load(c.ID); exists {
			s.closeConnections()
			return fmt.Errorf("duplicate connection id %d", c.ID)
		}

		conn, err := engines.Open(c.Config)
		if err != nil {
			s.closeConnections()
			return fmt.Errorf("failed to open connection %d: %w", c.ID, err)
		}
		dispatcher, err := command.NewDispatcher(conn)
		if err != nil {
			_ = conn.Close()
			s.closeConnections()
			return fmt.Errorf("failed to open connection %d: %w", c.ID, err)
		}

		s.conns.Store(c.ID, &serverConn{
			dispatcher: dispatcher,
			adapter:    NewCommandServerAdapter(),
		})
		Logger.Infof("opened %s connection %d (%s)", c.Config.Backend, c.ID, c.Config.Path)
	}

	Logger.Infof("eKV setup completed successfully")

	s.transport.RegisterHandler(s.handle)
	return nil
}

// Serve starts the RPC server
// This function will also open the connections, start the optional metrics
// listener and block in the transport layer until Close is called.
func (s *RPCServer) Serve() error {
	if err := s.init(); err != nil {
		return err
	}

	if s.config.MetricsEndpoint != "" {
		listener, err := net.Listen("tcp", s.config.MetricsEndpoint)
		if err != nil {
			s.closeConnections()
			return fmt.Errorf("failed to start metrics listener: %w", err)
		}
		mux := http.NewServeMux()
		mux.HandleFunc("GET /metrics", httptransport.MetricsHandler)
		s.metricsServer = &http.Server{Handler: mux}
		go func() {
			Logger.Infof("Serving metrics on %s/metrics", s.config.MetricsEndpoint)
			if err := s.metricsServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
				Logger.Errorf("metrics listener failed: %v", err)
			}
		}()
	}

	return s.transport.Listen(s.config)
}

// Close stops the transport and closes every hosted connection.
func (s *RPCServer) Close() error {
	err := s.transport.Close()
	if s.metricsServer != nil {
		err = errors.Join(err, s.metricsServer.Close())
	}
	return errors.Join(err, s.closeConnections())
}

func (s *RPCServer) closeConnections() error {
	var errs []error
	s.conns.Range(func(id uint64, conn *serverConn) bool {
		conn.mu.Lock()
		if err := conn.dispatcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection %d: %w", id, err))
		}
		conn.mu.Unlock()
		s.conns.Delete(id)
		return true
	})
	return errors.Join(errs...)
}
