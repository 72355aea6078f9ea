package tcp

import (
	"net"
	"time"

	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/ValentinKolb/eKV/rpc/transport"
	"github.com/ValentinKolb/eKV/rpc/transport/base"
)

// clientConnector implements the IClientConnector interface for TCP sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "tcp"
}

func (c *clientConnector) Connect(endpoint string) (net.Conn, error) {
	return net.Dial("tcp", endpoint)
}

func (c *clientConnector) UpgradeConnection(conn net.Conn, config common.ClientConfig) error {
	return upgrade(conn, socketOptions{
		noDelay:      config.Transport.TCPNoDelay,
		keepAliveSec: config.Transport.TCPKeepAliveSec,
		lingerSec:    config.Transport.TCPLingerSec,
		writeBuffer:  config.Transport.WriteBufferSize,
		readBuffer:   config.Transport.ReadBufferSize,
	})
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewTCPClientTransport creates a new TCP client transport
func NewTCPClientTransport() transport.IRPCClientTransport {
	return base.NewBaseClientTransport(&clientConnector{})
}

// --------------------------------------------------------------------------
// Socket Options (shared by client and server)
// --------------------------------------------------------------------------

type socketOptions struct {
	noDelay      bool
	keepAliveSec int
	lingerSec    int
	writeBuffer  int
	readBuffer   int
}

// upgrade applies the socket options to a TCP connection. A negative
// lingerSec keeps the system default.
func upgrade(conn net.Conn, opts socketOptions) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil // Not a TCP connection, nothing to upgrade
	}

	// Disable Nagle's algorithm if configured
	if err := tcpConn.SetNoDelay(opts.noDelay); err != nil {
		return err
	}

	if opts.writeBuffer > 0 {
		if err := tcpConn.SetWriteBuffer(opts.writeBuffer); err != nil {
			return err
		}
	}

	if opts.readBuffer > 0 {
		if err := tcpConn.SetReadBuffer(opts.readBuffer); err != nil {
			return err
		}
	}

	if opts.keepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		if err := tcpConn.SetKeepAlivePeriod(time.Duration(opts.keepAliveSec) * time.Second); err != nil {
			return err
		}
	}

	if opts.lingerSec >= 0 {
		if err := tcpConn.SetLinger(opts.lingerSec); err != nil {
			return err
		}
	}

	return nil
}
