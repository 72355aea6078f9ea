package common

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ValentinKolb/eKV/lib/db"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerConnection is one database connection hosted by the server. Clients
// address it by its ID.
type ServerConnection struct {
	ID     uint64
	Config db.Config
}

// ParseServerConnection parses "ID=backend:path" (the path may be empty for
// the memory backend).
func ParseServerConnection(s string) (ServerConnection, error) {
	idStr, def, ok := strings.Cut(s, "=")
	if !ok {
		return ServerConnection{}, fmt.Errorf("invalid connection %q: expected ID=backend:path", s)
	}
	id, err := strconv.ParseUint(strings.TrimSpace(idStr), 10, 64)
	if err != nil {
		return ServerConnection{}, fmt.Errorf("invalid connection id %q: %w", idStr, err)
	}
	backendStr, path, _ := strings.Cut(def, ":")
	backend, err := db.ParseImplementation(backendStr)
	if err != nil {
		return ServerConnection{}, fmt.Errorf("invalid connection %q: %w", s, err)
	}
	return ServerConnection{ID: id, Config: db.DefaultConfig(backend, path)}, nil
}

// TransportConfig holds the listener and socket options of the server.
type TransportConfig struct {
	Endpoint string

	// stream transports (tcp, unix)
	WorkersPerConn  int
	BufferSize      int
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
	WriteBufferSize int
	ReadBufferSize  int
}

// ServerConfig holds all configuration parameters of the rpc server.
type ServerConfig struct {
	// database connections hosted by the server
	Connections []ServerConnection

	// remote settings
	TimeoutSecond int64
	Transport     TransportConfig

	// MetricsEndpoint serves /metrics on a separate listener if not empty
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers Per Conn", strconv.Itoa(c.Transport.WorkersPerConn))
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Connections, sorted for consistent output
	addSection("Connections")
	conns := make([]ServerConnection, len(c.Connections))
	copy(conns, c.Connections)
	sort.Slice(conns, func(i, j int) bool { return conns[i].ID < conns[j].ID })
	for _, conn := range conns {
		path := conn.Config.Path
		if path == "" {
			path = "(in memory)"
		}
		addField(strconv.FormatUint(conn.ID, 10), fmt.Sprintf("%s %s [%s]", conn.Config.Backend, path, conn.Config.EnvFlags))
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientTransportConfig struct {
	Endpoints              []string
	RetryCount             int
	ConnectionsPerEndpoint int

	// tcp only
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
	WriteBufferSize int
	ReadBufferSize  int
}

type ClientConfig struct {
	TimeoutSecond int
	Transport     ClientTransportConfig
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(int(math.Max(1, float64(c.Transport.ConnectionsPerEndpoint)))))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
