package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/eKV/lib/command"
	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/ValentinKolb/eKV/lib/db/engines"
	"github.com/ValentinKolb/eKV/rpc/client"
	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/ValentinKolb/eKV/rpc/serializer"
	"github.com/ValentinKolb/eKV/rpc/transport"
	"github.com/ValentinKolb/eKV/rpc/transport/http"
	"github.com/ValentinKolb/eKV/rpc/transport/tcp"
	"github.com/ValentinKolb/eKV/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// Logger is the logger of the command line interface
var Logger = logger.GetLogger("cli")

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Environment
// --------------------------------------------------------------------------

// InitConfig loads .env files and makes every flag settable as EKV_<FLAG>
// (e.g. EKV_TRANSPORT_ENDPOINTS).
func InitConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("ekv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Connection Mode
// --------------------------------------------------------------------------

// Mode says whether commands run on a local engine or on a server.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// ParseMode parses the --mode flag.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeLocal:
		return ModeLocal, nil
	case ModeRemote:
		return ModeRemote, nil
	default:
		return "", fmt.Errorf("invalid mode %q (must be local or remote)", s)
	}
}

// ConnectionSettings is what a client command needs to open an executor.
// DB is used in local mode, Client and ConnID in remote mode.
type ConnectionSettings struct {
	Mode   Mode
	DB     db.Config
	Client common.ClientConfig
	ConnID uint64
}

// SetupConnectionFlags adds the flags of both modes to a command
func SetupConnectionFlags(cmd *cobra.Command) {
	key := "mode"
	cmd.PersistentFlags().String(key, string(ModeLocal), WrapString("Where to run commands: local opens the database in process, remote talks to an eKV server"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("Log level (debug, info, warn, error)"))

	SetupLocalFlags(cmd)
	SetupRPCClientFlags(cmd)
}

// SetupLocalFlags adds the flags describing a local database
func SetupLocalFlags(cmd *cobra.Command) {
	key := "backend"
	cmd.PersistentFlags().String(key, string(db.ImplLMDB), WrapString("Storage backend (lmdb, upscaledb, memory)"))

	key = "path"
	cmd.PersistentFlags().String(key, "ekv-data", WrapString("Storage path. A directory for lmdb and upscaledb, the snapshot file for memory (empty keeps memory volatile)"))

	key = "namespace"
	cmd.PersistentFlags().String(key, db.DefaultNamespace, WrapString("Initial namespace (lmdb, memory)"))

	key = "db-num"
	cmd.PersistentFlags().Uint16(key, db.DefaultDBNum, WrapString("Initial database number (upscaledb)"))

	key = "max-namespaces"
	cmd.PersistentFlags().Uint32(key, db.DefaultMaxNamespaces, WrapString("Maximum number of namespaces in the environment"))

	key = "read-only"
	cmd.PersistentFlags().Bool(key, false, WrapString("Open the database read-only"))

	key = "no-create"
	cmd.PersistentFlags().Bool(key, false, WrapString("Fail instead of creating a missing database"))

	key = "no-sync"
	cmd.PersistentFlags().Bool(key, false, WrapString("Skip fsync on commit"))
}

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of the client"))

	key = "conn"
	cmd.PersistentFlags().Uint64(key, 1, WrapString("ID of the server connection to use"))

	key = "transport-endpoints"
	cmd.PersistentFlags().String(key, "localhost:8080", WrapString("The address of the eKV server. For transports that support load balancing, multiple endpoints can be specified as a comma-separated list"))

	key = "transport-conn-per-endpoint"
	cmd.PersistentFlags().Int(key, 1, WrapString("Simultaneous connections per endpoint - for transports that support this feature"))

	key = "transport-retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to retry the request"))

	key = "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the write buffer for the transport (in KB, ignored for http)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the read buffer for the transport (in KB, ignored for http)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY for the transport (only for tcp)"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval for the transport (in seconds, only for tcp)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, -1, WrapString("The linger time for the transport (in seconds, only for tcp, -1 keeps the system default)"))
}

// GetDBConfig reads the local database configuration from viper
func GetDBConfig() (db.Config, error) {
	backend, err := db.ParseImplementation(viper.GetString("backend"))
	if err != nil {
		return db.Config{}, err
	}

	config := db.DefaultConfig(backend, viper.GetString("path"))
	config.Namespace = viper.GetString("namespace")
	config.DBNum = uint16(viper.GetUint("db-num"))
	config.MaxNamespaces = viper.GetUint32("max-namespaces")
	if viper.GetBool("read-only") {
		config.EnvFlags |= db.EnvReadOnly
	}
	if viper.GetBool("no-create") {
		config.EnvFlags &^= db.EnvCreateIfMissing
	}
	if viper.GetBool("no-sync") {
		config.EnvFlags |= db.EnvNoSync
	}
	return config.WithDefaults(), nil
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		TimeoutSecond: viper.GetInt("timeout"),
		Transport: common.ClientTransportConfig{
			RetryCount:             viper.GetInt("transport-retries"),
			Endpoints:              strings.Split(viper.GetString("transport-endpoints"), ","),
			ConnectionsPerEndpoint: viper.GetInt("transport-conn-per-endpoint"),
			WriteBufferSize:        viper.GetInt("transport-write-buffer") * 1024,
			ReadBufferSize:         viper.GetInt("transport-read-buffer") * 1024,
			TCPKeepAliveSec:        viper.GetInt("transport-tcp-keepalive"),
			TCPLingerSec:           viper.GetInt("transport-tcp-linger"),
			TCPNoDelay:             viper.GetBool("transport-tcp-nodelay"),
		},
	}
}

// GetConnectionSettings reads the settings of the selected mode from viper
func GetConnectionSettings() (ConnectionSettings, error) {
	mode, err := ParseMode(viper.GetString("mode"))
	if err != nil {
		return ConnectionSettings{}, err
	}

	settings := ConnectionSettings{Mode: mode}
	switch mode {
	case ModeLocal:
		settings.DB, err = GetDBConfig()
	case ModeRemote:
		settings.Client = *GetClientConfig()
		settings.ConnID = viper.GetUint64("conn")
	}
	return settings, err
}

// OpenExecutor opens a local dispatcher or a remote client, depending on the mode
func OpenExecutor(settings ConnectionSettings) (command.Executor, error) {
	switch settings.Mode {
	case ModeLocal:
		conn, err := engines.Open(settings.DB)
		if err != nil {
			return nil, err
		}
		dispatcher, err := command.NewDispatcher(conn)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		Logger.Debugf("opened local %s database at %s", settings.DB.Backend, settings.DB.Path)
		return dispatcher, nil

	case ModeRemote:
		s, err := GetSerializer()
		if err != nil {
			return nil, err
		}
		t, err := GetTransport()
		if err != nil {
			return nil, err
		}
		exec, err := client.NewRPCExecutor(settings.ConnID, settings.Client, t, s)
		if err != nil {
			return nil, err
		}
		Logger.Debugf("connected to %s connection %d (%s)", strings.Join(settings.Client.Transport.Endpoints, ","), settings.ConnID, exec.Backend())
		return exec, nil

	default:
		return nil, fmt.Errorf("invalid mode %q", settings.Mode)
	}
}

// --------------------------------------------------------------------------
// Transport and Serializer
// --------------------------------------------------------------------------

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	return serializer.ByName(viper.GetString("serializer"))
}

// GetTransport creates the client transport based on configuration
func GetTransport() (transport.IRPCClientTransport, error) {
	switch viper.GetString("transport") {
	case "http":
		return http.NewHttpClientTransport(), nil
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetServerTransport creates the server transport based on configuration
func GetServerTransport() (transport.IRPCServerTransport, error) {
	switch viper.GetString("transport") {
	case "http":
		return http.NewHttpServerTransport(), nil
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	case "unix":
		return unix.NewUnixServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}
