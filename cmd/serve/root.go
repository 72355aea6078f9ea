package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cmdUtil "github.com/ValentinKolb/eKV/cmd/util"
	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/ValentinKolb/eKV/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start the eKV server",
		Long: `Start the eKV server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is EKV_<flag> (e.g. EKV_TIMEOUT=15)

Every --conn flag hosts one database connection, clients address it by its id:

  ekv serve --conn 1=lmdb:/var/lib/ekv/main --conn 2=memory:`,
		Args:    cobra.NoArgs,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	cobra.OnInitialize(cmdUtil.InitConfig)

	key := "conn"
	ServeCmd.PersistentFlags().StringSlice(key, []string{"1=memory:"}, cmdUtil.WrapString("Connections to host. Format: ID=BACKEND:PATH where BACKEND is one of lmdb, upscaledb, memory (the memory path may be empty)"))

	key = "max-namespaces"
	ServeCmd.PersistentFlags().Uint32(key, db.DefaultMaxNamespaces, cmdUtil.WrapString("Maximum number of namespaces per connection"))

	key = "read-only"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Open all connections read-only"))

	key = "no-sync"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Skip fsync on commit"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Timeout in seconds for writing responses"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. localhost:8080, /tmp/ekv.sock, ...)"))

	key = "workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 8, cmdUtil.WrapString("Requests processed in parallel per client connection (tcp, unix)"))

	key = "buffer-size"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Read buffer size in KB (tcp, unix; 0 uses the transport default)"))

	key = "transport-tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY (only for tcp)"))

	key = "transport-tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The keepalive interval in seconds (only for tcp)"))

	key = "transport-tcp-linger"
	ServeCmd.PersistentFlags().Int(key, -1, cmdUtil.WrapString("The linger time in seconds (only for tcp, -1 keeps the system default)"))

	key = "transport-write-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Socket write buffer in KB (only for tcp, 0 keeps the system default)"))

	key = "transport-read-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Socket read buffer in KB (only for tcp, 0 keeps the system default)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Serve Prometheus metrics on this address under /metrics (the http transport always serves them)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Connections = nil
	for _, def := range viper.GetStringSlice("conn") {
		conn, err := common.ParseServerConnection(def)
		if err != nil {
			return err
		}
		conn.Config.MaxNamespaces = viper.GetUint32("max-namespaces")
		if viper.GetBool("read-only") {
			conn.Config.EnvFlags |= db.EnvReadOnly
		}
		if viper.GetBool("no-sync") {
			conn.Config.EnvFlags |= db.EnvNoSync
		}
		serveCmdConfig.Connections = append(serveCmdConfig.Connections, conn)
	}

	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.Transport = common.TransportConfig{
		Endpoint:        viper.GetString("endpoint"),
		WorkersPerConn:  viper.GetInt("workers-per-conn"),
		BufferSize:      viper.GetInt("buffer-size") * 1024,
		TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
		TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
		TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
		WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
		ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
	}

	if _, err := common.ParseLogLevel(serveCmdConfig.LogLevel); err != nil {
		return err
	}
	return nil
}

// run starts the eKV server and stops it on SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(*serveCmdConfig, t, s)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		cmdUtil.Logger.Infof("shutting down")
		if err := serv.Close(); err != nil {
			cmdUtil.Logger.Errorf("shutdown: %v", err)
		}
	}()

	if err := serv.Serve(); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
