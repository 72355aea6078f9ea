package kv

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/eKV/cmd/util"
	"github.com/ValentinKolb/eKV/lib/command"
	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	executor command.Executor

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:   "kv",
		Short: "Run commands on a local database or an eKV server",
		Long: `Run commands on a local database (--mode local, the default) or on a
connection hosted by an eKV server (--mode remote). Flags can also be set as
EKV_<FLAG> environment variables or in a .env file.`,
		PersistentPreRunE:  setupExecutor,
		PersistentPostRunE: closeExecutor,
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	util.SetupConnectionFlags(KeyValueCommands)

	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(renameCmd)
	KeyValueCommands.AddCommand(scanCmd)
	KeyValueCommands.AddCommand(keysCmd)
	KeyValueCommands.AddCommand(countCmd)
	KeyValueCommands.AddCommand(flushCmd)
	KeyValueCommands.AddCommand(infoCmd)
	KeyValueCommands.AddCommand(execCmd)
	KeyValueCommands.AddCommand(shellCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupExecutor opens the local database or connects to the server
func setupExecutor(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return err
	}

	settings, err := util.GetConnectionSettings()
	if err != nil {
		return err
	}

	executor, err = util.OpenExecutor(settings)
	return err
}

// closeExecutor closes the executor after the command ran
func closeExecutor(_ *cobra.Command, _ []string) error {
	if executor == nil {
		return nil
	}
	err := executor.Close()
	executor = nil
	return err
}

// run executes one command and prints the rendered reply. The executor is
// closed here as well, cobra skips the post run hook when RunE fails.
func run(args ...string) error {
	reply, err := executor.Execute(args)
	if err != nil {
		_ = closeExecutor(nil, nil)
		return err
	}
	fmt.Fprintln(os.Stdout, reply.Render())
	return nil
}
