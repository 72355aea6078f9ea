package kv

import (
	"github.com/spf13/cobra"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("SET", args[0], args[1])
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("GET", args[0])
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key...]",
		Short: "Deletes one or more keys and prints how many were removed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(append([]string{"DEL"}, args...)...)
		},
	}
	renameCmd = &cobra.Command{
		Use:   "rename [key] [newkey]",
		Short: "Moves a value to a new key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("RENAME", args[0], args[1])
		},
	}
	scanCmd = &cobra.Command{
		Use:   "scan [cursor]",
		Short: "Iterates the keys of the current namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			match, _ := cmd.Flags().GetString("match")
			count, _ := cmd.Flags().GetString("count")
			return run("SCAN", args[0], "MATCH", match, "COUNT", count)
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys [key_start] [key_end] [limit]",
		Short: "Lists the keys between key_start and key_end",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("KEYS", args[0], args[1], args[2])
		},
	}
	countCmd = &cobra.Command{
		Use:   "count",
		Short: "Prints the number of keys in the current namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("DBKCOUNT")
		},
	}
	flushCmd = &cobra.Command{
		Use:   "flush",
		Short: "Deletes every key of the current namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("FLUSHDB")
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info [section]",
		Short: "Prints information about the database (all, server, keyspace, metadata)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(append([]string{"INFO"}, args...)...)
		},
	}
	execCmd = &cobra.Command{
		Use:   "exec [command] [args...]",
		Short: "Runs any command, e.g. 'exec CONFIG GET databases'",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args...)
		},
	}
)

func init() {
	scanCmd.Flags().String("match", "*", "Only return keys matching this glob pattern")
	scanCmd.Flags().String("count", "10", "Number of keys to return")
}
