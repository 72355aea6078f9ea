package kv

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ValentinKolb/eKV/lib/command"
	"github.com/spf13/cobra"
)

const shellPrompt = "ekv> "

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Starts an interactive shell (type HELP for a list of commands, QUIT to leave)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		quiet, _ := cmd.Flags().GetBool("quiet")
		return runShell(os.Stdin, os.Stdout, executor, !quiet)
	},
}

func init() {
	shellCmd.Flags().BoolP("quiet", "q", false, "Do not print a prompt (for piped input)")
}

// runShell executes one command per input line until QUIT or the end of the
// input. Command errors are printed and do not stop the shell.
func runShell(in io.Reader, out io.Writer, exec command.Executor, prompt bool) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for {
		if prompt {
			fmt.Fprint(out, shellPrompt)
		}
		if !scanner.Scan() {
			if prompt {
				fmt.Fprintln(out)
			}
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		reply, err := command.ExecuteLine(exec, line)
		if err != nil {
			fmt.Fprintf(out, "(error) %v\n", err)
			continue
		}
		fmt.Fprintln(out, reply.Render())

		if isQuit(line) {
			return nil
		}
	}
}

func isQuit(line string) bool {
	fields := strings.Fields(line)
	return len(fields) == 1 && strings.EqualFold(fields[0], "QUIT")
}
