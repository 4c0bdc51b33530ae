package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"darkwing/runc"
)

var execCmd = &cobra.Command{
	Use:   "exec <container-id> <command> [args...]",
	Short: "execute a command in a running container",
	Long:  `Run a new process inside a running container, inheriting this invocation's own stdio.`,
	Args:  cobra.MinimumNArgs(2),
	RunE:  runExec,
}

var (
	execTty bool
	execCwd string
)

func init() {
	rootCmd.AddCommand(execCmd)

	execCmd.Flags().BoolVarP(&execTty, "tty", "t", false, "allocate a pseudo-TTY")
	execCmd.Flags().StringVar(&execCwd, "cwd", "", "working directory inside the container")
}

func runExec(cmd *cobra.Command, args []string) error {
	containerID := args[0]
	execArgs := args[1:]

	cctx, handle, err := loadHandle(containerID)
	if err != nil {
		return err
	}
	root, err := runtimeRootFor(cctx, handle)
	if err != nil {
		return err
	}

	runner := &runc.Runner{Root: root, Debug: globalDebug}
	code, err := runner.Exec(GetContext(), containerID, execArgs, execTty, execCwd)
	if err != nil {
		return err
	}
	if code != 0 {
		os.Exit(code)
	}
	return nil
}
