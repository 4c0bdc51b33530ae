package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <container-id>",
	Short: "create, start, and supervise a container until it exits",
	Long: `Create and start the named container, then drive its stdio, signal
forwarding, and reaping until it exits, removing its runtime state
afterward unless --keep is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

var runKeep bool

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runKeep, "keep", false, "leave runtime state behind instead of removing it on exit")
}

func runRun(cmd *cobra.Command, args []string) error {
	containerID := args[0]

	cctx, handle, err := loadHandle(containerID)
	if err != nil {
		return err
	}

	code, err := newExecutor(cctx).RunUntilComplete(context.Background(), handle, !runKeep)
	if err != nil {
		os.Exit(reportFatal(containerID, err))
	}
	if code < 0 {
		code = 128 - code
	}
	os.Exit(code)
	return nil
}
