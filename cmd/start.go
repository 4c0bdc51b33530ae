package cmd

import (
	"github.com/spf13/cobra"

	"darkwing/container"
)

var startCmd = &cobra.Command{
	Use:   "start <container-id>",
	Short: "start a created container",
	Long: `Start a container previously created with "create". This invocation
owns no stdio of its own: pumping and signal forwarding only run for the
process that called "run".`,
	Args: cobra.ExactArgs(1),
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	containerID := args[0]

	cctx, handle, err := loadHandle(containerID)
	if err != nil {
		return err
	}

	root, err := runtimeRootFor(cctx, handle)
	if err != nil {
		return err
	}
	handle.RuntimeRoot = root
	if err := handle.TransitionTo(container.StatusCreated); err != nil {
		return err
	}

	exitOnErr(containerID, newExecutorWithRoot(cctx, root).StartContainer(GetContext(), handle))
	return nil
}
