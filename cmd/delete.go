package cmd

import (
	"github.com/spf13/cobra"

	"darkwing/container"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <container-id>",
	Aliases: []string{"rm"},
	Short:   "delete a container",
	Long:    `Delete any resources held by the container: runtime state, pidfile, lockfile, and rundir.`,
	Args:    cobra.ExactArgs(1),
	RunE:    runDelete,
}

var deleteForce bool

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "delete the container even if it is still running")
}

func runDelete(cmd *cobra.Command, args []string) error {
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
	handle.ResyncStatus(container.StatusStopped)

	exitOnErr(containerID, newExecutorWithRoot(cctx, root).RemoveContainer(GetContext(), handle, deleteForce))
	return nil
}
