package cmd

import (
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create <container-id>",
	Short: "create a container without starting it",
	Long: `Create the named container: overlay its spec, provision secrets, and
hand it to the runtime, leaving it in the "created" state.

Stdio pumping and signal forwarding are owned by a live Executor and only
run for the duration of "run"; a container created here and started by a
later, separate "start" invocation gets no pumping of its own, matching
the underlying runtime's own create/start split.`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func init() {
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	containerID := args[0]

	cctx, handle, err := loadHandle(containerID)
	if err != nil {
		return err
	}

	exitOnErr(containerID, newExecutor(cctx).CreateContainer(GetContext(), handle))
	return nil
}
