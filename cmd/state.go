package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"darkwing/runc"
)

var stateCmd = &cobra.Command{
	Use:   "state <container-id>",
	Short: "print a container's OCI state as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runState,
}

func init() {
	rootCmd.AddCommand(stateCmd)
}

func runState(cmd *cobra.Command, args []string) error {
	containerID := args[0]

	cctx, handle, err := loadHandle(containerID)
	if err != nil {
		return err
	}
	root, err := runtimeRootFor(cctx, handle)
	if err != nil {
		return err
	}

	runner := &runc.Runner{Root: root, Debug: globalDebug}
	state, err := runner.State(GetContext(), containerID)
	exitOnErr(containerID, err)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}
