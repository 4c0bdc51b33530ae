package cmd

import (
	"github.com/spf13/cobra"

	"darkwing/runc"
	"darkwing/sysutil"
)

var killCmd = &cobra.Command{
	Use:   "kill <container-id> [signal]",
	Short: "send a signal to a container",
	Long:  `Send the named or numbered signal to the container's init process. Default is SIGTERM.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runKill,
}

var killAll bool

func init() {
	rootCmd.AddCommand(killCmd)
	killCmd.Flags().BoolVarP(&killAll, "all", "a", false, "send the signal to every process in the container")
}

func runKill(cmd *cobra.Command, args []string) error {
	containerID := args[0]

	sigName := "TERM"
	if len(args) > 1 {
		sigName = args[1]
	}
	sig, err := sysutil.ParseSignal(sigName)
	if err != nil {
		return err
	}

	cctx, handle, err := loadHandle(containerID)
	if err != nil {
		return err
	}
	root, err := runtimeRootFor(cctx, handle)
	if err != nil {
		return err
	}

	runner := &runc.Runner{Root: root, Debug: globalDebug}
	exitOnErr(containerID, runner.Kill(GetContext(), containerID, int(sig), killAll))
	return nil
}
