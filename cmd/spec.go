package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"darkwing/rundir"
	"darkwing/specprep"
)

var specCmd = &cobra.Command{
	Use:   "spec <container-id>",
	Short: "print the OCI spec that create would hand to the runtime",
	Long: `Apply the same overlay "create" applies — mount resolution, id-map
rewriting, capability union/difference, environment composition, terminal
policy — against the container's bundle and print the resulting config.json.
Unlike create, this does not invoke the runtime, but it does create the
runtime dir and write the overlaid config.json (and the pristine
config.orig.json copy, if missing) into the bundle, just as create does.`,
	Args: cobra.ExactArgs(1),
	RunE: runSpec,
}

func init() {
	rootCmd.AddCommand(specCmd)
}

func runSpec(cmd *cobra.Command, args []string) error {
	containerID := args[0]

	cctx, handle, err := loadHandle(containerID)
	if err != nil {
		return err
	}

	uid, gid := ownerIDs(cctx)
	var ownerUID32, ownerGID32 *uint32
	if uid != nil {
		u := uint32(*uid)
		ownerUID32 = &u
	}
	if gid != nil {
		g := uint32(*gid)
		ownerGID32 = &g
	}

	dir, err := rundir.Create(
		runtimeBaseFor(cctx), cctx.Name, handle.ID,
		handle.Config.Data.Secrets.Target, handle.Config.Data.DNS.Hostname,
		uid, gid, false,
	)
	if err != nil {
		return err
	}

	specPath, _, err := specprep.Overlay(handle.Bundle, handle.Config, specprep.Options{
		RuntimeMounts: dir.Mounts,
		RuntimeBases:  specprep.VolumeBases{Runtime: dir.VolumesPath},
		OwnerUID:      ownerUID32,
		OwnerGID:      ownerGID32,
	})
	if err != nil {
		return err
	}

	data, err := os.ReadFile(specPath)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
