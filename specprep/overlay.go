// Package specprep overlays declarative container configuration onto the
// runtime-generated OCI spec (config.json), the way the supervisor's
// "bundle/spec preparation" component is specified: mounts resolution,
// id-map rewriting, capability union/difference, environment composition
// and terminal policy, all applied idempotently against a pristine copy.
package specprep

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	specs "github.com/opencontainers/runtime-spec/specs-go"

	"darkwing/config"
	"darkwing/errors"
)

const (
	specFileName     = "config.json"
	pristineFileName = "config.orig.json"
)

// TTYPolicy carries the mutually-exclusive terminal overrides the executor
// may apply: ForceTTY pins the decision either way; AllowTTY narrows an
// already-requested terminal down when the host has none.
type TTYPolicy struct {
	ForceTTY *bool
	AllowTTY *bool
}

// Options bundles everything Overlay needs beyond the container config:
// the runtime dir's mount list (nil if none was created), the rootless
// owner ids for id-map rewriting (nil to skip), and the terminal policy.
type Options struct {
	RuntimeMounts []config.Mount
	RuntimeBases  VolumeBases
	OwnerUID      *uint32
	OwnerGID      *uint32
	TTY           TTYPolicy
	EnsureMounts  bool
}

// LoadPristine returns the pristine spec for bundleDir, reading
// config.orig.json if it exists, or else reading config.json and copying it
// to config.orig.json so future overlays are idempotent against this same
// baseline.
func LoadPristine(bundleDir string) (*specs.Spec, error) {
	pristinePath := filepath.Join(bundleDir, pristineFileName)
	specPath := filepath.Join(bundleDir, specFileName)

	data, err := os.ReadFile(pristinePath)
	if os.IsNotExist(err) {
		data, err = os.ReadFile(specPath)
		if err != nil {
			return nil, errors.WrapWithDetail(err, errors.ErrMissingSpec.Kind, "load spec",
				fmt.Sprintf("read %s: %v", specPath, err))
		}
		if err := os.WriteFile(pristinePath, data, 0644); err != nil {
			return nil, fmt.Errorf("write pristine copy %s: %w", pristinePath, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("read pristine spec %s: %w", pristinePath, err)
	}

	var s specs.Spec
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.WrapWithDetail(err, errors.ErrInvalidSpec.Kind, "load spec", "invalid JSON")
	}
	return &s, nil
}

// Overlay applies cfg's declarative settings onto the pristine spec for
// bundleDir and writes the result to config.json, returning the path
// written and the resolved terminal decision.
func Overlay(bundleDir string, cfg *config.Container, opts Options) (specPath string, useTTY bool, err error) {
	s, err := LoadPristine(bundleDir)
	if err != nil {
		return "", false, err
	}

	s.Hostname = cfg.Data.DNS.Hostname

	proc := s.Process
	if proc == nil {
		return "", false, errors.New(errors.ErrInvalidSpec.Kind, "overlay", "spec has no process")
	}
	proc.User.UID = uint32(cfg.Data.User.UID)
	proc.User.GID = uint32(cfg.Data.User.GID)

	useTTY = resolveTTY(cfg.Data.Exec.Terminal, opts.TTY)
	proc.Terminal = useTTY

	if cfg.Data.Exec.Dir != "" {
		proc.Cwd = cfg.Data.Exec.Dir
	}
	if err := overlayArgs(proc, cfg.Data.Exec.Cmd, cfg.Data.Exec.Args); err != nil {
		return "", false, err
	}

	if len(cfg.Data.Caps.Add) > 0 || len(cfg.Data.Caps.Drop) > 0 {
		proc.Capabilities = ApplyCapabilities(proc.Capabilities, cfg.Data.Caps.Add, cfg.Data.Caps.Drop)
	}

	proc.Env = ApplyEnvironment(proc.Env, cfg.Data.Env.Vars, cfg.Data.Env.Host, nil)

	volumeMounts := cfg.Data.Volumes.Mounts
	bases := opts.RuntimeBases
	bases.Shared = cfg.Data.Volumes.Shared
	bases.Private = cfg.Data.Volumes.Private
	mounts, err := UpdateMounts(s.Mounts, volumeMounts, opts.RuntimeMounts, bases)
	if err != nil {
		return "", false, err
	}
	s.Mounts = mounts

	if opts.EnsureMounts {
		var uidp, gidp *int
		if opts.OwnerUID != nil {
			u := int(*opts.OwnerUID)
			uidp = &u
		}
		if opts.OwnerGID != nil {
			g := int(*opts.OwnerGID)
			gidp = &g
		}
		if err := EnsureMounts(volumeMounts, bases, uidp, gidp); err != nil {
			return "", false, err
		}
	}

	if s.Linux != nil {
		if opts.OwnerUID != nil {
			s.Linux.UIDMappings = UpdateIDMappings(s.Linux.UIDMappings, uint32(cfg.Data.User.UID), *opts.OwnerUID)
		}
		if opts.OwnerGID != nil {
			s.Linux.GIDMappings = UpdateIDMappings(s.Linux.GIDMappings, uint32(cfg.Data.User.GID), *opts.OwnerGID)
		}
	}

	out, err := json.MarshalIndent(s, "", "\t")
	if err != nil {
		return "", false, fmt.Errorf("marshal overlaid spec: %w", err)
	}
	specPath = filepath.Join(bundleDir, specFileName)
	if err := os.WriteFile(specPath, out, 0644); err != nil {
		return "", false, fmt.Errorf("write %s: %w", specPath, err)
	}

	return specPath, useTTY, nil
}

func resolveTTY(configTerminal bool, policy TTYPolicy) bool {
	if policy.ForceTTY != nil {
		return *policy.ForceTTY
	}
	if policy.AllowTTY != nil {
		return *policy.AllowTTY && configTerminal
	}
	return configTerminal
}

func overlayArgs(proc *specs.Process, cmd, args string) error {
	switch {
	case cmd != "":
		split, err := shellSplit(args)
		if err != nil {
			return fmt.Errorf("split exec.args: %w", err)
		}
		proc.Args = append([]string{cmd}, split...)
	case args != "":
		split, err := shellSplit(args)
		if err != nil {
			return fmt.Errorf("split exec.args: %w", err)
		}
		if len(proc.Args) == 0 {
			proc.Args = split
		} else {
			proc.Args = append(proc.Args[:1], split...)
		}
	}
	return nil
}
