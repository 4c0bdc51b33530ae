package specprep

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	specs "github.com/opencontainers/runtime-spec/specs-go"

	"darkwing/config"
	"darkwing/errors"
	"darkwing/sysutil"
)

// VolumeBases names the host directories that "shared" and "private"
// mount types resolve under, and the runtime dir's volumes path that
// "runtime" mounts resolve under (empty if no runtime dir is available).
type VolumeBases struct {
	Shared  string
	Private string
	Runtime string
}

func mountSourcePath(mountType, source string, bases VolumeBases) (string, error) {
	switch mountType {
	case "bind":
		if !filepath.IsAbs(source) {
			return "", errors.WrapWithDetail(nil, errors.ErrConfig, "mount",
				fmt.Sprintf("bind mount %q must be absolute", source))
		}
		return source, nil
	case "shared":
		return filepath.Join(bases.Shared, strings.TrimPrefix(source, "/")), nil
	case "private":
		return filepath.Join(bases.Private, strings.TrimPrefix(source, "/")), nil
	case "runtime":
		if bases.Runtime == "" {
			return "", errors.WrapWithDetail(nil, errors.ErrConfig, "mount",
				fmt.Sprintf("runtime volume mount requested for %q, but no runtime directory given", source))
		}
		return filepath.Join(bases.Runtime, strings.TrimPrefix(source, "/")), nil
	default:
		return "", errors.WrapWithDetail(nil, errors.ErrUnknownMountType.Kind, "mount",
			fmt.Sprintf("unknown mount type: %q", mountType))
	}
}

func mountSpec(m config.Mount, bases VolumeBases) (specs.Mount, error) {
	path, err := mountSourcePath(m.Type, m.Source, bases)
	if err != nil {
		return specs.Mount{}, err
	}

	options := []string{}
	if m.Recursive {
		options = append(options, "rbind")
	} else {
		options = append(options, "bind")
	}
	options = append(options, "nodev", "nosuid")
	if m.ReadOnly {
		options = append(options, "ro")
	}

	return specs.Mount{
		Destination: m.Target,
		Type:        "bind",
		Source:      path,
		Options:     options,
	}, nil
}

// UpdateMounts overlays orig (the pristine spec's mount list) with
// volumeMounts and, if present, rundirMounts, both keyed by destination —
// later entries win. Order of the result follows first-seen destination.
func UpdateMounts(orig []specs.Mount, volumeMounts, rundirMounts []config.Mount, bases VolumeBases) ([]specs.Mount, error) {
	order := make([]string, 0, len(orig))
	byDest := make(map[string]specs.Mount, len(orig))
	for _, m := range orig {
		if _, ok := byDest[m.Destination]; !ok {
			order = append(order, m.Destination)
		}
		byDest[m.Destination] = m
	}

	apply := func(mounts []config.Mount) error {
		for _, m := range mounts {
			spec, err := mountSpec(m, bases)
			if err != nil {
				return err
			}
			if _, ok := byDest[spec.Destination]; !ok {
				order = append(order, spec.Destination)
			}
			byDest[spec.Destination] = spec
		}
		return nil
	}

	if err := apply(volumeMounts); err != nil {
		return nil, err
	}
	if err := apply(rundirMounts); err != nil {
		return nil, err
	}

	out := make([]specs.Mount, 0, len(order))
	for _, d := range order {
		out = append(out, byDest[d])
	}
	return out, nil
}

// EnsureMounts verifies bind-mount sources exist and creates directories for
// shared/private/runtime sources that don't, owned by uid/gid when given.
func EnsureMounts(volumeMounts []config.Mount, bases VolumeBases, uid, gid *int) error {
	for _, m := range volumeMounts {
		path, err := mountSourcePath(m.Type, m.Source, bases)
		if err != nil {
			return err
		}

		if m.Type == "bind" {
			if _, err := os.Stat(path); err != nil {
				return errors.WrapWithDetail(err, errors.ErrConfig, "mount",
					fmt.Sprintf("bind mount %q must exist", path))
			}
			continue
		}

		mode := os.FileMode(0770)
		if m.Mode != "" {
			parsed, err := strconv.ParseUint(m.Mode, 8, 32)
			if err != nil {
				return fmt.Errorf("parse mount mode %q: %w", m.Mode, err)
			}
			mode = os.FileMode(parsed)
		}
		if err := sysutil.EnsureDir(path, mode, uid, gid); err != nil {
			return err
		}
	}
	return nil
}
