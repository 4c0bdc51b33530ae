// Package config loads and constructs the Context and Container records that
// the rest of the supervisor treats as read-only input.
package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
)

// ProbablyRoot reports whether the calling process looks like it is running
// as root, by checking the effective uid. It does not attempt to detect
// capability-based privilege, matching the original project's own caveat.
func ProbablyRoot() bool {
	return os.Geteuid() == 0
}

// RuntimeDir returns the base directory for ephemeral runtime state for the
// given uid: $XDG_RUNTIME_DIR/darkwing when set and the uid is non-root,
// otherwise /run/user/<uid>/darkwing, or /run/darkwing for uid 0.
func RuntimeDir(uid int) string {
	if uid != 0 {
		if xdg := os.Getenv("XDG_RUNTIME_DIR"); xdg != "" {
			return filepath.Join(xdg, "darkwing")
		}
		return filepath.Join("/run/user", fmt.Sprintf("%d", uid), "darkwing")
	}
	return filepath.Join("/run", "darkwing")
}

// BasePaths is the rootless-vs-rootful configuration/storage/runtime base
// directory triple, before any context or container name is appended.
type BasePaths struct {
	Configs string
	Storage string
	Runtime string
}

// DefaultBasePaths derives the base paths for the given rootless mode and
// uid. Rootless bases live under the user's home directory; rootful bases
// are the conventional /etc, /var/lib and /run locations.
func DefaultBasePaths(rootless bool, uid int) (BasePaths, error) {
	if rootless {
		home, err := homeDirForUID(uid)
		if err != nil {
			return BasePaths{}, fmt.Errorf("resolve home dir: %w", err)
		}
		return BasePaths{
			Configs: filepath.Join(home, ".darkwing"),
			Storage: filepath.Join(home, ".local/share/darkwing"),
			Runtime: RuntimeDir(uid),
		}, nil
	}

	return BasePaths{
		Configs: "/etc/darkwing",
		Storage: "/var/lib/darkwing",
		Runtime: RuntimeDir(uid),
	}, nil
}

func homeDirForUID(uid int) (string, error) {
	if uid == os.Geteuid() {
		if home := os.Getenv("HOME"); home != "" {
			return home, nil
		}
	}
	u, err := user.LookupId(fmt.Sprintf("%d", uid))
	if err != nil {
		return "", err
	}
	return u.HomeDir, nil
}
