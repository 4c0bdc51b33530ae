// Package rundir manages the per-container ephemeral runtime directory:
// bind-mount sources for resolv.conf/hostname, the secrets target, the
// console-socket path, and the pidfile/lockfile pair.
package rundir

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"darkwing/config"
)

// Dir is the runtime dir record: paths plus the canonical mount list every
// container using this dir should have overlaid onto its spec.
type Dir struct {
	Path        string
	SecretsPath string
	VolumesPath string
	Resolvconf  string
	Hostname    string
	Mounts      []config.Mount
}

// ConsoleSocketPath is the Unix-domain socket path used for the
// --console-socket handshake with the runtime.
func (d *Dir) ConsoleSocketPath() string { return filepath.Join(d.Path, "tty.sock") }

// PidfilePath is where the container's init pid is recorded.
func (d *Dir) PidfilePath() string { return filepath.Join(d.Path, "pid") }

// LockfilePath is where the owning supervisor's pid is recorded.
func (d *Dir) LockfilePath() string { return filepath.Join(d.Path, "lock") }

// RuncStateRoot is the directory passed to the runtime as --root: its own
// private state directory, nested under the runtime dir.
func (d *Dir) RuncStateRoot() string { return filepath.Join(d.Path, ".runc") }

// Create builds {runtimeBase}/{contextName}/{containerName}, its secrets/
// and volumes/ subdirectories, and populates resolv.conf/hostname from the
// host and from hostname respectively. recreate removes any
// pre-existing tree first.
func Create(runtimeBase, contextName, containerName, secretsTarget, hostname string, uid, gid *int, recreate bool) (*Dir, error) {
	path := filepath.Join(runtimeBase, contextName, containerName)

	if recreate {
		if _, err := os.Stat(path); err == nil {
			if err := os.RemoveAll(path); err != nil {
				return nil, fmt.Errorf("remove existing rundir %s: %w", path, err)
			}
		}
	}

	secretsPath := filepath.Join(path, "secrets")
	volumesPath := filepath.Join(path, "volumes")

	if err := ensureDir(path, 0770, uid, gid); err != nil {
		return nil, err
	}
	if err := ensureDir(secretsPath, 0700, uid, gid); err != nil {
		return nil, err
	}
	if err := ensureDir(volumesPath, 0770, uid, gid); err != nil {
		return nil, err
	}
	if err := ensureDir(filepath.Join(path, ".runc"), 0700, uid, gid); err != nil {
		return nil, err
	}

	resolvconf := filepath.Join(path, "resolv.conf")
	hostnameFile := filepath.Join(path, "hostname")

	if err := copyHostResolvconf(resolvconf); err != nil {
		return nil, err
	}
	if err := os.WriteFile(hostnameFile, []byte(hostname+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("write %s: %w", hostnameFile, err)
	}
	if uid != nil && gid != nil {
		os.Chown(resolvconf, *uid, *gid)
		os.Chown(hostnameFile, *uid, *gid)
	}

	if secretsTarget == "" {
		secretsTarget = "/run/secrets"
	}

	mounts := []config.Mount{
		{Source: secretsPath, Target: secretsTarget, Type: "bind", ReadOnly: true},
		{Source: resolvconf, Target: "/etc/resolv.conf", Type: "bind", ReadOnly: true},
		{Source: hostnameFile, Target: "/etc/hostname", Type: "bind", ReadOnly: false},
	}

	return &Dir{
		Path:        path,
		SecretsPath: secretsPath,
		VolumesPath: volumesPath,
		Resolvconf:  resolvconf,
		Hostname:    hostnameFile,
		Mounts:      mounts,
	}, nil
}

// Remove performs a recursive delete of the runtime dir. It reports whether
// anything was actually removed.
func (d *Dir) Remove() (bool, error) {
	if _, err := os.Stat(d.Path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := os.RemoveAll(d.Path); err != nil {
		return false, fmt.Errorf("remove rundir %s: %w", d.Path, err)
	}
	return true, nil
}

func ensureDir(path string, mode os.FileMode, uid, gid *int) error {
	if err := os.MkdirAll(path, mode); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	if uid != nil && gid != nil {
		if err := os.Chown(path, *uid, *gid); err != nil {
			return fmt.Errorf("chown %s: %w", path, err)
		}
	}
	return nil
}

func copyHostResolvconf(dest string) error {
	src, err := os.Open("/etc/resolv.conf")
	if err != nil {
		return fmt.Errorf("open host resolv.conf: %w", err)
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("copy resolv.conf: %w", err)
	}
	return nil
}
