package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ContextData is the on-disk (TOML) shape of a Context record.
type ContextData struct {
	Domain  string `toml:"domain"`
	Network struct {
		Type string `toml:"type"`
	} `toml:"network"`
	Configs struct {
		Base    string `toml:"base"`
		Secrets string `toml:"secrets"`
	} `toml:"configs"`
	Storage struct {
		Images     string `toml:"images"`
		Containers string `toml:"containers"`
		Volumes    string `toml:"volumes"`
	} `toml:"storage"`
	Runtime struct {
		Base string `toml:"base"`
	} `toml:"runtime"`
	User struct {
		Rootless bool `toml:"rootless"`
		UID      int  `toml:"uid"`
		GID      int  `toml:"gid"`
	} `toml:"user"`
}

// Context is a named namespace grouping containers. It is immutable after
// load: callers that need a different layout construct a new Context rather
// than mutating one in place.
type Context struct {
	Name string
	Path string
	Data ContextData
}

// Rootless reports whether this context's containers run without root
// privilege on the host.
func (c *Context) Rootless() bool { return c.Data.User.Rootless }

// LoadContext searches dirs in order for "<name>.toml" and parses the first
// one found.
func LoadContext(name string, dirs []string) (*Context, error) {
	for _, dir := range dirs {
		path := filepath.Join(dir, name+".toml")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		var data ContextData
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return nil, fmt.Errorf("decode context %s: %w", path, err)
		}
		return &Context{Name: name, Path: path, Data: data}, nil
	}
	return nil, fmt.Errorf("no context config found for %q in %v", name, dirs)
}

// SearchDirs returns the default directories LoadContext/LoadContainer
// search, in priority order: the current directory's .darkwing, then the
// rootless-or-rootful configs base for uid.
func SearchDirs(uid int, rootless bool) ([]string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getwd: %w", err)
	}
	bases, err := DefaultBasePaths(rootless, uid)
	if err != nil {
		return nil, err
	}
	return []string{filepath.Join(cwd, ".darkwing"), bases.Configs}, nil
}

// MakeContext builds and persists a new Context using the default layout
// for the given uid/gid/rootless mode, chowning created files when the
// owning uid/gid differs from the caller's effective ids.
func MakeContext(name string, rootless bool, uid, gid int) (*Context, error) {
	bases, err := DefaultBasePaths(rootless, uid)
	if err != nil {
		return nil, err
	}

	data := ContextData{Domain: fmt.Sprintf("%s.darkwing.local", name)}
	data.Network.Type = "host"
	data.Configs.Base = filepath.Join(bases.Configs, name)
	data.Configs.Secrets = filepath.Join(bases.Configs, name, ".secrets")
	data.Storage.Images = filepath.Join(bases.Storage, "images")
	data.Storage.Containers = filepath.Join(bases.Storage, "containers", name)
	data.Storage.Volumes = filepath.Join(bases.Storage, "volumes", name)
	data.Runtime.Base = filepath.Join(bases.Runtime, name)
	data.User.Rootless = rootless
	data.User.UID = uid
	data.User.GID = gid

	euid, egid := os.Geteuid(), os.Getegid()
	var ownerUID, ownerGID *int
	if uid != euid || gid != egid {
		ownerUID, ownerGID = &uid, &gid
	}

	dirs := []struct {
		path string
		mode os.FileMode
	}{
		{bases.Configs, 0775},
		{bases.Storage, 0775},
		{data.Configs.Base, 0775},
		{data.Configs.Secrets, 0770},
		{data.Storage.Images, 0775},
		{data.Storage.Containers, 0770},
		{data.Storage.Volumes, 0770},
	}
	for _, d := range dirs {
		if err := ensureDir(d.path, d.mode, ownerUID, ownerGID); err != nil {
			return nil, fmt.Errorf("ensure dir %s: %w", d.path, err)
		}
	}

	path := filepath.Join(bases.Configs, name+".toml")
	if err := writeTOMLFile(path, data, ownerUID, ownerGID); err != nil {
		return nil, err
	}

	return &Context{Name: name, Path: path, Data: data}, nil
}

func writeTOMLFile(path string, data any, ownerUID, ownerGID *int) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0664)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if ownerUID != nil && ownerGID != nil {
		if err := f.Chown(*ownerUID, *ownerGID); err != nil {
			return fmt.Errorf("chown %s: %w", path, err)
		}
	}

	enc := toml.NewEncoder(f)
	return enc.Encode(data)
}

func ensureDir(path string, mode os.FileMode, ownerUID, ownerGID *int) error {
	if err := os.MkdirAll(path, mode); err != nil {
		return err
	}
	if ownerUID != nil && ownerGID != nil {
		return os.Chown(path, *ownerUID, *ownerGID)
	}
	return nil
}
