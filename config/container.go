package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Mount is one entry of volumes.mounts: a declarative mount request resolved
// against a mount type (bind/shared/private/runtime) by specprep.
type Mount struct {
	Source    string `toml:"source"`
	Target    string `toml:"target"`
	Type      string `toml:"type"`
	ReadOnly  bool   `toml:"readonly"`
	Recursive bool   `toml:"recursive"`
	Mode      string `toml:"mode"`
}

// SecretSource names one secret-bundle source to be provisioned into the
// runtime dir's secrets path before the container starts.
type SecretSource struct {
	Source string `toml:"source"`
	Copy   bool   `toml:"copy"`
}

// ContainerData is the on-disk (TOML) shape of a Container config record,
// matching the fields named in the supervisor's data model: image, storage,
// exec, env, user, caps, dns, network, secrets, volumes.
type ContainerData struct {
	Image struct {
		Type  string `toml:"type"`
		Image string `toml:"image"`
		Tag   string `toml:"tag"`
	} `toml:"image"`
	Storage struct {
		Container string `toml:"container"`
	} `toml:"storage"`
	Exec struct {
		Dir      string `toml:"dir"`
		Cmd      string `toml:"cmd"`
		Args     string `toml:"args"`
		Terminal bool   `toml:"terminal"`
	} `toml:"exec"`
	Env struct {
		Vars  []string `toml:"vars"`
		Host  []string `toml:"host"`
		Files []string `toml:"files"`
	} `toml:"env"`
	User struct {
		UID int `toml:"uid"`
		GID int `toml:"gid"`
	} `toml:"user"`
	Caps struct {
		Add  []string `toml:"add"`
		Drop []string `toml:"drop"`
	} `toml:"caps"`
	DNS struct {
		Hostname string `toml:"hostname"`
		Domain   string `toml:"domain"`
	} `toml:"dns"`
	Network struct {
		Type string `toml:"type"`
	} `toml:"network"`
	Secrets struct {
		Target  string         `toml:"target"`
		Sources []SecretSource `toml:"sources"`
	} `toml:"secrets"`
	Volumes struct {
		Shared  string  `toml:"shared"`
		Private string  `toml:"private"`
		Mounts  []Mount `toml:"mounts"`
	} `toml:"volumes"`
}

// Container is a named, loaded Container config. Immutable except for
// Data.Exec.Terminal, which the executor may clear when the host has no TTY
// (spec.md section 3's one documented mutation exception).
type Container struct {
	Name string
	Path string
	Data ContainerData
}

// LoadContainer searches dirs in order for "<context>/<name>.toml" and
// parses the first one found.
func LoadContainer(name, contextName string, dirs []string) (*Container, error) {
	for _, dir := range dirs {
		path := filepath.Join(dir, contextName, name+".toml")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		var data ContainerData
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return nil, fmt.Errorf("decode container %s: %w", path, err)
		}
		return &Container{Name: name, Path: path, Data: data}, nil
	}
	return nil, fmt.Errorf("no container config found for %q in context %q", name, contextName)
}

// MakeContainer builds and persists a new Container config under ctx,
// using image as its bundle image reference (defaulting to name) and the
// given uid/gid as the in-container user.
func MakeContainer(name string, ctx *Context, image, tag string, uid, gid int) (*Container, error) {
	if image == "" {
		image = name
	}
	if tag == "" {
		tag = "latest"
	}

	runtimePath := filepath.Join(ctx.Data.Runtime.Base, name)
	secretsSrc := filepath.Join(ctx.Data.Configs.Secrets, name)

	var data ContainerData
	data.DNS.Hostname = fmt.Sprintf("%s.%s", name, ctx.Data.Domain)
	data.Image.Type = "oci"
	data.Image.Image = image
	data.Image.Tag = tag
	data.Storage.Container = filepath.Join(ctx.Data.Storage.Containers, name)
	data.User.UID = uid
	data.User.GID = gid
	data.Secrets.Target = filepath.Join(runtimePath, "secrets")
	data.Secrets.Sources = []SecretSource{{Source: secretsSrc, Copy: true}}
	data.Volumes.Mounts = []Mount{{
		Source:   filepath.Join(runtimePath, "secrets"),
		Target:   "/run/secrets",
		Type:     "bind",
		ReadOnly: true,
	}}

	euid, egid := os.Geteuid(), os.Getegid()
	var ownerUID, ownerGID *int
	owner := ctx.Data.User
	if owner.UID != euid || owner.GID != egid {
		ownerUID, ownerGID = &owner.UID, &owner.GID
	}

	dirs := []struct {
		path string
		mode os.FileMode
	}{
		{ctx.Data.Configs.Base, 0775},
		{data.Storage.Container, 0770},
		{secretsDirFor(ctx, name), 0700},
		{ctx.Data.Storage.Volumes, 0770},
	}
	for _, d := range dirs {
		if err := ensureDir(d.path, d.mode, ownerUID, ownerGID); err != nil {
			return nil, fmt.Errorf("ensure dir %s: %w", d.path, err)
		}
	}

	path := filepath.Join(ctx.Data.Configs.Base, name+".toml")
	if err := writeTOMLFile(path, data, ownerUID, ownerGID); err != nil {
		return nil, err
	}

	return &Container{Name: name, Path: path, Data: data}, nil
}

func secretsDirFor(ctx *Context, name string) string {
	return filepath.Join(ctx.Data.Configs.Secrets, name)
}
