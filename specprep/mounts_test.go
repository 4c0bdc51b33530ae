package specprep

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	specs "github.com/opencontainers/runtime-spec/specs-go"

	"darkwing/config"
	"darkwing/errors"
)

func TestMountSourcePath(t *testing.T) {
	bases := VolumeBases{Shared: "/shared", Private: "/private", Runtime: "/run/darkwing/vols"}

	tests := []struct {
		name      string
		mountType string
		source    string
		want      string
		wantErr   bool
	}{
		{name: "bind requires absolute path", mountType: "bind", source: "/data", want: "/data"},
		{name: "bind rejects relative path", mountType: "bind", source: "relative/path", wantErr: true},
		{name: "shared joins under shared base", mountType: "shared", source: "/cache", want: "/shared/cache"},
		{name: "private joins under private base", mountType: "private", source: "/state", want: "/private/state"},
		{name: "runtime joins under runtime dir volumes path", mountType: "runtime", source: "/secrets", want: "/run/darkwing/vols/secrets"},
		{name: "unknown mount type errors", mountType: "tmpfs", source: "/x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mountSourcePath(tt.mountType, tt.source, bases)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("mountSourcePath(%q, %q) error = nil, want error", tt.mountType, tt.source)
				}
				return
			}
			if err != nil {
				t.Fatalf("mountSourcePath(%q, %q) unexpected error: %v", tt.mountType, tt.source, err)
			}
			if got != tt.want {
				t.Errorf("mountSourcePath(%q, %q) = %q, want %q", tt.mountType, tt.source, got, tt.want)
			}
		})
	}
}

func TestMountSourcePath_RuntimeWithoutBase(t *testing.T) {
	_, err := mountSourcePath("runtime", "/x", VolumeBases{})
	if err == nil {
		t.Fatal("mountSourcePath(runtime, ...) with no Runtime base: error = nil, want error")
	}
	if kind, ok := errors.GetKind(err); !ok || kind != errors.ErrConfig {
		t.Errorf("GetKind(err) = (%v, %v), want (%v, true)", kind, ok, errors.ErrConfig)
	}
}

func TestMountSpec_Options(t *testing.T) {
	bases := VolumeBases{Shared: "/shared"}

	tests := []struct {
		name    string
		mount   config.Mount
		want    []string
		wantErr bool
	}{
		{
			name:  "rw non-recursive bind",
			mount: config.Mount{Type: "shared", Source: "/a", Target: "/mnt/a"},
			want:  []string{"bind", "nodev", "nosuid"},
		},
		{
			name:  "recursive bind uses rbind",
			mount: config.Mount{Type: "shared", Source: "/a", Target: "/mnt/a", Recursive: true},
			want:  []string{"rbind", "nodev", "nosuid"},
		},
		{
			name:  "readonly appends ro",
			mount: config.Mount{Type: "shared", Source: "/a", Target: "/mnt/a", ReadOnly: true},
			want:  []string{"bind", "nodev", "nosuid", "ro"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mountSpec(tt.mount, bases)
			if tt.wantErr {
				if err == nil {
					t.Fatal("mountSpec() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("mountSpec() unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got.Options, tt.want) {
				t.Errorf("mountSpec().Options = %v, want %v", got.Options, tt.want)
			}
			if got.Destination != tt.mount.Target {
				t.Errorf("mountSpec().Destination = %q, want %q", got.Destination, tt.mount.Target)
			}
		})
	}
}

// TestUpdateMounts_RoundTrip verifies the mount-overlay law: volumeMounts and
// rundirMounts key by destination over the pristine spec's mount list, later
// entries win, and the result's order follows first-seen destination.
func TestUpdateMounts_RoundTrip(t *testing.T) {
	bases := VolumeBases{Shared: "/shared", Runtime: "/run/darkwing/vols"}

	orig := []specs.Mount{
		{Destination: "/etc/resolv.conf", Type: "bind", Source: "/etc/resolv.conf", Options: []string{"bind", "ro"}},
		{Destination: "/data", Type: "bind", Source: "/host/data", Options: []string{"bind"}},
	}
	volumeMounts := []config.Mount{
		{Type: "shared", Source: "/cache", Target: "/data"}, // overrides /data from orig
	}
	rundirMounts := []config.Mount{
		{Type: "runtime", Source: "/secrets", Target: "/run/secrets"}, // new destination
	}

	got, err := UpdateMounts(orig, volumeMounts, rundirMounts, bases)
	if err != nil {
		t.Fatalf("UpdateMounts() unexpected error: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("UpdateMounts() returned %d mounts, want 3", len(got))
	}

	// Order follows first-seen destination: /etc/resolv.conf, /data, /run/secrets.
	wantOrder := []string{"/etc/resolv.conf", "/data", "/run/secrets"}
	for i, dest := range wantOrder {
		if got[i].Destination != dest {
			t.Errorf("got[%d].Destination = %q, want %q", i, got[i].Destination, dest)
		}
	}

	// /data was overridden by the volume mount, not left as the pristine bind.
	if got[1].Source != "/shared/cache" {
		t.Errorf("got[1].Source = %q, want %q (overridden by volumeMounts)", got[1].Source, "/shared/cache")
	}
}

func TestUpdateMounts_PropagatesMountError(t *testing.T) {
	_, err := UpdateMounts(nil, []config.Mount{{Type: "bogus", Source: "/x", Target: "/y"}}, nil, VolumeBases{})
	if err == nil {
		t.Fatal("UpdateMounts() error = nil, want error for unknown mount type")
	}
}

func TestEnsureMounts_CreatesSharedDir(t *testing.T) {
	tmp := t.TempDir()
	bases := VolumeBases{Shared: tmp}

	mounts := []config.Mount{
		{Type: "shared", Source: "/newdir", Target: "/mnt/x"},
	}

	if err := EnsureMounts(mounts, bases, nil, nil); err != nil {
		t.Fatalf("EnsureMounts() unexpected error: %v", err)
	}

	info, err := os.Stat(filepath.Join(tmp, "newdir"))
	if err != nil {
		t.Fatalf("expected directory to be created: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected created path to be a directory")
	}
}

func TestEnsureMounts_BindMustExist(t *testing.T) {
	mounts := []config.Mount{
		{Type: "bind", Source: "/definitely/does/not/exist", Target: "/mnt/x"},
	}

	err := EnsureMounts(mounts, VolumeBases{}, nil, nil)
	if err == nil {
		t.Fatal("EnsureMounts() error = nil, want error for missing bind source")
	}
}
