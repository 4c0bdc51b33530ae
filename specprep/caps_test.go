package specprep

import (
	"reflect"
	"testing"

	specs "github.com/opencontainers/runtime-spec/specs-go"
)

func TestOverlayCapSet(t *testing.T) {
	tests := []struct {
		name string
		orig []string
		add  []string
		drop []string
		want []string
	}{
		{
			name: "no-op overlay returns original order",
			orig: []string{"CAP_CHOWN", "CAP_KILL"},
			want: []string{"CAP_CHOWN", "CAP_KILL"},
		},
		{
			name: "drop removes from original",
			orig: []string{"CAP_CHOWN", "CAP_KILL", "CAP_SETUID"},
			drop: []string{"CAP_KILL"},
			want: []string{"CAP_CHOWN", "CAP_SETUID"},
		},
		{
			name: "add appends new names after originals",
			orig: []string{"CAP_CHOWN"},
			add:  []string{"CAP_NET_ADMIN"},
			want: []string{"CAP_CHOWN", "CAP_NET_ADMIN"},
		},
		{
			name: "add of an already-present name is not duplicated",
			orig: []string{"CAP_CHOWN", "CAP_KILL"},
			add:  []string{"CAP_CHOWN"},
			want: []string{"CAP_CHOWN", "CAP_KILL"},
		},
		{
			name: "drop then add of the same name re-adds it at the tail",
			orig: []string{"CAP_CHOWN", "CAP_KILL"},
			drop: []string{"CAP_KILL"},
			add:  []string{"CAP_KILL"},
			want: []string{"CAP_CHOWN", "CAP_KILL"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := overlayCapSet(tt.orig, tt.add, tt.drop)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("overlayCapSet(%v, %v, %v) = %v, want %v", tt.orig, tt.add, tt.drop, got, tt.want)
			}
		})
	}
}

// TestApplyCapabilities_RoundTrip verifies the capability-update law: an
// overlay applied across every set filters drops before appending adds, in
// the original set's order, with no duplicate entries anywhere.
func TestApplyCapabilities_RoundTrip(t *testing.T) {
	orig := &specs.LinuxCapabilities{
		Bounding:    []string{"CAP_CHOWN", "CAP_KILL", "CAP_NET_RAW"},
		Effective:   []string{"CAP_CHOWN"},
		Permitted:   []string{"CAP_CHOWN", "CAP_NET_RAW"},
		Inheritable: []string{},
		Ambient:     []string{},
	}

	got := ApplyCapabilities(orig, []string{"CAP_SYS_ADMIN"}, []string{"CAP_NET_RAW"})

	want := &specs.LinuxCapabilities{
		Bounding:    []string{"CAP_CHOWN", "CAP_KILL", "CAP_SYS_ADMIN"},
		Effective:   []string{"CAP_CHOWN", "CAP_SYS_ADMIN"},
		Permitted:   []string{"CAP_CHOWN", "CAP_SYS_ADMIN"},
		Inheritable: []string{"CAP_SYS_ADMIN"},
		Ambient:     []string{"CAP_SYS_ADMIN"},
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("ApplyCapabilities() = %+v, want %+v", got, want)
	}

	// Applying an empty add/drop overlay is a no-op, modulo a fresh struct.
	identity := ApplyCapabilities(orig, nil, nil)
	if !reflect.DeepEqual(identity.Bounding, orig.Bounding) {
		t.Errorf("empty overlay changed Bounding: got %v, want %v", identity.Bounding, orig.Bounding)
	}
}

func TestApplyCapabilities_Nil(t *testing.T) {
	if got := ApplyCapabilities(nil, []string{"CAP_CHOWN"}, nil); got != nil {
		t.Errorf("ApplyCapabilities(nil, ...) = %+v, want nil", got)
	}
}
