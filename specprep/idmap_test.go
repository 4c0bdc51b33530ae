package specprep

import (
	"reflect"
	"testing"

	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// TestUpdateIDMappings_RoundTrip verifies the ID-map rewrite law: only the
// mapping whose ContainerID matches is rewritten (its HostID replaced),
// every other field and every other mapping passes through unchanged, and
// the result preserves the input's order and length.
func TestUpdateIDMappings_RoundTrip(t *testing.T) {
	orig := []specs.LinuxIDMapping{
		{ContainerID: 0, HostID: 100000, Size: 1},
		{ContainerID: 1000, HostID: 1000, Size: 1},
		{ContainerID: 1, HostID: 100001, Size: 999},
	}

	got := UpdateIDMappings(orig, 1000, 2000)

	want := []specs.LinuxIDMapping{
		{ContainerID: 0, HostID: 100000, Size: 1},
		{ContainerID: 1000, HostID: 2000, Size: 1},
		{ContainerID: 1, HostID: 100001, Size: 999},
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("UpdateIDMappings() = %+v, want %+v", got, want)
	}

	// The original slice must not be mutated in place.
	if orig[1].HostID != 1000 {
		t.Errorf("UpdateIDMappings() mutated its input: orig[1].HostID = %d, want 1000", orig[1].HostID)
	}
}

func TestUpdateIDMappings_NoMatchIsIdentity(t *testing.T) {
	orig := []specs.LinuxIDMapping{
		{ContainerID: 0, HostID: 100000, Size: 1},
	}

	got := UpdateIDMappings(orig, 5000, 6000)
	if !reflect.DeepEqual(got, orig) {
		t.Errorf("UpdateIDMappings() with no matching containerID = %+v, want %+v (unchanged)", got, orig)
	}
}

func TestUpdateIDMappings_EmptyInput(t *testing.T) {
	got := UpdateIDMappings(nil, 0, 100000)
	if len(got) != 0 {
		t.Errorf("UpdateIDMappings(nil, ...) = %+v, want empty", got)
	}
}
