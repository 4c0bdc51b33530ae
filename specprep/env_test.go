package specprep

import (
	"reflect"
	"testing"
)

func fixedLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestApplyEnvironment_BaseAndVars(t *testing.T) {
	tests := []struct {
		name string
		env  []string
		vars []string
		want []string
	}{
		{
			name: "vars overrides env on shared key",
			env:  []string{"PATH=/usr/bin", "TERM=xterm"},
			vars: []string{"PATH=/opt/bin"},
			want: []string{"PATH=/opt/bin", "TERM=xterm"},
		},
		{
			name: "bare var unsets a key from env",
			env:  []string{"PATH=/usr/bin", "DEBUG=1"},
			vars: []string{"DEBUG"},
			want: []string{"PATH=/usr/bin"},
		},
		{
			name: "vars introduces a key not in env, appended in order",
			env:  []string{"PATH=/usr/bin"},
			vars: []string{"NEW=1"},
			want: []string{"PATH=/usr/bin", "NEW=1"},
		},
		{
			name: "duplicate keys within env: last one wins, first position kept",
			env:  []string{"PATH=/usr/bin", "PATH=/usr/local/bin"},
			want: []string{"PATH=/usr/local/bin"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyEnvironment(tt.env, tt.vars, nil, fixedLookup(nil))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ApplyEnvironment() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestApplyEnvironment_HostOverlay verifies the environment-overlay law: a
// host variable of the same key wins over both env and vars; absent a host
// value, an explicit default in host wins; absent both, the key is unset.
func TestApplyEnvironment_HostOverlay(t *testing.T) {
	hostEnv := map[string]string{"HOME": "/root"}

	tests := []struct {
		name string
		env  []string
		vars []string
		host []string
		want []string
	}{
		{
			name: "host value overrides env and vars",
			env:  []string{"HOME=/nonexistent"},
			vars: []string{"HOME=/also-wrong"},
			host: []string{"HOME"},
			want: []string{"HOME=/root"},
		},
		{
			name: "host default used when host env unset",
			env:  []string{},
			host: []string{"LANG=C.UTF-8"},
			want: []string{"LANG=C.UTF-8"},
		},
		{
			name: "host entry with no default and no host value unsets the key",
			env:  []string{"SHELL=/bin/sh"},
			host: []string{"SHELL"},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyEnvironment(tt.env, tt.vars, tt.host, fixedLookup(hostEnv))
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ApplyEnvironment() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyEnvironment_NilHostLookupUsesOSEnv(t *testing.T) {
	t.Setenv("DARKWING_SPECPREP_TEST_VAR", "from-os-env")

	got := ApplyEnvironment(nil, nil, []string{"DARKWING_SPECPREP_TEST_VAR"}, nil)
	want := []string{"DARKWING_SPECPREP_TEST_VAR=from-os-env"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ApplyEnvironment() = %v, want %v", got, want)
	}
}

func TestOrderedEnv_SetUnsetPreservesInsertionOrder(t *testing.T) {
	e := newOrderedEnv()
	e.set("A", "1")
	e.set("B", "2")
	e.set("C", "3")
	e.unset("B")
	e.set("B", "2b")

	got := e.strings()
	want := []string{"A=1", "C=3", "B=2b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("strings() = %v, want %v", got, want)
	}
}
