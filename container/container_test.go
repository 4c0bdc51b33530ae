package container

import (
	"testing"

	"darkwing/config"
	"darkwing/errors"
)

func newTestHandle() *Handle {
	cfg := &config.Container{Name: "web"}
	return New("web", "/bundles/web", "/run/darkwing/default/web/.runc", cfg)
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"simple", "web", false},
		{"with dashes and dots", "web-1.service", false},
		{"empty", "", true},
		{"path traversal", "../etc", true},
		{"dot", ".", true},
		{"dot dot", "..", true},
		{"path separator", "a/b", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestHandle_TransitionTo_LegalChain(t *testing.T) {
	h := newTestHandle()
	chain := []Status{StatusCreated, StatusRunning, StatusStopped, StatusRemoved}
	for _, next := range chain {
		if err := h.TransitionTo(next); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}
}

func TestHandle_TransitionTo_RejectsSkip(t *testing.T) {
	h := newTestHandle()
	err := h.TransitionTo(StatusRunning)
	if err == nil {
		t.Fatal("expected error skipping created")
	}
	if !errors.IsKind(err, errors.ErrStateConflict) {
		t.Error("expected ErrStateConflict")
	}
}

func TestHandle_SetReturncode_FirstWriterWins(t *testing.T) {
	h := newTestHandle()
	h.SetReturncode(0)
	h.SetReturncode(137)

	rc, ok := h.Returncode()
	if !ok || rc != 0 {
		t.Errorf("Returncode() = (%d, %v), want (0, true)", rc, ok)
	}
}

func TestHandle_UseTTY_ReadsThroughConfig(t *testing.T) {
	h := newTestHandle()
	if h.UseTTY() {
		t.Error("expected default false")
	}
	h.SetUseTTY(true)
	if !h.UseTTY() {
		t.Error("expected true after SetUseTTY")
	}
	if !h.Config.Data.Exec.Terminal {
		t.Error("SetUseTTY should write through to Config.Data.Exec.Terminal")
	}
}

func TestHandle_Close_Idempotent(t *testing.T) {
	h := newTestHandle()
	h.SetReturncode(0)

	first := h.Close()
	second := h.Close()
	if first != second {
		t.Errorf("Close() not idempotent: %d != %d", first, second)
	}
}

func TestHandle_Wait_NoInitProcess(t *testing.T) {
	h := newTestHandle()
	if _, err := h.Wait(false); err == nil {
		t.Fatal("expected error with no pid recorded")
	}
}
