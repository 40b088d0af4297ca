package tests

import (
	"errors"
	"testing"

	"github.com/aretw0/statelens/pkg/domain"
	"github.com/aretw0/statelens/pkg/ports"
)

// MachineLoaderContractTest is a reusable test suite that verifies if an adapter complies with ports.MachineLoader.
// valid must describe a machine whose id is wantID; every entry of invalid must be rejected.
func MachineLoaderContractTest(t *testing.T, loader ports.MachineLoader, valid []byte, wantID string, invalid map[string][]byte) {
	t.Helper()

	t.Run("Load_Success", func(t *testing.T) {
		m, err := loader.Load(valid)
		if err != nil {
			t.Fatalf("unexpected error loading definition: %v", err)
		}
		if m == nil {
			t.Fatal("expected machine, got nil")
		}
		if m.ID() != wantID {
			t.Errorf("machine id mismatch. got %q, want %q", m.ID(), wantID)
		}
		if len(m.Nodes()) == 0 {
			t.Error("machine has no nodes")
		}
	})

	t.Run("Load_Deterministic", func(t *testing.T) {
		a, errA := loader.Load(valid)
		b, errB := loader.Load(valid)
		if errA != nil || errB != nil {
			t.Fatalf("unexpected errors: %v, %v", errA, errB)
		}
		if len(a.Nodes()) != len(b.Nodes()) {
			t.Fatalf("node count differs between loads: %d vs %d", len(a.Nodes()), len(b.Nodes()))
		}
		for i := range a.Nodes() {
			if a.Nodes()[i].ID != b.Nodes()[i].ID {
				t.Errorf("node %d differs: %s vs %s", i, a.Nodes()[i].ID, b.Nodes()[i].ID)
			}
		}
	})

	for name, payload := range invalid {
		t.Run("Load_Invalid_"+name, func(t *testing.T) {
			m, err := loader.Load(payload)
			if err == nil {
				t.Fatalf("expected error, got machine %v", m)
			}
			if !errors.Is(err, domain.ErrDefinition) {
				t.Errorf("expected a definition error, got %v", err)
			}
		})
	}
}
