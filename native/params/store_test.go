package params

import "testing"

type mapState map[string]uint64

func (m mapState) ParamGet(name string) (uint64, bool) {
	value, ok := m[name]
	return value, ok
}

func (m mapState) ParamSet(name string, value uint64) { m[name] = value }

func TestStoreFallsBackToDefaults(t *testing.T) {
	store := NewStore(mapState{})

	got, err := store.Get(KeyBenchmarkRate)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != DefaultBenchmarkRate {
		t.Fatalf("bmrate = %d, want default %d", got, DefaultBenchmarkRate)
	}
}

func TestStoreSetOverridesDefault(t *testing.T) {
	store := NewStore(mapState{})

	if err := store.Set(KeyPenaltyRate, 25); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := store.Get(KeyPenaltyRate)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != 25 {
		t.Fatalf("penaltyrate = %d, want 25", got)
	}
}

func TestStoreWithoutStateErrors(t *testing.T) {
	store := NewStore(nil)
	if _, err := store.Get(KeyInitialPrice); err == nil {
		t.Fatalf("expected error for unconfigured store")
	}
}

func TestDefaultUnknownKeyIsZero(t *testing.T) {
	if got := Default("nosuchkey"); got != 0 {
		t.Fatalf("default = %d, want 0", got)
	}
}
