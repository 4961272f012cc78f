package params

import "fmt"

// StoreState captures the subset of state manager capabilities required by the
// parameter helpers.
type StoreState interface {
	ParamGet(name string) (uint64, bool)
	ParamSet(name string, value uint64)
}

// Store provides typed accessors for operator-controlled parameters.
type Store struct {
	state StoreState
}

// NewStore constructs a parameter store wrapper using the supplied state
// backend.
func NewStore(state StoreState) *Store {
	return &Store{state: state}
}

func (s *Store) withState() (StoreState, error) {
	if s == nil || s.state == nil {
		return nil, fmt.Errorf("params: state not configured")
	}
	return s.state, nil
}

// Get returns the stored value for key, falling back to the built-in default
// when the key has never been set.
func (s *Store) Get(key string) (uint64, error) {
	state, err := s.withState()
	if err != nil {
		return 0, err
	}
	if value, ok := state.ParamGet(key); ok {
		return value, nil
	}
	return Default(key), nil
}

// Set persists the supplied parameter value.
func (s *Store) Set(key string, value uint64) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	state.ParamSet(key, value)
	return nil
}
