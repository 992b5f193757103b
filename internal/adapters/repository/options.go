// Package repository defines the punch store interface and errors.
package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithIDFunc sets the generator used for punches saved without an id.
// Used by tests for deterministic output.
func WithIDFunc(fn func() string) Option {
	return func(s *MemoryStore) {
		if fn != nil {
			s.newID = fn
		}
	}
}
