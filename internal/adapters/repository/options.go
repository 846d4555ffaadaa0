package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithCapacity keeps only the best n sessions. Zero or less keeps all.
func WithCapacity(n int) Option {
	return func(s *MemoryStore) {
		s.capacity = n
	}
}
