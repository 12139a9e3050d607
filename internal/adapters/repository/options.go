// Package repository loads and serializes lead tables and holds the
// read-only reference dataset.
package repository

import "github.com/okian/leadscore/pkg/logger"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithSource records where the rows were loaded from, for logs and stats.
func WithSource(source string) Option {
	return func(s *MemoryStore) {
		if source != "" {
			s.source = source
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *MemoryStore) {
		if l != nil {
			s.logger = l
		}
	}
}
