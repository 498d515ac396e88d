package filters

import (
	"log/slog"
	"sync"
)

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the process-wide registry. It is created on first use
// and lives for the lifetime of the process.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(slog.Default())
	})
	return defaultRegistry
}

// Register adds p to the process-wide registry.
func Register(p Provider) {
	Default().Register(p)
}

// Apply invokes name on the process-wide registry.
func Apply(name string, args ...any) (string, error) {
	return Default().Apply(name, args...)
}
