package filters

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
)

var (
	// ErrUnknownFilter is returned by Apply when a name has no registered
	// filter and no fallback is available to answer for it.
	ErrUnknownFilter = errors.New("filters: unknown filter")

	// ErrMissingInput is returned by Apply when a registered filter is
	// invoked without an input value.
	ErrMissingInput = errors.New("filters: missing input")
)

// Filter is a named text-to-text transform.
type Filter func(input string) string

// Provider exposes a set of filters under stable names. The registry
// consumes the returned mapping by name at registration time.
type Provider interface {
	Filters() map[string]Filter
}

// FallbackProvider is a Provider that also answers for filter names that
// were never registered. Fallback receives the attempted name and the full
// argument list.
type FallbackProvider interface {
	Provider
	Fallback(name string, args ...any) string
}

// Call describes a single filter invocation routed through a Registry.
type Call struct {
	Name     string // The requested filter name
	Input    string // The first argument rendered as text, empty if none
	Fallback bool   // Whether the fallback served the call
}

// Observer is notified after every successful Apply.
type Observer interface {
	ObserveCall(call Call)
}

// Registry maps filter names to transforms. The zero value is not usable,
// create one with NewRegistry. All methods are concurrent-safe.
type Registry struct {
	logger   *slog.Logger
	filters  map[string]Filter
	fallback FallbackProvider
	observer Observer
	mu       sync.RWMutex
}

// NewRegistry returns an empty registry. A nil logger discards all output.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{
		logger:  logger,
		filters: make(map[string]Filter),
	}
}

// Register adds every filter exposed by p. A name that is already taken is
// replaced by the new filter. If p also implements FallbackProvider it
// becomes the registry's fallback, replacing any previous one.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, fn := range p.Filters() {
		if _, exists := r.filters[name]; exists {
			r.logger.Debug("Replacing registered filter", "filter", name)
		}
		r.filters[name] = fn
	}
	if fp, ok := p.(FallbackProvider); ok {
		r.fallback = fp
	}
	r.logger.Debug("Registered filter provider", "filters", len(r.filters), "fallback", r.fallback != nil)
}

// SetObserver installs o to be notified of every successful call.
// Passing nil removes the current observer.
func (r *Registry) SetObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = o
}

// Lookup returns the filter registered under name, if any.
// It never consults the fallback.
func (r *Registry) Lookup(name string) (Filter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.filters[name]
	return fn, ok
}

// HasFallback reports whether unknown names will be answered.
func (r *Registry) HasFallback() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallback != nil
}

// Names returns the sorted names of all registered filters.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.filters))
	for name := range r.filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply invokes the filter registered under name with the first argument
// rendered as text. Names with no registered filter go to the fallback,
// which receives the name and every argument as given.
func (r *Registry) Apply(name string, args ...any) (string, error) {
	r.mu.RLock()
	fn, ok := r.filters[name]
	fallback := r.fallback
	observer := r.observer
	r.mu.RUnlock()

	call := Call{Name: name}
	if len(args) > 0 {
		call.Input = Text(args[0])
	}

	var out string
	switch {
	case ok:
		if len(args) == 0 {
			return "", fmt.Errorf("%w: %q", ErrMissingInput, name)
		}
		out = fn(call.Input)
	case fallback != nil:
		call.Fallback = true
		out = fallback.Fallback(name, args...)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFilter, name)
	}

	if observer != nil {
		observer.ObserveCall(call)
	}
	return out, nil
}

// Text renders a filter argument the way a template would print it.
// A nil argument renders as the empty string.
func Text(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
