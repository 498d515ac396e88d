// Package banana provides the banana filter provider: two span-wrapping
// filters and a catch-all fallback that turns any unknown filter name into
// a span class.
//
// Inputs are substituted verbatim. Nothing is escaped or validated, so the
// output is only as well-formed as the input.
package banana

import (
	"io"
	"log/slog"

	"github.com/CTAG07/bananafilter/pkg/filters"
)

const (
	// FilterBanana is the name of the fixed-class span filter.
	FilterBanana = "banana"
	// FilterClassify is the name of the input-as-class span filter.
	FilterClassify = "classify"
)

// Options controls the provider's output.
type Options struct {
	// RepairFallbackMarkup makes the fallback close its span with "</span>".
	// When false, the fallback keeps its historical "</span" ending.
	RepairFallbackMarkup bool `json:"repair_fallback_markup"`
}

// Provider implements filters.FallbackProvider. It holds no per-call state.
type Provider struct {
	logger *slog.Logger
	opts   Options
}

// New returns a Provider that writes its diagnostics to logger.
// A nil logger discards them.
func New(logger *slog.Logger, opts Options) *Provider {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Provider{logger: logger, opts: opts}
}

// Register creates a Provider and registers it with r. It is meant to be
// called once during initialization.
func Register(r *filters.Registry, logger *slog.Logger, opts Options) *Provider {
	p := New(logger, opts)
	r.Register(p)
	p.logger.Info("Banana filters registered", "filters", []string{FilterBanana, FilterClassify})
	return p
}

// Filters returns the named transforms this provider exposes.
func (p *Provider) Filters() map[string]filters.Filter {
	return map[string]filters.Filter{
		FilterBanana:   p.Banana,
		FilterClassify: p.Classify,
	}
}

// Banana wraps input in a span with class "banana".
func (p *Provider) Banana(input string) string {
	p.logger.Info("banana banana", "input", input)
	return span(FilterBanana, input, true)
}

// Classify wraps input in a span whose class is the input itself.
func (p *Provider) Classify(input string) string {
	return span(input, input, true)
}

// Fallback answers for any filter name that was not registered. The span's
// class is the requested name and its body is the first argument, if any.
func (p *Provider) Fallback(name string, args ...any) string {
	p.logger.Info("Serving unknown filter from fallback", "filter", name)
	var body string
	if len(args) > 0 {
		body = filters.Text(args[0])
	}
	return span(name, body, p.opts.RepairFallbackMarkup)
}
