package templating

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidGlob is returned by Validate when a template glob cannot be used
// to tell full templates apart by name.
var ErrInvalidGlob = errors.New("templating: invalid template glob")

// TemplateConfig holds all configuration options for the templating host.
type TemplateConfig struct {
	// FullTemplateGlob matches the page templates that can be executed by name.
	// It must be a single leading "*" followed by a literal suffix, such as
	// "*.tmpl.html", because full templates are recognized by that suffix.
	FullTemplateGlob string `json:"full_template_glob"`

	// PartialTemplateGlob matches templates that are only meant to be included.
	PartialTemplateGlob string `json:"partial_template_glob"`

	// PermissiveFilters binds undefined template functions to the registry's
	// fallback instead of failing the parse.
	PermissiveFilters bool `json:"permissive_filters"`

	// MaxFallbackBindings caps how many distinct undefined names a single
	// parse may bind to the fallback.
	MaxFallbackBindings int `json:"max_fallback_bindings"`
}

// DefaultConfig returns a TemplateConfig with safe default values.
func DefaultConfig() *TemplateConfig {
	return &TemplateConfig{
		FullTemplateGlob:    "*.tmpl.html",
		PartialTemplateGlob: "*.part.html",
		PermissiveFilters:   true,
		MaxFallbackBindings: 64,
	}
}

// Validate checks that FullTemplateGlob has the "*suffix" form.
func (c *TemplateConfig) Validate() error {
	suffix, ok := strings.CutPrefix(c.FullTemplateGlob, "*")
	if !ok || suffix == "" || strings.ContainsAny(suffix, `*?[\`) {
		return fmt.Errorf("%w: full_template_glob %q must be \"*\" followed by a literal suffix", ErrInvalidGlob, c.FullTemplateGlob)
	}
	if c.PartialTemplateGlob == "" {
		return fmt.Errorf("%w: partial_template_glob is empty", ErrInvalidGlob)
	}
	return nil
}

// FullTemplateSuffix returns the literal suffix shared by all full template
// names, e.g. ".tmpl.html" for the default glob.
func (c *TemplateConfig) FullTemplateSuffix() string {
	return strings.TrimPrefix(c.FullTemplateGlob, "*")
}
