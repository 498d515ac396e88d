package templating

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/CTAG07/bananafilter/pkg/filters"
)

var (
	// undefinedFuncRe extracts the function name from a parse error.
	undefinedFuncRe = regexp.MustCompile(`function "([^"]+)" not defined`)

	// identRe matches names that can be used as template functions.
	identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ErrTooManyBindings is returned when a parse keeps hitting new undefined
// function names after MaxFallbackBindings of them were bound.
var ErrTooManyBindings = errors.New("templating: too many undefined filters")

// TemplateManager is the central controller for the templating host.
// It owns the template set and configuration, and builds the function map
// from a filters.Registry on every Refresh.
// All methods are concurrent-safe.
type TemplateManager struct {
	logger         *slog.Logger
	config         *TemplateConfig
	registry       *filters.Registry
	templates      *template.Template
	cleanTemplates *template.Template
	templateNames  []string
	bound          map[string]struct{}
	templateDir    string
	mu             sync.RWMutex
}

// NewTemplateManager creates, initializes, and returns a new TemplateManager.
// It requires a logger, the registry whose filters become template
// functions, a configuration, and the path to the data directory which must
// contain a "templates" subdirectory. It performs an initial Refresh.
func NewTemplateManager(logger *slog.Logger, registry *filters.Registry, config *TemplateConfig, dataDir string) (*TemplateManager, error) {
	if config == nil {
		config = DefaultConfig()
	}
	tm := &TemplateManager{
		logger:      logger,
		registry:    registry,
		config:      config,
		templateDir: filepath.Join(dataDir, "templates"),
	}

	if err := tm.Refresh(); err != nil {
		return nil, err
	}

	logger.Info("Template manager initialized")
	return tm, nil
}

// makeFuncMap builds a function map exposing every registered filter plus
// the generic "filter" dispatcher.
func (tm *TemplateManager) makeFuncMap() template.FuncMap {
	fm := template.FuncMap{
		"filter": tm.applyFilter,
	}
	for _, name := range tm.registry.Names() {
		if name == "filter" || !identRe.MatchString(name) {
			tm.logger.Warn("Filter name is not a valid template function, reachable through \"filter\" only", "filter", name)
			continue
		}
		fm[name] = tm.filterFunc(name)
	}
	return fm
}

// filterFunc returns a template function that routes calls for name
// through the registry.
func (tm *TemplateManager) filterFunc(name string) func(args ...any) (template.HTML, error) {
	return func(args ...any) (template.HTML, error) {
		return tm.applyFilter(name, args...)
	}
}

func (tm *TemplateManager) applyFilter(name string, args ...any) (template.HTML, error) {
	out, err := tm.registry.Apply(name, args...)
	if err != nil {
		return "", err
	}
	return template.HTML(out), nil
}

// SetConfig applies a new configuration. It takes effect on the next Refresh.
func (tm *TemplateManager) SetConfig(config *TemplateConfig) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.config = config
}

// Refresh rebuilds the function map from the registry and reloads all
// templates from the filesystem. Undefined functions found while parsing
// are bound to the registry's fallback when PermissiveFilters is set.
func (tm *TemplateManager) Refresh() error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if err := tm.config.Validate(); err != nil {
		tm.logger.Error("invalid template configuration", "error", err)
		return err
	}

	// Built in locals so a failed parse leaves the loaded set untouched.
	funcMap := tm.makeFuncMap()
	bound := make(map[string]struct{})

	var (
		parsed *template.Template
		names  []string
		err    error
	)
	for {
		parsed, names, err = tm.parseFiles(funcMap)
		if err == nil {
			break
		}
		name, bindErr := tm.bindUndefined(err, len(bound))
		if _, dup := bound[name]; dup {
			bindErr = err
		}
		if bindErr != nil {
			tm.logger.Error("failed to parse template files", "error", bindErr)
			return bindErr
		}
		funcMap[name] = tm.filterFunc(name)
		bound[name] = struct{}{}
	}

	if len(names) == 0 {
		tm.logger.Warn("No template files found matching pattern", "pattern", tm.config.FullTemplateGlob)
	}

	// Create a clean clone for string executions after all parsing is complete.
	clean, err := parsed.Clone()
	if err != nil {
		tm.logger.Error("failed to create a clean clone of templates", "error", err)
		return err
	}

	tm.bound = bound
	tm.templates = parsed
	tm.cleanTemplates = clean
	tm.templateNames = names
	tm.logger.Info("Loaded template and partial files", "count", len(parsed.Templates())-1, "fallback_bindings", len(bound))
	return nil
}

// parseFiles parses full templates and partials with fm and returns the set
// along with the names of the full templates.
func (tm *TemplateManager) parseFiles(fm template.FuncMap) (*template.Template, []string, error) {
	parsedFiles, err := template.New("").Funcs(fm).ParseGlob(filepath.Join(tm.templateDir, tm.config.FullTemplateGlob))
	names := []string{}
	if err != nil {
		if !isNoMatch(err) {
			return nil, nil, err
		}
		// No template files, so we have to create the object without any
		parsedFiles = template.New("").Funcs(fm)
	} else {
		fullMatch := tm.config.FullTemplateSuffix()
		for _, t := range parsedFiles.Templates() {
			// By default, there is a root template with no name. We don't want to execute this
			if t.Name() != "" && strings.HasSuffix(t.Name(), fullMatch) {
				names = append(names, t.Name())
			}
		}
		sort.Strings(names)
	}

	withPartials, err := parsedFiles.ParseGlob(filepath.Join(tm.templateDir, tm.config.PartialTemplateGlob))
	if err != nil {
		if !isNoMatch(err) {
			return nil, nil, err
		}
		withPartials = parsedFiles
	}
	return withPartials, names, nil
}

// bindUndefined decides whether a parse error can be recovered from by
// binding an undefined function name to the fallback, and returns that name.
func (tm *TemplateManager) bindUndefined(parseErr error, alreadyBound int) (string, error) {
	m := undefinedFuncRe.FindStringSubmatch(parseErr.Error())
	if m == nil || !tm.config.PermissiveFilters || !tm.registry.HasFallback() {
		return "", parseErr
	}
	if alreadyBound >= tm.config.MaxFallbackBindings {
		return "", fmt.Errorf("%w: limit of %d reached at %q", ErrTooManyBindings, tm.config.MaxFallbackBindings, m[1])
	}
	tm.logger.Debug("Binding undefined template function to fallback", "filter", m[1])
	return m[1], nil
}

func isNoMatch(err error) bool {
	return strings.Contains(err.Error(), "pattern matches no files")
}

// Execute renders a specific template by name, writing the output to the provided io.Writer.
func (tm *TemplateManager) Execute(w io.Writer, name string, data interface{}) error {
	if name == "" {
		return nil
	}
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.templates.ExecuteTemplate(w, name, data)
}

// ExecuteTemplateString parses and executes a raw template string using the
// manager's function map and loaded partials. Undefined functions in content
// are bound to the fallback for this execution only.
func (tm *TemplateManager) ExecuteTemplateString(w io.Writer, content string, data interface{}) error {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	var (
		t     *template.Template
		extra = template.FuncMap{}
	)
	for {
		// Clone the clean, unexecuted template set to avoid race conditions and execution state issues.
		tempSet, err := tm.cleanTemplates.Clone()
		if err != nil {
			return fmt.Errorf("failed to clone clean templates for string execution: %w", err)
		}
		t, err = tempSet.Funcs(extra).Parse(content)
		if err == nil {
			break
		}
		name, bindErr := tm.bindUndefined(err, len(tm.bound)+len(extra))
		if _, dup := extra[name]; dup {
			bindErr = err
		}
		if bindErr != nil {
			return fmt.Errorf("failed to parse string template: %w", bindErr)
		}
		extra[name] = tm.filterFunc(name)
	}

	return t.Execute(w, data)
}

// GetConfig returns a copy of the current configuration.
func (tm *TemplateManager) GetConfig() TemplateConfig {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return *tm.config
}

// GetFullTemplateNames returns the names of the templates that can be rendered as pages.
func (tm *TemplateManager) GetFullTemplateNames() []string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return append([]string(nil), tm.templateNames...)
}

// GetTemplateNames returns the names of all loaded templates, partials included.
func (tm *TemplateManager) GetTemplateNames() []string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	var names []string
	for _, t := range tm.templates.Templates() {
		// By default, there is a root template with no name. We don't want to return this in the list
		if strings.Contains(t.Name(), ".html") {
			names = append(names, t.Name())
		}
	}
	sort.Strings(names)
	return names
}

// GetFallbackBindings returns the undefined function names that were bound
// to the fallback during the last Refresh.
func (tm *TemplateManager) GetFallbackBindings() []string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	names := make([]string, 0, len(tm.bound))
	for name := range tm.bound {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetTemplateDir returns the template dir that the TemplateManager uses.
func (tm *TemplateManager) GetTemplateDir() string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.templateDir
}
