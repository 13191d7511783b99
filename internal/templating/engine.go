package templating

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/yegors/live-facts/pkg/logger"
)

//go:embed prompts/*.tmpl
var builtin embed.FS

// Engine handles prompt template loading, caching, and rendering. Templates
// are looked up in the override directory first and fall back to the
// built-in set.
type Engine struct {
	overrideDir   string
	templateCache map[string]*template.Template
	cacheMutex    sync.RWMutex
	logger        *logger.Logger
}

// NewEngine creates a new template engine. overrideDir may be empty.
func NewEngine(overrideDir string, logger *logger.Logger) *Engine {
	return &Engine{
		overrideDir:   overrideDir,
		templateCache: make(map[string]*template.Template),
		logger:        logger.Named("template-engine"),
	}
}

// Render renders the named template with data
func (e *Engine) Render(name string, data any) (string, error) {
	tmpl, err := e.getTemplate(name)
	if err != nil {
		return "", fmt.Errorf("failed to get template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	rendered := strings.TrimSpace(buf.String())
	e.logger.Debug("Template rendered successfully",
		logger.String("template", name),
		logger.Int("rendered_length", len(rendered)))

	return rendered, nil
}

// getTemplate retrieves a template from cache or loads it
func (e *Engine) getTemplate(name string) (*template.Template, error) {
	e.cacheMutex.RLock()
	if tmpl, exists := e.templateCache[name]; exists {
		e.cacheMutex.RUnlock()
		return tmpl, nil
	}
	e.cacheMutex.RUnlock()

	e.cacheMutex.Lock()
	defer e.cacheMutex.Unlock()

	// Another goroutine may have loaded it while we were waiting
	if tmpl, exists := e.templateCache[name]; exists {
		return tmpl, nil
	}

	tmpl, err := e.loadTemplate(name)
	if err != nil {
		return nil, err
	}

	e.templateCache[name] = tmpl
	e.logger.Debug("Template loaded and cached", logger.String("template", name))

	return tmpl, nil
}

// loadTemplate reads a template from the override directory or the built-in set
func (e *Engine) loadTemplate(name string) (*template.Template, error) {
	file := name + ".tmpl"

	var content []byte
	var err error
	if e.overrideDir != "" {
		content, err = os.ReadFile(filepath.Join(e.overrideDir, file))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read template file '%s': %w", file, err)
		}
	}
	if content == nil {
		content, err = builtin.ReadFile("prompts/" + file)
		if err != nil {
			return nil, fmt.Errorf("unknown template '%s': %w", name, err)
		}
	}

	tmpl, err := template.New(name).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", name, err)
	}

	return tmpl, nil
}

// ReloadTemplate forces a template to be reloaded
func (e *Engine) ReloadTemplate(name string) error {
	e.cacheMutex.Lock()
	defer e.cacheMutex.Unlock()

	tmpl, err := e.loadTemplate(name)
	if err != nil {
		return err
	}

	e.templateCache[name] = tmpl
	e.logger.Info("Template reloaded", logger.String("template", name))

	return nil
}
