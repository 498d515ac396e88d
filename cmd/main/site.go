package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// PageInput is the data every full template is executed with.
type PageInput struct {
	Page string
}

// BuildSite renders every full template into outDir. Each page is written
// atomically, so a failed build never leaves a half-written file behind.
// It returns the paths of the written files.
func (a *App) BuildSite(ctx context.Context, outDir string) ([]string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	var written []string
	for _, name := range a.tm.GetFullTemplateNames() {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		page := strings.TrimSuffix(name, a.config.Templates.FullTemplateSuffix())
		var buf bytes.Buffer
		if err := a.tm.Execute(&buf, name, PageInput{Page: page}); err != nil {
			a.logger.Error("Failed to execute template", "template", name, "error", err)
			return written, fmt.Errorf("failed to render %s: %w", name, err)
		}

		outPath := filepath.Join(outDir, page+".html")
		if err := atomic.WriteFile(outPath, &buf); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", outPath, err)
		}
		a.logger.Info("Rendered page", "template", name, "path", outPath)
		written = append(written, outPath)
	}
	return written, nil
}
