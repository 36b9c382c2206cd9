package host

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
)

// RenderTemplate renders the named template file from the static root.
// Sources load read-through into the process template cache, so a cache
// flush (every extension init/uninit) picks up replaced assets.
func (h *Host) RenderTemplate(ctx context.Context, name string, data any) (string, error) {
	src, err := h.sources.Get(ctx, name, name, templateCacheTTL)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(name).Parse(src)
	if err != nil {
		return "", fmt.Errorf("parsing template %q: %w", name, err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering template %q: %w", name, err)
	}
	return buf.String(), nil
}

// loadTemplate reads a template source from under the static root. The
// name is rooted before joining so it cannot escape the tree.
func (h *Host) loadTemplate(_ context.Context, name string) (string, error) {
	path := filepath.Join(h.staticRoot, filepath.Clean("/"+name))
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("loading template %q: %w", name, err)
	}
	return string(raw), nil
}
