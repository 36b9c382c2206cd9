// Package host is the routing and registration bridge between the
// lifecycle manager and the HTTP host: a mutable route table for
// extension subtrees, the active-component directory, the process
// template cache and static asset serving.
package host

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zjrosen/plugboard/internal/cachemanager"
	"github.com/zjrosen/plugboard/internal/extension"
	"github.com/zjrosen/plugboard/internal/log"
)

const (
	// StaticPrefix is where installed extension assets are served from.
	StaticPrefix = "/static/"

	templateCacheTTL = 10 * time.Minute
)

// mount is one route set mounted under a prefix.
type mount struct {
	prefix string
	set    *extension.RouteSet
}

// Host owns the mutable routing state extensions plug into. It
// implements extension.RouteInstaller, extension.ComponentDirectory and
// extension.CacheFlusher, and serves mounted routes plus static assets
// over http.Handler.
type Host struct {
	staticRoot string

	mu         sync.RWMutex
	mounts     []mount
	components map[string]struct{}

	templates cachemanager.CacheManager[string, string]
	sources   *cachemanager.ReadThroughCache[string, string, string]
}

// New creates a host serving installed assets from staticRoot.
func New(staticRoot string) *Host {
	h := &Host{
		staticRoot: staticRoot,
		components: make(map[string]struct{}),
		templates: cachemanager.NewInMemoryCacheManager[string, string](
			"templates", templateCacheTTL, 2*templateCacheTTL),
	}
	h.sources = cachemanager.NewReadThroughCache(h.templates, h.loadTemplate, false)
	return h
}

var (
	_ extension.RouteInstaller     = (*Host)(nil)
	_ extension.ComponentDirectory = (*Host)(nil)
	_ extension.CacheFlusher       = (*Host)(nil)
	_ http.Handler                 = (*Host)(nil)
)

// AddRoutes mounts the set under prefix. The prefix must start and end
// with a slash. Mounting the same set twice is an error; remove it
// first.
func (h *Host) AddRoutes(prefix string, set *extension.RouteSet) error {
	if !strings.HasPrefix(prefix, "/") || !strings.HasSuffix(prefix, "/") {
		return fmt.Errorf("route prefix %q must start and end with /", prefix)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range h.mounts {
		if m.set == set {
			return fmt.Errorf("route set %q already mounted at %s", set.Name, m.prefix)
		}
	}
	h.mounts = append(h.mounts, mount{prefix: prefix, set: set})
	log.Debug(log.CatHost, "routes mounted", "prefix", prefix, "set", set.Name)
	return nil
}

// RemoveRoutes unmounts exactly the routes added for the set. Removing
// an unmounted set is a no-op.
func (h *Host) RemoveRoutes(set *extension.RouteSet) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, m := range h.mounts {
		if m.set == set {
			h.mounts = append(h.mounts[:i], h.mounts[i+1:]...)
			log.Debug(log.CatHost, "routes unmounted", "prefix", m.prefix, "set", set.Name)
			return
		}
	}
}

// Add puts a component on the active list. Idempotent.
func (h *Host) Add(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = struct{}{}
}

// Remove takes a component off the active list. Idempotent.
func (h *Host) Remove(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.components, name)
}

// Components returns the active component names, sorted.
func (h *Host) Components() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.components))
	for name := range h.components {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// HasComponent reports whether name is on the active list.
func (h *Host) HasComponent(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.components[name]
	return ok
}

// Flush empties the process template cache.
func (h *Host) Flush(ctx context.Context) error {
	return h.templates.Flush(ctx)
}

// TemplateCache exposes the process template cache for renderers.
func (h *Host) TemplateCache() cachemanager.CacheManager[string, string] {
	return h.templates
}

// ServeHTTP dispatches static asset requests and mounted extension
// routes. Mounts match by longest prefix; within a mount, route
// patterns match the remainder of the path exactly.
func (h *Host) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, StaticPrefix) {
		http.StripPrefix(StaticPrefix, http.FileServer(http.Dir(h.staticRoot))).ServeHTTP(w, r)
		return
	}

	if handler := h.match(r.URL.Path); handler != nil {
		handler.ServeHTTP(w, r)
		return
	}
	http.NotFound(w, r)
}

func (h *Host) match(path string) http.Handler {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var (
		best    http.Handler
		bestLen = -1
	)
	for _, m := range h.mounts {
		if !strings.HasPrefix(path, m.prefix) || len(m.prefix) <= bestLen {
			continue
		}
		rest := strings.TrimPrefix(path, m.prefix)
		for _, route := range m.set.Routes {
			if route.Pattern == rest {
				best = route.Handler
				bestLen = len(m.prefix)
				break
			}
		}
	}
	return best
}
