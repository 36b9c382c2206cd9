package extension

import (
	"context"
	"sync"
)

// Extension is the code an extension package contributes. Init runs once
// per enable, after install side effects complete; it is where the
// extension constructs its hooks. An Init error aborts the enable.
type Extension interface {
	Init(ctx context.Context, instance *Instance) error
}

// Factory constructs a fresh Extension. A new value is built on every
// enable so no state leaks across enable/disable cycles.
type Factory func() Extension

// ShutdownHandler is implemented by extensions that need teardown beyond
// hook removal. Shutdown runs during disable, after hooks drain.
type ShutdownHandler interface {
	Shutdown(ctx context.Context)
}

// ConfigProvider is implemented by configurable extensions to supply the
// admin/config routes the manager mounts while the extension is enabled.
type ConfigProvider interface {
	ConfigRoutes() *RouteSet
}

// Instance is a live, enabled extension. It exists only between a
// successful enable and the matching disable; exactly one instance per
// descriptor ID at any time.
type Instance struct {
	descriptor *Descriptor
	ext        Extension
	settings   *Settings
	manager    *Manager

	mu    sync.Mutex
	hooks []Hook

	// configRoutes holds the mounted admin routes so disable removes
	// exactly what enable added. Nil for non-configurable extensions.
	configRoutes *RouteSet
}

// ID returns the descriptor ID the instance runs under.
func (i *Instance) ID() string { return i.descriptor.ID }

// Descriptor returns the instance's descriptor.
func (i *Instance) Descriptor() *Descriptor { return i.descriptor }

// Settings returns the instance's buffered settings view.
func (i *Instance) Settings() *Settings { return i.settings }

// Extension returns the constructed extension value.
func (i *Instance) Extension() Extension { return i.ext }

// Manager returns the lifecycle manager that owns the instance.
func (i *Instance) Manager() *Manager { return i.manager }

// Hooks returns a snapshot of the hooks the instance currently owns.
func (i *Instance) Hooks() []Hook {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]Hook, len(i.hooks))
	copy(out, i.hooks)
	return out
}

func (i *Instance) addHook(h Hook) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.hooks = append(i.hooks, h)
}

func (i *Instance) removeHook(h Hook) {
	i.mu.Lock()
	defer i.mu.Unlock()
	for idx, existing := range i.hooks {
		if existing == h {
			i.hooks = append(i.hooks[:idx], i.hooks[idx+1:]...)
			return
		}
	}
}

// shutdown drains every owned hook, then runs the extension's own
// teardown if it has one.
func (i *Instance) shutdown(ctx context.Context) {
	for _, h := range i.Hooks() {
		h.Unregister()
	}
	if handler, ok := i.ext.(ShutdownHandler); ok {
		handler.Shutdown(ctx)
	}
}
