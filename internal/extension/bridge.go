package extension

import (
	"context"
	"net/http"
)

// Route is one pattern/handler pair inside a RouteSet. Patterns are
// relative to the prefix the set is mounted under.
type Route struct {
	Pattern string
	Handler http.Handler
}

// RouteSet is a group of routes mounted and removed as a unit. Identity
// matters: RemoveRoutes takes the same set that was added.
type RouteSet struct {
	Name   string
	Routes []Route
}

// RouteInstaller is the routing bridge the manager and URL hooks use to
// mount and unmount extension route subtrees on the host.
type RouteInstaller interface {
	// AddRoutes mounts the set under the given URL prefix.
	AddRoutes(prefix string, set *RouteSet) error

	// RemoveRoutes unmounts exactly the routes that were added for the
	// set. Removing a set that is not mounted is a no-op.
	RemoveRoutes(set *RouteSet)
}

// ComponentDirectory is the host's active-component list. Both
// operations are idempotent.
type ComponentDirectory interface {
	Add(name string)
	Remove(name string)
}

// CacheFlusher invalidates the host's process-wide template/tag cache.
// The manager flushes it after every enable and disable so stale entries
// never survive a state change.
type CacheFlusher interface {
	Flush(ctx context.Context) error
}

// SchemaMigrator applies an extension's pending persisted-storage
// changes. It runs exactly once, during install.
type SchemaMigrator interface {
	ApplyPendingChanges(ctx context.Context) error
}
