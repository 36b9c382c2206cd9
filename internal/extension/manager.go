package extension

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/plugboard/internal/log"
	"github.com/zjrosen/plugboard/internal/tracing"
)

// ManagerOptions carries the collaborators a Manager needs. Key and
// StaticRoot are required; a nil Broker gets a fresh one.
type ManagerOptions struct {
	// Key namespaces this manager's config-route prefixes, so several
	// managers can coexist in one host.
	Key string

	// StaticRoot is the directory extension asset trees are installed
	// under. Required.
	StaticRoot string

	Source     DiscoverySource
	Repository RegistrationRepository
	Routes     RouteInstaller
	Components ComponentDirectory
	Cache      CacheFlusher
	Broker     *Broker
}

// Manager is the extension lifecycle state machine: it discovers
// packages, tracks registered/installed/enabled state, resolves
// dependencies and transitions extensions between states while keeping
// the host's routes, component list and template cache consistent.
//
// All mutating operations on one manager are serialized behind a single
// mutex. Install side effects run synchronously to completion; the
// context is threaded for tracing and collaborator calls only.
type Manager struct {
	key        string
	staticRoot string
	source     DiscoverySource
	repo       RegistrationRepository
	routes     RouteInstaller
	components ComponentDirectory
	cache      CacheFlusher
	broker     *Broker
	tracer     trace.Tracer

	mu          sync.Mutex
	descriptors map[string]*Descriptor
	factories   map[string]Factory
	records     map[string]*RegistrationRecord
	instances   map[string]*Instance

	// enabling guards the recursive dependency walk against cycles.
	enabling map[string]struct{}
}

// NewManager builds a lifecycle manager and registers it in the
// process-wide manager directory.
func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.StaticRoot == "" {
		return nil, ErrStaticRootRequired
	}
	if opts.Broker == nil {
		opts.Broker = NewBroker()
	}

	m := &Manager{
		key:         opts.Key,
		staticRoot:  opts.StaticRoot,
		source:      opts.Source,
		repo:        opts.Repository,
		routes:      opts.Routes,
		components:  opts.Components,
		cache:       opts.Cache,
		broker:      opts.Broker,
		tracer:      otel.Tracer("plugboard/extension"),
		descriptors: make(map[string]*Descriptor),
		factories:   make(map[string]Factory),
		records:     make(map[string]*RegistrationRecord),
		instances:   make(map[string]*Instance),
		enabling:    make(map[string]struct{}),
	}

	registerManager(m)
	return m, nil
}

// Key returns the manager's namespace key.
func (m *Manager) Key() string { return m.key }

// Broker returns the manager's lifecycle event broker.
func (m *Manager) Broker() *Broker { return m.broker }

// Discover enumerates the discovery source and reconciles the known set
// against it. It is re-entrant: each pass builds or reuses descriptors,
// ensures registration records exist, re-enables anything recorded
// enabled without a live instance, resolves requirement descriptors in a
// second pass, and finally disables and forgets any previously known ID
// absent from this pass.
func (m *Manager) Discover(ctx context.Context) error {
	ctx, span := m.tracer.Start(ctx, tracing.SpanDiscover,
		trace.WithAttributes(attribute.String(tracing.AttrManagerKey, m.key)))
	defer span.End()

	entries, err := m.source.Entries(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("enumerating extensions: %w", err)
	}
	span.SetAttributes(attribute.Int(tracing.AttrDiscoveredCount, len(entries)))

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.preloadRecords(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		id := entry.Seed.ID
		if id == "" {
			log.Warn(log.CatExt, "skipping discovered entry with empty id", "name", entry.Seed.Name)
			continue
		}
		seen[id] = struct{}{}

		desc := descriptorFromSeed(entry.Seed)
		desc.StaticPath = m.staticPath(id)
		m.descriptors[id] = desc
		m.factories[id] = entry.Factory

		record, err := m.ensureRecord(id, desc.Name)
		if err != nil {
			// Without a record the extension cannot hold state, so it
			// stays unknown until a later pass registers it.
			log.ErrorErr(log.CatExt, "registering extension", err, "id", id)
			delete(m.descriptors, id)
			delete(m.factories, id)
			continue
		}
		desc.Enabled = record.Enabled
		desc.Installed = record.Installed

		if record.Enabled && m.instances[id] == nil {
			if err := m.initExtension(ctx, id, entry.Factory()); err != nil {
				log.ErrorErr(log.CatExt, "re-enabling recorded extension", err, "id", id)
			}
		}
	}

	// A requirement may be discovered after its dependent, so resolution
	// is a second pass over everything known.
	m.resolveRequirements()

	for id := range m.descriptors {
		if _, ok := seen[id]; ok {
			continue
		}
		log.Info(log.CatExt, "extension package gone, forgetting", "id", id)
		if m.instances[id] != nil {
			if err := m.disableLocked(ctx, id); err != nil {
				log.ErrorErr(log.CatExt, "disabling vanished extension", err, "id", id)
			}
		}
		delete(m.descriptors, id)
		delete(m.factories, id)
		delete(m.records, id)
	}

	return nil
}

// Enable transitions an extension to the Enabled state, recursively
// enabling its requirements first. Already-enabled extensions are a
// no-op returning the existing instance. One-time install side effects
// (asset copy, schema migration) run when the record says installed is
// false; an install failure aborts the enable with an
// EnablingExtensionError and leaves the extension Registered.
func (m *Manager) Enable(ctx context.Context, id string) (*Instance, error) {
	ctx, span := m.tracer.Start(ctx, tracing.SpanEnable,
		trace.WithAttributes(attribute.String(tracing.AttrExtensionID, id)))
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	inst, err := m.enableLocked(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return inst, err
}

func (m *Manager) enableLocked(ctx context.Context, id string) (*Instance, error) {
	desc, ok := m.descriptors[id]
	if !ok {
		return nil, fmt.Errorf("enable %s: %w", id, ErrUnknownExtension)
	}
	if inst := m.instances[id]; inst != nil {
		return inst, nil
	}

	if _, inProgress := m.enabling[id]; inProgress {
		return nil, fmt.Errorf("enable %s: %w", id, ErrDependencyCycle)
	}
	m.enabling[id] = struct{}{}
	defer delete(m.enabling, id)

	for _, reqID := range desc.Requirements {
		if _, err := m.enableLocked(ctx, reqID); err != nil {
			return nil, &EnablingExtensionError{ID: id, Err: fmt.Errorf("requirement %s: %w", reqID, err)}
		}
	}

	// One construction per enable: the same value sees install and Init.
	ext := m.factories[id]()

	record := m.records[id]
	if !record.Installed {
		if err := m.installExtension(ctx, desc, ext); err != nil {
			return nil, &EnablingExtensionError{ID: id, Err: err}
		}
		record.Installed = true
		desc.Installed = true
		if err := m.repo.Save(record); err != nil {
			record.Installed = false
			desc.Installed = false
			return nil, &EnablingExtensionError{ID: id, Err: err}
		}
	}

	record.Enabled = true
	if err := m.repo.Save(record); err != nil {
		record.Enabled = false
		return nil, &EnablingExtensionError{ID: id, Err: err}
	}
	desc.Enabled = true

	if err := m.initExtension(ctx, id, ext); err != nil {
		record.Enabled = false
		desc.Enabled = false
		if saveErr := m.repo.Save(record); saveErr != nil {
			log.ErrorErr(log.CatExt, "persisting enable rollback", saveErr, "id", id)
		}
		return nil, &EnablingExtensionError{ID: id, Err: err}
	}

	log.Info(log.CatExt, "extension enabled", "id", id, "version", desc.Version)
	return m.instances[id], nil
}

// installExtension performs the one-time install side effects: the asset
// tree replace-copy and the extension's schema migration.
func (m *Manager) installExtension(ctx context.Context, desc *Descriptor, ext Extension) error {
	if err := installAssets(desc.AssetsDir, desc.StaticPath); err != nil {
		return &InstallExtensionError{ID: desc.ID, Err: err}
	}

	if provider, ok := ext.(MigrationProvider); ok {
		if migrator := provider.SchemaMigrator(); migrator != nil {
			if err := migrator.ApplyPendingChanges(ctx); err != nil {
				return &InstallExtensionError{ID: desc.ID, Err: fmt.Errorf("schema migration: %w", err)}
			}
		}
	}

	log.Info(log.CatExt, "extension installed", "id", desc.ID)
	return nil
}

// initExtension constructs and initializes the live instance for an
// already-enabled record: runs Init, mounts config routes, adds the
// component, flushes the template cache, and emits
// extension.initialized strictly last.
func (m *Manager) initExtension(ctx context.Context, id string, ext Extension) error {
	desc := m.descriptors[id]
	record := m.records[id]

	inst := &Instance{
		descriptor: desc,
		ext:        ext,
		settings:   NewSettings(record, m.repo),
		manager:    m,
	}
	m.instances[id] = inst

	if err := inst.ext.Init(ctx, inst); err != nil {
		inst.shutdown(ctx)
		delete(m.instances, id)
		return fmt.Errorf("init: %w", err)
	}

	if desc.Configurable {
		if provider, ok := inst.ext.(ConfigProvider); ok {
			set := provider.ConfigRoutes()
			if set != nil {
				prefix := m.configPrefix(id)
				if err := m.routes.AddRoutes(prefix, set); err != nil {
					inst.shutdown(ctx)
					delete(m.instances, id)
					return fmt.Errorf("mounting config routes: %w", err)
				}
				inst.configRoutes = set
			}
		}
	}

	m.components.Add(id)

	if err := m.cache.Flush(ctx); err != nil {
		log.ErrorErr(log.CatCache, "flushing template cache", err, "id", id)
	}

	m.broker.Publish(EventInitialized, newLifecycleEvent(inst))
	return nil
}

// Disable transitions an enabled extension back to Registered, first
// cascading over every enabled extension that depends on it. Disabling
// a not-enabled extension is a silent no-op; an unknown ID is an error.
// The installed flag stays true across disable.
func (m *Manager) Disable(ctx context.Context, id string) error {
	ctx, span := m.tracer.Start(ctx, tracing.SpanDisable,
		trace.WithAttributes(attribute.String(tracing.AttrExtensionID, id)))
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.disableLocked(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (m *Manager) disableLocked(ctx context.Context, id string) error {
	desc, ok := m.descriptors[id]
	if !ok {
		return fmt.Errorf("disable %s: %w", id, ErrUnknownExtension)
	}
	inst := m.instances[id]
	if inst == nil {
		return nil
	}

	for _, depID := range m.dependentsOfLocked(id) {
		if m.instances[depID] == nil {
			continue
		}
		if err := m.disableLocked(ctx, depID); err != nil {
			return err
		}
	}

	inst.shutdown(ctx)

	if inst.configRoutes != nil {
		m.routes.RemoveRoutes(inst.configRoutes)
		inst.configRoutes = nil
	}
	m.components.Remove(id)

	if err := m.cache.Flush(ctx); err != nil {
		log.ErrorErr(log.CatCache, "flushing template cache", err, "id", id)
	}

	m.broker.Publish(EventUninitialized, newLifecycleEvent(inst))
	delete(m.instances, id)

	if err := removeAssets(desc.StaticPath); err != nil {
		log.ErrorErr(log.CatExt, "removing installed assets", err, "id", id)
	}

	record := m.records[id]
	record.Enabled = false
	desc.Enabled = false
	if err := m.repo.Save(record); err != nil {
		return fmt.Errorf("persisting disable of %s: %w", id, err)
	}

	log.Info(log.CatExt, "extension disabled", "id", id)
	return nil
}

// DependentsOf returns the IDs of every known extension whose declared
// requirements include id.
func (m *Manager) DependentsOf(id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dependentsOfLocked(id)
}

func (m *Manager) dependentsOfLocked(id string) []string {
	var out []string
	for depID, desc := range m.descriptors {
		if desc.HasRequirement(id) {
			out = append(out, depID)
		}
	}
	return out
}

// InstanceOf returns the live instance for id, or nil when it is not
// enabled.
func (m *Manager) InstanceOf(id string) *Instance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.instances[id]
}

// Instances returns every live instance.
func (m *Manager) Instances() []*Instance {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, inst)
	}
	return out
}

// Descriptors returns every known descriptor, sorted by ID.
func (m *Manager) Descriptors() []*Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Descriptor, 0, len(m.descriptors))
	for _, desc := range m.descriptors {
		out = append(out, desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Descriptor returns the descriptor for id, or nil when unknown.
func (m *Manager) Descriptor(id string) *Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.descriptors[id]
}

func (m *Manager) preloadRecords() error {
	stored, err := m.repo.FindAll()
	if err != nil {
		return fmt.Errorf("loading registration records: %w", err)
	}
	for _, rec := range stored {
		if _, ok := m.records[rec.ID]; !ok {
			m.records[rec.ID] = rec
		}
	}
	return nil
}

// ensureRecord returns the registration record for id, creating one
// lazily on first discovery.
func (m *Manager) ensureRecord(id, name string) (*RegistrationRecord, error) {
	if rec, ok := m.records[id]; ok {
		return rec, nil
	}
	rec, err := m.repo.Create(id, name)
	if err != nil {
		return nil, fmt.Errorf("creating registration record: %w", err)
	}
	m.records[id] = rec
	log.Debug(log.CatExt, "registration record created", "id", id)
	return rec, nil
}

func (m *Manager) resolveRequirements() {
	for _, desc := range m.descriptors {
		desc.ResolvedRequirements = desc.ResolvedRequirements[:0]
		for _, reqID := range desc.Requirements {
			req, ok := m.descriptors[reqID]
			if !ok {
				log.Warn(log.CatExt, "unresolved requirement", "id", desc.ID, "requires", reqID)
				continue
			}
			desc.ResolvedRequirements = append(desc.ResolvedRequirements, req)
		}
	}
}

func (m *Manager) staticPath(id string) string {
	return filepath.Join(m.staticRoot, "ext", id)
}

func (m *Manager) configPrefix(id string) string {
	return "/" + m.key + "/extensions/" + id + "/config/"
}

// MigrationProvider is implemented by extensions that ship persisted
// storage changes to apply at install time.
type MigrationProvider interface {
	SchemaMigrator() SchemaMigrator
}
