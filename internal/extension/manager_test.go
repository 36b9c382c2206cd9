package extension

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/plugboard/internal/pubsub"
)

// memoryRepo is an in-memory RegistrationRepository for tests.
type memoryRepo struct {
	mu         sync.Mutex
	records    map[string]*RegistrationRecord
	failSave   bool
	failCreate bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{records: make(map[string]*RegistrationRecord)}
}

func (r *memoryRepo) FindAll() ([]*RegistrationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*RegistrationRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	return out, nil
}

func (r *memoryRepo) FindByID(id string) (*RegistrationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, &RegistrationNotFoundError{ID: id}
	}
	return rec, nil
}

func (r *memoryRepo) Create(id, name string) (*RegistrationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return nil, errors.New("create failed")
	}
	rec := &RegistrationRecord{ID: id, Name: name}
	r.records[id] = rec
	return rec, nil
}

func (r *memoryRepo) Save(rec *RegistrationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave {
		return errors.New("save failed")
	}
	r.records[rec.ID] = rec
	return nil
}

func (r *memoryRepo) Close() error { return nil }

// fakeRoutes records mounted route sets.
type fakeRoutes struct {
	mounted map[*RouteSet]string
	adds    int
	removes int
}

func newFakeRoutes() *fakeRoutes {
	return &fakeRoutes{mounted: make(map[*RouteSet]string)}
}

func (f *fakeRoutes) AddRoutes(prefix string, set *RouteSet) error {
	f.mounted[set] = prefix
	f.adds++
	return nil
}

func (f *fakeRoutes) RemoveRoutes(set *RouteSet) {
	if _, ok := f.mounted[set]; ok {
		delete(f.mounted, set)
		f.removes++
	}
}

// fakeComponents is an idempotent component set.
type fakeComponents struct {
	names map[string]struct{}
}

func newFakeComponents() *fakeComponents {
	return &fakeComponents{names: make(map[string]struct{})}
}

func (f *fakeComponents) Add(name string)    { f.names[name] = struct{}{} }
func (f *fakeComponents) Remove(name string) { delete(f.names, name) }

func (f *fakeComponents) has(name string) bool {
	_, ok := f.names[name]
	return ok
}

type fakeCache struct {
	flushes int
}

func (f *fakeCache) Flush(ctx context.Context) error {
	f.flushes++
	return nil
}

// mutableSource is a DiscoverySource whose entries tests swap between
// passes.
type mutableSource struct {
	entries []Entry
}

func (s *mutableSource) Entries(ctx context.Context) ([]Entry, error) {
	return s.entries, nil
}

// testExt is a minimal extension whose Init behavior tests control.
type testExt struct {
	initErr   error
	initCount int
	shutdowns int
	onInit    func(inst *Instance) error
}

func (e *testExt) Init(ctx context.Context, inst *Instance) error {
	e.initCount++
	if e.onInit != nil {
		if err := e.onInit(inst); err != nil {
			return err
		}
	}
	return e.initErr
}

func (e *testExt) Shutdown(ctx context.Context) { e.shutdowns++ }

type harness struct {
	manager    *Manager
	source     *mutableSource
	repo       *memoryRepo
	routes     *fakeRoutes
	components *fakeComponents
	cache      *fakeCache
	broker     *Broker
	staticRoot string
}

func newHarness(t *testing.T, entries ...Entry) *harness {
	t.Helper()

	h := &harness{
		source:     &mutableSource{entries: entries},
		repo:       newMemoryRepo(),
		routes:     newFakeRoutes(),
		components: newFakeComponents(),
		cache:      &fakeCache{},
		broker:     NewBroker(),
		staticRoot: t.TempDir(),
	}

	var err error
	h.manager, err = NewManager(ManagerOptions{
		Key:        "test",
		StaticRoot: h.staticRoot,
		Source:     h.source,
		Repository: h.repo,
		Routes:     h.routes,
		Components: h.components,
		Cache:      h.cache,
		Broker:     h.broker,
	})
	require.NoError(t, err)
	return h
}

func entryFor(id string, requirements ...string) Entry {
	return Entry{
		Seed: Seed{
			ID:           id,
			Name:         id,
			Version:      "1.0.0",
			Requirements: requirements,
		},
		Factory: func() Extension { return &testExt{} },
	}
}

func TestNewManagerRequiresStaticRoot(t *testing.T) {
	_, err := NewManager(ManagerOptions{Key: "x"})
	require.ErrorIs(t, err, ErrStaticRootRequired)
}

func TestEnableUnknownExtension(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.manager.Discover(context.Background()))

	_, err := h.manager.Enable(context.Background(), "nope")
	require.ErrorIs(t, err, ErrUnknownExtension)
}

func TestDiscoverRecordCreationFailureLeavesExtensionUnknown(t *testing.T) {
	h := newHarness(t, entryFor("alpha"))
	ctx := context.Background()

	h.repo.failCreate = true
	require.NoError(t, h.manager.Discover(ctx), "a failed registration must not fail the pass")
	assert.Empty(t, h.manager.Descriptors())

	_, err := h.manager.Enable(ctx, "alpha")
	require.ErrorIs(t, err, ErrUnknownExtension)

	// Once the repository recovers, the next pass registers it.
	h.repo.failCreate = false
	require.NoError(t, h.manager.Discover(ctx))

	inst, err := h.manager.Enable(ctx, "alpha")
	require.NoError(t, err)
	require.NotNil(t, inst)
}

func TestEnableConstructsExtensionOnce(t *testing.T) {
	var constructions int
	entry := Entry{
		Seed: Seed{ID: "alpha", Name: "alpha", Version: "1.0.0"},
		Factory: func() Extension {
			constructions++
			return &testExt{}
		},
	}
	h := newHarness(t, entry)
	ctx := context.Background()
	require.NoError(t, h.manager.Discover(ctx))

	inst, err := h.manager.Enable(ctx, "alpha")
	require.NoError(t, err)
	require.NotNil(t, inst)
	assert.Equal(t, 1, constructions, "install and init share one constructed value")
}

func TestEnableIsIdempotent(t *testing.T) {
	h := newHarness(t, entryFor("alpha"))
	ctx := context.Background()
	require.NoError(t, h.manager.Discover(ctx))

	first, err := h.manager.Enable(ctx, "alpha")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := h.manager.Enable(ctx, "alpha")
	require.NoError(t, err)
	assert.Same(t, first, second)

	ext := first.Extension().(*testExt)
	assert.Equal(t, 1, ext.initCount, "second enable must not re-init")

	rec, err := h.repo.FindByID("alpha")
	require.NoError(t, err)
	assert.True(t, rec.Enabled)
	assert.True(t, rec.Installed)
}

func TestEnableRecursivelyEnablesRequirements(t *testing.T) {
	h := newHarness(t, entryFor("dep"), entryFor("app", "dep"))
	ctx := context.Background()
	require.NoError(t, h.manager.Discover(ctx))

	events := h.broker.Subscribe(ctx)

	_, err := h.manager.Enable(ctx, "app")
	require.NoError(t, err)

	assert.NotNil(t, h.manager.InstanceOf("dep"), "requirement enabled implicitly")
	assert.NotNil(t, h.manager.InstanceOf("app"))

	// The requirement's initialized notification precedes the dependent's.
	first := <-events
	second := <-events
	assert.Equal(t, EventInitialized, first.Type)
	assert.Equal(t, "dep", first.Payload.ExtensionID)
	assert.Equal(t, "app", second.Payload.ExtensionID)
}

func TestEnableDetectsDependencyCycle(t *testing.T) {
	h := newHarness(t, entryFor("a", "b"), entryFor("b", "a"))
	ctx := context.Background()
	require.NoError(t, h.manager.Discover(ctx))

	_, err := h.manager.Enable(ctx, "a")
	require.ErrorIs(t, err, ErrDependencyCycle)

	assert.Nil(t, h.manager.InstanceOf("a"))
	assert.Nil(t, h.manager.InstanceOf("b"))
}

func TestDisableNotEnabledIsNoOp(t *testing.T) {
	h := newHarness(t, entryFor("alpha"))
	ctx := context.Background()
	require.NoError(t, h.manager.Discover(ctx))

	events := h.broker.Subscribe(ctx)
	require.NoError(t, h.manager.Disable(ctx, "alpha"))
	assert.Empty(t, events)

	err := h.manager.Disable(ctx, "ghost")
	require.ErrorIs(t, err, ErrUnknownExtension)
}

func TestDisableCascadesOverDependents(t *testing.T) {
	h := newHarness(t, entryFor("dep"), entryFor("app", "dep"))
	ctx := context.Background()
	require.NoError(t, h.manager.Discover(ctx))

	_, err := h.manager.Enable(ctx, "app")
	require.NoError(t, err)

	events := h.broker.Subscribe(ctx)
	require.NoError(t, h.manager.Disable(ctx, "dep"))

	assert.Nil(t, h.manager.InstanceOf("app"), "dependent disabled first")
	assert.Nil(t, h.manager.InstanceOf("dep"))

	first := <-events
	second := <-events
	assert.Equal(t, EventUninitialized, first.Type)
	assert.Equal(t, "app", first.Payload.ExtensionID)
	assert.Equal(t, "dep", second.Payload.ExtensionID)
}

func TestDisableKeepsInstalledSticky(t *testing.T) {
	h := newHarness(t, entryFor("alpha"))
	ctx := context.Background()
	require.NoError(t, h.manager.Discover(ctx))

	_, err := h.manager.Enable(ctx, "alpha")
	require.NoError(t, err)
	require.NoError(t, h.manager.Disable(ctx, "alpha"))

	rec, err := h.repo.FindByID("alpha")
	require.NoError(t, err)
	assert.False(t, rec.Enabled)
	assert.True(t, rec.Installed, "installed survives disable")
}

func TestInstallFailureLeavesRegisteredState(t *testing.T) {
	// An asset path that is a file, not a directory, fails the install
	// copy.
	badAssets := filepath.Join(t.TempDir(), "assets")
	require.NoError(t, os.WriteFile(badAssets, []byte("not a dir"), 0o644))

	entry := entryFor("broken")
	entry.Seed.AssetsDir = badAssets
	h := newHarness(t, entry)
	ctx := context.Background()
	require.NoError(t, h.manager.Discover(ctx))

	events := h.broker.Subscribe(ctx)

	_, err := h.manager.Enable(ctx, "broken")
	require.Error(t, err)

	var enableErr *EnablingExtensionError
	require.ErrorAs(t, err, &enableErr)
	assert.Equal(t, "broken", enableErr.ID)

	var installErr *InstallExtensionError
	require.ErrorAs(t, err, &installErr)

	rec, findErr := h.repo.FindByID("broken")
	require.NoError(t, findErr)
	assert.False(t, rec.Installed)
	assert.False(t, rec.Enabled)
	assert.Nil(t, h.manager.InstanceOf("broken"))
	assert.Empty(t, events, "no notification on failed enable")
}

func TestEnableInstallsAssetTree(t *testing.T) {
	assets := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(assets, "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(assets, "css", "ext.css"), []byte("body{}"), 0o644))

	entry := entryFor("styled")
	entry.Seed.AssetsDir = assets
	h := newHarness(t, entry)
	ctx := context.Background()
	require.NoError(t, h.manager.Discover(ctx))

	_, err := h.manager.Enable(ctx, "styled")
	require.NoError(t, err)

	installed := filepath.Join(h.staticRoot, "ext", "styled", "css", "ext.css")
	_, statErr := os.Stat(installed)
	require.NoError(t, statErr, "asset tree copied into static root")

	require.NoError(t, h.manager.Disable(ctx, "styled"))
	_, statErr = os.Stat(installed)
	assert.True(t, os.IsNotExist(statErr), "asset tree removed on disable")
}

func TestInitFailureRollsBackEnable(t *testing.T) {
	entry := Entry{
		Seed: Seed{ID: "flaky", Name: "flaky"},
		Factory: func() Extension {
			return &testExt{initErr: errors.New("boom")}
		},
	}
	h := newHarness(t, entry)
	ctx := context.Background()
	require.NoError(t, h.manager.Discover(ctx))

	_, err := h.manager.Enable(ctx, "flaky")
	var enableErr *EnablingExtensionError
	require.ErrorAs(t, err, &enableErr)

	rec, findErr := h.repo.FindByID("flaky")
	require.NoError(t, findErr)
	assert.False(t, rec.Enabled)
	assert.True(t, rec.Installed, "install completed before init failed")
	assert.Nil(t, h.manager.InstanceOf("flaky"))
}

func TestConfigurableExtensionMountsConfigRoutes(t *testing.T) {
	set := &RouteSet{Name: "config"}
	entry := Entry{
		Seed:    Seed{ID: "conf", Name: "conf", Configurable: true},
		Factory: func() Extension { return &configExt{routes: set} },
	}
	h := newHarness(t, entry)
	ctx := context.Background()
	require.NoError(t, h.manager.Discover(ctx))

	_, err := h.manager.Enable(ctx, "conf")
	require.NoError(t, err)
	assert.Equal(t, "/test/extensions/conf/config/", h.routes.mounted[set])

	require.NoError(t, h.manager.Disable(ctx, "conf"))
	assert.NotContains(t, h.routes.mounted, set)
}

type configExt struct {
	testExt
	routes *RouteSet
}

func (e *configExt) ConfigRoutes() *RouteSet { return e.routes }

func TestDiscoverReEnablesRecordedExtensions(t *testing.T) {
	h := newHarness(t, entryFor("alpha"))
	ctx := context.Background()
	require.NoError(t, h.manager.Discover(ctx))

	_, err := h.manager.Enable(ctx, "alpha")
	require.NoError(t, err)

	// A second manager over the same repository sees the enabled record
	// and brings the instance up during discovery.
	fresh := newHarness(t)
	fresh.repo = h.repo
	fresh.source.entries = h.source.entries
	m, err := NewManager(ManagerOptions{
		Key:        "fresh",
		StaticRoot: fresh.staticRoot,
		Source:     fresh.source,
		Repository: fresh.repo,
		Routes:     fresh.routes,
		Components: fresh.components,
		Cache:      fresh.cache,
	})
	require.NoError(t, err)

	require.NoError(t, m.Discover(ctx))
	assert.NotNil(t, m.InstanceOf("alpha"))
}

func TestDiscoverReconcilesVanishedPackages(t *testing.T) {
	h := newHarness(t, entryFor("gone"))
	ctx := context.Background()
	require.NoError(t, h.manager.Discover(ctx))

	_, err := h.manager.Enable(ctx, "gone")
	require.NoError(t, err)

	h.source.entries = nil
	require.NoError(t, h.manager.Discover(ctx))

	assert.Nil(t, h.manager.InstanceOf("gone"), "vanished extension shut down")
	_, err = h.manager.Enable(ctx, "gone")
	require.ErrorIs(t, err, ErrUnknownExtension)

	rec, findErr := h.repo.FindByID("gone")
	require.NoError(t, findErr, "registration record is never deleted")
	assert.False(t, rec.Enabled)
}

func TestDiscoverResolvesRequirementsSecondPass(t *testing.T) {
	// Dependent listed before its requirement; resolution still works.
	h := newHarness(t, entryFor("app", "dep"), entryFor("dep"))
	require.NoError(t, h.manager.Discover(context.Background()))

	desc := h.manager.Descriptor("app")
	require.NotNil(t, desc)
	require.Len(t, desc.ResolvedRequirements, 1)
	assert.Equal(t, "dep", desc.ResolvedRequirements[0].ID)
}

func TestDependentsOf(t *testing.T) {
	h := newHarness(t, entryFor("base"), entryFor("a", "base"), entryFor("b", "base"), entryFor("c"))
	require.NoError(t, h.manager.Discover(context.Background()))

	deps := h.manager.DependentsOf("base")
	assert.ElementsMatch(t, []string{"a", "b"}, deps)
	assert.Empty(t, h.manager.DependentsOf("c"))
}

func TestEnableAddsAndDisableRemovesComponent(t *testing.T) {
	h := newHarness(t, entryFor("alpha"))
	ctx := context.Background()
	require.NoError(t, h.manager.Discover(ctx))

	_, err := h.manager.Enable(ctx, "alpha")
	require.NoError(t, err)
	assert.True(t, h.components.has("alpha"))
	flushesAfterEnable := h.cache.flushes
	assert.Positive(t, flushesAfterEnable)

	require.NoError(t, h.manager.Disable(ctx, "alpha"))
	assert.False(t, h.components.has("alpha"))
	assert.Greater(t, h.cache.flushes, flushesAfterEnable)
}

func TestShutdownHandlerRunsOnDisable(t *testing.T) {
	ext := &testExt{}
	entry := Entry{
		Seed:    Seed{ID: "alpha", Name: "alpha"},
		Factory: func() Extension { return ext },
	}
	h := newHarness(t, entry)
	ctx := context.Background()
	require.NoError(t, h.manager.Discover(ctx))

	_, err := h.manager.Enable(ctx, "alpha")
	require.NoError(t, err)
	require.NoError(t, h.manager.Disable(ctx, "alpha"))
	assert.Equal(t, 1, ext.shutdowns)
}

type fakeMigrator struct {
	applies int
	err     error
}

func (f *fakeMigrator) ApplyPendingChanges(ctx context.Context) error {
	f.applies++
	return f.err
}

type migratingExt struct {
	testExt
	migrator *fakeMigrator
}

func (e *migratingExt) SchemaMigrator() SchemaMigrator { return e.migrator }

func TestSchemaMigrationRunsOncePerInstall(t *testing.T) {
	mig := &fakeMigrator{}
	entry := Entry{
		Seed:    Seed{ID: "migrated", Name: "migrated"},
		Factory: func() Extension { return &migratingExt{migrator: mig} },
	}
	h := newHarness(t, entry)
	ctx := context.Background()
	require.NoError(t, h.manager.Discover(ctx))

	_, err := h.manager.Enable(ctx, "migrated")
	require.NoError(t, err)
	assert.Equal(t, 1, mig.applies)

	// Install is sticky: a disable/enable cycle must not re-migrate.
	require.NoError(t, h.manager.Disable(ctx, "migrated"))
	_, err = h.manager.Enable(ctx, "migrated")
	require.NoError(t, err)
	assert.Equal(t, 1, mig.applies)
}

func TestSchemaMigrationFailureAbortsEnable(t *testing.T) {
	mig := &fakeMigrator{err: errors.New("migration broke")}
	entry := Entry{
		Seed:    Seed{ID: "migrated", Name: "migrated"},
		Factory: func() Extension { return &migratingExt{migrator: mig} },
	}
	h := newHarness(t, entry)
	ctx := context.Background()
	require.NoError(t, h.manager.Discover(ctx))

	_, err := h.manager.Enable(ctx, "migrated")
	var installErr *InstallExtensionError
	require.ErrorAs(t, err, &installErr)

	rec, findErr := h.repo.FindByID("migrated")
	require.NoError(t, findErr)
	assert.False(t, rec.Installed)
	assert.False(t, rec.Enabled)
}

func TestManagerDirectory(t *testing.T) {
	before := len(Managers())
	key := fmt.Sprintf("dir-test-%d", before)

	m, err := NewManager(ManagerOptions{
		Key:        key,
		StaticRoot: t.TempDir(),
		Source:     &mutableSource{},
		Repository: newMemoryRepo(),
		Routes:     newFakeRoutes(),
		Components: newFakeComponents(),
		Cache:      &fakeCache{},
	})
	require.NoError(t, err)

	assert.Len(t, Managers(), before+1)
	assert.Same(t, m, ManagerByKey(key))
	assert.Nil(t, ManagerByKey("no-such-key"))
}

var _ pubsub.Subscriber[LifecycleEvent] = (*Broker)(nil)
