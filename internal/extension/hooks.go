package extension

import "sync"

// Hook is a capability contribution registered by a live extension
// instance. Each hook belongs to exactly one hook point and exactly one
// instance's owned set; Unregister removes it from both. Disabling an
// instance unregisters every hook it owns.
type Hook interface {
	// Instance returns the owning extension instance.
	Instance() *Instance

	// Unregister removes the hook from its hook point and from the
	// owning instance. Safe to call more than once.
	Unregister()
}

// HookPoint is the ordered collection of active hooks of one kind.
// Registration appends; removal is a scan. Hook points are process-wide,
// created once at startup and living for the process lifetime.
type HookPoint[H Hook] struct {
	mu    sync.RWMutex
	hooks []H
}

// NewHookPoint creates an empty hook point.
func NewHookPoint[H Hook]() *HookPoint[H] {
	return &HookPoint[H]{}
}

func (p *HookPoint[H]) register(h H) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = append(p.hooks, h)
}

func (p *HookPoint[H]) unregister(h H) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, existing := range p.hooks {
		if any(existing) == any(h) {
			p.hooks = append(p.hooks[:i], p.hooks[i+1:]...)
			return
		}
	}
}

// Active returns a snapshot of the currently registered hooks, in
// registration order.
func (p *HookPoint[H]) Active() []H {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]H, len(p.hooks))
	copy(out, p.hooks)
	return out
}

// Len returns the number of registered hooks.
func (p *HookPoint[H]) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.hooks)
}

// BaseHook carries the ownership plumbing shared by every hook kind.
// Concrete hooks embed it and call attach in their constructor.
type BaseHook struct {
	instance   *Instance
	unregister func()
}

// Instance returns the owning extension instance.
func (b *BaseHook) Instance() *Instance { return b.instance }

// Unregister removes the hook from its hook point and its owner.
func (b *BaseHook) Unregister() {
	if b.unregister == nil {
		return
	}
	fn := b.unregister
	b.unregister = nil
	fn()
}

// attach wires a freshly constructed hook into its hook point and its
// owning instance. Every concrete hook constructor calls this exactly
// once.
func attach[H Hook](point *HookPoint[H], hook H, base *BaseHook, instance *Instance) {
	base.instance = instance
	base.unregister = func() {
		point.unregister(hook)
		instance.removeHook(hook)
	}
	point.register(hook)
	instance.addHook(hook)
}
