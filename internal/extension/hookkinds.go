package extension

// Process-wide hook points, one per hook kind. Created at package init
// and living for the process lifetime.
var (
	NavigationHooks = NewHookPoint[*NavigationHook]()
	TemplateHooks   = NewHookPoint[*TemplateHook]()
	URLHooks        = NewHookPoint[*URLHook]()
)

// NavigationEntry is one item an extension contributes to the host's
// navigation.
type NavigationEntry struct {
	Label string
	URL   string
}

// NavigationHook contributes navigation entries while its owning
// extension is enabled.
type NavigationHook struct {
	BaseHook
	entries []NavigationEntry
}

// NewNavigationHook registers a navigation contribution owned by the
// given instance.
func NewNavigationHook(instance *Instance, entries ...NavigationEntry) *NavigationHook {
	h := &NavigationHook{entries: entries}
	attach(NavigationHooks, h, &h.BaseHook, instance)
	return h
}

// Entries returns the contributed navigation entries.
func (h *NavigationHook) Entries() []NavigationEntry { return h.entries }

// TemplateHook injects a named template at a host template point while
// its owning extension is enabled. Rendering is the host's concern; the
// hook only records the contribution.
type TemplateHook struct {
	BaseHook
	point        string
	templateName string
}

// NewTemplateHook registers a template contribution at the given point.
func NewTemplateHook(instance *Instance, point, templateName string) *TemplateHook {
	h := &TemplateHook{point: point, templateName: templateName}
	attach(TemplateHooks, h, &h.BaseHook, instance)
	return h
}

// Point returns the host template point the hook targets.
func (h *TemplateHook) Point() string { return h.point }

// TemplateName returns the template the hook injects.
func (h *TemplateHook) TemplateName() string { return h.templateName }

// TemplateHooksAt returns the active template hooks targeting the given
// point, in registration order.
func TemplateHooksAt(point string) []*TemplateHook {
	var out []*TemplateHook
	for _, h := range TemplateHooks.Active() {
		if h.point == point {
			out = append(out, h)
		}
	}
	return out
}

// URLHook mounts a route subtree through the host's routing bridge for
// the lifetime of its owning instance. Unregistering removes exactly the
// routes that were added.
type URLHook struct {
	BaseHook
	set    *RouteSet
	routes RouteInstaller
}

// NewURLHook mounts the route set under prefix and registers the hook.
// The routes come down again when the hook is unregistered or the owning
// extension is disabled.
func NewURLHook(instance *Instance, prefix string, set *RouteSet) (*URLHook, error) {
	installer := instance.manager.routes
	if err := installer.AddRoutes(prefix, set); err != nil {
		return nil, err
	}

	h := &URLHook{set: set, routes: installer}
	attach(URLHooks, h, &h.BaseHook, instance)
	return h, nil
}

// Unregister removes the mounted routes, then detaches the hook.
func (h *URLHook) Unregister() {
	if h.set != nil {
		h.routes.RemoveRoutes(h.set)
		h.set = nil
	}
	h.BaseHook.Unregister()
}
