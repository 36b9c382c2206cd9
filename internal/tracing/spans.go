package tracing

// Span attribute keys for extension lifecycle tracing.
const (
	AttrExtensionID     = "extension.id"
	AttrManagerKey      = "manager.key"
	AttrDiscoveredCount = "discover.count"
)

// Span names for consistent naming across the lifecycle.
const (
	SpanDiscover = "extension.discover"
	SpanEnable   = "extension.enable"
	SpanDisable  = "extension.disable"
)
