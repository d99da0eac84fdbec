package tracing

// Span attribute keys for resolution tracing.
// These constants define the semantic conventions for span attributes
// in the resolution pipeline.
const (
	// Registry attributes
	AttrSnapshotID    = "registry.snapshot.id"
	AttrTargetVersion = "registry.target.version"

	// Subsystem attributes
	AttrSubsystemCount   = "subsystem.count"
	AttrSubsystemName    = "subsystem.name"
	AttrSubsystemVersion = "subsystem.version"

	// Resolution attributes
	AttrResolutionScope = "resolution.scope"
	AttrCacheHit        = "resolution.cache_hit"
	AttrMountAddress    = "resolution.mount"

	// Manifest attributes
	AttrManifestPath = "manifest.path"

	// Error attributes
	AttrErrorMessage = "error.message"
	AttrErrorType    = "error.type"
)

// Span names for consistent naming across the pipeline.
const (
	SpanResolveHost   = "resolve.host"
	SpanResolveServer = "resolve.server"
	SpanMergeSubtree  = "resolve.merge"
	SpanLoadManifest  = "manifest.load"
)

// Event names for span events.
const (
	EventVersionsResolved = "versions.resolved"
	EventSubsystemMounted = "subsystem.mounted"
	EventCacheHit         = "cache.hit"
	EventCacheMiss        = "cache.miss"
	EventErrorOccurred    = "error.occurred"
)
