// Package resolver exposes registry resolution as an application service:
// it memoizes resolved snapshots per (scope, target, subsystem set),
// traces resolution, and announces snapshot lifecycle over pubsub.
package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/crossver/crossver/internal/cachemanager"
	"github.com/crossver/crossver/internal/log"
	"github.com/crossver/crossver/internal/manifest"
	"github.com/crossver/crossver/internal/model"
	"github.com/crossver/crossver/internal/pubsub"
	"github.com/crossver/crossver/internal/tracing"
	"github.com/crossver/crossver/internal/transform"
)

// Scope selects which mount point a resolution targets.
type Scope string

const (
	ScopeHost   Scope = "host"
	ScopeServer Scope = "server"
)

// Request describes one resolution: the management model version being
// targeted and the subsystem versions the remote process reported.
type Request struct {
	Scope    Scope
	Target   model.Version
	Versions map[string]string
}

// ResolutionKey identifies a resolution in the snapshot cache.
type ResolutionKey string

// SnapshotEvent is published when snapshots are materialized or mutated.
type SnapshotEvent struct {
	SnapshotID string
	Scope      Scope
	Target     string
	Subsystems int
	Subsystem  string // set on mount events only
}

// Service resolves registries against the domain transformers, caching
// snapshots and publishing lifecycle events.
type Service struct {
	mu           sync.RWMutex
	transformers *transform.DomainTransformers

	manager *cachemanager.InMemoryCacheManager[ResolutionKey, *transform.ResolvedRegistry]
	cache   *cachemanager.ReadThroughCache[ResolutionKey, *transform.ResolvedRegistry, Request]
	broker  *pubsub.Broker[SnapshotEvent]
	tracer  trace.Tracer
	ttl     time.Duration
}

// Option configures a Service.
type Option func(*options)

type options struct {
	ttl             time.Duration
	cleanupInterval time.Duration
	tracer          trace.Tracer
	bypassCache     bool
}

// WithCacheTTL sets how long resolved snapshots stay cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithCleanupInterval sets how often expired snapshots are evicted.
func WithCleanupInterval(interval time.Duration) Option {
	return func(o *options) { o.cleanupInterval = interval }
}

// WithTracer attaches a tracer; without it resolution runs untraced.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// WithCacheBypass disables memoization so every resolution observes the
// latest registrations. Used when manifests are edited interactively.
func WithCacheBypass() Option {
	return func(o *options) { o.bypassCache = true }
}

// NewService creates a resolution service over the given transformers.
func NewService(transformers *transform.DomainTransformers, opts ...Option) *Service {
	o := options{
		ttl:             5 * time.Minute,
		cleanupInterval: 10 * time.Minute,
		tracer:          noop.NewTracerProvider().Tracer("noop"),
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Service{
		transformers: transformers,
		broker:       pubsub.NewBroker[SnapshotEvent](),
		tracer:       o.tracer,
		ttl:          o.ttl,
	}
	s.manager = cachemanager.NewInMemoryCacheManager[ResolutionKey, *transform.ResolvedRegistry](
		"resolution", o.ttl, o.cleanupInterval)
	s.cache = cachemanager.NewReadThroughCache[ResolutionKey, *transform.ResolvedRegistry, Request](
		s.manager, s.resolve, o.bypassCache)
	return s
}

// Resolve returns the snapshot for the request, materializing it on a
// cache miss.
func (s *Service) Resolve(ctx context.Context, req Request) (*transform.ResolvedRegistry, error) {
	spanName := tracing.SpanResolveHost
	if req.Scope == ScopeServer {
		spanName = tracing.SpanResolveServer
	}
	ctx, span := s.tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	span.SetAttributes(
		attribute.String(tracing.AttrTargetVersion, req.Target.String()),
		attribute.String(tracing.AttrResolutionScope, string(req.Scope)),
		attribute.Int(tracing.AttrSubsystemCount, len(req.Versions)),
	)

	key := keyFor(req)
	if cached, ok := s.manager.Get(ctx, key); ok {
		span.AddEvent(tracing.EventCacheHit)
		span.SetAttributes(
			attribute.Bool(tracing.AttrCacheHit, true),
			attribute.String(tracing.AttrSnapshotID, cached.SnapshotID()),
		)
		span.SetStatus(codes.Ok, "")
		return cached, nil
	}
	span.AddEvent(tracing.EventCacheMiss)
	span.SetAttributes(attribute.Bool(tracing.AttrCacheHit, false))

	snapshot, err := s.cache.Get(ctx, key, req, s.ttl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String(tracing.AttrSnapshotID, snapshot.SnapshotID()))
	span.SetStatus(codes.Ok, "")
	return snapshot, nil
}

// resolve is the cache loader. It performs the actual resolution and
// publishes the resolved event.
func (s *Service) resolve(ctx context.Context, req Request) (*transform.ResolvedRegistry, error) {
	s.mu.RLock()
	transformers := s.transformers
	s.mu.RUnlock()
	if transformers == nil {
		return nil, fmt.Errorf("no transformer registrations loaded")
	}

	var (
		snapshot *transform.ResolvedRegistry
		err      error
	)
	switch req.Scope {
	case ScopeServer:
		snapshot, err = transformers.ResolveServer(req.Target, req.Versions)
	case ScopeHost:
		snapshot, err = transformers.ResolveHost(req.Target, req.Versions)
	default:
		return nil, fmt.Errorf("unknown resolution scope %q", req.Scope)
	}
	if err != nil {
		log.ErrorErr(log.CatResolve, "Resolution failed", err,
			"scope", string(req.Scope), "target", req.Target.String())
		return nil, err
	}

	log.Info(log.CatResolve, "Resolved registry snapshot",
		"scope", string(req.Scope),
		"target", req.Target.String(),
		"snapshot_id", snapshot.SnapshotID(),
		"subsystems", len(req.Versions))

	s.broker.Publish(pubsub.ResolvedEvent, SnapshotEvent{
		SnapshotID: snapshot.SnapshotID(),
		Scope:      req.Scope,
		Target:     req.Target.String(),
		Subsystems: len(req.Versions),
	})
	return snapshot, nil
}

// Mount adds a late-registered subsystem to an already resolved host
// snapshot and announces the mutation.
func (s *Service) Mount(ctx context.Context, snapshot *transform.ResolvedRegistry, name string, version model.Version) error {
	_, span := s.tracer.Start(ctx, tracing.SpanMergeSubtree, trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	span.SetAttributes(
		attribute.String(tracing.AttrSnapshotID, snapshot.SnapshotID()),
		attribute.String(tracing.AttrSubsystemName, name),
		attribute.String(tracing.AttrSubsystemVersion, version.String()),
	)

	s.mu.RLock()
	transformers := s.transformers
	s.mu.RUnlock()
	if transformers == nil {
		return fmt.Errorf("no transformer registrations loaded")
	}

	if err := transformers.AddSubsystem(snapshot, name, version); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.AddEvent(tracing.EventSubsystemMounted)
	span.SetStatus(codes.Ok, "")

	log.Info(log.CatResolve, "Mounted subsystem into snapshot",
		"snapshot_id", snapshot.SnapshotID(), "subsystem", name, "version", version.String())

	s.broker.Publish(pubsub.MountedEvent, SnapshotEvent{
		SnapshotID: snapshot.SnapshotID(),
		Subsystem:  name,
		Target:     version.String(),
	})
	return nil
}

// Reload replaces the transformer registrations with the given manifests
// and drops every cached snapshot. Resolutions in flight keep the
// snapshots they already hold.
func (s *Service) Reload(ctx context.Context, files []manifest.SubsystemFile) error {
	transformers := transform.NewDomainTransformers()
	if err := manifest.ApplyAll(transformers, files); err != nil {
		return fmt.Errorf("apply manifests: %w", err)
	}

	s.mu.Lock()
	s.transformers = transformers
	s.mu.Unlock()

	if err := s.cache.Flush(ctx); err != nil {
		return fmt.Errorf("flush snapshot cache: %w", err)
	}

	log.Info(log.CatResolve, "Reloaded transformer registrations", "manifests", len(files))
	return nil
}

// Invalidate drops every cached snapshot without touching registrations.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Flush(ctx)
}

// Transformers returns the live domain transformers.
func (s *Service) Transformers() *transform.DomainTransformers {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transformers
}

// Subscribe returns a channel of snapshot lifecycle events. The channel
// closes when the context is cancelled.
func (s *Service) Subscribe(ctx context.Context) <-chan pubsub.Event[SnapshotEvent] {
	return s.broker.Subscribe(ctx)
}

// Close tears down the event broker.
func (s *Service) Close() {
	s.broker.Close()
}

// keyFor builds the deterministic cache key for a request: scope, target
// and the sorted subsystem assignments.
func keyFor(req Request) ResolutionKey {
	names := make([]string, 0, len(req.Versions))
	for name := range req.Versions {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(string(req.Scope))
	b.WriteByte('|')
	b.WriteString(req.Target.String())
	b.WriteByte('|')
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(req.Versions[name])
	}
	return ResolutionKey(b.String())
}
