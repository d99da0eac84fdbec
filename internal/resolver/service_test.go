package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossver/crossver/internal/manifest"
	"github.com/crossver/crossver/internal/model"
	"github.com/crossver/crossver/internal/pubsub"
	"github.com/crossver/crossver/internal/transform"
)

func newWebTransformers(t *testing.T) *transform.DomainTransformers {
	t.Helper()
	dt := transform.NewDomainTransformers()
	err := manifest.Apply(dt, manifest.SubsystemFile{
		Subsystem: "web",
		Ranges: []manifest.RangeDef{{
			Versions:            []string{"1.1.0", "1.0.0"},
			DiscardedOperations: []string{"enable-statistics"},
		}},
	})
	require.NoError(t, err)
	return dt
}

func hostRequest() Request {
	return Request{
		Scope:    ScopeHost,
		Target:   model.NewVersion(2, 0, 0),
		Versions: map[string]string{"web": "1.1.0"},
	}
}

func TestResolve_Host(t *testing.T) {
	svc := NewService(newWebTransformers(t))
	defer svc.Close()

	snapshot, err := svc.Resolve(context.Background(), hostRequest())
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	webRoot := model.NewAddress(transform.ProfileElement, transform.SubsystemElement("web"))
	assert.True(t, snapshot.IsDiscarded(webRoot, "enable-statistics"))
}

func TestResolve_Server(t *testing.T) {
	svc := NewService(newWebTransformers(t))
	defer svc.Close()

	req := hostRequest()
	req.Scope = ScopeServer
	snapshot, err := svc.Resolve(context.Background(), req)
	require.NoError(t, err)

	webRoot := model.NewAddress(
		transform.HostElement, transform.ServerElement, transform.SubsystemElement("web"))
	assert.True(t, snapshot.IsDiscarded(webRoot, "enable-statistics"))
}

func TestResolve_CachesSnapshots(t *testing.T) {
	svc := NewService(newWebTransformers(t))
	defer svc.Close()

	first, err := svc.Resolve(context.Background(), hostRequest())
	require.NoError(t, err)
	second, err := svc.Resolve(context.Background(), hostRequest())
	require.NoError(t, err)

	assert.Same(t, first, second, "identical requests should hit the cache")
	assert.Equal(t, first.SnapshotID(), second.SnapshotID())
}

func TestResolve_DistinctRequestsDistinctSnapshots(t *testing.T) {
	svc := NewService(newWebTransformers(t))
	defer svc.Close()

	host, err := svc.Resolve(context.Background(), hostRequest())
	require.NoError(t, err)

	server := hostRequest()
	server.Scope = ScopeServer
	serverSnap, err := svc.Resolve(context.Background(), server)
	require.NoError(t, err)

	assert.NotEqual(t, host.SnapshotID(), serverSnap.SnapshotID())
}

func TestResolve_UnknownVersionFails(t *testing.T) {
	svc := NewService(newWebTransformers(t))
	defer svc.Close()

	req := hostRequest()
	req.Versions = map[string]string{"web": "not-a-version"}
	_, err := svc.Resolve(context.Background(), req)
	require.Error(t, err)
}

func TestResolve_UnknownScope(t *testing.T) {
	svc := NewService(newWebTransformers(t))
	defer svc.Close()

	req := hostRequest()
	req.Scope = Scope("domain")
	_, err := svc.Resolve(context.Background(), req)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown resolution scope")
}

func TestResolve_PublishesResolvedEvent(t *testing.T) {
	svc := NewService(newWebTransformers(t))
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := svc.Subscribe(ctx)

	snapshot, err := svc.Resolve(context.Background(), hostRequest())
	require.NoError(t, err)

	select {
	case event := <-events:
		assert.Equal(t, pubsub.ResolvedEvent, event.Type)
		assert.Equal(t, snapshot.SnapshotID(), event.Payload.SnapshotID)
		assert.Equal(t, ScopeHost, event.Payload.Scope)
		assert.Equal(t, "2.0.0", event.Payload.Target)
		assert.Equal(t, 1, event.Payload.Subsystems)
	case <-time.After(time.Second):
		t.Fatal("expected a resolved event")
	}

	// Cache hits do not re-announce
	_, err = svc.Resolve(context.Background(), hostRequest())
	require.NoError(t, err)
	select {
	case event := <-events:
		t.Fatalf("unexpected event on cache hit: %v", event.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMount_LateSubsystem(t *testing.T) {
	dt := newWebTransformers(t)
	require.NoError(t, manifest.Apply(dt, manifest.SubsystemFile{
		Subsystem: "datasources",
		Ranges: []manifest.RangeDef{{
			Versions:            []string{"1.0.0"},
			DiscardedOperations: []string{"test-connection-in-pool"},
		}},
	}))

	svc := NewService(dt)
	defer svc.Close()

	snapshot, err := svc.Resolve(context.Background(), hostRequest())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := svc.Subscribe(ctx)

	err = svc.Mount(context.Background(), snapshot, "datasources", model.NewVersion(1, 0, 0))
	require.NoError(t, err)

	dsRoot := model.NewAddress(transform.ProfileElement, transform.SubsystemElement("datasources"))
	assert.True(t, snapshot.IsDiscarded(dsRoot, "test-connection-in-pool"),
		"mounted subsystem registrations should be visible in the snapshot")

	select {
	case event := <-events:
		assert.Equal(t, pubsub.MountedEvent, event.Type)
		assert.Equal(t, "datasources", event.Payload.Subsystem)
		assert.Equal(t, snapshot.SnapshotID(), event.Payload.SnapshotID)
	case <-time.After(time.Second):
		t.Fatal("expected a mounted event")
	}
}

func TestMount_ServerSnapshotFails(t *testing.T) {
	svc := NewService(newWebTransformers(t))
	defer svc.Close()

	req := hostRequest()
	req.Scope = ScopeServer
	snapshot, err := svc.Resolve(context.Background(), req)
	require.NoError(t, err)

	err = svc.Mount(context.Background(), snapshot, "web", model.NewVersion(1, 1, 0))
	require.ErrorIs(t, err, transform.ErrProfileNotMounted,
		"server snapshots have no profile mount point")
}

func TestReload_SwapsRegistrationsAndFlushes(t *testing.T) {
	svc := NewService(newWebTransformers(t))
	defer svc.Close()

	before, err := svc.Resolve(context.Background(), hostRequest())
	require.NoError(t, err)

	// New manifests without the discard
	err = svc.Reload(context.Background(), []manifest.SubsystemFile{{
		Subsystem: "web",
		Ranges:    []manifest.RangeDef{{Versions: []string{"1.1.0"}}},
	}})
	require.NoError(t, err)

	after, err := svc.Resolve(context.Background(), hostRequest())
	require.NoError(t, err)

	assert.NotEqual(t, before.SnapshotID(), after.SnapshotID(), "reload should drop cached snapshots")

	webRoot := model.NewAddress(transform.ProfileElement, transform.SubsystemElement("web"))
	assert.True(t, before.IsDiscarded(webRoot, "enable-statistics"))
	assert.False(t, after.IsDiscarded(webRoot, "enable-statistics"))
}

func TestReload_BadManifestLeavesServiceIntact(t *testing.T) {
	svc := NewService(newWebTransformers(t))
	defer svc.Close()

	err := svc.Reload(context.Background(), []manifest.SubsystemFile{{
		Subsystem: "web",
		Ranges:    []manifest.RangeDef{{Versions: []string{"bogus"}}},
	}})
	require.Error(t, err)

	// Old registrations still resolve
	_, err = svc.Resolve(context.Background(), hostRequest())
	require.NoError(t, err)
}

func TestInvalidate_DropsCache(t *testing.T) {
	svc := NewService(newWebTransformers(t))
	defer svc.Close()

	before, err := svc.Resolve(context.Background(), hostRequest())
	require.NoError(t, err)

	require.NoError(t, svc.Invalidate(context.Background()))

	after, err := svc.Resolve(context.Background(), hostRequest())
	require.NoError(t, err)
	assert.NotEqual(t, before.SnapshotID(), after.SnapshotID())
}

func TestWithCacheBypass(t *testing.T) {
	svc := NewService(newWebTransformers(t), WithCacheBypass())
	defer svc.Close()

	first, err := svc.Resolve(context.Background(), hostRequest())
	require.NoError(t, err)
	second, err := svc.Resolve(context.Background(), hostRequest())
	require.NoError(t, err)

	assert.NotEqual(t, first.SnapshotID(), second.SnapshotID(),
		"bypass mode should materialize a fresh snapshot every time")
}

func TestKeyFor_Deterministic(t *testing.T) {
	a := keyFor(Request{
		Scope:    ScopeHost,
		Target:   model.NewVersion(2, 0, 0),
		Versions: map[string]string{"web": "1.1.0", "datasources": "1.0.0"},
	})
	b := keyFor(Request{
		Scope:    ScopeHost,
		Target:   model.NewVersion(2, 0, 0),
		Versions: map[string]string{"datasources": "1.0.0", "web": "1.1.0"},
	})
	assert.Equal(t, a, b)
	assert.Equal(t, ResolutionKey("host|2.0.0|datasources=1.0.0,web=1.1.0"), a)
}
