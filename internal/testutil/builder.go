// Package testutil builds populated domain transformer fixtures for tests.
package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crossver/crossver/internal/model"
	"github.com/crossver/crossver/internal/transform"
)

// Builder accumulates subsystem topologies and registers them in order.
type Builder struct {
	t          *testing.T
	subsystems []subsystemData
}

// NewBuilder creates a fixture builder for the given test.
func NewBuilder(t *testing.T) *Builder {
	t.Helper()
	return &Builder{t: t}
}

// WithSubsystem adds a subsystem registration with optional configuration.
func (b *Builder) WithSubsystem(name string, opts ...SubsystemOption) *Builder {
	sub := defaultSubsystem(name)
	for _, opt := range opts {
		opt(&sub)
	}
	b.subsystems = append(b.subsystems, sub)
	return b
}

// Build registers all accumulated subsystems into fresh domain transformers.
func (b *Builder) Build() *transform.DomainTransformers {
	b.t.Helper()
	dt := transform.NewDomainTransformers()
	b.BuildInto(dt)
	return dt
}

// BuildInto registers all accumulated subsystems into existing transformers.
func (b *Builder) BuildInto(dt *transform.DomainTransformers) {
	b.t.Helper()
	for _, sub := range b.subsystems {
		b.register(dt, sub)
	}
}

func (b *Builder) register(dt *transform.DomainTransformers, sub subsystemData) {
	b.t.Helper()

	versions := make([]model.Version, 0, len(sub.versions))
	for _, text := range sub.versions {
		version, err := model.ParseVersion(text)
		require.NoError(b.t, err, "subsystem %s: bad version %q", sub.name, text)
		versions = append(versions, version)
	}
	require.NotEmpty(b.t, versions, "subsystem %s: no versions", sub.name)

	reg := dt.RegisterSubsystemTransformers(sub.name, model.NewVersionRange(versions...), sub.transformer)
	reg.DiscardOperations(sub.discards...)
	for name, op := range sub.operations {
		reg.RegisterOperationTransformer(name, op)
	}
	for _, res := range sub.resources {
		b.registerResource(reg, res)
	}
}

func (b *Builder) registerResource(reg transform.SubRegistration, res resourceData) {
	b.t.Helper()

	element := b.parseElement(res.path)
	var opts []transform.SubResourceOption
	if res.transformer != nil {
		opts = append(opts, transform.WithResourceTransformer(res.transformer))
	}

	child := reg.RegisterSubResource(element, opts...)
	child.DiscardOperations(res.discards...)
	for name, op := range res.operations {
		child.RegisterOperationTransformer(name, op)
	}
	for _, nested := range res.children {
		b.registerResource(child, nested)
	}
}

func (b *Builder) parseElement(path string) model.PathElement {
	b.t.Helper()
	key, value, found := strings.Cut(path, "=")
	require.True(b.t, found && key != "" && value != "", "bad resource path %q", path)
	if value == model.WildcardValue {
		return model.NewWildcardElement(key)
	}
	return model.NewElement(key, value)
}
