// Package transform implements the versioned, hierarchical transformer
// registry that lets a management domain run mixed model versions: an
// address-indexed tree of per-version transformation strategies, resolution
// of that tree into immutable per-request snapshots, and the registration
// facade and builder used by subsystem bootstrap code.
package transform

import (
	"context"

	"github.com/crossver/crossver/internal/model"
)

// ResourceTransformer rewrites whole-resource data across a version
// boundary. Strategies are opaque to the registry: it stores them per
// (address, version) and hands them back at resolution time without
// inspecting the payload.
type ResourceTransformer interface {
	TransformResource(ctx context.Context, address model.PathAddress, resource any) (any, error)
}

// ResourceTransformerFunc adapts a function to the ResourceTransformer
// interface.
type ResourceTransformerFunc func(ctx context.Context, address model.PathAddress, resource any) (any, error)

// TransformResource implements ResourceTransformer.
func (f ResourceTransformerFunc) TransformResource(ctx context.Context, address model.PathAddress, resource any) (any, error) {
	return f(ctx, address, resource)
}

// OperationTransformer rewrites a single named management operation across a
// version boundary.
type OperationTransformer interface {
	TransformOperation(ctx context.Context, address model.PathAddress, operation any) (any, error)
}

// OperationTransformerFunc adapts a function to the OperationTransformer
// interface.
type OperationTransformerFunc func(ctx context.Context, address model.PathAddress, operation any) (any, error)

// TransformOperation implements OperationTransformer.
func (f OperationTransformerFunc) TransformOperation(ctx context.Context, address model.PathAddress, operation any) (any, error) {
	return f(ctx, address, operation)
}

// IdentityResource passes resource data through unchanged. It is the
// implicit strategy everywhere no explicit registration exists: crossing a
// version boundary needs no transform unless something more specific says
// otherwise.
var IdentityResource ResourceTransformer = identityResource{}

// IdentityOperation passes operations through unchanged.
var IdentityOperation OperationTransformer = identityOperation{}

type identityResource struct{}

func (identityResource) TransformResource(_ context.Context, _ model.PathAddress, resource any) (any, error) {
	return resource, nil
}

type identityOperation struct{}

func (identityOperation) TransformOperation(_ context.Context, _ model.PathAddress, operation any) (any, error) {
	return operation, nil
}
