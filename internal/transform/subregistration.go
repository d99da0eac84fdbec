package transform

import (
	"github.com/crossver/crossver/internal/model"
)

// SubRegistration is a fluent registration scope over one tree: a version
// range, the tree being written, and the current address. It is an immutable
// value; every call fans out over the whole range and returns a fresh
// builder, so independently obtained builders over the same tree are safe to
// use concurrently.
type SubRegistration struct {
	rng     model.VersionRange
	tree    *AddressTree
	current model.PathAddress
}

// SubResourceOption configures one RegisterSubResource call.
type SubResourceOption func(*subResourceConfig)

type subResourceConfig struct {
	resource ResourceTransformer
}

// WithResourceTransformer registers an explicit resource-level strategy for
// the sub-resource instead of identity.
func WithResourceTransformer(t ResourceTransformer) SubResourceOption {
	return func(c *subResourceConfig) { c.resource = t }
}

// Address returns the address this builder registers under.
func (s SubRegistration) Address() model.PathAddress {
	return s.current
}

// Range returns the version range this builder fans out over.
func (s SubRegistration) Range() model.VersionRange {
	return s.rng
}

// RegisterSubResource registers the child resource at current+element for
// every version in the range, with identity unless an explicit transformer
// option is given, and returns a builder scoped to the child.
func (s SubRegistration) RegisterSubResource(element model.PathElement, opts ...SubResourceOption) SubRegistration {
	var cfg subResourceConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	address := s.current.Append(element)
	for _, version := range s.rng.Versions() {
		s.tree.CreateChildRegistry(address, version, cfg.resource, false)
	}
	return SubRegistration{rng: s.rng, tree: s.tree, current: address}
}

// DiscardOperations marks every named operation as discarded at the current
// address for every version in the range.
func (s SubRegistration) DiscardOperations(operationNames ...string) {
	for _, version := range s.rng.Versions() {
		for _, name := range operationNames {
			s.tree.DiscardOperation(s.current, version, name)
		}
	}
}

// RegisterOperationTransformer attaches an operation-specific strategy at
// the current address for every version in the range.
func (s SubRegistration) RegisterOperationTransformer(operationName string, transformer OperationTransformer) {
	for _, version := range s.rng.Versions() {
		s.tree.RegisterTransformer(s.current, version, operationName, transformer)
	}
}
