package transform

import (
	"github.com/crossver/crossver/internal/model"
)

// AssignedVersion binds one address to the model version it runs at.
type AssignedVersion struct {
	Address model.PathAddress
	Version model.Version
}

// VersionAssignment maps addresses to concrete versions for one resolution:
// subtree merges use it to pick each subsystem's version, and Create uses it
// as per-address overrides of the target version.
type VersionAssignment []AssignedVersion

// Lookup returns the version assigned to address, if any.
func (a VersionAssignment) Lookup(address model.PathAddress) (model.Version, bool) {
	for _, av := range a {
		if av.Address.Equals(address) {
			return av.Version, true
		}
	}
	return model.Version{}, false
}

// With returns a new assignment with (address, version) appended.
func (a VersionAssignment) With(address model.PathAddress, version model.Version) VersionAssignment {
	out := make(VersionAssignment, 0, len(a)+1)
	out = append(out, a...)
	out = append(out, AssignedVersion{Address: address, Version: version})
	return out
}

// AddressTree is the versioned hierarchical registry engine. It stores
// per-version transformation strategies indexed by path address, and can be
// resolved into an immutable ResolvedRegistry for one concrete version
// assignment.
//
// Registration calls touching different addresses may run concurrently, and
// resolution may run concurrently with registration of unrelated subtrees.
// Absence of a registration at any (address, version) always means identity,
// never an error.
type AddressTree struct {
	root *transformNode
}

// NewAddressTree creates an empty tree.
func NewAddressTree() *AddressTree {
	return &AddressTree{root: newTransformNode()}
}

// walkCreate returns the node at address, creating missing intermediate
// nodes along the way.
func (t *AddressTree) walkCreate(address model.PathAddress) *transformNode {
	node := t.root
	for _, element := range address.Elements() {
		node = node.getOrCreateChild(element)
	}
	return node
}

// find returns the node at address, or false if any segment is missing.
func (t *AddressTree) find(address model.PathAddress) (*transformNode, bool) {
	node := t.root
	for _, element := range address.Elements() {
		child, ok := node.child(element)
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

// CreateChildRegistry stores resource (or identity, if nil) at address for
// version. placeholder marks the node as structural only; it is recorded for
// introspection and has no effect on lookup. Registering twice for the same
// (address, version) replaces the earlier strategy.
func (t *AddressTree) CreateChildRegistry(address model.PathAddress, version model.Version, resource ResourceTransformer, placeholder bool) {
	if resource == nil {
		resource = IdentityResource
	}
	t.walkCreate(address).setResource(version, resource, placeholder)
}

// GetChild returns the subtree rooted at address, or false if nothing has
// been registered there yet. Absence is not an error; it means "not yet
// registered". The returned tree shares nodes with the receiver, so it can
// be used to locate an existing mount point for further registration.
func (t *AddressTree) GetChild(address model.PathAddress) (*AddressTree, bool) {
	node, ok := t.find(address)
	if !ok {
		return nil, false
	}
	return &AddressTree{root: node}, true
}

// RegisterTransformer attaches an operation-specific strategy at address for
// (version, operationName). Operation strategies take precedence over the
// node's resource-level strategy for their operation name.
func (t *AddressTree) RegisterTransformer(address model.PathAddress, version model.Version, operationName string, transformer OperationTransformer) {
	t.walkCreate(address).setOperation(version, operationName, transformer)
}

// DiscardOperation marks (version, operationName) as discarded at address.
// Discard takes absolute precedence: resolution reports the operation as
// discarded even if a transformer is also registered for the same triple.
func (t *AddressTree) DiscardOperation(address model.PathAddress, version model.Version, operationName string) {
	t.walkCreate(address).addDiscard(version, operationName)
}

// Create resolves the whole tree into an immutable registry. Each node is
// materialized at its override version from assignment if present, else at
// targetVersion. Nodes with no registration at their effective version
// resolve to identity.
func (t *AddressTree) Create(targetVersion model.Version, assignment VersionAssignment) *ResolvedRegistry {
	reg := newResolvedRegistry()
	t.root.copyResolved(reg.root, model.EmptyAddress, targetVersion, assignment)
	return reg
}

// MergeSubtree copies registrations into target. For each (address, version)
// pair in assignment, the subtree rooted at that address in the receiver is
// resolved at that version and merged under mount+address in target. An
// address with no registration merges nothing: it resolves to identity.
//
// The merge is a value copy, not a live alias. Mutating the source tree
// afterwards does not change target, and merging the same pair twice is
// idempotent.
func (t *AddressTree) MergeSubtree(target *ResolvedRegistry, mount model.PathAddress, assignment VersionAssignment) {
	for _, av := range assignment {
		source, ok := t.find(av.Address)
		if !ok {
			continue
		}
		targetNode := target.walkCreate(mount.Concat(av.Address))
		source.copyResolved(targetNode, model.EmptyAddress, av.Version, nil)
	}
}
