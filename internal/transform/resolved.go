package transform

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/crossver/crossver/internal/model"
)

// entrySnapshot is the value-copied registration state of one node at its
// effective version.
type entrySnapshot struct {
	version     model.Version
	resource    ResourceTransformer
	hasResource bool
	placeholder bool
	operations  map[string]OperationTransformer
	discarded   map[string]struct{}
}

// resolvedNode is one node of a resolved registry. Nodes are written only
// while a merge is copying entries in; lookups take the read lock so a late
// AddSubsystem merge cannot race them.
type resolvedNode struct {
	mu       sync.RWMutex
	children map[model.PathElement]*resolvedNode
	entry    entrySnapshot
}

func newResolvedNode() *resolvedNode {
	return &resolvedNode{children: make(map[model.PathElement]*resolvedNode)}
}

func (n *resolvedNode) getOrCreateChild(element model.PathElement) *resolvedNode {
	n.mu.RLock()
	child, ok := n.children[element]
	n.mu.RUnlock()
	if ok {
		return child
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if child, ok := n.children[element]; ok {
		return child
	}
	child = newResolvedNode()
	n.children[element] = child
	return child
}

func (n *resolvedNode) child(element model.PathElement) (*resolvedNode, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	child, ok := n.children[element]
	return child, ok
}

// mergeEntry folds a snapshot into this node. A snapshot carrying a resource
// registration adopts its version and placeholder flag; operation strategies
// and discards accumulate. Merging the same snapshot twice leaves the node
// in the same state as merging it once.
func (n *resolvedNode) mergeEntry(snap entrySnapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if snap.hasResource || !n.entry.hasResource {
		n.entry.version = snap.version
	}
	if snap.hasResource {
		n.entry.resource = snap.resource
		n.entry.hasResource = true
		n.entry.placeholder = snap.placeholder
	}
	if len(snap.operations) > 0 {
		if n.entry.operations == nil {
			n.entry.operations = make(map[string]OperationTransformer, len(snap.operations))
		}
		for name, t := range snap.operations {
			n.entry.operations[name] = t
		}
	}
	if len(snap.discarded) > 0 {
		if n.entry.discarded == nil {
			n.entry.discarded = make(map[string]struct{}, len(snap.discarded))
		}
		for name := range snap.discarded {
			n.entry.discarded[name] = struct{}{}
		}
	}
}

// ResolvedRegistry is the immutable, flattened view of a tree for one
// concrete version assignment. Lookup is O(depth of address). The owner may
// still mount late-discovered subsystems into it through the facade; apart
// from that, a snapshot never changes after construction.
type ResolvedRegistry struct {
	id   uuid.UUID
	root *resolvedNode
}

func newResolvedRegistry() *ResolvedRegistry {
	return &ResolvedRegistry{id: uuid.New(), root: newResolvedNode()}
}

// SnapshotID identifies this snapshot in logs and traces.
func (r *ResolvedRegistry) SnapshotID() string {
	return r.id.String()
}

// node walks to the resolved node at address.
func (r *ResolvedRegistry) node(address model.PathAddress) (*resolvedNode, bool) {
	node := r.root
	for _, element := range address.Elements() {
		child, ok := node.child(element)
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

// walkCreate returns the node at address, creating missing nodes. Used by
// subtree merges.
func (r *ResolvedRegistry) walkCreate(address model.PathAddress) *resolvedNode {
	node := r.root
	for _, element := range address.Elements() {
		node = node.getOrCreateChild(element)
	}
	return node
}

// GetChild returns the registry subtree rooted at address, or false if no
// entry was resolved there. The child shares nodes with the receiver.
func (r *ResolvedRegistry) GetChild(address model.PathAddress) (*ResolvedRegistry, bool) {
	node, ok := r.node(address)
	if !ok {
		return nil, false
	}
	return &ResolvedRegistry{id: r.id, root: node}, true
}

// ResourceTransformerFor returns the resource-level strategy resolved at
// address. Addresses with no registration resolve to IdentityResource.
func (r *ResolvedRegistry) ResourceTransformerFor(address model.PathAddress) ResourceTransformer {
	node, ok := r.node(address)
	if !ok {
		return IdentityResource
	}
	node.mu.RLock()
	defer node.mu.RUnlock()
	if !node.entry.hasResource || node.entry.resource == nil {
		return IdentityResource
	}
	return node.entry.resource
}

// HasResourceTransformer reports whether an explicit (non-identity-default)
// resource registration was resolved at address.
func (r *ResolvedRegistry) HasResourceTransformer(address model.PathAddress) bool {
	node, ok := r.node(address)
	if !ok {
		return false
	}
	node.mu.RLock()
	defer node.mu.RUnlock()
	return node.entry.hasResource
}

// OperationTransformerFor returns the strategy for operationName at address.
// ok is false when no operation-specific strategy is registered; callers
// fall back to the resource-level strategy or identity. A discarded
// operation never yields a transformer.
func (r *ResolvedRegistry) OperationTransformerFor(address model.PathAddress, operationName string) (OperationTransformer, bool) {
	node, ok := r.node(address)
	if !ok {
		return nil, false
	}
	node.mu.RLock()
	defer node.mu.RUnlock()
	if _, discarded := node.entry.discarded[operationName]; discarded {
		return nil, false
	}
	t, ok := node.entry.operations[operationName]
	return t, ok
}

// IsDiscarded reports whether operationName is dropped at address rather
// than forwarded or transformed.
func (r *ResolvedRegistry) IsDiscarded(address model.PathAddress, operationName string) bool {
	node, ok := r.node(address)
	if !ok {
		return false
	}
	node.mu.RLock()
	defer node.mu.RUnlock()
	_, discarded := node.entry.discarded[operationName]
	return discarded
}

// EntryKind classifies a resolved entry for introspection.
type EntryKind string

const (
	// EntryKindIdentity marks a node with no registration at its effective
	// version.
	EntryKindIdentity EntryKind = "identity"
	// EntryKindStandard marks a concrete topology boundary registration.
	EntryKindStandard EntryKind = "standard"
	// EntryKindPlaceholder marks a structural-only registration whose
	// children were merged in later.
	EntryKindPlaceholder EntryKind = "placeholder"
)

// ResolvedEntry is the introspection view of one resolved node.
type ResolvedEntry struct {
	Version             model.Version
	Kind                EntryKind
	OperationNames      []string
	DiscardedOperations []string
}

// WalkEntries visits every resolved node depth-first in deterministic
// (address-sorted) order, reporting its introspection view.
func (r *ResolvedRegistry) WalkEntries(visit func(address model.PathAddress, entry ResolvedEntry)) {
	r.root.walk(model.EmptyAddress, visit)
}

func (n *resolvedNode) walk(address model.PathAddress, visit func(model.PathAddress, ResolvedEntry)) {
	n.mu.RLock()
	entry := ResolvedEntry{
		Version: n.entry.version,
		Kind:    EntryKindIdentity,
	}
	if n.entry.hasResource {
		entry.Kind = EntryKindStandard
		if n.entry.placeholder {
			entry.Kind = EntryKindPlaceholder
		}
	}
	for name := range n.entry.operations {
		entry.OperationNames = append(entry.OperationNames, name)
	}
	for name := range n.entry.discarded {
		entry.DiscardedOperations = append(entry.DiscardedOperations, name)
	}
	elements := make([]model.PathElement, 0, len(n.children))
	for element := range n.children {
		elements = append(elements, element)
	}
	n.mu.RUnlock()

	sort.Strings(entry.OperationNames)
	sort.Strings(entry.DiscardedOperations)
	visit(address, entry)

	sort.Slice(elements, func(i, j int) bool { return elements[i].String() < elements[j].String() })
	for _, element := range elements {
		if child, ok := n.child(element); ok {
			child.walk(address.Append(element), visit)
		}
	}
}
