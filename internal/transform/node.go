package transform

import (
	"sync"

	"github.com/crossver/crossver/internal/model"
)

// versionEntry holds everything registered at one (address, version):
// an optional resource-level strategy, per-operation strategies, and the
// set of discarded operation names.
type versionEntry struct {
	resource    ResourceTransformer
	hasResource bool
	placeholder bool
	operations  map[string]OperationTransformer
	discarded   map[string]struct{}
}

// transformNode is one node of the registration tree. Each node carries its
// own lock so registrations on disjoint addresses never contend, and racing
// creators of the same child converge on a single shared node.
type transformNode struct {
	mu       sync.RWMutex
	children map[model.PathElement]*transformNode
	entries  map[model.Version]*versionEntry
}

func newTransformNode() *transformNode {
	return &transformNode{
		children: make(map[model.PathElement]*transformNode),
		entries:  make(map[model.Version]*versionEntry),
	}
}

// getOrCreateChild returns the child for element, creating it if missing.
// First writer creates; later writers attach to the existing node.
func (n *transformNode) getOrCreateChild(element model.PathElement) *transformNode {
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
	child = newTransformNode()
	n.children[element] = child
	return child
}

// child returns the child for element, or false if none exists.
func (n *transformNode) child(element model.PathElement) (*transformNode, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	child, ok := n.children[element]
	return child, ok
}

// entryFor returns the entry for version, creating it if missing.
// Callers must hold n.mu.
func (n *transformNode) entryFor(version model.Version) *versionEntry {
	entry, ok := n.entries[version]
	if !ok {
		entry = &versionEntry{}
		n.entries[version] = entry
	}
	return entry
}

// setResource stores the resource-level strategy for version. A later
// registration for the same (address, version) replaces the earlier one.
func (n *transformNode) setResource(version model.Version, t ResourceTransformer, placeholder bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	entry := n.entryFor(version)
	entry.resource = t
	entry.hasResource = true
	entry.placeholder = placeholder
}

// setOperation stores the strategy for (version, operationName).
func (n *transformNode) setOperation(version model.Version, operationName string, t OperationTransformer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	entry := n.entryFor(version)
	if entry.operations == nil {
		entry.operations = make(map[string]OperationTransformer)
	}
	entry.operations[operationName] = t
}

// addDiscard marks (version, operationName) as discarded.
func (n *transformNode) addDiscard(version model.Version, operationName string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	entry := n.entryFor(version)
	if entry.discarded == nil {
		entry.discarded = make(map[string]struct{})
	}
	entry.discarded[operationName] = struct{}{}
}

// snapshotEntry returns a value copy of the entry for version. An address
// with no registration at that version yields an empty snapshot, which
// resolves to identity.
func (n *transformNode) snapshotEntry(version model.Version) entrySnapshot {
	n.mu.RLock()
	defer n.mu.RUnlock()

	snap := entrySnapshot{version: version}
	entry, ok := n.entries[version]
	if !ok {
		return snap
	}

	snap.resource = entry.resource
	snap.hasResource = entry.hasResource
	snap.placeholder = entry.placeholder
	if len(entry.operations) > 0 {
		snap.operations = make(map[string]OperationTransformer, len(entry.operations))
		for name, t := range entry.operations {
			snap.operations[name] = t
		}
	}
	if len(entry.discarded) > 0 {
		snap.discarded = make(map[string]struct{}, len(entry.discarded))
		for name := range entry.discarded {
			snap.discarded[name] = struct{}{}
		}
	}
	return snap
}

// snapshotChildren returns the current child set without holding the lock
// past the copy, so a resolve never blocks registration of unrelated
// subtrees for the duration of a full walk.
func (n *transformNode) snapshotChildren() map[model.PathElement]*transformNode {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make(map[model.PathElement]*transformNode, len(n.children))
	for element, child := range n.children {
		out[element] = child
	}
	return out
}

// copyResolved resolves this node and its descendants into target. The
// effective version for each node is its override if one is assigned, else
// targetVersion. All copies are by value; later mutation of the source tree
// does not reach the target.
func (n *transformNode) copyResolved(target *resolvedNode, address model.PathAddress, targetVersion model.Version, overrides VersionAssignment) {
	effective := targetVersion
	if v, ok := overrides.Lookup(address); ok {
		effective = v
	}
	target.mergeEntry(n.snapshotEntry(effective))

	for element, child := range n.snapshotChildren() {
		child.copyResolved(target.getOrCreateChild(element), address.Append(element), targetVersion, overrides)
	}
}
