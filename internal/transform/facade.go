package transform

import (
	"errors"
	"fmt"
	"sort"

	"github.com/crossver/crossver/internal/model"
)

// Path element keys of the management topology.
const (
	KeyProfile   = "profile"
	KeyHost      = "host"
	KeyServer    = "running-server"
	KeySubsystem = "subsystem"
)

// Wildcard elements for the topology boundaries crossed by every managed
// node.
var (
	ProfileElement = model.NewWildcardElement(KeyProfile)
	HostElement    = model.NewWildcardElement(KeyHost)
	ServerElement  = model.NewWildcardElement(KeyServer)
)

// SubsystemElement addresses the registration of one named subsystem.
func SubsystemElement(name string) model.PathElement {
	return model.NewElement(KeySubsystem, name)
}

// ErrProfileNotMounted reports an AddSubsystem call against a registry that
// was never resolved with a profile mount. That is a bootstrap-ordering bug
// in the caller, not user input.
var ErrProfileNotMounted = errors.New("profile registration not mounted")

// DomainTransformers owns the two top-level registration trees: the domain
// tree describing the profile/host/server topology, and the subsystem tree
// keyed purely by subsystem name, independent of where a subsystem is
// mounted. One instance exists per process and is passed explicitly to all
// registration and resolution callers; there is no global singleton.
type DomainTransformers struct {
	domain    *AddressTree
	subsystem *AddressTree
}

// NewDomainTransformers creates the facade and seeds the domain tree with
// identity entries at version 0.0.0 for the profile root, host root, and
// host/server root: crossing these boundaries needs no transform unless a
// more specific registration is added later. The subsystem tree starts
// empty; its entries exist only once a subsystem registers explicitly.
func NewDomainTransformers() *DomainTransformers {
	d := &DomainTransformers{
		domain:    NewAddressTree(),
		subsystem: NewAddressTree(),
	}

	baseline := model.Version{}
	d.domain.CreateChildRegistry(model.NewAddress(ProfileElement), baseline, IdentityResource, false)
	d.domain.CreateChildRegistry(model.NewAddress(HostElement), baseline, IdentityResource, false)
	d.domain.CreateChildRegistry(model.NewAddress(HostElement, ServerElement), baseline, IdentityResource, false)
	return d
}

// RegisterSubsystemTransformers registers transformer for subsystem name
// across every version in the range, and returns a builder rooted at
// [subsystem=name] for nested per-resource registrations.
func (d *DomainTransformers) RegisterSubsystemTransformers(name string, rng model.VersionRange, transformer ResourceTransformer) SubRegistration {
	address := model.NewAddress(SubsystemElement(name))
	for _, version := range rng.Versions() {
		d.subsystem.CreateChildRegistry(address, version, transformer, true)
	}
	return SubRegistration{rng: rng, tree: d.subsystem, current: address}
}

// DomainRegistration returns a builder rooted at the domain tree root for
// the given range.
func (d *DomainTransformers) DomainRegistration(rng model.VersionRange) SubRegistration {
	return SubRegistration{rng: rng, tree: d.domain, current: model.EmptyAddress}
}

// HostRegistration returns a builder rooted at [host=*].
func (d *DomainTransformers) HostRegistration(rng model.VersionRange) SubRegistration {
	return SubRegistration{rng: rng, tree: d.domain, current: model.NewAddress(HostElement)}
}

// ServerRegistration returns a builder rooted at [host=*, running-server=*].
func (d *DomainTransformers) ServerRegistration(rng model.VersionRange) SubRegistration {
	return SubRegistration{rng: rng, tree: d.domain, current: model.NewAddress(HostElement, ServerElement)}
}

// ResolveHost materializes the domain tree at targetVersion and mounts each
// discovered subsystem's registrations under [profile=*] at the subsystem's
// own version. subsystemVersions maps subsystem name to version text; a
// malformed version aborts the call without touching either tree.
func (d *DomainTransformers) ResolveHost(targetVersion model.Version, subsystemVersions map[string]string) (*ResolvedRegistry, error) {
	assignment, err := d.ResolveVersions(subsystemVersions)
	if err != nil {
		return nil, err
	}
	reg := d.domain.Create(targetVersion, nil)
	d.subsystem.MergeSubtree(reg, model.NewAddress(ProfileElement), assignment)
	return reg, nil
}

// ResolveServer is ResolveHost for a managed server, which exposes its
// subsystems directly under [host=*, running-server=*] rather than through a
// named profile.
func (d *DomainTransformers) ResolveServer(targetVersion model.Version, subsystemVersions map[string]string) (*ResolvedRegistry, error) {
	assignment, err := d.ResolveVersions(subsystemVersions)
	if err != nil {
		return nil, err
	}
	reg := d.domain.Create(targetVersion, nil)
	d.subsystem.MergeSubtree(reg, model.NewAddress(HostElement, ServerElement), assignment)
	return reg, nil
}

// AddSubsystem mounts one late-discovered subsystem at version into an
// already-resolved host registry. The profile child must exist; its absence
// means the registry was not produced by ResolveHost and the surrounding
// wiring is broken.
func (d *DomainTransformers) AddSubsystem(reg *ResolvedRegistry, name string, version model.Version) error {
	profile, ok := reg.GetChild(model.NewAddress(ProfileElement))
	if !ok {
		return fmt.Errorf("%w: cannot add subsystem %q", ErrProfileNotMounted, name)
	}
	assignment := VersionAssignment{{Address: model.NewAddress(SubsystemElement(name)), Version: version}}
	d.subsystem.MergeSubtree(profile, model.EmptyAddress, assignment)
	return nil
}

// ResolveVersions parses a subsystem-name to version-text record into a
// version assignment keyed by [subsystem=name]. Names are processed in
// sorted order so assignments are deterministic. A malformed version text
// fails the whole call with the underlying *model.FormatError.
func (d *DomainTransformers) ResolveVersions(subsystemVersions map[string]string) (VersionAssignment, error) {
	names := make([]string, 0, len(subsystemVersions))
	for name := range subsystemVersions {
		names = append(names, name)
	}
	sort.Strings(names)

	assignment := make(VersionAssignment, 0, len(names))
	for _, name := range names {
		version, err := model.ParseVersion(subsystemVersions[name])
		if err != nil {
			return nil, fmt.Errorf("subsystem %q: %w", name, err)
		}
		assignment = append(assignment, AssignedVersion{
			Address: model.NewAddress(SubsystemElement(name)),
			Version: version,
		})
	}
	return assignment, nil
}

// SubsystemNames returns the names of all subsystems with at least one
// registration, sorted. Used by introspection surfaces.
func (d *DomainTransformers) SubsystemNames() []string {
	var names []string
	for element := range d.subsystem.root.snapshotChildren() {
		if element.Key() == KeySubsystem {
			names = append(names, element.Value())
		}
	}
	sort.Strings(names)
	return names
}

// SubsystemVersions returns the sorted versions carrying registrations for
// the named subsystem. The empty slice means the subsystem never registered.
func (d *DomainTransformers) SubsystemVersions(name string) []model.Version {
	node, ok := d.subsystem.find(model.NewAddress(SubsystemElement(name)))
	if !ok {
		return nil
	}
	node.mu.RLock()
	versions := make([]model.Version, 0, len(node.entries))
	for version := range node.entries {
		versions = append(versions, version)
	}
	node.mu.RUnlock()
	sort.Slice(versions, func(i, j int) bool { return versions[i].Less(versions[j]) })
	return versions
}
