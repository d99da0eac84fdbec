package transform

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/crossver/crossver/internal/model"
)

// namedResource is a comparable stand-in for an opaque strategy, so tests
// can assert which registration a lookup resolved to.
type namedResource struct{ name string }

func (r namedResource) TransformResource(_ context.Context, _ model.PathAddress, resource any) (any, error) {
	return resource, nil
}

type namedOperation struct{ name string }

func (o namedOperation) TransformOperation(_ context.Context, _ model.PathAddress, operation any) (any, error) {
	return operation, nil
}

func v(text string) model.Version {
	version, err := model.ParseVersion(text)
	if err != nil {
		panic(err)
	}
	return version
}

func subsystemAddr(name string) model.PathAddress {
	return model.NewAddress(model.NewElement("subsystem", name))
}

// === Registration & Resolution ===

func TestAddressTree_ResolveInsideAndOutsideRange(t *testing.T) {
	tree := NewAddressTree()
	addr := subsystemAddr("web")
	strategy := namedResource{"web-1.x"}

	for _, ver := range []model.Version{v("1.0"), v("1.1"), v("1.2")} {
		tree.CreateChildRegistry(addr, ver, strategy, false)
	}

	inRange := tree.Create(v("1.1"), nil)
	require.True(t, inRange.HasResourceTransformer(addr))
	assert.Equal(t, strategy, inRange.ResourceTransformerFor(addr))

	outOfRange := tree.Create(v("2.0"), nil)
	assert.False(t, outOfRange.HasResourceTransformer(addr))
	assert.Equal(t, IdentityResource, outOfRange.ResourceTransformerFor(addr))
}

func TestAddressTree_UnregisteredAddressResolvesToIdentity(t *testing.T) {
	tree := NewAddressTree()
	reg := tree.Create(v("5.0"), nil)

	addr := subsystemAddr("ghost")
	assert.Equal(t, IdentityResource, reg.ResourceTransformerFor(addr))
	assert.False(t, reg.IsDiscarded(addr, "write-attribute"))

	_, ok := reg.OperationTransformerFor(addr, "add")
	assert.False(t, ok)
}

func TestAddressTree_DuplicateRegistrationOverwrites(t *testing.T) {
	tree := NewAddressTree()
	addr := subsystemAddr("web")

	tree.CreateChildRegistry(addr, v("1.0"), namedResource{"first"}, false)
	tree.CreateChildRegistry(addr, v("1.0"), namedResource{"second"}, false)

	reg := tree.Create(v("1.0"), nil)
	assert.Equal(t, namedResource{"second"}, reg.ResourceTransformerFor(addr))
}

func TestAddressTree_NilResourceRegistersIdentity(t *testing.T) {
	tree := NewAddressTree()
	addr := subsystemAddr("web")

	tree.CreateChildRegistry(addr, v("1.0"), nil, false)

	reg := tree.Create(v("1.0"), nil)
	require.True(t, reg.HasResourceTransformer(addr))
	assert.Equal(t, IdentityResource, reg.ResourceTransformerFor(addr))
}

func TestAddressTree_IntermediateNodesCreated(t *testing.T) {
	tree := NewAddressTree()
	deep := subsystemAddr("web").Append(model.NewElement("connector", "http"))

	tree.CreateChildRegistry(deep, v("1.0"), namedResource{"deep"}, false)

	_, ok := tree.GetChild(subsystemAddr("web"))
	assert.True(t, ok, "intermediate node should exist after deep registration")

	reg := tree.Create(v("1.0"), nil)
	assert.Equal(t, namedResource{"deep"}, reg.ResourceTransformerFor(deep))
	assert.Equal(t, IdentityResource, reg.ResourceTransformerFor(subsystemAddr("web")))
}

func TestAddressTree_GetChildAbsent(t *testing.T) {
	tree := NewAddressTree()

	subtree, ok := tree.GetChild(subsystemAddr("missing"))
	assert.False(t, ok)
	assert.Nil(t, subtree)
}

func TestAddressTree_OperationTransformerPrecedence(t *testing.T) {
	tree := NewAddressTree()
	addr := subsystemAddr("web")

	tree.CreateChildRegistry(addr, v("1.0"), namedResource{"resource"}, false)
	tree.RegisterTransformer(addr, v("1.0"), "write-attribute", namedOperation{"write"})

	reg := tree.Create(v("1.0"), nil)

	op, ok := reg.OperationTransformerFor(addr, "write-attribute")
	require.True(t, ok)
	assert.Equal(t, namedOperation{"write"}, op)

	// Generic operations fall back to the resource-level strategy.
	_, ok = reg.OperationTransformerFor(addr, "add")
	assert.False(t, ok)
	assert.Equal(t, namedResource{"resource"}, reg.ResourceTransformerFor(addr))
}

// === Discard ===

func TestAddressTree_DiscardBeatsOperationTransformer(t *testing.T) {
	tree := NewAddressTree()
	addr := subsystemAddr("web")

	tree.RegisterTransformer(addr, v("1.0"), "write-attribute", namedOperation{"write"})
	tree.DiscardOperation(addr, v("1.0"), "write-attribute")

	reg := tree.Create(v("1.0"), nil)

	assert.True(t, reg.IsDiscarded(addr, "write-attribute"))
	_, ok := reg.OperationTransformerFor(addr, "write-attribute")
	assert.False(t, ok, "a discarded operation must never yield a transformer")
}

func TestAddressTree_DiscardIsPerVersion(t *testing.T) {
	tree := NewAddressTree()
	addr := subsystemAddr("web")

	tree.DiscardOperation(addr, v("1.0"), "remove")

	atOne := tree.Create(v("1.0"), nil)
	atTwo := tree.Create(v("2.0"), nil)

	assert.True(t, atOne.IsDiscarded(addr, "remove"))
	assert.False(t, atTwo.IsDiscarded(addr, "remove"))
}

// === Version overrides ===

func TestAddressTree_CreateWithOverrides(t *testing.T) {
	tree := NewAddressTree()
	web := subsystemAddr("web")
	mail := subsystemAddr("mail")

	tree.CreateChildRegistry(web, v("1.0"), namedResource{"web-old"}, false)
	tree.CreateChildRegistry(mail, v("3.0"), namedResource{"mail-target"}, false)

	overrides := VersionAssignment{}.With(web, v("1.0"))
	reg := tree.Create(v("3.0"), overrides)

	assert.Equal(t, namedResource{"web-old"}, reg.ResourceTransformerFor(web))
	assert.Equal(t, namedResource{"mail-target"}, reg.ResourceTransformerFor(mail))
}

// === Subtree merge ===

func TestAddressTree_MergeSubtreeCopiesAtAssignedVersion(t *testing.T) {
	topology := NewAddressTree()
	subsystems := NewAddressTree()

	web := subsystemAddr("web")
	subsystems.CreateChildRegistry(web, v("1.0"), namedResource{"web-1"}, true)
	subsystems.CreateChildRegistry(web, v("2.0"), namedResource{"web-2"}, true)
	subsystems.DiscardOperation(web, v("1.0"), "remove")
	subsystems.RegisterTransformer(web, v("1.0"), "add", namedOperation{"add-1"})

	mount := model.NewAddress(model.NewWildcardElement("profile"))
	reg := topology.Create(v("9.0"), nil)
	subsystems.MergeSubtree(reg, mount, VersionAssignment{{Address: web, Version: v("1.0")}})

	mounted := mount.Concat(web)
	assert.Equal(t, namedResource{"web-1"}, reg.ResourceTransformerFor(mounted))
	assert.True(t, reg.IsDiscarded(mounted, "remove"))

	op, ok := reg.OperationTransformerFor(mounted, "add")
	require.True(t, ok)
	assert.Equal(t, namedOperation{"add-1"}, op)
}

func TestAddressTree_MergeSubtreeIncludesDescendants(t *testing.T) {
	subsystems := NewAddressTree()
	web := subsystemAddr("web")
	connector := web.Append(model.NewElement("connector", "http"))

	subsystems.CreateChildRegistry(web, v("1.0"), namedResource{"web"}, true)
	subsystems.CreateChildRegistry(connector, v("1.0"), namedResource{"connector"}, false)
	subsystems.DiscardOperation(connector, v("1.0"), "write-attribute")

	mount := model.NewAddress(model.NewWildcardElement("profile"))
	reg := NewAddressTree().Create(v("9.0"), nil)
	subsystems.MergeSubtree(reg, mount, VersionAssignment{{Address: web, Version: v("1.0")}})

	assert.Equal(t, namedResource{"connector"}, reg.ResourceTransformerFor(mount.Concat(connector)))
	assert.True(t, reg.IsDiscarded(mount.Concat(connector), "write-attribute"))
}

func TestAddressTree_MergeSubtreeIsValueCopy(t *testing.T) {
	subsystems := NewAddressTree()
	web := subsystemAddr("web")
	subsystems.CreateChildRegistry(web, v("1.0"), namedResource{"before"}, true)

	mount := model.NewAddress(model.NewWildcardElement("profile"))
	reg := NewAddressTree().Create(v("9.0"), nil)
	subsystems.MergeSubtree(reg, mount, VersionAssignment{{Address: web, Version: v("1.0")}})

	// Mutating the source after the merge must not reach the target.
	subsystems.CreateChildRegistry(web, v("1.0"), namedResource{"after"}, true)
	subsystems.DiscardOperation(web, v("1.0"), "remove")

	assert.Equal(t, namedResource{"before"}, reg.ResourceTransformerFor(mount.Concat(web)))
	assert.False(t, reg.IsDiscarded(mount.Concat(web), "remove"))
}

func TestAddressTree_MergeSubtreeUnregisteredAddressIsNoop(t *testing.T) {
	subsystems := NewAddressTree()
	mount := model.NewAddress(model.NewWildcardElement("profile"))
	reg := NewAddressTree().Create(v("1.0"), nil)

	subsystems.MergeSubtree(reg, mount, VersionAssignment{{Address: subsystemAddr("ghost"), Version: v("1.0")}})

	assert.Equal(t, IdentityResource, reg.ResourceTransformerFor(mount.Concat(subsystemAddr("ghost"))))
}

// === Concurrency ===

func TestAddressTree_ConcurrentDistinctRegistrationsAllSurvive(t *testing.T) {
	tree := NewAddressTree()
	const workers = 32

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("subsystem-%d", i)
			tree.CreateChildRegistry(subsystemAddr(name), v("1.0"), namedResource{name}, true)
			tree.DiscardOperation(subsystemAddr(name), v("1.0"), "remove")
		}(i)
	}
	wg.Wait()

	reg := tree.Create(v("1.0"), nil)
	for i := 0; i < workers; i++ {
		name := fmt.Sprintf("subsystem-%d", i)
		assert.Equal(t, namedResource{name}, reg.ResourceTransformerFor(subsystemAddr(name)), "lost registration for %s", name)
		assert.True(t, reg.IsDiscarded(subsystemAddr(name), "remove"))
	}
}

func TestAddressTree_RacingCreatorsConvergeOnSharedIntermediateNode(t *testing.T) {
	tree := NewAddressTree()
	parent := subsystemAddr("web")
	const workers = 16

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			child := parent.Append(model.NewElement("connector", fmt.Sprintf("c%d", i)))
			tree.CreateChildRegistry(child, v("1.0"), namedResource{child.String()}, false)
		}(i)
	}
	wg.Wait()

	reg := tree.Create(v("1.0"), nil)
	for i := 0; i < workers; i++ {
		child := parent.Append(model.NewElement("connector", fmt.Sprintf("c%d", i)))
		assert.Equal(t, namedResource{child.String()}, reg.ResourceTransformerFor(child), "sibling registration lost for %s", child)
	}
}

func TestAddressTree_ResolveConcurrentWithRegistration(t *testing.T) {
	tree := NewAddressTree()
	tree.CreateChildRegistry(subsystemAddr("stable"), v("1.0"), namedResource{"stable"}, false)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			tree.CreateChildRegistry(subsystemAddr(fmt.Sprintf("late-%d", i)), v("1.0"), namedResource{"late"}, false)
		}
	}()

	for i := 0; i < 50; i++ {
		reg := tree.Create(v("1.0"), nil)
		// Entries present before the walk started must always be observed.
		assert.Equal(t, namedResource{"stable"}, reg.ResourceTransformerFor(subsystemAddr("stable")))
	}
	<-done
}

// === Property Tests ===

func TestAddressTree_MergeIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		subsystems := NewAddressTree()
		name := rapid.StringMatching(`[a-z]{2,8}`).Draw(t, "subsystem")
		addr := subsystemAddr(name)
		version := model.NewVersion(
			rapid.IntRange(0, 5).Draw(t, "major"),
			rapid.IntRange(0, 5).Draw(t, "minor"),
			rapid.IntRange(0, 5).Draw(t, "micro"),
		)

		subsystems.CreateChildRegistry(addr, version, namedResource{name}, true)
		numOps := rapid.IntRange(0, 4).Draw(t, "numOps")
		for i := 0; i < numOps; i++ {
			opName := fmt.Sprintf("op-%d", i)
			if rapid.Bool().Draw(t, "discard") {
				subsystems.DiscardOperation(addr, version, opName)
			} else {
				subsystems.RegisterTransformer(addr, version, opName, namedOperation{opName})
			}
		}

		mount := model.NewAddress(model.NewWildcardElement("profile"))
		assignment := VersionAssignment{{Address: addr, Version: version}}

		once := NewAddressTree().Create(model.NewVersion(9, 0, 0), nil)
		subsystems.MergeSubtree(once, mount, assignment)

		twice := NewAddressTree().Create(model.NewVersion(9, 0, 0), nil)
		subsystems.MergeSubtree(twice, mount, assignment)
		subsystems.MergeSubtree(twice, mount, assignment)

		mounted := mount.Concat(addr)
		if once.ResourceTransformerFor(mounted) != twice.ResourceTransformerFor(mounted) {
			t.Fatalf("resource transformer differs after second merge")
		}
		for i := 0; i < numOps; i++ {
			opName := fmt.Sprintf("op-%d", i)
			if once.IsDiscarded(mounted, opName) != twice.IsDiscarded(mounted, opName) {
				t.Fatalf("discard state differs for %s", opName)
			}
			onceOp, onceOK := once.OperationTransformerFor(mounted, opName)
			twiceOp, twiceOK := twice.OperationTransformerFor(mounted, opName)
			if onceOK != twiceOK || onceOp != twiceOp {
				t.Fatalf("operation transformer differs for %s", opName)
			}
		}
	})
}

func TestAddressTree_ResolutionNeverErrorsOnArbitraryAddresses(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tree := NewAddressTree()
		reg := tree.Create(model.NewVersion(1, 0, 0), nil)

		depth := rapid.IntRange(0, 5).Draw(t, "depth")
		addr := model.EmptyAddress
		for i := 0; i < depth; i++ {
			addr = addr.Append(model.NewElement(
				rapid.StringMatching(`[a-z]{1,6}`).Draw(t, "key"),
				rapid.StringMatching(`[a-z*]{1,6}`).Draw(t, "value"),
			))
		}

		if got := reg.ResourceTransformerFor(addr); got != IdentityResource {
			t.Fatalf("unregistered address must resolve to identity, got %v", got)
		}
		if reg.IsDiscarded(addr, "any-op") {
			t.Fatalf("unregistered address must not report discards")
		}
	})
}
