package manifest

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossver/crossver/internal/model"
	"github.com/crossver/crossver/internal/transform"
)

func loadAndApply(t *testing.T, dt *transform.DomainTransformers, manifests map[string]string) {
	t.Helper()
	fsys := fstest.MapFS{}
	for name, content := range manifests {
		fsys[name] = &fstest.MapFile{Data: []byte(content)}
	}
	files, err := LoadSubsystemManifests(fsys)
	require.NoError(t, err)
	require.NoError(t, ApplyAll(dt, files))
}

func TestApply_RegistersRanges(t *testing.T) {
	dt := transform.NewDomainTransformers()
	loadAndApply(t, dt, map[string]string{"web.yaml": webManifest})

	assert.Contains(t, dt.SubsystemNames(), "web")

	versions := dt.SubsystemVersions("web")
	require.Len(t, versions, 3, "two ranges fan out to three versions")
	assert.Contains(t, versions, model.NewVersion(1, 0, 0))
	assert.Contains(t, versions, model.NewVersion(1, 1, 0))
	assert.Contains(t, versions, model.NewVersion(1, 2, 0))
}

func TestApply_DiscardsResolveThroughHost(t *testing.T) {
	dt := transform.NewDomainTransformers()
	loadAndApply(t, dt, map[string]string{"web.yaml": webManifest})

	resolved, err := dt.ResolveHost(model.NewVersion(2, 0, 0), map[string]string{"web": "1.1.0"})
	require.NoError(t, err)

	webRoot := model.NewAddress(transform.ProfileElement, transform.SubsystemElement("web"))
	assert.True(t, resolved.IsDiscarded(webRoot, "enable-statistics"),
		"root-level discard from the 1.1.0 range should apply")

	connector := webRoot.Append(model.NewWildcardElement("connector"))
	assert.True(t, resolved.IsDiscarded(connector, "flush"))

	ssl := connector.Append(model.NewElement("ssl", "configuration"))
	assert.False(t, resolved.IsDiscarded(ssl, "flush"), "discards do not inherit downward")
}

func TestApply_RangeSelectionFollowsInventory(t *testing.T) {
	dt := transform.NewDomainTransformers()
	loadAndApply(t, dt, map[string]string{"web.yaml": webManifest})

	// The 1.2.0 range declares no discards at all
	resolved, err := dt.ResolveHost(model.NewVersion(2, 0, 0), map[string]string{"web": "1.2.0"})
	require.NoError(t, err)

	webRoot := model.NewAddress(transform.ProfileElement, transform.SubsystemElement("web"))
	assert.False(t, resolved.IsDiscarded(webRoot, "enable-statistics"))
}

func TestApply_MultipleManifests(t *testing.T) {
	dt := transform.NewDomainTransformers()
	loadAndApply(t, dt, map[string]string{
		"web.yaml": webManifest,
		"datasources.yaml": `subsystem: datasources
ranges:
  - versions: ["1.0.0"]
    children:
      - path: data-source=*
        discarded_operations: [test-connection-in-pool]
`,
	})

	names := dt.SubsystemNames()
	assert.Contains(t, names, "web")
	assert.Contains(t, names, "datasources")

	resolved, err := dt.ResolveServer(model.NewVersion(2, 0, 0), map[string]string{
		"web":         "1.1.0",
		"datasources": "1.0.0",
	})
	require.NoError(t, err)

	ds := model.NewAddress(
		transform.HostElement,
		transform.ServerElement,
		transform.SubsystemElement("datasources"),
		model.NewWildcardElement("data-source"),
	)
	assert.True(t, resolved.IsDiscarded(ds, "test-connection-in-pool"))
}

func TestApply_BadVersionInRange(t *testing.T) {
	dt := transform.NewDomainTransformers()
	err := Apply(dt, SubsystemFile{
		Subsystem: "web",
		Ranges:    []RangeDef{{Versions: []string{"x.y"}}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), `subsystem "web"`)
}

func TestApply_BadPathInResource(t *testing.T) {
	dt := transform.NewDomainTransformers()
	err := Apply(dt, SubsystemFile{
		Subsystem: "web",
		Ranges: []RangeDef{{
			Versions: []string{"1.0.0"},
			Children: []ResourceDef{{Path: "="}},
		}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid resource path")
}
