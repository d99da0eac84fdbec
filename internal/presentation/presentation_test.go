package presentation

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crossver/crossver/internal/model"
	"github.com/crossver/crossver/internal/transform"
)

func resolvedWebHost(t *testing.T) (*transform.DomainTransformers, *transform.ResolvedRegistry) {
	t.Helper()
	dt := transform.NewDomainTransformers()
	reg := dt.RegisterSubsystemTransformers("web",
		model.SingleVersion(model.NewVersion(1, 1, 0)), nil)
	reg.DiscardOperations("enable-statistics")
	reg.RegisterSubResource(model.NewWildcardElement("connector"))

	snapshot, err := dt.ResolveHost(model.NewVersion(2, 0, 0), map[string]string{"web": "1.1.0"})
	require.NoError(t, err)
	return dt, snapshot
}

func TestFromResolvedRegistry(t *testing.T) {
	_, snapshot := resolvedWebHost(t)

	dto := FromResolvedRegistry(snapshot, "2.0.0")
	assert.Equal(t, snapshot.SnapshotID(), dto.SnapshotID)
	assert.Equal(t, "2.0.0", dto.Target)
	require.NotEmpty(t, dto.Entries)

	byAddress := make(map[string]EntryDTO, len(dto.Entries))
	for _, entry := range dto.Entries {
		byAddress[entry.Address] = entry
	}

	webRoot, ok := byAddress["/profile=*/subsystem=web"]
	require.True(t, ok, "subsystem root should be present, got %v", dto.Entries)
	assert.Equal(t, "1.1.0", webRoot.Version)
	assert.Equal(t, []string{"enable-statistics"}, webRoot.DiscardedOperations)

	connector, ok := byAddress["/profile=*/subsystem=web/connector=*"]
	require.True(t, ok)
	assert.Equal(t, string(transform.EntryKindStandard), connector.Kind)
}

func TestFromResolvedRegistry_DeterministicOrder(t *testing.T) {
	_, snapshot := resolvedWebHost(t)

	first := FromResolvedRegistry(snapshot, "2.0.0")
	second := FromResolvedRegistry(snapshot, "2.0.0")
	assert.Equal(t, first.Entries, second.Entries)
}

func TestFromDomainTransformers(t *testing.T) {
	dt, _ := resolvedWebHost(t)

	dtos := FromDomainTransformers(dt)
	require.Len(t, dtos, 1)
	assert.Equal(t, "web", dtos[0].Name)
	assert.Equal(t, []string{"1.1.0"}, dtos[0].Versions)
}

func TestFormatSnapshot_ValidJSON(t *testing.T) {
	_, snapshot := resolvedWebHost(t)
	dto := FromResolvedRegistry(snapshot, "2.0.0")

	var buf bytes.Buffer
	err := NewFormatter(&buf).FormatSnapshot(dto)
	require.NoError(t, err)

	var decoded SnapshotDTO
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, dto.SnapshotID, decoded.SnapshotID)
	assert.Len(t, decoded.Entries, len(dto.Entries))
}

func TestFormatSubsystems_ValidJSON(t *testing.T) {
	dt, _ := resolvedWebHost(t)

	var buf bytes.Buffer
	err := NewFormatter(&buf).FormatSubsystems(FromDomainTransformers(dt))
	require.NoError(t, err)

	var decoded []SubsystemDTO
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "web", decoded[0].Name)
}

func TestRenderSnapshotText(t *testing.T) {
	_, snapshot := resolvedWebHost(t)
	text := RenderSnapshotText(FromResolvedRegistry(snapshot, "2.0.0"))

	assert.Contains(t, text, "/profile=*/subsystem=web  version=1.1.0")
	assert.Contains(t, text, "discarded=enable-statistics")
	// One line per entry
	lines := bytes.Count([]byte(text), []byte("\n"))
	assert.Equal(t, len(FromResolvedRegistry(snapshot, "2.0.0").Entries), lines)
}
