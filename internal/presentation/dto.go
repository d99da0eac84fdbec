package presentation

import (
	"github.com/crossver/crossver/internal/model"
	"github.com/crossver/crossver/internal/transform"
)

// SnapshotDTO represents a resolved registry snapshot for presentation.
type SnapshotDTO struct {
	SnapshotID string     `json:"snapshot_id"`
	Target     string     `json:"target,omitempty"`
	Entries    []EntryDTO `json:"entries"`
}

// EntryDTO represents one resolved node: its address, effective version,
// entry kind, and the operation-level registrations in force.
type EntryDTO struct {
	Address             string   `json:"address"`
	Version             string   `json:"version"`
	Kind                string   `json:"kind"`
	Operations          []string `json:"operations,omitempty"`
	DiscardedOperations []string `json:"discarded_operations,omitempty"`
}

// SubsystemDTO represents one registered subsystem and the legacy
// versions it declares transformers for.
type SubsystemDTO struct {
	Name     string   `json:"name"`
	Versions []string `json:"versions"`
}

// FromResolvedRegistry converts a snapshot to its DTO, walking entries
// in deterministic address order.
func FromResolvedRegistry(snapshot *transform.ResolvedRegistry, target string) SnapshotDTO {
	dto := SnapshotDTO{
		SnapshotID: snapshot.SnapshotID(),
		Target:     target,
		Entries:    make([]EntryDTO, 0),
	}
	snapshot.WalkEntries(func(address model.PathAddress, entry transform.ResolvedEntry) {
		dto.Entries = append(dto.Entries, EntryDTO{
			Address:             address.String(),
			Version:             entry.Version.String(),
			Kind:                string(entry.Kind),
			Operations:          entry.OperationNames,
			DiscardedOperations: entry.DiscardedOperations,
		})
	})
	return dto
}

// FromDomainTransformers converts the registered subsystems to DTOs.
func FromDomainTransformers(dt *transform.DomainTransformers) []SubsystemDTO {
	names := dt.SubsystemNames()
	dtos := make([]SubsystemDTO, 0, len(names))
	for _, name := range names {
		versions := dt.SubsystemVersions(name)
		texts := make([]string, len(versions))
		for i, version := range versions {
			texts[i] = version.String()
		}
		dtos = append(dtos, SubsystemDTO{Name: name, Versions: texts})
	}
	return dtos
}
