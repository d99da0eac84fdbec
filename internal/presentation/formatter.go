package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
}

// NewFormatter creates a new formatter
func NewFormatter(writer io.Writer) *Formatter {
	return &Formatter{
		writer: writer,
	}
}

// FormatSnapshot formats a resolved snapshot as indented JSON.
func (f *Formatter) FormatSnapshot(snapshot SnapshotDTO) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(snapshot)
}

// FormatSubsystems formats the subsystem listing as indented JSON.
func (f *Formatter) FormatSubsystems(subsystems []SubsystemDTO) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(subsystems)
}

// RenderSnapshotText renders a snapshot as the line-oriented text form
// used for diffing two resolutions against each other.
func RenderSnapshotText(snapshot SnapshotDTO) string {
	var b strings.Builder
	for _, entry := range snapshot.Entries {
		fmt.Fprintf(&b, "%s  version=%s kind=%s", entry.Address, entry.Version, entry.Kind)
		if len(entry.Operations) > 0 {
			fmt.Fprintf(&b, " operations=%s", strings.Join(entry.Operations, ","))
		}
		if len(entry.DiscardedOperations) > 0 {
			fmt.Fprintf(&b, " discarded=%s", strings.Join(entry.DiscardedOperations, ","))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
