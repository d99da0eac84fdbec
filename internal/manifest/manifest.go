// Package manifest loads subsystem compatibility manifests and host
// inventories from YAML files. Manifests declare, per legacy version
// range, which resources a subsystem registers and which operations
// are discarded; inventories record the versions a host reports.
package manifest

import (
	"fmt"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/crossver/crossver/internal/log"
	"github.com/crossver/crossver/internal/model"
)

// SubsystemFile is the root structure of a subsystem compatibility manifest.
type SubsystemFile struct {
	Subsystem string     `yaml:"subsystem"` // e.g., "web", "datasources"
	Ranges    []RangeDef `yaml:"ranges"`    // One entry per legacy version range
}

// RangeDef declares the registrations for a set of legacy versions.
type RangeDef struct {
	Versions            []string      `yaml:"versions"`             // e.g., ["1.1.0", "1.0.0"]
	DiscardedOperations []string      `yaml:"discarded_operations"` // Discarded at the subsystem root
	Children            []ResourceDef `yaml:"children"`             // Child resources under the subsystem
}

// ResourceDef declares a child resource within a range.
type ResourceDef struct {
	Path                string        `yaml:"path"` // "key=value", "*" value for wildcard
	DiscardedOperations []string      `yaml:"discarded_operations"`
	Children            []ResourceDef `yaml:"children"`
}

// InventoryFile records the subsystem versions a host reports during
// registration with the domain controller.
type InventoryFile struct {
	Host       string         `yaml:"host"`
	Subsystems []SubsystemRef `yaml:"subsystems"`
}

// SubsystemRef names one subsystem and the model version it runs.
type SubsystemRef struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// VersionMap returns the inventory as the name->version map the
// resolution entry points consume.
func (f InventoryFile) VersionMap() map[string]string {
	out := make(map[string]string, len(f.Subsystems))
	for _, ref := range f.Subsystems {
		out[ref.Name] = ref.Version
	}
	return out
}

// LoadSubsystemManifests loads every subsystem manifest under the given
// filesystem. Files without a top-level "subsystem" key (such as host
// inventories living in the same directory) are skipped.
func LoadSubsystemManifests(fsys fs.FS) ([]SubsystemFile, error) {
	var files []SubsystemFile

	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAML(d.Name()) {
			return nil
		}

		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		var file SubsystemFile
		if err := yaml.Unmarshal(content, &file); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		if file.Subsystem == "" {
			log.Debug(log.CatManifest, "Skipping non-subsystem YAML", "path", path)
			return nil
		}

		if err := validateSubsystemFile(file); err != nil {
			return fmt.Errorf("manifest %s: %w", path, err)
		}

		log.Debug(log.CatManifest, "Loaded subsystem manifest",
			"path", path, "subsystem", file.Subsystem, "ranges", len(file.Ranges))
		files = append(files, file)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan manifests: %w", err)
	}

	return files, nil
}

// LoadInventory loads a single host inventory file.
func LoadInventory(fsys fs.FS, path string) (InventoryFile, error) {
	content, err := fs.ReadFile(fsys, path)
	if err != nil {
		return InventoryFile{}, fmt.Errorf("read %s: %w", path, err)
	}

	var file InventoryFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return InventoryFile{}, fmt.Errorf("parse %s: %w", path, err)
	}

	for i, ref := range file.Subsystems {
		if ref.Name == "" {
			return InventoryFile{}, fmt.Errorf("inventory %s: subsystem %d: name is required", path, i)
		}
		if _, err := model.ParseVersion(ref.Version); err != nil {
			return InventoryFile{}, fmt.Errorf("inventory %s: subsystem %q: %w", path, ref.Name, err)
		}
	}

	log.Debug(log.CatManifest, "Loaded inventory",
		"path", path, "host", file.Host, "subsystems", len(file.Subsystems))
	return file, nil
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

func validateSubsystemFile(file SubsystemFile) error {
	if len(file.Ranges) == 0 {
		return fmt.Errorf("subsystem %q declares no version ranges", file.Subsystem)
	}
	for i, rng := range file.Ranges {
		if len(rng.Versions) == 0 {
			return fmt.Errorf("subsystem %q: range %d declares no versions", file.Subsystem, i)
		}
		for _, text := range rng.Versions {
			if _, err := model.ParseVersion(text); err != nil {
				return fmt.Errorf("subsystem %q: range %d: %w", file.Subsystem, i, err)
			}
		}
		if err := validateResources(file.Subsystem, rng.Children); err != nil {
			return err
		}
	}
	return nil
}

func validateResources(subsystem string, defs []ResourceDef) error {
	for _, def := range defs {
		if _, err := parsePathElement(def.Path); err != nil {
			return fmt.Errorf("subsystem %q: %w", subsystem, err)
		}
		if err := validateResources(subsystem, def.Children); err != nil {
			return err
		}
	}
	return nil
}

// parsePathElement parses a "key=value" manifest path into a PathElement.
// A value of "*" yields a wildcard element.
func parsePathElement(text string) (model.PathElement, error) {
	key, value, found := strings.Cut(text, "=")
	if !found || key == "" || value == "" {
		return model.PathElement{}, fmt.Errorf("invalid resource path %q (want key=value)", text)
	}
	if value == model.WildcardValue {
		return model.NewWildcardElement(key), nil
	}
	return model.NewElement(key, value), nil
}
