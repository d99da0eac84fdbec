package manifest

import (
	"fmt"

	"github.com/crossver/crossver/internal/log"
	"github.com/crossver/crossver/internal/model"
	"github.com/crossver/crossver/internal/transform"
)

// Apply registers everything a subsystem manifest declares into the
// domain transformers. Each range fans out to one registration per
// listed version.
func Apply(dt *transform.DomainTransformers, file SubsystemFile) error {
	for i, rangeDef := range file.Ranges {
		versions := make([]model.Version, 0, len(rangeDef.Versions))
		for _, text := range rangeDef.Versions {
			version, err := model.ParseVersion(text)
			if err != nil {
				return fmt.Errorf("subsystem %q: range %d: %w", file.Subsystem, i, err)
			}
			versions = append(versions, version)
		}
		rng := model.NewVersionRange(versions...)

		reg := dt.RegisterSubsystemTransformers(file.Subsystem, rng, nil)
		reg.DiscardOperations(rangeDef.DiscardedOperations...)

		if err := applyResources(reg, rangeDef.Children); err != nil {
			return fmt.Errorf("subsystem %q: %w", file.Subsystem, err)
		}

		log.Info(log.CatManifest, "Registered subsystem range",
			"subsystem", file.Subsystem, "versions", rangeDef.Versions)
	}
	return nil
}

// ApplyAll registers every manifest, failing on the first error.
func ApplyAll(dt *transform.DomainTransformers, files []SubsystemFile) error {
	for _, file := range files {
		if err := Apply(dt, file); err != nil {
			return err
		}
	}
	return nil
}

func applyResources(reg transform.SubRegistration, defs []ResourceDef) error {
	for _, def := range defs {
		element, err := parsePathElement(def.Path)
		if err != nil {
			return err
		}

		child := reg.RegisterSubResource(element)
		child.DiscardOperations(def.DiscardedOperations...)

		if err := applyResources(child, def.Children); err != nil {
			return err
		}
	}
	return nil
}
