package testutil

import "github.com/crossver/crossver/internal/transform"

// subsystemData holds everything a subsystem registration needs.
type subsystemData struct {
	name        string
	versions    []string
	transformer transform.ResourceTransformer
	discards    []string
	operations  map[string]transform.OperationTransformer
	resources   []resourceData
}

// resourceData holds one child resource registration.
type resourceData struct {
	path        string
	transformer transform.ResourceTransformer
	discards    []string
	operations  map[string]transform.OperationTransformer
	children    []resourceData
}

// defaultSubsystem returns a subsystemData with sensible defaults.
func defaultSubsystem(name string) subsystemData {
	return subsystemData{
		name:     name,
		versions: []string{"1.0.0"},
	}
}

// SubsystemOption configures a subsystem during builder setup.
type SubsystemOption func(*subsystemData)

// Versions sets the legacy versions the registration fans out to.
func Versions(texts ...string) SubsystemOption {
	return func(s *subsystemData) { s.versions = texts }
}

// Transformer sets the resource transformer at the subsystem root.
func Transformer(t transform.ResourceTransformer) SubsystemOption {
	return func(s *subsystemData) { s.transformer = t }
}

// Discards marks operations as discarded at the subsystem root.
func Discards(names ...string) SubsystemOption {
	return func(s *subsystemData) { s.discards = append(s.discards, names...) }
}

// Operation registers an operation transformer at the subsystem root.
func Operation(name string, t transform.OperationTransformer) SubsystemOption {
	return func(s *subsystemData) {
		if s.operations == nil {
			s.operations = make(map[string]transform.OperationTransformer)
		}
		s.operations[name] = t
	}
}

// Resource adds a child resource under the subsystem root.
// The path is "key=value"; a "*" value registers a wildcard.
func Resource(path string, opts ...ResourceOption) SubsystemOption {
	return func(s *subsystemData) {
		res := resourceData{path: path}
		for _, opt := range opts {
			opt(&res)
		}
		s.resources = append(s.resources, res)
	}
}

// ResourceOption configures a child resource.
type ResourceOption func(*resourceData)

// ResourceTransform sets the resource transformer for this child.
func ResourceTransform(t transform.ResourceTransformer) ResourceOption {
	return func(r *resourceData) { r.transformer = t }
}

// ResourceDiscards marks operations as discarded at this child.
func ResourceDiscards(names ...string) ResourceOption {
	return func(r *resourceData) { r.discards = append(r.discards, names...) }
}

// ResourceOperation registers an operation transformer at this child.
func ResourceOperation(name string, t transform.OperationTransformer) ResourceOption {
	return func(r *resourceData) {
		if r.operations == nil {
			r.operations = make(map[string]transform.OperationTransformer)
		}
		r.operations[name] = t
	}
}

// Child nests another resource under this one.
func Child(path string, opts ...ResourceOption) ResourceOption {
	return func(r *resourceData) {
		child := resourceData{path: path}
		for _, opt := range opts {
			opt(&child)
		}
		r.children = append(r.children, child)
	}
}
