package testutil

import "github.com/crossver/crossver/internal/transform"

// WithWebTopology adds a web subsystem with two legacy versions and a
// connector subtree, the shape most engine tests exercise.
//
// Structure:
//
//	subsystem=web (1.1.0, 1.0.0)
//	  ├── connector=* (discards flush)
//	  │     └── ssl=configuration
//	  └── virtual-server=*
func (b *Builder) WithWebTopology() *Builder {
	return b.WithSubsystem("web",
		Versions("1.1.0", "1.0.0"),
		Discards("enable-statistics"),
		Operation("add", transform.IdentityOperation),
		Resource("connector=*",
			ResourceDiscards("flush"),
			Child("ssl=configuration")),
		Resource("virtual-server=*"))
}

// WithDatasourcesTopology adds a datasources subsystem with pooled and
// XA data sources.
func (b *Builder) WithDatasourcesTopology() *Builder {
	return b.WithSubsystem("datasources",
		Versions("1.0.0"),
		Resource("data-source=*",
			ResourceDiscards("test-connection-in-pool"),
			ResourceOperation("flush-all-connection-in-pool", transform.IdentityOperation)),
		Resource("xa-data-source=*",
			ResourceDiscards("test-connection-in-pool")))
}

// WithLegacyDomain adds both standard topologies, approximating the
// registrations of a small mixed-version domain.
func (b *Builder) WithLegacyDomain() *Builder {
	return b.WithWebTopology().WithDatasourcesTopology()
}
