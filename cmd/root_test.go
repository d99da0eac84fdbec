package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crossver/crossver/internal/config"
	"github.com/crossver/crossver/internal/resolver"
)

// resetFlags restores command globals between tests so table entries
// do not leak state into each other.
func resetFlags(t *testing.T) {
	t.Helper()
	prev := cfg
	prevTarget, prevScope := resolveTarget, resolveScope
	prevInventory, prevHost := resolveInventory, resolveHost
	prevSubsystems := resolveSubsystems
	t.Cleanup(func() {
		cfg = prev
		resolveTarget, resolveScope = prevTarget, prevScope
		resolveInventory, resolveHost = prevInventory, prevHost
		resolveSubsystems = prevSubsystems
	})
	resolveScope = "host"
	resolveTarget, resolveInventory, resolveHost = "", "", ""
	resolveSubsystems = nil
	cfg = config.Defaults()
}

func TestBuildRequest_InlineSubsystems(t *testing.T) {
	resetFlags(t)
	resolveTarget = "2.0.0"
	resolveSubsystems = []string{"web=1.1.0", "datasources=1.0.0"}

	req, err := buildRequest()
	require.NoError(t, err)
	require.Equal(t, resolver.ScopeHost, req.Scope)
	require.Equal(t, "2.0.0", req.Target.String())
	require.Equal(t, map[string]string{"web": "1.1.0", "datasources": "1.0.0"}, req.Versions)
}

func TestBuildRequest_DefaultTargetFromConfig(t *testing.T) {
	resetFlags(t)
	cfg.DefaultTarget = "3.1.0"
	resolveSubsystems = []string{"web=1.1.0"}

	req, err := buildRequest()
	require.NoError(t, err)
	require.Equal(t, "3.1.0", req.Target.String())
}

func TestBuildRequest_Errors(t *testing.T) {
	tests := []struct {
		name        string
		setup       func()
		errContains string
	}{
		{
			name:        "no target anywhere",
			setup:       func() { resolveSubsystems = []string{"web=1.1.0"} },
			errContains: "no target version",
		},
		{
			name: "malformed target",
			setup: func() {
				resolveTarget = "not-a-version"
				resolveSubsystems = []string{"web=1.1.0"}
			},
			errContains: "invalid target version",
		},
		{
			name: "bad scope",
			setup: func() {
				resolveTarget = "2.0.0"
				resolveScope = "cluster"
				resolveSubsystems = []string{"web=1.1.0"}
			},
			errContains: "invalid scope",
		},
		{
			name:        "no subsystem versions",
			setup:       func() { resolveTarget = "2.0.0" },
			errContains: "no subsystem versions",
		},
		{
			name: "malformed subsystem pair",
			setup: func() {
				resolveTarget = "2.0.0"
				resolveSubsystems = []string{"web"}
			},
			errContains: "expected name=version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)
			tt.setup()

			_, err := buildRequest()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestSubsystemVersions_FromConfigHost(t *testing.T) {
	resetFlags(t)
	cfg.Hosts = []config.HostConfig{
		{Name: "legacy-a", Versions: map[string]string{"web": "1.1.0"}},
	}
	resolveHost = "legacy-a"

	versions, err := subsystemVersions()
	require.NoError(t, err)
	require.Equal(t, map[string]string{"web": "1.1.0"}, versions)
}

func TestSubsystemVersions_UnknownHost(t *testing.T) {
	resetFlags(t)
	resolveHost = "missing"

	_, err := subsystemVersions()
	require.Error(t, err)
	require.Contains(t, err.Error(), `host "missing" not found`)
}

func TestSubsystemVersions_FromInventoryFile(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy-a.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"host: legacy-a\nsubsystems:\n  - name: web\n    version: 1.1.0\n"), 0o600))
	resolveInventory = path

	versions, err := subsystemVersions()
	require.NoError(t, err)
	require.Equal(t, map[string]string{"web": "1.1.0"}, versions)
}

func TestRenderRegistryDiff(t *testing.T) {
	from := "/profile=*/subsystem=web  version=1.1.0 kind=standard\n" +
		"/profile=*/subsystem=web/connector=*  version=1.1.0 kind=standard\n"
	to := "/profile=*/subsystem=web  version=1.2.0 kind=standard\n" +
		"/profile=*/subsystem=web/connector=*  version=1.1.0 kind=standard\n"

	output := renderRegistryDiff(from, to, false)

	require.Contains(t, output, "- /profile=*/subsystem=web  version=1.1.0 kind=standard")
	require.Contains(t, output, "+ /profile=*/subsystem=web  version=1.2.0 kind=standard")
	require.NotContains(t, output, "connector", "unchanged lines should be elided")
}

func TestRenderRegistryDiff_NoChanges(t *testing.T) {
	text := "/profile=*/subsystem=web  version=1.1.0 kind=standard\n"
	require.Empty(t, renderRegistryDiff(text, text, false))
}

func TestRenderRegistryDiff_Colored(t *testing.T) {
	output := renderRegistryDiff("a\n", "b\n", true)
	for _, line := range strings.Split(strings.TrimRight(output, "\n"), "\n") {
		require.NotEmpty(t, line)
	}
}
