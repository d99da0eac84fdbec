package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crossver/crossver/internal/manifest"
	"github.com/crossver/crossver/internal/model"
	"github.com/crossver/crossver/internal/presentation"
	"github.com/crossver/crossver/internal/resolver"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a registry snapshot for a legacy host or server",
	Long: `Resolve a registry snapshot against the configured manifests.

The subsystem versions of the remote process come from one of three
places: an inventory file (--inventory), a host declared in the config
file (--host), or inline pairs (--subsystem name=version, repeatable).

Examples:
  crossver resolve --target 2.0.0 --inventory hosts/legacy-a.yaml
  crossver resolve --host legacy-a --scope server
  crossver resolve --subsystem web=1.1.0 --subsystem datasources=1.0.0

Output is a JSON snapshot. Pipe through jq to inspect entries:
  crossver resolve --host legacy-a | jq '.entries[].address'`,
	RunE: runResolve,
}

var (
	resolveTarget     string
	resolveScope      string
	resolveInventory  string
	resolveHost       string
	resolveSubsystems []string
)

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringVarP(&resolveTarget, "target", "t", "",
		"target model version (default: default_target from config)")
	resolveCmd.Flags().StringVar(&resolveScope, "scope", "host",
		"resolution scope: host or server")
	resolveCmd.Flags().StringVarP(&resolveInventory, "inventory", "i", "",
		"inventory file describing the remote process")
	resolveCmd.Flags().StringVar(&resolveHost, "host", "",
		"resolve for a host declared in the config file")
	resolveCmd.Flags().StringArrayVarP(&resolveSubsystems, "subsystem", "s", nil,
		"subsystem version pair name=version (repeatable)")
}

func runResolve(cmd *cobra.Command, args []string) error {
	req, err := buildRequest()
	if err != nil {
		return err
	}

	provider, shutdown, err := newTracingProvider()
	if err != nil {
		return err
	}
	defer shutdown()

	svc, err := newService(resolver.WithTracer(provider.Tracer()))
	if err != nil {
		return err
	}
	defer svc.Close()

	snapshot, err := svc.Resolve(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("resolving registry: %w", err)
	}

	dto := presentation.FromResolvedRegistry(snapshot, req.Target.String())
	return presentation.NewFormatter(os.Stdout).FormatSnapshot(dto)
}

// buildRequest assembles the resolution request from flags and config.
func buildRequest() (resolver.Request, error) {
	targetText := resolveTarget
	if targetText == "" {
		targetText = cfg.DefaultTarget
	}
	if targetText == "" {
		return resolver.Request{}, fmt.Errorf("no target version: pass --target or set default_target in config")
	}
	target, err := model.ParseVersion(targetText)
	if err != nil {
		return resolver.Request{}, fmt.Errorf("invalid target version %q: %w", targetText, err)
	}

	scope := resolver.Scope(resolveScope)
	if scope != resolver.ScopeHost && scope != resolver.ScopeServer {
		return resolver.Request{}, fmt.Errorf("invalid scope %q: must be host or server", resolveScope)
	}

	versions, err := subsystemVersions()
	if err != nil {
		return resolver.Request{}, err
	}
	if len(versions) == 0 {
		return resolver.Request{}, fmt.Errorf("no subsystem versions: pass --inventory, --host, or --subsystem")
	}

	return resolver.Request{Scope: scope, Target: target, Versions: versions}, nil
}

func subsystemVersions() (map[string]string, error) {
	switch {
	case resolveInventory != "":
		dir, name := filepath.Split(resolveInventory)
		if dir == "" {
			dir = "."
		}
		inv, err := manifest.LoadInventory(os.DirFS(dir), name)
		if err != nil {
			return nil, fmt.Errorf("loading inventory %s: %w", resolveInventory, err)
		}
		return inv.VersionMap(), nil

	case resolveHost != "":
		host, ok := cfg.Host(resolveHost)
		if !ok {
			return nil, fmt.Errorf("host %q not found in config", resolveHost)
		}
		return host.Versions, nil

	default:
		versions := make(map[string]string, len(resolveSubsystems))
		for _, pair := range resolveSubsystems {
			name, version, ok := strings.Cut(pair, "=")
			if !ok || name == "" || version == "" {
				return nil, fmt.Errorf("invalid subsystem pair %q: expected name=version", pair)
			}
			versions[name] = version
		}
		return versions, nil
	}
}
