package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/crossver/crossver/internal/config"
)

var hostsAddCmd = &cobra.Command{
	Use:   "hosts:add <name>",
	Short: "Add or replace a host entry in the config file",
	Long: `Record a host and its reported subsystem versions in the config file,
so later resolutions can reference it by name. Comments elsewhere in the
file are preserved.

Example:
  crossver hosts:add legacy-a -s web=1.1.0 -s datasources=1.0.0
  crossver resolve --host legacy-a`,
	Args: cobra.ExactArgs(1),
	RunE: runHostsAdd,
}

var hostsRemoveCmd = &cobra.Command{
	Use:   "hosts:remove <name>",
	Short: "Remove a host entry from the config file",
	Args:  cobra.ExactArgs(1),
	RunE:  runHostsRemove,
}

var hostsAddSubsystems []string

func init() {
	rootCmd.AddCommand(hostsAddCmd)
	rootCmd.AddCommand(hostsRemoveCmd)

	hostsAddCmd.Flags().StringArrayVarP(&hostsAddSubsystems, "subsystem", "s", nil,
		"subsystem version pair name=version (repeatable)")
	_ = hostsAddCmd.MarkFlagRequired("subsystem")
}

func runHostsAdd(cmd *cobra.Command, args []string) error {
	name := args[0]
	versions := make(map[string]string, len(hostsAddSubsystems))
	for _, pair := range hostsAddSubsystems {
		subsystem, version, ok := strings.Cut(pair, "=")
		if !ok || subsystem == "" || version == "" {
			return fmt.Errorf("invalid subsystem pair %q: expected name=version", pair)
		}
		versions[subsystem] = version
	}

	host := config.HostConfig{Name: name, Versions: versions}
	if err := config.ValidateHosts([]config.HostConfig{host}); err != nil {
		return err
	}
	if err := config.AddHost(configFilePath(), host, cfg.Hosts); err != nil {
		return fmt.Errorf("saving host %q: %w", name, err)
	}
	fmt.Printf("Saved host %q with %d subsystems\n", name, len(versions))
	return nil
}

func runHostsRemove(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := config.RemoveHost(configFilePath(), name, cfg.Hosts); err != nil {
		return err
	}
	fmt.Printf("Removed host %q\n", name)
	return nil
}

// configFilePath returns the config file the edit commands write to,
// falling back to the default location when no file was loaded.
func configFilePath() string {
	if path := viper.ConfigFileUsed(); path != "" {
		return path
	}
	return ".crossver/config.yaml"
}
