package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crossver/crossver/internal/config"
	"github.com/crossver/crossver/internal/model"
)

var targetSetCmd = &cobra.Command{
	Use:   "target:set <version>",
	Short: "Set the default target model version in the config file",
	Long: `Record the model version resolutions target when --target is not
given. Typically the domain controller's current model version.

Example:
  crossver target:set 2.0.0`,
	Args: cobra.ExactArgs(1),
	RunE: runTargetSet,
}

func init() {
	rootCmd.AddCommand(targetSetCmd)
}

func runTargetSet(cmd *cobra.Command, args []string) error {
	version, err := model.ParseVersion(args[0])
	if err != nil {
		return fmt.Errorf("invalid target version %q: %w", args[0], err)
	}
	if err := config.SaveDefaultTarget(configFilePath(), version.String()); err != nil {
		return fmt.Errorf("saving default target: %w", err)
	}
	fmt.Printf("Default target set to %s\n", version)
	return nil
}
