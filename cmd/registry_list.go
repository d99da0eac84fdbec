package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/crossver/crossver/internal/presentation"
)

var registryListCmd = &cobra.Command{
	Use:   "registry:list",
	Short: "List registered subsystems and their transformable versions",
	Long: `List every subsystem registered from the manifest directory together
with the model versions it can transform to.

Examples:
  crossver registry:list
  crossver registry:list --subsystem web
  crossver registry:list | jq '.[].versions'`,
	RunE: runRegistryList,
}

var registryListSubsystem string

func init() {
	rootCmd.AddCommand(registryListCmd)

	registryListCmd.Flags().StringVarP(&registryListSubsystem, "subsystem", "s", "",
		"only show the named subsystem")
}

func runRegistryList(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	subsystems := presentation.FromDomainTransformers(svc.Transformers())
	if registryListSubsystem != "" {
		filtered := subsystems[:0]
		for _, sub := range subsystems {
			if sub.Name == registryListSubsystem {
				filtered = append(filtered, sub)
			}
		}
		subsystems = filtered
	}

	return presentation.NewFormatter(os.Stdout).FormatSubsystems(subsystems)
}
