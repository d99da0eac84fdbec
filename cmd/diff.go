package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/crossver/crossver/internal/model"
	"github.com/crossver/crossver/internal/presentation"
	"github.com/crossver/crossver/internal/resolver"
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Diff registry snapshots between two target versions",
	Long: `Resolve the same subsystem set against two target versions and show
which registry entries change between them. Useful when planning a
domain controller upgrade: the diff shows exactly which addresses gain
or lose transformation on the new target.

Examples:
  crossver diff --from 1.5.0 --to 2.0.0 --host legacy-a
  crossver diff --from 1.5.0 --to 2.0.0 --subsystem web=1.1.0 --no-color`,
	RunE: runDiff,
}

var (
	diffFrom    string
	diffTo      string
	diffNoColor bool
)

var (
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func init() {
	rootCmd.AddCommand(diffCmd)

	diffCmd.Flags().StringVar(&diffFrom, "from", "", "baseline target version")
	diffCmd.Flags().StringVar(&diffTo, "to", "", "comparison target version")
	diffCmd.Flags().BoolVar(&diffNoColor, "no-color", false, "disable colored output")
	diffCmd.Flags().StringVar(&resolveScope, "scope", "host", "resolution scope: host or server")
	diffCmd.Flags().StringVarP(&resolveInventory, "inventory", "i", "",
		"inventory file describing the remote process")
	diffCmd.Flags().StringVar(&resolveHost, "host", "",
		"resolve for a host declared in the config file")
	diffCmd.Flags().StringArrayVarP(&resolveSubsystems, "subsystem", "s", nil,
		"subsystem version pair name=version (repeatable)")

	_ = diffCmd.MarkFlagRequired("from")
	_ = diffCmd.MarkFlagRequired("to")
}

func runDiff(cmd *cobra.Command, args []string) error {
	from, err := model.ParseVersion(diffFrom)
	if err != nil {
		return fmt.Errorf("invalid --from version %q: %w", diffFrom, err)
	}
	to, err := model.ParseVersion(diffTo)
	if err != nil {
		return fmt.Errorf("invalid --to version %q: %w", diffTo, err)
	}

	scope := resolver.Scope(resolveScope)
	if scope != resolver.ScopeHost && scope != resolver.ScopeServer {
		return fmt.Errorf("invalid scope %q: must be host or server", resolveScope)
	}
	versions, err := subsystemVersions()
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		return fmt.Errorf("no subsystem versions: pass --inventory, --host, or --subsystem")
	}

	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	fromSnap, err := svc.Resolve(cmd.Context(), resolver.Request{Scope: scope, Target: from, Versions: versions})
	if err != nil {
		return fmt.Errorf("resolving baseline %s: %w", from, err)
	}
	toSnap, err := svc.Resolve(cmd.Context(), resolver.Request{Scope: scope, Target: to, Versions: versions})
	if err != nil {
		return fmt.Errorf("resolving comparison %s: %w", to, err)
	}

	fromText := presentation.RenderSnapshotText(presentation.FromResolvedRegistry(fromSnap, from.String()))
	toText := presentation.RenderSnapshotText(presentation.FromResolvedRegistry(toSnap, to.String()))

	output := renderRegistryDiff(fromText, toText, !diffNoColor)
	if output == "" {
		fmt.Fprintf(os.Stdout, "no registry changes between %s and %s\n", from, to)
		return nil
	}
	_, err = fmt.Fprint(os.Stdout, output)
	return err
}

// renderRegistryDiff computes a line diff between two rendered snapshots
// and formats it with +/- markers. Equal lines are elided.
func renderRegistryDiff(from, to string, colored bool) string {
	dmp := diffmatchpatch.New()

	// Diff at line granularity: map lines to runes, diff, then map back.
	fromRunes, toRunes, lines := dmp.DiffLinesToRunes(from, to)
	diffs := dmp.DiffMainRunes(fromRunes, toRunes, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var b strings.Builder
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffEqual {
			continue
		}
		for _, line := range strings.Split(strings.TrimRight(d.Text, "\n"), "\n") {
			if line == "" {
				continue
			}
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				b.WriteString(styleLine("+ "+line, addedStyle, colored))
			case diffmatchpatch.DiffDelete:
				b.WriteString(styleLine("- "+line, removedStyle, colored))
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func styleLine(line string, style lipgloss.Style, colored bool) string {
	if !colored {
		return line
	}
	return style.Render(line)
}
