package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"butterfly/internal/domain"

	"github.com/spf13/cobra"
)

var (
	listInstalled bool
	listEnabled   bool
	listManual    bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog mods",
	Long: `List the mods of the synced catalog with their install state.

Examples:
  butterfly list
  butterfly list --installed
  butterfly list --manual
  butterfly list --enabled --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listInstalled, "installed", false, "only installed mods")
	listCmd.Flags().BoolVar(&listEnabled, "enabled", false, "only enabled mods")
	listCmd.Flags().BoolVar(&listManual, "manual", false, "list mod folders the catalog does not know about")
	listCmd.MarkFlagsMutuallyExclusive("installed", "enabled", "manual")

	rootCmd.AddCommand(listCmd)
}

// modJSON is the --json shape of a catalog record
type modJSON struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Description  string   `json:"description,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Installed    bool     `json:"installed"`
	Enabled      bool     `json:"enabled"`
}

func runList(cmd *cobra.Command, args []string) error {
	svc, _, err := initService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	out := cmd.OutOrStdout()

	if listManual {
		mods, err := svc.ManualMods()
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd, mods)
		}
		if len(mods) == 0 {
			fmt.Fprintln(out, "No manual mods found.")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tENABLED")
		fmt.Fprintln(w, "----\t-------")
		for _, m := range mods {
			fmt.Fprintf(w, "%s\t%s\n", m.Name, yesNo(m.Enabled))
		}
		return w.Flush()
	}

	var mods []domain.LocalModRecord
	switch {
	case listInstalled:
		mods, err = svc.FetchInstalledMods()
	case listEnabled:
		mods, err = svc.FetchEnabledMods()
	default:
		mods = svc.Settings().Catalog
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		rows := make([]modJSON, 0, len(mods))
		for _, m := range mods {
			rows = append(rows, modJSON{
				Name:         m.Name,
				Version:      m.Version,
				Description:  m.Description,
				Dependencies: m.Dependencies,
				Tags:         m.Tags,
				Installed:    m.Installed,
				Enabled:      m.Enabled,
			})
		}
		return printJSON(cmd, rows)
	}

	if len(mods) == 0 {
		if listInstalled || listEnabled {
			fmt.Fprintln(out, "No mods installed.")
		} else {
			fmt.Fprintln(out, "Catalog is empty; run 'butterfly sync'.")
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tINSTALLED\tENABLED\tDEPENDENCIES")
	fmt.Fprintln(w, "----\t-------\t---------\t-------\t------------")
	for _, m := range mods {
		deps := "-"
		if len(m.Dependencies) > 0 {
			deps = strings.Join(m.Dependencies, ", ")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.Name, m.Version, yesNo(m.Installed), yesNo(m.Enabled), deps)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(out, "\n%d mod(s)\n", len(mods))
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return colorGreen("yes")
	}
	return colorFaint("no")
}
