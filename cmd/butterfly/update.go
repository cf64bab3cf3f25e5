package main

import (
	"fmt"
	"slices"
	"text/tabwriter"

	"butterfly/internal/domain"

	"github.com/spf13/cobra"
)

var updateCheck bool

var updateCmd = &cobra.Command{
	Use:   "update [name]...",
	Short: "Update installed mods",
	Long: `Reinstall installed mods whose catalog version differs from the local one.

With names, only those mods are considered. With --check, the available
updates are listed without installing anything.

Examples:
  butterfly update
  butterfly update QoL
  butterfly update --check`,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&updateCheck, "check", false, "only list available updates")

	rootCmd.AddCommand(updateCmd)
}

// updateJSON is the --json shape of one available update
type updateJSON struct {
	Name      string `json:"name"`
	Installed string `json:"installed"`
	Available string `json:"available"`
	Updated   bool   `json:"updated"`
}

func runUpdate(cmd *cobra.Command, args []string) error {
	svc, ctx, err := initService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	outdated, err := svc.Outdated(ctx)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		outdated = slices.DeleteFunc(outdated, func(e domain.ModManifestEntry) bool {
			return !slices.Contains(args, e.Name)
		})
	}

	installed := make(map[string]string, len(outdated))
	for _, e := range outdated {
		if rec, err := svc.CatalogEntry(e.Name); err == nil {
			installed[e.Name] = rec.Version
		}
	}

	out := cmd.OutOrStdout()
	if len(outdated) == 0 {
		if jsonOutput {
			return printJSON(cmd, []updateJSON{})
		}
		fmt.Fprintln(out, "All mods are up to date.")
		return nil
	}

	rows := make([]updateJSON, 0, len(outdated))
	var firstErr error
	for _, e := range outdated {
		row := updateJSON{Name: e.Name, Installed: installed[e.Name], Available: e.Version}
		if !updateCheck {
			if err := svc.UpdateMod(ctx, e); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				if !jsonOutput {
					fmt.Fprintf(out, "%s %s: %v\n", colorRed("✗"), e.Name, err)
				}
			} else {
				row.Updated = true
				if !jsonOutput {
					fmt.Fprintf(out, "%s Updated %s %s -> %s\n", colorGreen("✓"), e.Name, row.Installed, e.Version)
				}
			}
		}
		rows = append(rows, row)
	}

	if jsonOutput {
		if err := printJSON(cmd, rows); err != nil {
			return err
		}
		return firstErr
	}

	if updateCheck {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tINSTALLED\tAVAILABLE")
		fmt.Fprintln(w, "----\t---------\t---------")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Installed, colorYellow(r.Available))
		}
		return w.Flush()
	}
	return firstErr
}
