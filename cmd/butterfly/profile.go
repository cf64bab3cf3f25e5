package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

var (
	profileCreateMods []string
	profileExportOut  string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage mod profiles",
	Long: `Manage mod profiles, named sets of mods meant to be enabled together.

For example, you might keep a "speedrun" profile and a "randomizer" profile
and apply whichever you want to play with.`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	Long: `List all profiles. The active profile is marked with *.

Examples:
  butterfly profile list`,
	Args: cobra.NoArgs,
	RunE: runProfileList,
}

var profileCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new profile",
	Long: `Create a profile holding the given mods.

Examples:
  butterfly profile create speedrun --mods QoL,DebugMod
  butterfly profile create empty`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileCreate,
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a profile",
	Long: `Delete a profile. Installed mods are left untouched.

Examples:
  butterfly profile delete old`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileDelete,
}

var profileUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Set the active profile",
	Long: `Mark a profile as active without touching any mods. An empty
name ("") clears the active profile.

Examples:
  butterfly profile use speedrun`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileUse,
}

var profileApplyCmd = &cobra.Command{
	Use:   "apply <name>",
	Short: "Activate a profile and enable its mods",
	Long: `Enable the profile's installed mods, disable every other installed mod,
and mark the profile active. Profile mods that are not installed are reported.

Examples:
  butterfly profile apply speedrun`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileApply,
}

var profileExportCmd = &cobra.Command{
	Use:   "export [name]...",
	Short: "Export profiles",
	Long: `Export profiles (all when no names are given) to a portable YAML document.

Examples:
  butterfly profile export > profiles.yaml
  butterfly profile export speedrun -o speedrun.yaml`,
	RunE: runProfileExport,
}

var profileImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import profiles",
	Long: `Import profiles from a YAML or JSON file. Profiles whose names are
already taken are skipped. Use - to read from stdin.

Examples:
  butterfly profile import profiles.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileImport,
}

func init() {
	profileCreateCmd.Flags().StringSliceVarP(&profileCreateMods, "mods", "m", nil, "mods in the profile (comma separated)")
	profileExportCmd.Flags().StringVarP(&profileExportOut, "output", "o", "", "write to file instead of stdout")

	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileCreateCmd)
	profileCmd.AddCommand(profileDeleteCmd)
	profileCmd.AddCommand(profileUseCmd)
	profileCmd.AddCommand(profileApplyCmd)
	profileCmd.AddCommand(profileExportCmd)
	profileCmd.AddCommand(profileImportCmd)

	rootCmd.AddCommand(profileCmd)
}

// profileJSON is the --json shape of a profile
type profileJSON struct {
	Name   string   `json:"name"`
	Mods   []string `json:"mods"`
	Active bool     `json:"active"`
}

func runProfileList(cmd *cobra.Command, args []string) error {
	svc, _, err := initService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	profiles, current := svc.FetchProfiles()

	if jsonOutput {
		rows := make([]profileJSON, 0, len(profiles))
		for _, p := range profiles {
			rows = append(rows, profileJSON{Name: p.Name, Mods: nonNil(p.Mods), Active: p.Name == current})
		}
		return printJSON(cmd, rows)
	}

	out := cmd.OutOrStdout()
	if len(profiles) == 0 {
		fmt.Fprintln(out, "No profiles.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tNAME\tMODS")
	fmt.Fprintln(w, "\t----\t----")
	for _, p := range profiles {
		marker := ""
		if p.Name == current {
			marker = colorGreen("*")
		}
		mods := "-"
		if len(p.Mods) > 0 {
			mods = strings.Join(p.Mods, ", ")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", marker, p.Name, mods)
	}
	return w.Flush()
}

func runProfileCreate(cmd *cobra.Command, args []string) error {
	svc, ctx, err := initService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.CreateProfile(ctx, args[0], profileCreateMods); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Created profile %s\n", colorGreen("✓"), args[0])
	return nil
}

func runProfileDelete(cmd *cobra.Command, args []string) error {
	svc, ctx, err := initService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.DeleteProfile(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted profile %s\n", colorGreen("✓"), args[0])
	return nil
}

func runProfileUse(cmd *cobra.Command, args []string) error {
	svc, ctx, err := initService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.SetProfile(ctx, args[0]); err != nil {
		return err
	}
	if args[0] == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s Cleared active profile\n", colorGreen("✓"))
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Active profile: %s\n", colorGreen("✓"), args[0])
	return nil
}

func runProfileApply(cmd *cobra.Command, args []string) error {
	svc, ctx, err := initService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	missing, err := svc.ApplyProfile(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Applied profile %s\n", colorGreen("✓"), args[0])
	if len(missing) > 0 {
		fmt.Fprintf(out, "  %s %s\n", colorYellow("Not installed:"), strings.Join(missing, ", "))
	}
	return nil
}

func runProfileExport(cmd *cobra.Command, args []string) error {
	svc, _, err := initService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	data, err := svc.ExportProfiles(args)
	if err != nil {
		return err
	}

	if profileExportOut == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(profileExportOut, data, 0644); err != nil {
		return errors.Errorf("writing %s: %w", profileExportOut, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Exported to %s\n", colorGreen("✓"), profileExportOut)
	return nil
}

func runProfileImport(cmd *cobra.Command, args []string) error {
	svc, ctx, err := initService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	var data []byte
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return errors.Errorf("reading %s: %w", args[0], err)
	}

	names, err := svc.ImportProfiles(ctx, data)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No new profiles imported.")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Imported %s\n", colorGreen("✓"), strings.Join(names, ", "))
	return nil
}
