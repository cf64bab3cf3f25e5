package main

import (
	"context"
	"fmt"

	"butterfly/internal/core"

	"github.com/spf13/cobra"
)

var enableCmd = &cobra.Command{
	Use:   "enable <name>...",
	Short: "Enable installed mods",
	Long: `Move disabled mods back into the Mods folder so the game loads them.

Examples:
  butterfly enable QoL
  butterfly enable QoL Vasi`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLifecycle(cmd, args, "Enabled", (*core.Service).EnableMod)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <name>...",
	Short: "Disable installed mods",
	Long: `Move mods into Mods/Disabled so the game skips them. Files are kept.

Examples:
  butterfly disable QoL`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLifecycle(cmd, args, "Disabled", (*core.Service).DisableMod)
	},
}

var uninstallCmd = &cobra.Command{
	Use:     "uninstall <name>...",
	Aliases: []string{"remove", "rm"},
	Short:   "Uninstall mods",
	Long: `Delete mods from disk, whether enabled or disabled.

Examples:
  butterfly uninstall QoL`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLifecycle(cmd, args, "Uninstalled", (*core.Service).UninstallMod)
	},
}

func init() {
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(uninstallCmd)
}

// runLifecycle applies op to each named mod, stopping at the first failure
func runLifecycle(cmd *cobra.Command, names []string, verb string, op func(*core.Service, context.Context, string) error) error {
	svc, ctx, err := initService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	for _, name := range names {
		if err := op(svc, ctx, name); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", colorGreen("✓"), verb, name)
	}
	return nil
}
