package main

import (
	"butterfly/internal/tui"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal UI for browsing the catalog, installing
and toggling mods, and managing profiles.

Keybindings follow the keybindings setting in config.yaml (vim or standard).`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	svc, ctx, err := initService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	// Log lines would tear the alternate screen
	ctx = zerolog.Nop().WithContext(ctx)
	return tui.Run(ctx, svc, svc.Config().Keybindings)
}
