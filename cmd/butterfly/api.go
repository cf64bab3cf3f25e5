package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Manage the modding API",
	Long: `Install the Hollow Knight modding API, or switch between the modded and
vanilla game assembly.`,
}

var apiStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the modding API is installed and enabled",
	Args:  cobra.NoArgs,
	RunE:  runAPIStatus,
}

var apiToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Switch between the modded and vanilla assembly",
	Long: `Switch between the modded and vanilla game assembly. When the API has
never been installed, it is installed.`,
	Args: cobra.NoArgs,
	RunE: runAPIToggle,
}

var apiInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Download and install the modding API",
	Args:  cobra.NoArgs,
	RunE:  runAPIInstall,
}

func init() {
	apiCmd.AddCommand(apiStatusCmd)
	apiCmd.AddCommand(apiToggleCmd)
	apiCmd.AddCommand(apiInstallCmd)

	rootCmd.AddCommand(apiCmd)
}

func runAPIStatus(cmd *cobra.Command, args []string) error {
	svc, _, err := initService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	state, err := svc.APIStatus()
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd, map[string]string{"api": state.String()})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Modding API: %s\n", state)
	return nil
}

func runAPIToggle(cmd *cobra.Command, args []string) error {
	svc, ctx, err := initService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	enabled, err := svc.ToggleAPI(ctx)
	if err != nil {
		return err
	}
	if enabled {
		fmt.Fprintf(cmd.OutOrStdout(), "%s Modding API enabled\n", colorGreen("✓"))
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s Modding API disabled, vanilla assembly restored\n", colorGreen("✓"))
	}
	return nil
}

func runAPIInstall(cmd *cobra.Command, args []string) error {
	svc, ctx, err := initService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.InstallAPI(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Modding API installed\n", colorGreen("✓"))
	return nil
}
