package main

import (
	"fmt"
	"text/tabwriter"

	"butterfly/internal/locate"

	"github.com/spf13/cobra"
)

var settingsThemePath string

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show and change preferences",
	Long: `Show and change Butterfly preferences: language, theme and the
location of the game's Mods folder.`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsLanguageCmd = &cobra.Command{
	Use:   "language <name>",
	Short: "Set the display language",
	Long: `Set the display language.

Examples:
  butterfly settings language English`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsLanguage,
}

var settingsThemeCmd = &cobra.Command{
	Use:   "theme <name>",
	Short: "Set the theme",
	Long: `Set the theme, optionally with a custom stylesheet.

Examples:
  butterfly settings theme Dark
  butterfly settings theme Custom --path ~/butterfly.css`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsTheme,
}

var settingsPathCmd = &cobra.Command{
	Use:   "path <mods-folder>",
	Short: "Set the Mods folder",
	Long: `Set the game's Mods folder. Its parent (the game's Managed folder)
must exist; the Mods folder itself is created when missing.

Examples:
  butterfly settings path "~/.local/share/Steam/steamapps/common/Hollow Knight/hollow_knight_Data/Managed/Mods"`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsPath,
}

var settingsDetectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Find the Mods folder automatically",
	Long: `Look for Hollow Knight in Steam libraries and common install folders,
asking for the game folder when it cannot be found, and store its Mods folder.`,
	Args: cobra.NoArgs,
	RunE: runSettingsDetect,
}

func init() {
	settingsThemeCmd.Flags().StringVar(&settingsThemePath, "path", "", "custom stylesheet file")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsLanguageCmd)
	settingsCmd.AddCommand(settingsThemeCmd)
	settingsCmd.AddCommand(settingsPathCmd)
	settingsCmd.AddCommand(settingsDetectCmd)

	rootCmd.AddCommand(settingsCmd)
}

// settingsJSON is the --json shape of the settings
type settingsJSON struct {
	ModsPath       string `json:"mods_path"`
	Language       string `json:"language"`
	Theme          string `json:"theme"`
	ThemePath      string `json:"theme_path,omitempty"`
	CurrentProfile string `json:"current_profile,omitempty"`
	SettingsFile   string `json:"settings_file"`
	API            string `json:"api"`
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	svc, _, err := initService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	st := svc.Settings()
	api := "unknown"
	if state, err := svc.APIStatus(); err == nil {
		api = state.String()
	}

	if jsonOutput {
		return printJSON(cmd, settingsJSON{
			ModsPath:       st.ModsPath,
			Language:       st.Language,
			Theme:          st.Theme,
			ThemePath:      st.ThemePath,
			CurrentProfile: st.CurrentProfile,
			SettingsFile:   svc.SettingsPath(),
			API:            api,
		})
	}

	modsPath := st.ModsPath
	if modsPath == "" {
		modsPath = colorYellow("not set (run 'butterfly settings detect')")
	}
	profile := st.CurrentProfile
	if profile == "" {
		profile = "-"
	}
	theme := st.Theme
	if st.ThemePath != "" {
		theme += " (" + st.ThemePath + ")"
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Mods folder:\t%s\n", modsPath)
	fmt.Fprintf(w, "Language:\t%s\n", st.Language)
	fmt.Fprintf(w, "Theme:\t%s\n", theme)
	fmt.Fprintf(w, "Profile:\t%s\n", profile)
	fmt.Fprintf(w, "Modding API:\t%s\n", api)
	fmt.Fprintf(w, "Settings file:\t%s\n", svc.SettingsPath())
	return w.Flush()
}

func runSettingsLanguage(cmd *cobra.Command, args []string) error {
	svc, ctx, err := initService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.SetLanguage(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Language: %s\n", colorGreen("✓"), args[0])
	return nil
}

func runSettingsTheme(cmd *cobra.Command, args []string) error {
	svc, ctx, err := initService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.SetTheme(ctx, args[0], settingsThemePath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Theme: %s\n", colorGreen("✓"), args[0])
	return nil
}

func runSettingsPath(cmd *cobra.Command, args []string) error {
	svc, ctx, err := initService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.SetModsRoot(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Mods folder: %s\n", colorGreen("✓"), svc.Settings().ModsPath)
	return nil
}

func runSettingsDetect(cmd *cobra.Command, args []string) error {
	svc, ctx, err := initService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	prompter := &locate.TerminalPrompter{In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()}
	resolver := append(locate.Default(), locate.PromptResolver{Prompter: prompter})

	root, err := svc.DetectModsRoot(ctx, resolver)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Mods folder: %s\n", colorGreen("✓"), root)
	return nil
}
