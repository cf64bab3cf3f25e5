package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"butterfly/internal/core"
	"butterfly/internal/storage/config"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

var (
	version = "0.4.0"

	// Global flags
	configDir  string
	configFile string
	dataDir    string
	verbose    bool
	jsonOutput bool
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "butterfly",
	Short: "Butterfly - mod manager for Hollow Knight",
	Long: `butterfly installs, enables, disables and updates Hollow Knight mods
from the community mod catalog, and manages mod profiles and the modding API.

Run 'butterfly sync' first to fetch the catalog, then 'butterfly --help'
for available commands.`,
	Version:       version,
	SilenceUsage:  true, // Runtime errors should not print usage
	SilenceErrors: true, // We handle error output in Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default: ~/.config/butterfly)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config-file", "", "explicit config file, overrides --config")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default: ~/.local/share/Butterfly)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format (list, sync, update, profile list, history, api status)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// colorEnabled reports whether colored output should be used.
// NO_COLOR disables color when set to any value, per https://no-color.org
func colorEnabled() bool {
	if noColor {
		return false
	}
	return os.Getenv("NO_COLOR") == ""
}

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

func colorGreen(s string) string {
	if !colorEnabled() {
		return s
	}
	return green(s)
}

func colorRed(s string) string {
	if !colorEnabled() {
		return s
	}
	return red(s)
}

func colorYellow(s string) string {
	if !colorEnabled() {
		return s
	}
	return yellow(s)
}

func colorFaint(s string) string {
	if !colorEnabled() {
		return s
	}
	return faint(s)
}

// Execute runs the root command. Exit codes: 0 = success, 1 = error.
// When --json is set and an error occurs, prints {"error":"..."} to stdout.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if jsonOutput {
			fmt.Printf(`{"error":%q}`+"\n", err.Error())
		} else {
			fmt.Fprintf(os.Stderr, "%s %v\n", colorRed("Error:"), err)
		}
		os.Exit(1)
	}
}

// newLogger builds the console logger commands attach to their context
func newLogger(cmd *cobra.Command, level zerolog.Level) zerolog.Logger {
	if verbose {
		level = zerolog.DebugLevel
	}
	w := zerolog.ConsoleWriter{
		Out:        cmd.ErrOrStderr(),
		NoColor:    !colorEnabled(),
		TimeFormat: "15:04:05",
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(level)
}

// initService creates the core service and returns a context carrying
// the command logger
func initService(cmd *cobra.Command) (*core.Service, context.Context, error) {
	cfg, err := getServiceConfig()
	if err != nil {
		return nil, nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(cmd, zerolog.InfoLevel)
	ctx = logger.WithContext(ctx)

	svc, err := core.NewService(ctx, cfg)
	if err != nil {
		return nil, nil, errors.Errorf("initializing service: %w", err)
	}

	level, err := svc.Config().Level()
	if err != nil {
		svc.Close()
		return nil, nil, err
	}
	logger = newLogger(cmd, level)
	return svc, logger.WithContext(ctx), nil
}

// getServiceConfig returns the service configuration with defaults
func getServiceConfig() (core.ServiceConfig, error) {
	cfg := core.ServiceConfig{
		ConfigDir: configDir,
		DataDir:   dataDir,
	}

	if configFile != "" {
		path, err := config.ParseConfigPath(configFile)
		if err != nil {
			return core.ServiceConfig{}, err
		}
		cfg.ConfigFile = path
	}

	if cfg.ConfigDir != "" && cfg.DataDir != "" {
		return cfg, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return core.ServiceConfig{}, errors.Errorf("home directory: %w", err)
	}
	if cfg.ConfigDir == "" {
		cfg.ConfigDir = filepath.Join(homeDir, ".config", "butterfly")
	}
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(homeDir, ".local", "share", "Butterfly")
	}
	return cfg, nil
}

// printJSON writes v as indented JSON to the command's output
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
