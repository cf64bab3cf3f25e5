package main

import (
	"context"
	"fmt"
	"time"

	"butterfly/internal/core"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

var (
	installVersion string
	installLink    string
	installHash    string
	installFile    string
	installNoDeps  bool
)

var installCmd = &cobra.Command{
	Use:   "install <name>",
	Short: "Install a mod",
	Long: `Install a mod from the synced catalog, its dependencies first.

A mod that is already on disk is enabled instead of downloaded again.
With --link the catalog is bypassed; with --file a local .dll or .zip
is installed as a manual mod.

Examples:
  butterfly install QoL
  butterfly install QoL --no-deps
  butterfly install MyMod --link https://example.com/MyMod.zip --hash <sha256>
  butterfly install --file ~/Downloads/MyMod.dll`,
	Args: func(cmd *cobra.Command, args []string) error {
		if installFile != "" {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installVersion, "version", "", "version to record (with --link)")
	installCmd.Flags().StringVar(&installLink, "link", "", "download URL, bypassing the catalog")
	installCmd.Flags().StringVar(&installHash, "hash", "", "expected SHA-256 of the download (with --link)")
	installCmd.Flags().StringVarP(&installFile, "file", "f", "", "install a local .dll or .zip")
	installCmd.Flags().BoolVar(&installNoDeps, "no-deps", false, "skip installing dependencies")

	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	svc, ctx, err := initService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	out := cmd.OutOrStdout()

	if installFile != "" {
		name, err := svc.InstallManual(ctx, installFile)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s Installed %s from %s\n", colorGreen("✓"), name, installFile)
		return nil
	}

	name := args[0]
	req := core.InstallRequest{Name: name, Version: installVersion, SHA256: installHash, Link: installLink}

	if installLink == "" {
		rec, err := svc.CatalogEntry(name)
		if err != nil {
			return errors.Errorf("%w; run 'butterfly sync' to refresh the catalog", err)
		}
		req = core.InstallRequest{Name: rec.Name, Version: rec.Version, SHA256: rec.SHA256, Link: rec.Link}

		if !installNoDeps {
			for _, dep := range rec.Dependencies {
				fmt.Fprintf(out, "Installing dependency %s\n", dep)
				if err := svc.InstallCatalogMod(ctx, dep); err != nil {
					return errors.Errorf("installing dependency %s: %w", dep, err)
				}
			}
		}
	}

	h, err := svc.StartInstallMod(ctx, req.Name, req.Version, req.SHA256, req.Link)
	if err != nil {
		return err
	}
	if err := waitForInstall(ctx, cmd, h); err != nil {
		return err
	}

	if req.Version != "" {
		fmt.Fprintf(out, "%s Installed %s %s\n", colorGreen("✓"), req.Name, req.Version)
	} else {
		fmt.Fprintf(out, "%s Installed %s\n", colorGreen("✓"), req.Name)
	}
	return nil
}

// progressInterval is how often the install progress bar is refreshed
const progressInterval = 100 * time.Millisecond

// waitForInstall blocks until h finishes, drawing a progress bar on stderr
// unless JSON output was requested
func waitForInstall(ctx context.Context, cmd *cobra.Command, h *core.InstallHandle) error {
	if jsonOutput {
		return h.Wait(ctx)
	}

	bar, err := pterm.DefaultProgressbar.
		WithTotal(100).
		WithTitle(h.Mod).
		WithWriter(cmd.ErrOrStderr()).
		WithRemoveWhenDone(true).
		Start()
	if err != nil {
		return h.Wait(ctx)
	}
	defer bar.Stop()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	advance := func() {
		if delta := h.Percent() - bar.Current; delta > 0 {
			bar.Add(delta)
		}
	}

	for {
		select {
		case <-h.Done():
			advance()
			return h.Err()
		case <-ctx.Done():
			h.Cancel()
			return ctx.Err()
		case <-ticker.C:
			advance()
		}
	}
}
