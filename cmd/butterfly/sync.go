package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch the mod catalog",
	Long: `Download the mod catalog and reconcile it with the Mods folder.

When the catalog cannot be reached, the last fetched copy is used.

Examples:
  butterfly sync`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

// syncJSON is the --json shape of a sync result
type syncJSON struct {
	Mods      int       `json:"mods"`
	New       []string  `json:"new"`
	Outdated  []string  `json:"outdated"`
	FromCache bool      `json:"from_cache"`
	CachedAt  time.Time `json:"cached_at,omitzero"`
}

func runSync(cmd *cobra.Command, args []string) error {
	svc, ctx, err := initService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	res, err := svc.SyncCatalog(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd, syncJSON{
			Mods:      len(res.Catalog),
			New:       nonNil(res.New),
			Outdated:  nonNil(res.Outdated),
			FromCache: res.FromCache,
			CachedAt:  res.CachedAt,
		})
	}

	out := cmd.OutOrStdout()
	if res.FromCache {
		fmt.Fprintf(out, "%s catalog unreachable, using copy from %s\n",
			colorYellow("!"), res.CachedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintf(out, "%s %d mods in catalog\n", colorGreen("✓"), len(res.Catalog))
	if len(res.New) > 0 {
		fmt.Fprintf(out, "  New: %s\n", strings.Join(res.New, ", "))
	}
	if len(res.Outdated) > 0 {
		fmt.Fprintf(out, "  %s %s\n", colorYellow("Updates available:"), strings.Join(res.Outdated, ", "))
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
