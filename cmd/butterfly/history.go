package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyMod   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent mod operations",
	Long: `Show installs, enables, disables and uninstalls, newest first.

Examples:
  butterfly history
  butterfly history --mod QoL --limit 5`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum entries to show (0 for all)")
	historyCmd.Flags().StringVar(&historyMod, "mod", "", "only entries for this mod")

	rootCmd.AddCommand(historyCmd)
}

// historyJSON is the --json shape of a history entry
type historyJSON struct {
	Mod     string    `json:"mod"`
	Version string    `json:"version,omitempty"`
	Action  string    `json:"action"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	svc, ctx, err := initService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	entries, err := svc.History(ctx, historyMod, historyLimit)
	if err != nil {
		return err
	}

	if jsonOutput {
		rows := make([]historyJSON, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, historyJSON{Mod: e.Mod, Version: e.Version, Action: string(e.Action), Error: e.Error, At: e.At})
		}
		return printJSON(cmd, rows)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No history.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tMOD\tVERSION\tRESULT")
	fmt.Fprintln(w, "----\t------\t---\t-------\t------")
	for _, e := range entries {
		result := colorGreen("ok")
		if !e.Succeeded() {
			result = colorRed(e.Error)
		}
		ver := e.Version
		if ver == "" {
			ver = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.At.Local().Format(time.DateTime), e.Action, e.Mod, ver, result)
	}
	return w.Flush()
}
