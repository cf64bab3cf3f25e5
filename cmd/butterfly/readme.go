package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var readmeCmd = &cobra.Command{
	Use:   "readme <name>",
	Short: "Show an installed mod's readme",
	Args:  cobra.ExactArgs(1),
	RunE:  runReadme,
}

func init() {
	rootCmd.AddCommand(readmeCmd)
}

func runReadme(cmd *cobra.Command, args []string) error {
	svc, _, err := initService(cmd)
	if err != nil {
		return err
	}
	defer svc.Close()

	text, err := svc.Readme(args[0])
	if err != nil {
		return err
	}
	if text == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s has no readme.\n", args[0])
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}
