package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bilgisen/staticd/internal/bundle"
	"github.com/spf13/cobra"
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Check build output against the bundle configurations",
	Long: "Verify that every file the client, app and server builds produce exists under the project base, " +
		"and report source files that the copy rules should have excluded.",
	Args: cobra.NoArgs,
	RunE: runLayout,
}

var (
	layoutBase       string
	layoutJSON       bool
	layoutShowConfig bool
)

func init() {
	layoutCmd.Flags().StringVar(&layoutBase, "base", ".", "Project base directory containing output/")
	layoutCmd.Flags().BoolVar(&layoutJSON, "json", false, "Print the report as JSON")
	layoutCmd.Flags().BoolVar(&layoutShowConfig, "show-config", false, "Print the build configurations and exit")
}

func runLayout(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfgs := bundle.Defaults()

	if layoutShowConfig {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(cfgs)
	}

	report, err := bundle.Verify(os.DirFS(layoutBase), cfgs...)
	if err != nil {
		return fmt.Errorf("failed to verify layout: %w", err)
	}

	if layoutJSON {
		if err := json.NewEncoder(out).Encode(report); err != nil {
			return err
		}
	} else {
		for _, f := range report.Missing {
			fmt.Fprintf(out, "missing     %s\n", f)
		}
		for _, f := range report.Unexpected {
			fmt.Fprintf(out, "unexpected  %s\n", f)
		}
		if report.OK() && len(report.Unexpected) == 0 {
			fmt.Fprintln(out, "Layout OK")
		}
	}

	if !report.OK() {
		return fmt.Errorf("%d expected file(s) missing", len(report.Missing))
	}
	return nil
}
