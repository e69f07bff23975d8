package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bilgisen/staticd/internal/config"
	"github.com/bilgisen/staticd/internal/probe"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe [paths...]",
	Short: "Check that a running server answers",
	Long:  "Request each path from a running server and fail unless every one answers 200. Defaults to / and the client bundle.",
	RunE:  runProbe,
}

var (
	probeURL     string
	probeTimeout time.Duration
	probeRetries int
)

func init() {
	probeCmd.Flags().StringVar(&probeURL, "url", "", "Server base URL (default: http://127.0.0.1:$PORT)")
	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", 5*time.Second, "Per-request timeout")
	probeCmd.Flags().IntVar(&probeRetries, "retries", 2, "Retries for transport errors and 5xx responses")
}

func runProbe(cmd *cobra.Command, args []string) error {
	base := probeURL
	if base == "" {
		port := config.DefaultPort
		if cfg, err := config.Load(); err == nil {
			port = cfg.Port
		}
		base = fmt.Sprintf("http://127.0.0.1:%d", port)
	}

	paths := args
	if len(paths) == 0 {
		paths = []string{"/", "/client-bundle.js"}
	}

	p := probe.New(probeTimeout, probeRetries)
	results, err := p.CheckAll(context.Background(), base, paths)

	out := cmd.OutOrStdout()
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(out, "FAIL  %s  %v\n", r.URL, r.Err)
			continue
		}
		status := "OK  "
		if !r.OK() {
			status = "FAIL"
		}
		fmt.Fprintf(out, "%s  %s  %d  %dB  %s\n", status, r.URL, r.Status, r.Bytes, r.Latency.Round(time.Millisecond))
	}

	return err
}
