package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bilgisen/staticd/internal/config"
	"github.com/bilgisen/staticd/internal/publish"
	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload the static root to R2/S3",
	Long: "Upload every file under STATIC_ROOT to the bucket named by R2_BUCKET. " +
		"Objects whose stored SHA-256 matches the local file are skipped.",
	Args: cobra.NoArgs,
	RunE: runPublish,
}

var (
	publishRoot        string
	publishPrefix      string
	publishConcurrency int
	publishDryRun      bool
	publishTimeout     time.Duration
)

func init() {
	publishCmd.Flags().StringVar(&publishRoot, "root", "", "Directory to publish (default: STATIC_ROOT)")
	publishCmd.Flags().StringVar(&publishPrefix, "prefix", "", "Key prefix (default: R2_PREFIX)")
	publishCmd.Flags().IntVar(&publishConcurrency, "concurrency", publish.DefaultConcurrency, "Concurrent uploads")
	publishCmd.Flags().BoolVar(&publishDryRun, "dry-run", false, "Report what would be uploaded without uploading")
	publishCmd.Flags().DurationVar(&publishTimeout, "timeout", 10*time.Minute, "Overall time limit")
}

func runPublish(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	root := cfg.StaticRoot
	if publishRoot != "" {
		root = publishRoot
	}
	prefix := cfg.R2Prefix
	if cmd.Flags().Changed("prefix") {
		prefix = publishPrefix
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	store, err := publish.NewS3Store(ctx, cfg)
	if err != nil {
		return err
	}

	p := publish.New(store, publish.Options{
		Prefix:       prefix,
		Concurrency:  publishConcurrency,
		DryRun:       publishDryRun,
		Dotfiles:     cfg.ServeDotfiles,
		CacheControl: fmt.Sprintf("public, max-age=%d", int(cfg.CacheMaxAge.Seconds())),
	})

	result, err := p.Publish(ctx, root)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	verb := "uploaded"
	if publishDryRun {
		verb = "would upload"
	}
	for _, key := range result.Uploaded {
		fmt.Fprintf(out, "%s  %s\n", verb, key)
	}
	fmt.Fprintf(out, "%d %s, %d unchanged\n", len(result.Uploaded), verb, len(result.Skipped))

	return nil
}
