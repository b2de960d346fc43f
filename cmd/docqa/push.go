package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/WessleyAI/docqa/engine/domain"
	"github.com/WessleyAI/docqa/engine/ingest"
)

func newPushCmd(g *globalFlags) *cobra.Command {
	var (
		timeout time.Duration
		async   bool
	)
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Publish DOCS_DIR to a running server over NATS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if cfg.NATSURL == "" {
				return domain.NewConfigurationError("NATS_URL", "", "required for push")
			}
			if cfg.DocsDir == "" {
				return domain.NewConfigurationError("DOCS_DIR", "", "required for push")
			}
			if err := cfg.ValidateIndex(); err != nil {
				return err
			}

			docs, err := loadDocs(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			nc, err := nats.Connect(cfg.NATSURL, nats.Name("docqa-push"))
			if err != nil {
				return fmt.Errorf("nats connect: %w", err)
			}
			defer nc.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if async {
				if err := ingest.Send(ctx, nc, cfg.IngestSubject, docs); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queued %d documents on %s\n", len(docs), cfg.IngestSubject)
				return nil
			}
			report, err := ingest.Publish(ctx, nc, cfg.IngestSubject, docs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents as %d chunks\n", report.Documents, report.Chunks)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for the server's report")
	cmd.Flags().BoolVar(&async, "async", false, "publish and exit without waiting for the report")
	return cmd
}
