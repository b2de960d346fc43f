package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/WessleyAI/docqa/engine/domain"
	"github.com/WessleyAI/docqa/engine/ingest"
)

func newWatchCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the report of every batch indexed by running servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if cfg.NATSURL == "" {
				return domain.NewConfigurationError("NATS_URL", "", "required for watch")
			}
			nc, err := nats.Connect(cfg.NATSURL, nats.Name("docqa-watch"))
			if err != nil {
				return fmt.Errorf("nats connect: %w", err)
			}
			defer nc.Close()

			sub, err := ingest.WatchReports(nc, cfg.IngestSubject, reportPrinter(cmd.OutOrStdout()), nil)
			if err != nil {
				return fmt.Errorf("nats subscribe: %w", err)
			}
			defer sub.Unsubscribe()

			fmt.Fprintf(cmd.OutOrStdout(), "watching %s\n", ingest.ReportSubject(cfg.IngestSubject))
			<-cmd.Context().Done()
			return nil
		},
	}
}

// reportPrinter formats reports one per line; NATS may call it from several
// goroutines.
func reportPrinter(w io.Writer) func(context.Context, ingest.Report) {
	var mu sync.Mutex
	return func(_ context.Context, r ingest.Report) {
		mu.Lock()
		defer mu.Unlock()
		if r.Error != "" {
			fmt.Fprintf(w, "%s %d documents: %s\n", failText("failed"), r.Documents, r.Error)
			return
		}
		fmt.Fprintf(w, "indexed %d documents as %d chunks\n", r.Documents, r.Chunks)
	}
}
