package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/WessleyAI/docqa/engine/config"
	"github.com/WessleyAI/docqa/engine/domain"
)

var (
	answerHeading = color.New(color.FgCyan, color.Bold).SprintFunc()
	sourceHeading = color.New(color.FgYellow, color.Bold).SprintFunc()
	sourceTitle   = color.New(color.FgGreen).SprintFunc()
)

func newAskCmd(g *globalFlags) *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question and print its sources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := startCLI(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			answer, err := a.ask(cmd.Context(), strings.Join(args, " "), k)
			if err != nil {
				return err
			}
			printAnswer(cmd.OutOrStdout(), answer)
			return nil
		},
	}
	cmd.Flags().IntVar(&k, "k", 0, "passages to retrieve (default TOP_K)")
	return cmd
}

// startCLI wires the pipeline for an interactive command. Logs go to stderr
// so answers stay clean on stdout.
func startCLI(ctx context.Context, g *globalFlags) (*app, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, err
	}
	if cfg.LogFormat == "json" && os.Getenv("LOG_FORMAT") == "" {
		cfg.LogFormat = "text"
	}
	logger, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return openCLI(ctx, cfg, !g.noIndex, logger)
}

func openCLI(ctx context.Context, cfg config.Config, indexAtStart bool, logger *slog.Logger) (*app, error) {
	a, err := bootstrap(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if indexAtStart {
		if _, err := a.indexDocs(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("indexing: %w", err)
		}
	}
	return a, nil
}

// printAnswer writes the answer followed by one "- title (source)" line per
// citation.
func printAnswer(w io.Writer, answer *domain.Answer) {
	fmt.Fprintln(w, answerHeading("Answer:"))
	fmt.Fprintln(w, answer.Content)
	if len(answer.Citations) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, sourceHeading("Sources:"))
	for _, c := range answer.Citations {
		fmt.Fprintf(w, "- %s (%s)\n", sourceTitle(c.Title), c.Source)
	}
}
