// Package main implements the docqa command: an HTTP API, a terminal chat and
// an ingestion publisher over one retrieval-augmented answering pipeline.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/docqa/engine/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	envFiles []string
	noIndex  bool
}

// load reads .env files and then the process environment.
func (g *globalFlags) load() (config.Config, error) {
	if err := config.LoadDotEnv(g.envFiles...); err != nil {
		return config.Config{}, err
	}
	return config.Load(os.Getenv)
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "docqa",
		Short:         "Ask questions about a directory of technical documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `docqa chunks and embeds markdown documents into a vector index and answers
questions from the passages it retrieves, citing the sources it quotes.

Configuration comes from the environment and from .env files.`,
	}
	root.PersistentFlags().StringSliceVar(&g.envFiles, "env-file", nil, "dotenv files to load (default .env)")
	root.PersistentFlags().BoolVar(&g.noIndex, "no-index", false, "do not index DOCS_DIR at startup")

	root.AddCommand(
		newServeCmd(g),
		newAskCmd(g),
		newChatCmd(g),
		newPushCmd(g),
		newWatchCmd(g),
	)
	return root
}
