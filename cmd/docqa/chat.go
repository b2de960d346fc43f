package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/WessleyAI/docqa/engine/domain"
)

var (
	prompt   = color.New(color.FgMagenta, color.Bold).SprintFunc()
	failText = color.New(color.FgRed).SprintFunc()
)

func newChatCmd(g *globalFlags) *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask questions interactively; an empty line or \"exit\" quits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := startCLI(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()
			return chatLoop(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), func(ctx context.Context, q string) (*domain.Answer, error) {
				return a.ask(ctx, q, k)
			})
		},
	}
	cmd.Flags().IntVar(&k, "k", 0, "passages to retrieve (default TOP_K)")
	return cmd
}

type askFunc func(ctx context.Context, question string) (*domain.Answer, error)

// chatLoop reads one question per line until EOF, a blank line or "exit".
// A failed question is reported and the loop carries on.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, ask askFunc) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt("> "))
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		q := strings.TrimSpace(sc.Text())
		if q == "" || q == "exit" || q == "quit" {
			return nil
		}

		answer, err := ask(ctx, q)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintln(out, failText("error: "+err.Error()))
			continue
		}
		printAnswer(out, answer)
		fmt.Fprintln(out)
	}
}
