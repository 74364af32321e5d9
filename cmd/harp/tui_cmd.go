package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hackutd/harp-sub000/cmd/harp/tui"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func triageCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "triage",
		Aliases: []string{"tui"},
		Short:   "Review your pending applications",
		Long: `Open the review queue. Arrow keys move through it, enter expands the
selected review, tab edits notes and ctrl+j / ctrl+k / ctrl+l vote reject,
waitlist or accept. Press ? for every shortcut.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), "pending")
		},
	}
}

func completedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completed",
		Short: "Browse the reviews you already decided (read-only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), "completed")
		},
	}
}

// runTUI checks the terminal and the server before taking over the screen,
// so failures print normally instead of flashing inside the alt screen.
func runTUI(ctx context.Context, view string) error {
	if !isTerminal(os.Stdout.Fd()) || !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("the %s view needs an interactive terminal; use `harp reviews` or `harp applications` for scripts", view)
	}

	c, cfg, err := newClient()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := c.Health(pingCtx); err != nil {
		return describeClientError(err)
	}

	if err := tui.Run(tui.Config{Client: c, StartView: view, PageSize: cfg.PageSize}); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
