// Package main is the CLI entry point for kegscrub.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

var (
	cfgFile string
	verbose bool
	quiet   bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, newRootCmd()); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kegscrub",
		Short: "Normalize freshly installed kegs",
		Long: `kegscrub post-processes an installed package directory: it removes libtool
archives and info documentation, forces read-only permissions on installed
files, and prunes empty directories and dangling symlinks.`,
		SilenceUsage: true,
	}

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		setupLoggingWithWriter(cmd.ErrOrStderr())
		return nil
	}

	root.PersistentFlags().
		StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.config/kegscrub/config.toml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every change")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress informational output")
	root.MarkFlagsMutuallyExclusive("verbose", "quiet")

	root.AddGroup(
		&cobra.Group{ID: "keg", Title: "Keg:"},
		&cobra.Group{ID: "config", Title: "Configuration:"},
	)

	root.AddCommand(cleanCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(cfgCmd())

	return root
}

func setupLoggingWithWriter(w io.Writer) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	} else if quiet {
		level = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})))
}
