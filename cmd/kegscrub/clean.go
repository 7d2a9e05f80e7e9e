package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kclejeune/kegscrub/internal/cleaner"
	"github.com/kclejeune/kegscrub/internal/config"
	"github.com/kclejeune/kegscrub/internal/keg"
	"github.com/kclejeune/kegscrub/internal/report"
	"github.com/kclejeune/kegscrub/internal/skip"
)

func cleanCmd() *cobra.Command {
	var (
		keepInfo bool
		skipArgs []string
		format   string
	)

	cmd := &cobra.Command{
		Use:     "clean <keg>...",
		Short:   "Clean one or more installed kegs",
		GroupID: "keg",
		Long: `Normalize each keg directory in place:

  - delete libtool archives (*.la) and lib/charset.alias
  - set installed files to 0444, or 0555 for Mach-O, ELF and executable scripts
  - remove share/info (or only share/info/dir with --keep-info)
  - remove empty directories and dangling symlinks

Paths listed under [skip] in the config, in <keg>/.kegscrub.toml or via
--skip are never touched.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if format == "" {
				format = cfg.Settings.Report
			}
			renderer, err := report.New(format)
			if err != nil {
				return err
			}
			extra := skip.Rules{Paths: skipArgs}
			if err := extra.Validate(); err != nil {
				return fmt.Errorf("--skip: %w", err)
			}
			keep := cfg.KeepInfo(keepInfo, cmd.Flags().Changed("keep-info"))

			var failed int
			for _, path := range args {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				k, err := openKeg(path, cfg.Skip.Merge(extra))
				if err != nil {
					slog.Error("skipping keg", "path", path, "error", err)
					failed++
					continue
				}

				var summary cleaner.Summary
				c := cleaner.New(cleaner.Options{
					KeepInfo: keep,
					Observer: cleaner.Tee(summary.Observe, logEvent),
				})
				runErr := c.Run(cmd.Context(), k)
				errs := cleaner.Errors(runErr)
				for _, e := range errs {
					slog.Warn("clean", "keg", k.String(), "error", e)
				}

				d := report.NewData(k.String(), k.Name(), k.Version(), k.Root(), summary, len(errs))
				if err := renderer.Render(cmd.OutOrStdout(), d); err != nil {
					return err
				}
				if ctxErr := cmd.Context().Err(); ctxErr != nil {
					return ctxErr
				}
				if runErr != nil {
					failed++
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d keg(s) failed to clean", failed)
			}
			return nil
		},
	}

	cmd.Flags().
		BoolVar(&keepInfo, "keep-info", false, "keep share/info and remove only its dir index (env: "+config.KeepInfoEnv+")")
	cmd.Flags().
		StringArrayVar(&skipArgs, "skip", nil, "keg-relative path or glob to leave untouched (repeatable)")
	cmd.Flags().
		StringVar(&format, "format", "", "report template (default: settings.report or the built-in line)")
	return cmd
}

// openKeg merges the global rules with the keg's own override file.
func openKeg(path string, rules skip.Rules) (*keg.Keg, error) {
	own, err := config.LoadKegConfig(path, keg.ConfigName)
	if err != nil {
		return nil, err
	}
	return keg.Open(path, rules.Merge(own))
}

func logEvent(e cleaner.Event) {
	if e.Kind == cleaner.Chmod {
		slog.Debug(e.Kind.String(), "path", e.Path,
			"old", fmt.Sprintf("%o", e.OldMode), "new", fmt.Sprintf("%o", e.NewMode))
		return
	}
	slog.Debug(e.Kind.String(), "path", e.Path)
}
