package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/kclejeune/kegscrub/internal/config"
	"github.com/kclejeune/kegscrub/internal/keg"
	"github.com/kclejeune/kegscrub/internal/report"
	"github.com/kclejeune/kegscrub/internal/skip"
)

const defaultGlobalConfigTemplate = `# kegscrub global configuration

[settings]
keep_info = false   # also enabled by HOMEBREW_KEEP_INFO or --keep-info
# report = "{{ .Keg }}: {{ .Total }} changes"

# Paths below every keg that are never touched. Entries are keg-relative
# and may use * and ? wildcards.
[skip]
all = false
paths = []
`

const defaultKegConfigTemplate = `# kegscrub keg configuration
# Only [skip] is allowed here; [settings] is set in the global config
# (~/.config/kegscrub/config.toml).

[skip]
all = false
paths = []
`

func cfgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Aliases: []string{"cfg"},
		Short:   "Manage kegscrub configuration",
		GroupID: "config",
	}
	cmd.AddCommand(cfgInitCmd())
	cmd.AddCommand(cfgShowCmd())
	cmd.AddCommand(cfgValidateCmd())
	cmd.AddCommand(cfgEditCmd())
	return cmd
}

func globalConfigPath() string {
	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.ExpandPath(path)
}

func cfgInitCmd() *cobra.Command {
	var kegDir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a config file with defaults",
		Long: `Create a new kegscrub config file with commented defaults.

By default, creates the global config. Use -k/--keg to create a
` + keg.ConfigName + ` override inside a keg directory instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := globalConfigPath()
			content := defaultGlobalConfigTemplate
			if kegDir != "" {
				path = filepath.Join(config.ExpandPath(kegDir), keg.ConfigName)
				content = defaultKegConfigTemplate
			}

			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config file already exists: %s", path)
			}

			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("creating config directory: %w", err)
			}

			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return fmt.Errorf("writing config file: %w", err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "created %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&kegDir, "keg", "k", "", "create a keg override in this directory")
	return cmd
}

func cfgShowCmd() *cobra.Command {
	var kegDir string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		Long: `Print the effective configuration as TOML. With -k/--keg the keg's
own [skip] rules are merged in, as clean would see them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg.Settings.KeepInfo = cfg.KeepInfo(false, false)
			if cfg.Settings.Report == "" {
				cfg.Settings.Report = report.DefaultTemplate
			}
			if kegDir != "" {
				own, err := config.LoadKegConfig(config.ExpandPath(kegDir), keg.ConfigName)
				if err != nil {
					return err
				}
				cfg.Skip = cfg.Skip.Merge(own)
			}
			return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
		},
	}

	cmd.Flags().StringVarP(&kegDir, "keg", "k", "", "merge the override file of this keg")
	return cmd
}

func cfgValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [keg]...",
		Short: "Validate the global config and keg override files",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			var issues int

			cfg, err := config.Load(cfgFile)
			if err != nil {
				printCheck(w, false, "global config: %v", err)
				issues++
			} else {
				printCheck(w, true, "global config %s", globalConfigPath())
				if _, err := report.New(cfg.Settings.Report); err != nil {
					printCheck(w, false, "settings.report: %v", err)
					issues++
				}
			}

			for _, dir := range args {
				dir = config.ExpandPath(dir)
				rules, err := config.LoadKegConfig(dir, keg.ConfigName)
				if err == nil {
					_, err = skip.New(dir, rules)
				}
				if err != nil {
					printCheck(w, false, "%v", err)
					issues++
					continue
				}
				printCheck(w, true, "keg config %s (%d paths)", filepath.Join(dir, keg.ConfigName), len(rules.Paths))
			}

			return printSummary(w, issues)
		},
	}
}

func cfgEditCmd() *cobra.Command {
	var kegDir string

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Open the config file in $EDITOR",
		Long: `Open the global config, or a keg's override file with -k/--keg,
in your editor.

The editor is determined by $EDITOR, falling back to $VISUAL.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			editor := os.Getenv("EDITOR")
			if editor == "" {
				editor = os.Getenv("VISUAL")
			}
			if editor == "" {
				return fmt.Errorf("$EDITOR is not set")
			}

			target := globalConfigPath()
			if kegDir != "" {
				target = filepath.Join(config.ExpandPath(kegDir), keg.ConfigName)
			}

			c := exec.CommandContext(cmd.Context(), editor, target)
			c.Stdin = os.Stdin
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			return c.Run()
		},
	}

	cmd.Flags().StringVarP(&kegDir, "keg", "k", "", "edit the override file of this keg")
	return cmd
}
