package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kclejeune/kegscrub/internal/cleaner"
	"github.com/kclejeune/kegscrub/internal/config"
	"github.com/kclejeune/kegscrub/internal/fsutil"
	"github.com/kclejeune/kegscrub/internal/symlink"
)

func checkCmd() *cobra.Command {
	var keepInfo bool

	cmd := &cobra.Command{
		Use:     "check <keg>",
		Aliases: []string{"doctor"},
		Short:   "Report what clean would change, without changing it",
		GroupID: "keg",
		Long: `Run a series of read-only checks against a keg:

  - Global and keg config validity
  - Keg name, version and active skip rules
  - Removable files and wrong permissions in bin, sbin and lib
  - Info documentation that would be removed
  - Empty directories and dangling symlinks

Only the first layer of changes is reported: a directory that becomes
empty once its contents are removed is not listed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			var issues int

			// 1. Global config.
			cfg, err := config.Load(cfgFile)
			if err != nil {
				printCheck(w, false, "global config: %v", err)
				return printSummary(w, issues+1)
			}
			printCheck(w, true, "global config loaded")

			// 2. Keg and its override file.
			k, err := openKeg(args[0], cfg.Skip)
			if err != nil {
				printCheck(w, false, "keg: %v", err)
				return printSummary(w, issues+1)
			}
			if v := k.SemVer(); v != nil {
				printCheck(w, true, "keg %s (version %s)", k, v)
			} else {
				printCheck(w, true, "keg %s (unversioned directory name)", k)
			}
			if rules := k.SkipRules(); len(rules) > 0 {
				printCheck(w, true, "skip rules: %s", strings.Join(rules, ", "))
			}

			// 3. Pending changes.
			keep := cfg.KeepInfo(keepInfo, cmd.Flags().Changed("keep-info"))
			f, err := cleaner.New(cleaner.Options{KeepInfo: keep}).Inspect(cmd.Context(), k)
			for _, e := range cleaner.Errors(err) {
				printCheck(w, false, "%v", e)
				issues++
			}

			issues += printFindings(w, "removable file", f.Removable)
			issues += printFindings(w, "wrong permissions", f.Permissions)
			issues += printFindings(w, "empty directory", f.EmptyDirs)
			for _, link := range f.DanglingLinks {
				if target, err := symlink.Resolve(fsutil.OS{}, link); err == nil {
					printCheck(w, false, "dangling symlink: %s -> %s", link, target)
				} else {
					printCheck(w, false, "dangling symlink: %s", link)
				}
				issues++
			}
			if f.Docs != "" {
				printCheck(w, false, "documentation to remove: %s", f.Docs)
				issues++
			}
			if f.Empty() && err == nil {
				printCheck(w, true, "keg is clean")
			}

			return printSummary(w, issues)
		},
	}

	cmd.Flags().
		BoolVar(&keepInfo, "keep-info", false, "check as if share/info is kept (env: "+config.KeepInfoEnv+")")
	return cmd
}

func printFindings(w io.Writer, what string, paths []string) int {
	for _, p := range paths {
		printCheck(w, false, "%s: %s", what, p)
	}
	return len(paths)
}

func printCheck(w io.Writer, ok bool, format string, args ...any) {
	prefix := "ok"
	if !ok {
		prefix = "!!"
	}
	msg := fmt.Sprintf(format, args...)
	// Indent continuation lines.
	msg = strings.ReplaceAll(msg, "\n", "\n      ")
	fmt.Fprintf(w, "  [%s] %s\n", prefix, msg)
}

func printSummary(w io.Writer, issues int) error {
	fmt.Fprintln(w)
	if issues == 0 {
		fmt.Fprintln(w, "No issues found.")
		return nil
	}
	return fmt.Errorf("%d issue(s) found", issues)
}
