package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/scamshield/syndicate/pkg/config"
)

func newInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [DIR]",
		Short: "Write a project config to DIR/.syndicate/config.yaml",
		Long: `Write the effective configuration as a project config so it can be
edited, and add .syndicate/ to the project's .gitignore.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			path := filepath.Join(dir, config.DirName, config.FileName)
			if _, err := os.Stat(path); err == nil && !force {
				return errors.Newf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(path, a.cfg); err != nil {
				return err
			}
			added, err := config.EnsureIgnored(dir)
			if err != nil {
				return err
			}
			a.log.Infow("Wrote project config", "path", path, "gitignore_updated", added)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Wrote %s\n", path)
			if added {
				fmt.Fprintf(w, "Added %s/ to %s\n", config.DirName, filepath.Join(dir, ".gitignore"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing project config")
	return cmd
}
