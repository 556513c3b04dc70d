package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	mkver "github.com/bcomnes/mkver/pkg"
)

func newNextCmd(a *app) *cobra.Command {
	format := "{Version}"
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Print the next version",
		Long: `Print the next version. When no commit since the last tag matches a rule the
last tag's version is printed unchanged.

Placeholders for --format: {Version} {Tag} {TagPrefix} {Major} {Minor} {Patch}
{PreRelease} {BuildMetaData} {Branch} {ShortHash} {FullHash} {CommitCount}
{LastTag} {env.NAME}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.engine()
			if err != nil {
				return err
			}
			_, vars, err := e.Next(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, mkver.Format(format, vars))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", format, "Output template")
	return cmd
}

func newTagCmd(a *app) *cobra.Command {
	var dry bool
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Create an annotated tag for the next version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.engine()
			if err != nil {
				return err
			}
			meta, err := e.Tag(cmd.Context(), dry)
			if err != nil {
				return err
			}
			switch {
			case !meta.Released:
				fmt.Fprintf(a.stdout, "No release needed, staying at %s\n", meta.NewVersion)
			case dry:
				fmt.Fprintf(a.stdout, "Would tag %s\n", meta.Tag)
			default:
				fmt.Fprintf(a.stdout, "Tagged %s\n", meta.Tag)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dry, "dry", false, "Resolve the tag without creating it")
	return cmd
}

func newPatchCmd(a *app) *cobra.Command {
	var dry bool
	cmd := &cobra.Command{
		Use:   "patch",
		Short: "Rewrite version references in the configured files",
		Long: `Rewrite version references in the files listed under "patches" in the config.
Every file is read and checked first; if any mandatory pattern is missing or any
file is unreadable nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.engine()
			if err != nil {
				return err
			}
			meta, plan, err := e.Patch(cmd.Context(), dry)
			if err != nil {
				return err
			}

			if dry {
				fmt.Fprintln(a.stdout, "Dry run complete, no files were modified.")
			}
			fmt.Fprintf(a.stdout, "New Version: %s\n", meta.NewVersion)
			if len(meta.UpdatedFiles) == 0 {
				fmt.Fprintln(a.stdout, "All files already up to date.")
				return nil
			}
			if dry {
				fmt.Fprintln(a.stdout, "Files that would be updated:")
			} else {
				fmt.Fprintln(a.stdout, "Files updated:")
			}
			for _, f := range meta.UpdatedFiles {
				fmt.Fprintf(a.stdout, "  %s\n", f)
			}
			if dry {
				printDiff(a, plan.Diff())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dry, "dry", false, "Show the changes as a diff without writing files")
	return cmd
}

func printDiff(a *app, diff string) {
	add := color.New(color.FgGreen)
	del := color.New(color.FgRed)
	hdr := color.New(color.FgCyan)
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"), strings.HasPrefix(line, "@@"):
			hdr.Fprint(a.stdout, line)
		case strings.HasPrefix(line, "+"):
			add.Fprint(a.stdout, line)
		case strings.HasPrefix(line, "-"):
			del.Fprint(a.stdout, line)
		default:
			fmt.Fprint(a.stdout, line)
		}
	}
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show how the next version was derived",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.engine()
			if err != nil {
				return err
			}
			meta, _, err := e.Next(cmd.Context())
			if err != nil {
				return err
			}

			summary := table.NewWriter()
			summary.SetOutputMirror(a.stdout)
			summary.SetStyle(table.StyleLight)
			old := meta.OldVersion
			if old == "" {
				old = "(none)"
			}
			summary.AppendRows([]table.Row{
				{"Old Version", old},
				{"New Version", meta.NewVersion},
				{"Bump Type", meta.BumpType},
				{"Release", meta.Released},
				{"Tag", meta.Tag},
				{"Branch", meta.State.Branch},
				{"Commits", len(meta.State.Commits)},
			})
			summary.Render()

			if len(meta.Resolution.Commits) == 0 {
				return nil
			}
			commits := table.NewWriter()
			commits.SetOutputMirror(a.stdout)
			commits.SetStyle(table.StyleLight)
			commits.AppendHeader(table.Row{"#", "Commit", "Rule", "Increment"})
			for i, c := range meta.Resolution.Commits {
				rule := "-"
				if c.Rule >= 0 {
					rule = fmt.Sprint(c.Rule)
				}
				commits.AppendRow(table.Row{i + 1, firstLine(c.Message), rule, c.Increment})
			}
			commits.Render()
			return nil
		},
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func newInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default mkver.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := mkver.ConfigPath(a.configPath, a.dir)
			if err := mkver.WriteDefaultConfig(path, force); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}
