package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/blang/semver/v4"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	mkver "github.com/bcomnes/mkver/pkg"
)

// preReleaseFlag rejects labels that cannot follow "-" in a version.
type preReleaseFlag string

var _ pflag.Value = (*preReleaseFlag)(nil)

func (p *preReleaseFlag) String() string { return string(*p) }

func (p *preReleaseFlag) Set(v string) error {
	if v != "" {
		if _, err := semver.Parse("0.0.0-" + v); err != nil {
			return fmt.Errorf("invalid pre-release label %q: %v", v, err)
		}
	}
	*p = preReleaseFlag(v)
	return nil
}

func (p *preReleaseFlag) Type() string { return "label" }

// app carries the persistent flags shared by every command.
type app struct {
	configPath string
	dir        string
	preRelease preReleaseFlag
	verbose    bool
	quiet      bool

	stdout io.Writer
	stderr io.Writer
	logger *zap.Logger
}

// engine loads the configuration and binds it to the git repository in dir.
func (a *app) engine() (*mkver.Engine, error) {
	path := mkver.ConfigPath(a.configPath, a.dir)
	cfg, err := mkver.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("loaded config", zap.String("path", path), zap.Int("rules", len(cfg.Rules)), zap.Int("patches", len(cfg.Patches)))
	return &mkver.Engine{
		Dir:        a.dir,
		Config:     cfg,
		Repo:       mkver.Git{Dir: a.dir, Logger: a.logger},
		PreRelease: string(a.preRelease),
		Logger:     a.logger,
	}, nil
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr, logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "mkver",
		Short: "Derive the next semantic version from git history and patch version references",
		Long: `mkver reads the latest version tag and the commit messages since it, classifies
each commit with an ordered list of rules (first match wins), and applies the most
severe increment once to produce the next version.

Examples:
  mkver next
  mkver next --format "{Tag}"
  mkver patch --dry
  mkver tag
  mkver info`,
		Version:       Version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.logger = newLogger(stderr, a.verbose, a.quiet)
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to the config file (default: <dir>/mkver.yaml, or $MKVER_CONFIG)")
	flags.StringVarP(&a.dir, "dir", "C", ".", "Repository directory")
	flags.Var(&a.preRelease, "pre-release", "Pre-release label to attach, e.g. rc")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Log debug details to stderr")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "Only log errors")

	root.AddCommand(
		newNextCmd(a),
		newTagCmd(a),
		newPatchCmd(a),
		newInfoCmd(a),
		newInitCmd(a),
	)
	return root
}

// printError reports the error kind and message, e.g.
// "Error: MissingPatternError: pattern ... not found in version.go". Errors
// outside the taxonomy, such as bad flags, print the message alone.
func printError(w io.Writer, err error) {
	color.New(color.FgRed, color.Bold).Fprint(w, "Error: ")
	if kind := mkver.ErrorKind(err); kind != "Error" {
		fmt.Fprintf(w, "%s: ", kind)
	}
	fmt.Fprintln(w, err)
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		printError(stderr, err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
