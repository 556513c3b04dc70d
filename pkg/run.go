package mkver

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// VersionMeta holds metadata about a resolution and what it touched.
type VersionMeta struct {
	OldVersion   string // last tag's version, empty when untagged
	NewVersion   string
	BumpType     string // major, minor, patch or none
	Tag          string // tag name for NewVersion
	Released     bool
	UpdatedFiles []string // files written, or that would be written on a dry run
	Resolution   Resolution
	State        RepositoryState
}

// Engine ties the repository, configuration, resolver and rewriter together
// for one invocation.
type Engine struct {
	Dir        string
	Config     Config
	Repo       Repository
	PreRelease string // overrides the configured label when set
	Logger     *zap.Logger
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// Next reads the repository and resolves the next version.
func (e *Engine) Next(ctx context.Context) (VersionMeta, Vars, error) {
	var meta VersionMeta
	prefix := e.Config.TagPrefix

	state, err := ReadState(ctx, e.Repo, prefix)
	if err != nil {
		return meta, nil, err
	}
	meta.State = state
	if state.LastTag != nil {
		meta.OldVersion = state.LastTag.String()
	}

	rules, err := e.Config.BumpRules()
	if err != nil {
		return meta, nil, err
	}
	vars := StateVars(state, prefix)
	opts, err := e.Config.ResolveOptions(state.Branch, vars)
	if err != nil {
		return meta, nil, err
	}
	if e.PreRelease != "" {
		if err := validPreRelease(e.PreRelease); err != nil {
			return meta, nil, &ConfigError{Field: "pre-release", Index: -1, Err: err}
		}
		opts.PreRelease = e.PreRelease
	}

	res, err := Resolve(state, rules, opts)
	meta.Resolution = res
	if err != nil {
		return meta, nil, err
	}
	meta.NewVersion = res.Version.String()
	meta.BumpType = res.Increment.String()
	meta.Tag = res.Version.Tag(prefix)
	meta.Released = res.Released
	e.logger().Debug("resolved version",
		zap.String("previous", meta.OldVersion),
		zap.String("next", meta.NewVersion),
		zap.String("increment", meta.BumpType),
		zap.Int("commits", len(state.Commits)))
	return meta, vars.Merge(VersionVars(res.Version, prefix)), nil
}

// Patch resolves the next version and rewrites every configured target.
// With dry set the plan is returned without writing anything.
func (e *Engine) Patch(ctx context.Context, dry bool) (VersionMeta, *Plan, error) {
	meta, vars, err := e.Next(ctx)
	if err != nil {
		return meta, nil, err
	}
	targets, err := e.Config.PatchTargets()
	if err != nil {
		return meta, nil, err
	}

	rw := &Rewriter{Dir: e.Dir, TagPrefix: e.Config.TagPrefix, Vars: vars, Logger: e.logger()}
	plan, err := rw.Plan(meta.Resolution.Version, targets)
	if err != nil {
		return meta, nil, err
	}
	if e.Config.GoModule {
		if err := PlanGoModule(plan, e.dir(), meta.Resolution.Version); err != nil {
			return meta, nil, err
		}
	}

	meta.UpdatedFiles = lo.Map(plan.Writes(), func(w PendingWrite, _ int) string { return w.Path })
	if dry {
		return meta, plan, nil
	}
	report, err := plan.Apply()
	meta.UpdatedFiles = report.Changed
	return meta, plan, err
}

// Tag resolves the next version and creates its annotated tag. Nothing is
// tagged when no release is needed.
func (e *Engine) Tag(ctx context.Context, dry bool) (VersionMeta, error) {
	meta, vars, err := e.Next(ctx)
	if err != nil {
		return meta, err
	}
	if !meta.Released || meta.State.LastTag != nil && meta.Resolution.Version.Compare(*meta.State.LastTag) == 0 {
		e.logger().Info("no release needed", zap.String("version", meta.NewVersion))
		meta.Released = false
		return meta, nil
	}
	if dry {
		return meta, nil
	}
	tagger, ok := e.Repo.(Tagger)
	if !ok {
		return meta, errors.New("repository does not support tagging")
	}
	msg := Format(e.Config.TagMessage, vars)
	return meta, tagger.CreateTag(ctx, meta.Tag, msg)
}

func (e *Engine) dir() string {
	if e.Dir == "" {
		return "."
	}
	return e.Dir
}
