package mkver

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// PatchTarget names a file (or glob) and the text locating its version.
//
// Search is literal text unless Regex is set. In literal text the
// {VersionRegex} placeholder marks the single captured span; without it the
// whole occurrence is replaced. A regular expression may have at most one
// capture group, which is replaced when present. Replace is a Format
// template and defaults to {Version}.
type PatchTarget struct {
	Path     string
	Search   string
	Regex    bool
	Replace  string
	Optional bool
}

func (t PatchTarget) compile() (*regexp.Regexp, error) {
	if t.Search == "" {
		return nil, errors.New("empty search pattern")
	}
	if t.Regex {
		re, err := regexp.Compile(t.Search)
		if err != nil {
			return nil, errors.Wrap(err, "compile search pattern")
		}
		if re.NumSubexp() > 1 {
			return nil, errors.Newf("search pattern has %d capture groups, at most one is allowed", re.NumSubexp())
		}
		return re, nil
	}
	parts := strings.Split(t.Search, VersionRegexPlaceholder)
	if len(parts) > 2 {
		return nil, errors.Newf("%s may appear at most once", VersionRegexPlaceholder)
	}
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.Compile(strings.Join(parts, "("+versionRegex+")"))
}

func (t PatchTarget) replacement(vars Vars) string {
	tmpl := t.Replace
	if tmpl == "" {
		tmpl = "{Version}"
	}
	return Format(tmpl, vars)
}

// substitute replaces every match of re in content. With one capture group
// only the captured span changes. found is false when re never matched.
func substitute(re *regexp.Regexp, content []byte, replacement string) (out []byte, found bool) {
	matches := re.FindAllSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return content, false
	}
	var buf bytes.Buffer
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if re.NumSubexp() == 1 {
			if m[2] < 0 {
				continue
			}
			start, end = m[2], m[3]
		}
		buf.Write(content[last:start])
		buf.WriteString(replacement)
		last = end
	}
	buf.Write(content[last:])
	return buf.Bytes(), true
}

// RewriteReport lists what a rewrite touched.
type RewriteReport struct {
	Version   Version
	Changed   []string
	Unchanged []string
}

// Rewriter patches version references under Dir. Vars supplies placeholders
// beyond the version's own.
type Rewriter struct {
	Dir       string
	TagPrefix string
	Vars      Vars
	Logger    *zap.Logger
}

func (r *Rewriter) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Rewriter) path(p string) string {
	if filepath.IsAbs(p) || r.Dir == "" {
		return p
	}
	return filepath.Join(r.Dir, p)
}

// Plan is the read phase. It reads and validates every target and computes
// the new content of each file in memory. Nothing is written; any error
// aborts the whole batch.
func (r *Rewriter) Plan(v Version, targets []PatchTarget) (*Plan, error) {
	plan := newPlan(v, r.logger())
	vars := r.Vars.Merge(VersionVars(v, r.TagPrefix))

	for i, t := range targets {
		re, err := t.compile()
		if err != nil {
			return nil, &ConfigError{Field: fmt.Sprintf("patches[%d].search", i), Index: i, Err: err}
		}
		paths, err := filepath.Glob(r.path(t.Path))
		if err != nil {
			return nil, &ConfigError{Field: fmt.Sprintf("patches[%d].path", i), Index: i, Err: errors.Wrapf(err, "bad path pattern %q", t.Path)}
		}
		if len(paths) == 0 {
			if t.Optional {
				r.logger().Debug("optional patch target matched no files", zap.String("path", t.Path))
				continue
			}
			return nil, &IOError{Path: t.Path, Op: "open", Err: fs.ErrNotExist}
		}

		replacement := t.replacement(vars)
		for _, p := range paths {
			f, err := plan.load(p)
			if err != nil {
				return nil, err
			}
			out, found := substitute(re, f.current, replacement)
			if !found && re.NumSubexp() == 0 && bytes.Contains(f.current, []byte(replacement)) {
				// pattern already replaced by an earlier run
				found = true
			}
			if !found {
				if t.Optional {
					r.logger().Debug("optional pattern not found", zap.String("path", p), zap.String("search", t.Search))
					continue
				}
				return nil, &MissingPatternError{Path: p, Pattern: t.Search}
			}
			f.current = out
		}
	}

	return plan, nil
}

// Rewrite plans and then applies all targets.
func (r *Rewriter) Rewrite(v Version, targets []PatchTarget) (RewriteReport, error) {
	plan, err := r.Plan(v, targets)
	if err != nil {
		return RewriteReport{Version: v}, err
	}
	return plan.Apply()
}

// Rewrite patches targets relative to the working directory.
func Rewrite(v Version, targets []PatchTarget) (RewriteReport, error) {
	return (&Rewriter{}).Rewrite(v, targets)
}

// PendingWrite is a file whose content will change in the commit phase.
type PendingWrite struct {
	Path string
	Mode fs.FileMode
	Old  []byte
	New  []byte
}

type planFile struct {
	path     string
	mode     fs.FileMode
	original []byte
	current  []byte
}

// Plan holds the outcome of the read phase.
type Plan struct {
	Version Version

	order  []string
	files  map[string]*planFile
	logger *zap.Logger
}

func newPlan(v Version, logger *zap.Logger) *Plan {
	return &Plan{Version: v, files: make(map[string]*planFile), logger: logger}
}

// load reads path once; later targets on the same file see earlier edits.
func (p *Plan) load(path string) (*planFile, error) {
	path = filepath.Clean(path)
	key := planKey(path)
	if f, ok := p.files[key]; ok {
		return f, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, &IOError{Path: path, Op: "stat", Err: err}
	}
	if info.IsDir() {
		return nil, &IOError{Path: path, Op: "read", Err: errors.New("is a directory")}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Op: "read", Err: err}
	}
	f := &planFile{path: path, mode: info.Mode().Perm(), original: data, current: data}
	p.files[key] = f
	p.order = append(p.order, key)
	return f, nil
}

// planKey identifies a file regardless of how its path was spelled.
func planKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// stage records new content for path, reading the original first if needed.
func (p *Plan) stage(path string, content []byte) error {
	f, err := p.load(path)
	if err != nil {
		return err
	}
	f.current = content
	return nil
}

// content returns the planned content of path.
func (p *Plan) content(path string) ([]byte, error) {
	f, err := p.load(path)
	if err != nil {
		return nil, err
	}
	return f.current, nil
}

// Writes returns the files whose content changes, in first-read order.
func (p *Plan) Writes() []PendingWrite {
	var out []PendingWrite
	for _, key := range p.order {
		f := p.files[key]
		if !bytes.Equal(f.original, f.current) {
			out = append(out, PendingWrite{Path: f.path, Mode: f.mode, Old: f.original, New: f.current})
		}
	}
	return out
}

// Unchanged returns the files that were read but need no write.
func (p *Plan) Unchanged() []string {
	var out []string
	for _, key := range p.order {
		f := p.files[key]
		if bytes.Equal(f.original, f.current) {
			out = append(out, f.path)
		}
	}
	return out
}

// Apply is the commit phase. New content for every pending file is first
// written to a temporary file beside its target; only when all of them
// succeed are they renamed over the targets. Any failure while staging
// removes the temporary files and leaves every target untouched. A failure
// during the renames themselves can still leave earlier files written.
func (p *Plan) Apply() (RewriteReport, error) {
	report := RewriteReport{Version: p.Version, Unchanged: p.Unchanged()}
	writes := p.Writes()

	staged := make([]stagedWrite, 0, len(writes))
	discard := func() {
		for _, sw := range staged {
			os.Remove(sw.tmp)
		}
	}
	for _, w := range writes {
		sw, err := stageWrite(w)
		if err != nil {
			discard()
			return report, err
		}
		staged = append(staged, sw)
	}

	for i, sw := range staged {
		if err := os.Rename(sw.tmp, sw.target); err != nil {
			staged = staged[i:]
			discard()
			return report, &IOError{Path: sw.path, Op: "write", Err: err}
		}
		p.logger.Info("updated file", zap.String("path", sw.path), zap.String("version", p.Version.String()))
		report.Changed = append(report.Changed, sw.path)
	}
	return report, nil
}

type stagedWrite struct {
	path   string // as reported to the user
	target string // symlinks resolved
	tmp    string
}

// stageWrite writes w's new content to a temporary file in the directory of
// the file it replaces. Symlinked targets are resolved so the link survives.
func stageWrite(w PendingWrite) (stagedWrite, error) {
	target, err := filepath.EvalSymlinks(w.Path)
	if err != nil {
		return stagedWrite{}, &IOError{Path: w.Path, Op: "resolve", Err: err}
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".mkver-*")
	if err != nil {
		return stagedWrite{}, &IOError{Path: w.Path, Op: "write", Err: err}
	}
	fail := func(err error) (stagedWrite, error) {
		tmp.Close()
		os.Remove(tmp.Name())
		return stagedWrite{}, &IOError{Path: w.Path, Op: "write", Err: err}
	}
	if _, err := tmp.Write(w.New); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(w.Mode); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return stagedWrite{}, &IOError{Path: w.Path, Op: "write", Err: err}
	}
	return stagedWrite{path: w.Path, target: target, tmp: tmp.Name()}, nil
}
