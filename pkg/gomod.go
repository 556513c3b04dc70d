package mkver

import (
	"bytes"
	"go/format"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"
)

// modulePathFor returns the module path for major version of v: the base
// path for v0 and v1, base + "/vN" otherwise.
func modulePathFor(current string, v Version) string {
	base, _, _ := module.SplitPathVersion(current)
	maj := semver.Major("v" + v.Core().String())
	if maj == "v0" || maj == "v1" {
		return base
	}
	return base + "/" + maj
}

// PlanGoModule adds go.mod and self-import rewrites for v to plan. The
// module is located by walking up from dir. Nothing changes unless the
// major version moves the module path.
func PlanGoModule(plan *Plan, dir string, v Version) error {
	modDir, err := locateGoModDir(dir)
	if err != nil {
		return &IOError{Path: filepath.Join(dir, "go.mod"), Op: "locate", Err: err}
	}
	modPath := filepath.Join(modDir, "go.mod")
	data, err := plan.content(modPath)
	if err != nil {
		return err
	}
	f, err := modfile.Parse(modPath, data, nil)
	if err != nil {
		return &ParseError{Input: modPath, Err: err}
	}
	if f.Module == nil {
		return &ParseError{Input: modPath, Err: errors.New("module directive not found")}
	}

	oldPath := f.Module.Mod.Path
	newPath := modulePathFor(oldPath, v)
	if newPath == oldPath {
		return nil
	}
	plan.logger.Debug("moving module path", zap.String("from", oldPath), zap.String("to", newPath))

	if err := f.AddModuleStmt(newPath); err != nil {
		return &ParseError{Input: modPath, Err: err}
	}
	out, err := f.Format()
	if err != nil {
		return errors.Wrap(err, "formatting go.mod")
	}
	if err := plan.stage(modPath, out); err != nil {
		return err
	}
	return planSelfImports(plan, modDir, oldPath, newPath)
}

// planSelfImports stages every .go file under modDir whose imports refer to
// oldMod, rewritten to newMod. vendor directories are skipped.
func planSelfImports(plan *Plan, modDir, oldMod, newMod string) error {
	return filepath.WalkDir(modDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &IOError{Path: path, Op: "walk", Err: err}
		}
		if d.IsDir() {
			if path != modDir && (d.Name() == "vendor" || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}

		src, err := plan.peek(path)
		if err != nil {
			return err
		}
		fset := token.NewFileSet()
		fileAst, err := parser.ParseFile(fset, path, src, parser.ParseComments)
		if err != nil {
			plan.logger.Debug("skipping unparsable go file", zap.String("path", path), zap.Error(err))
			return nil
		}

		changed := false
		for _, imp := range fileAst.Imports {
			p, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				continue
			}
			if p == oldMod || strings.HasPrefix(p, oldMod+"/") {
				imp.Path.Value = strconv.Quote(newMod + strings.TrimPrefix(p, oldMod))
				changed = true
			}
		}
		if !changed {
			return nil
		}

		var buf bytes.Buffer
		if err := format.Node(&buf, fset, fileAst); err != nil {
			return errors.Wrapf(err, "formatting %s", path)
		}
		return plan.stage(path, buf.Bytes())
	})
}

// peek returns planned content for path without adding it to the plan.
func (p *Plan) peek(path string) ([]byte, error) {
	if f, ok := p.files[planKey(path)]; ok {
		return f.current, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Op: "read", Err: err}
	}
	return data, nil
}

// locateGoModDir walks up from startDir until it finds go.mod.
func locateGoModDir(startDir string) (string, error) {
	d, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(d, "go.mod")); err == nil {
			return d, nil
		}
		parent := filepath.Dir(d)
		if parent == d {
			return "", os.ErrNotExist
		}
		d = parent
	}
}
