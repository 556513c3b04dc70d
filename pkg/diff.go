package mkver

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff renders the pending writes as unified diffs with a/ and b/ prefixes.
func (p *Plan) Diff() string {
	var sb strings.Builder
	for _, w := range p.Writes() {
		u := difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(w.Old)),
			B:        difflib.SplitLines(string(w.New)),
			FromFile: "a/" + w.Path,
			ToFile:   "b/" + w.Path,
			Context:  3,
		}
		s, err := difflib.GetUnifiedDiffString(u)
		if err != nil {
			continue
		}
		sb.WriteString(s)
	}
	return sb.String()
}
