// Package mkver derives the next semantic version of a git repository from
// its tags and commit messages, and rewrites version references in project
// files.
//
// It provides:
//   - Version, a semantic version with parsing, formatting and precedence.
//   - Resolve, which classifies commits since the last tag with an ordered
//     table of BumpRules (first match wins) and applies the most severe
//     increment exactly once.
//   - Rewriter, a two-phase file patcher: Plan reads and validates every
//     target without writing, Plan.Apply writes the result.
//   - PlanGoModule, which moves go.mod and self-imports to /vN on major
//     version bumps past v1.
//   - Git, a Repository backed by the git binary, and LoadConfig for the
//     mkver.yaml configuration.
//
// Resolution is a pure function of a RepositoryState snapshot, so it can be
// tested without a repository:
//
//	last := mkver.MustParseVersion("1.2.3")
//	state := mkver.RepositoryState{
//	    LastTag: &last,
//	    Commits: []string{"fix: bug", "feat: add X"},
//	}
//	res, err := mkver.Resolve(state, mkver.ConventionalRules(), mkver.ResolveOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Version) // 1.3.0
//
// Pre-release counters are recomputed from the tags in the snapshot on every
// run; nothing is persisted between invocations.
package mkver
