// Package gitx wraps the git command line for reading a work tree's changes.
package gitx

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
)

// FileChange is a changed file in the work tree.
type FileChange struct {
	Path      string
	Staged    bool
	Unstaged  bool
	Untracked bool
	Binary    bool
	Deleted   bool
	Additions int
	Deletions int
}

// Status returns a one-letter status for lists.
func (f FileChange) Status() string {
	switch {
	case f.Deleted:
		return "D"
	case f.Untracked:
		return "?"
	case f.Staged && !f.Unstaged:
		return "S"
	default:
		return "M"
	}
}

// RepoRoot resolves the repository root containing path (or the current
// directory).
func RepoRoot(ctx context.Context, path string) (string, error) {
	if path == "" {
		path = "."
	}
	out, err := exec.CommandContext(ctx, "git", "-C", path, "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", fmt.Errorf("rev-parse: %w", err)
	}
	root := strings.TrimSpace(string(out))
	if root == "" {
		return "", errors.New("empty git root")
	}
	return root, nil
}

// ChangedFiles lists files changed relative to HEAD: staged, unstaged and
// untracked. Results are sorted by path.
func ChangedFiles(ctx context.Context, repoRoot string) ([]FileChange, error) {
	unstaged, err := listNames(ctx, repoRoot, "diff", "--name-only", "--diff-filter=ACDMRTUXB")
	if err != nil {
		return nil, err
	}
	staged, err := listNames(ctx, repoRoot, "diff", "--name-only", "--cached", "--diff-filter=ACDMRTUXB")
	if err != nil {
		return nil, err
	}
	untracked, err := listNames(ctx, repoRoot, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, err
	}
	deletedUnstaged, _ := listNames(ctx, repoRoot, "ls-files", "-d")
	deletedStaged, _ := listNames(ctx, repoRoot, "diff", "--cached", "--name-only", "--diff-filter=D")

	m := map[string]*FileChange{}
	mark := func(paths []string, fn func(fc *FileChange)) {
		for _, p := range paths {
			fc := m[p]
			if fc == nil {
				fc = &FileChange{Path: p}
				m[p] = fc
			}
			fn(fc)
		}
	}
	mark(unstaged, func(fc *FileChange) { fc.Unstaged = true })
	mark(staged, func(fc *FileChange) { fc.Staged = true })
	mark(untracked, func(fc *FileChange) { fc.Untracked = true })
	mark(deletedUnstaged, func(fc *FileChange) { fc.Deleted = true; fc.Unstaged = true })
	mark(deletedStaged, func(fc *FileChange) { fc.Deleted = true; fc.Staged = true })

	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	out := make([]FileChange, 0, len(paths))
	for _, p := range paths {
		fc := m[p]
		st, err := numstat(ctx, repoRoot, p, fc.Untracked)
		if err == nil {
			fc.Additions, fc.Deletions, fc.Binary = st.additions, st.deletions, st.binary
		}
		out = append(out, *fc)
	}
	return out, nil
}

func listNames(ctx context.Context, repoRoot string, args ...string) ([]string, error) {
	b, err := exec.CommandContext(ctx, "git", append([]string{"-C", repoRoot}, args...)...).Output()
	if err != nil {
		return nil, fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	var out []string
	for _, l := range strings.Split(string(b), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out, nil
}

// DiffHEAD returns the unified diff of one file between HEAD and the work
// tree. Untracked files are diffed against /dev/null.
func DiffHEAD(ctx context.Context, repoRoot, path string) (string, error) {
	if isTracked(ctx, repoRoot, path) {
		return diff(ctx, repoRoot, "diff", "--no-color", "--text", "HEAD", "--", path)
	}
	return diff(ctx, repoRoot, "diff", "--no-color", "--no-index", "--text", "/dev/null", path)
}

// DiffStaged returns the unified diff of one file between HEAD and the index.
func DiffStaged(ctx context.Context, repoRoot, path string) (string, error) {
	return diff(ctx, repoRoot, "diff", "--no-color", "--text", "--cached", "--", path)
}

// diff runs a git diff command. --no-index exits 1 when the files differ, so
// a failing exit status with output is not an error.
func diff(ctx context.Context, repoRoot string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", repoRoot}, args...)...)
	b, err := cmd.Output()
	if err != nil && len(b) == 0 {
		return "", fmt.Errorf("git diff: %w", err)
	}
	return string(b), nil
}

// FileAt returns the content of path at rev, or in the index when rev is
// empty.
func FileAt(ctx context.Context, repoRoot, rev, path string) (string, error) {
	b, err := exec.CommandContext(ctx, "git", "-C", repoRoot, "show", rev+":"+path).Output()
	if err != nil {
		return "", fmt.Errorf("git show %s:%s: %w", rev, path, err)
	}
	return string(b), nil
}

type stat struct {
	additions int
	deletions int
	binary    bool
}

// numstat reads git's per-file line counts. Binary files report "-".
func numstat(ctx context.Context, repoRoot, path string, untracked bool) (stat, error) {
	args := []string{"-C", repoRoot, "diff", "--numstat", "HEAD", "--", path}
	if untracked {
		args = []string{"-C", repoRoot, "diff", "--numstat", "--no-index", "/dev/null", path}
	}
	b, _ := exec.CommandContext(ctx, "git", args...).Output()
	line := strings.TrimSpace(string(b))
	if line == "" {
		return stat{}, errors.New("no numstat")
	}
	parts := strings.Split(line, "\t")
	if len(parts) < 2 {
		return stat{}, fmt.Errorf("numstat %q", line)
	}
	if parts[0] == "-" || parts[1] == "-" {
		return stat{binary: true}, nil
	}
	a, err := strconv.Atoi(parts[0])
	if err != nil {
		return stat{}, err
	}
	d, err := strconv.Atoi(parts[1])
	if err != nil {
		return stat{}, err
	}
	return stat{additions: a, deletions: d}, nil
}

func isTracked(ctx context.Context, repoRoot, path string) bool {
	return exec.CommandContext(ctx, "git", "-C", repoRoot, "ls-files", "--error-unmatch", "--", path).Run() == nil
}

// CurrentBranch returns the checked out branch name.
func CurrentBranch(ctx context.Context, repoRoot string) (string, error) {
	b, err := exec.CommandContext(ctx, "git", "-C", repoRoot, "rev-parse", "--abbrev-ref", "HEAD").Output()
	if err != nil {
		return "", fmt.Errorf("rev-parse HEAD: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// LastCommitSummary returns the short hash and subject of HEAD.
func LastCommitSummary(ctx context.Context, repoRoot string) (string, error) {
	b, err := exec.CommandContext(ctx, "git", "-C", repoRoot, "log", "-1", "--pretty=format:%h %s").Output()
	if err != nil {
		return "", fmt.Errorf("git log: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
