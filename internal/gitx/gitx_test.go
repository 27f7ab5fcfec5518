package gitx

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestChangedFiles_AndDiffHEAD(t *testing.T) {
	ctx := context.Background()
	dir := newRepo(t)

	write(t, filepath.Join(dir, "f1.txt"), "one\nline\n")
	write(t, filepath.Join(dir, "del.txt"), "to delete\n")
	mustRun(t, dir, "git", "add", ".")
	mustRun(t, dir, "git", "commit", "-q", "-m", "init")

	write(t, filepath.Join(dir, "f1.txt"), "one\nline changed\nmore\n")
	write(t, filepath.Join(dir, "new.txt"), "brand new\n")
	if err := os.Remove(filepath.Join(dir, "del.txt")); err != nil {
		t.Fatal(err)
	}

	files, err := ChangedFiles(ctx, dir)
	if err != nil {
		t.Fatalf("ChangedFiles error: %v", err)
	}
	m := map[string]FileChange{}
	for _, f := range files {
		m[f.Path] = f
	}
	if f := m["f1.txt"]; !f.Unstaged || f.Additions != 2 || f.Deletions != 1 {
		t.Fatalf("expected f1.txt unstaged +2 -1, got %+v", f)
	}
	if !m["new.txt"].Untracked || m["new.txt"].Status() != "?" {
		t.Fatalf("expected new.txt to be untracked, got %+v", m["new.txt"])
	}
	if !(m["del.txt"].Deleted && m["del.txt"].Unstaged) {
		t.Fatalf("expected del.txt to be deleted unstaged, got %+v", m["del.txt"])
	}

	d, err := DiffHEAD(ctx, dir, "f1.txt")
	if err != nil {
		t.Fatalf("DiffHEAD error: %v", err)
	}
	if !strings.Contains(d, "-line") || !strings.Contains(d, "+line changed") {
		t.Fatalf("unexpected diff: %s", d)
	}

	d, err = DiffHEAD(ctx, dir, "new.txt")
	if err != nil {
		t.Fatalf("DiffHEAD untracked error: %v", err)
	}
	if !strings.Contains(d, "+brand new") {
		t.Fatalf("unexpected untracked diff: %s", d)
	}
}

func TestDiffStaged(t *testing.T) {
	ctx := context.Background()
	dir := newRepo(t)

	write(t, filepath.Join(dir, "a.txt"), "alpha\n")
	mustRun(t, dir, "git", "add", ".")
	mustRun(t, dir, "git", "commit", "-q", "-m", "init")

	write(t, filepath.Join(dir, "a.txt"), "alpha\nstaged\n")
	mustRun(t, dir, "git", "add", "a.txt")
	write(t, filepath.Join(dir, "a.txt"), "alpha\nstaged\nunstaged\n")

	d, err := DiffStaged(ctx, dir, "a.txt")
	if err != nil {
		t.Fatalf("DiffStaged error: %v", err)
	}
	if !strings.Contains(d, "+staged") || strings.Contains(d, "+unstaged") {
		t.Fatalf("unexpected staged diff: %s", d)
	}

	files, err := ChangedFiles(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || !files[0].Staged || !files[0].Unstaged {
		t.Fatalf("expected a.txt staged and unstaged, got %+v", files)
	}

	sum, err := LastCommitSummary(ctx, dir)
	if err != nil || !strings.HasSuffix(sum, " init") {
		t.Fatalf("LastCommitSummary = %q, %v", sum, err)
	}
	root, err := RepoRoot(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(root) != filepath.Base(dir) {
		t.Fatalf("RepoRoot = %q, want %q", root, dir)
	}
}

func newRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	mustRun(t, dir, "git", "init", "-q")
	mustRun(t, dir, "git", "config", "user.email", "test@example.com")
	mustRun(t, dir, "git", "config", "user.name", "Test User")
	return dir
}

func mustRun(t *testing.T, dir string, name string, args ...string) {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("command %s %v failed: %v\n%s", name, args, err, out)
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileAt(t *testing.T) {
	ctx := context.Background()
	dir := newRepo(t)

	write(t, filepath.Join(dir, "a.txt"), "one\ntwo\n")
	mustRun(t, dir, "git", "add", ".")
	mustRun(t, dir, "git", "commit", "-q", "-m", "init")
	write(t, filepath.Join(dir, "a.txt"), "one\ntwo\nthree\n")
	mustRun(t, dir, "git", "add", "a.txt")

	head, err := FileAt(ctx, dir, "HEAD", "a.txt")
	if err != nil || head != "one\ntwo\n" {
		t.Fatalf("FileAt HEAD = %q, %v", head, err)
	}
	index, err := FileAt(ctx, dir, "", "a.txt")
	if err != nil || index != "one\ntwo\nthree\n" {
		t.Fatalf("FileAt index = %q, %v", index, err)
	}
	if _, err := FileAt(ctx, dir, "HEAD", "missing.txt"); err == nil {
		t.Fatal("expected an error for a path missing at HEAD")
	}
}
