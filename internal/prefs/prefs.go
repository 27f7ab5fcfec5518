// Package prefs persists per-repository view preferences in git config.
package prefs

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Prefs are the view preferences of one repository. The Set flags tell an
// explicit value apart from the zero value.
type Prefs struct {
	Split     bool
	SplitSet  bool
	LeftWidth int
	LeftSet   bool
}

const (
	keySplit     = "critique.split"
	keyLeftWidth = "critique.leftWidth"
)

// Load reads preferences from the repository's git config. Missing or
// malformed keys are left unset.
func Load(repoRoot string) Prefs {
	var p Prefs
	if s, ok := get(repoRoot, keySplit); ok {
		p.SplitSet = true
		p.Split = parseBool(s)
	}
	if s, ok := get(repoRoot, keyLeftWidth); ok {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			p.LeftSet = true
			p.LeftWidth = n
		}
	}
	return p
}

// SaveSplit persists the split view preference.
func SaveSplit(repoRoot string, v bool) error {
	return set(repoRoot, keySplit, strconv.FormatBool(v))
}

// SaveLeftWidth persists the file list width.
func SaveLeftWidth(repoRoot string, w int) error {
	if w <= 0 {
		return fmt.Errorf("invalid left width: %d", w)
	}
	return set(repoRoot, keyLeftWidth, strconv.Itoa(w))
}

func get(repoRoot, key string) (string, bool) {
	b, err := exec.Command("git", "-C", repoRoot, "config", "--get", key).Output()
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(b)), true
}

func set(repoRoot, key, value string) error {
	if repoRoot == "" {
		return fmt.Errorf("git config %s: no repository", key)
	}
	out, err := exec.Command("git", "-C", repoRoot, "config", "--local", key, value).CombinedOutput()
	if err != nil {
		return fmt.Errorf("git config %s: %w: %s", key, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
