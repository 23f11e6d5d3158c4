package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultInclude matches worktree repositories and bare "*.git" directories.
var DefaultInclude = []string{"**/.git", "**/*.git"}

// Discover finds repositories below root. Include patterns select ".git"
// entries or bare repository directories; exclude patterns are matched
// against the repository name, which is its slash-separated path relative
// to root.
func Discover(root string, include, exclude []string) ([]Target, error) {
	if len(include) == 0 {
		include = DefaultInclude
	}
	for _, pattern := range append(append([]string(nil), include...), exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid pattern %q", pattern)
		}
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fsys := os.DirFS(abs)

	seen := map[string]bool{}
	var targets []Target

	for _, pattern := range include {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}

		for _, m := range matches {
			repoPath, ok := repositoryDir(fsys, m)
			if !ok || seen[repoPath] {
				continue
			}
			seen[repoPath] = true

			name := repoPath
			if name == "." {
				name = filepath.Base(abs)
			}
			if excluded(name, exclude) {
				continue
			}

			targets = append(targets, Target{
				Name: name,
				Path: filepath.Join(abs, filepath.FromSlash(repoPath)),
			})
		}
	}

	sort.Slice(targets, func(i, j int) bool {
		return targets[i].Name < targets[j].Name
	})
	return targets, nil
}

// repositoryDir maps a glob match to the repository directory it denotes.
func repositoryDir(fsys fs.FS, match string) (string, bool) {
	if path.Base(match) == ".git" {
		// Worktree: .git is a directory or a gitfile.
		dir := path.Dir(match)
		if insideGitDir(dir) {
			return "", false
		}
		return dir, true
	}

	if insideGitDir(match) {
		return "", false
	}
	info, err := fs.Stat(fsys, match)
	if err != nil || !info.IsDir() {
		return "", false
	}
	if _, err := fs.Stat(fsys, path.Join(match, "HEAD")); err != nil {
		return "", false
	}
	return match, true
}

// insideGitDir reports whether p passes through a ".git" directory.
func insideGitDir(p string) bool {
	for _, part := range strings.Split(p, "/") {
		if part == ".git" {
			return true
		}
	}
	return false
}

func excluded(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, _ := doublestar.Match(pattern, name); matched {
			return true
		}
	}
	return false
}
