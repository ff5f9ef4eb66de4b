package util

import (
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// ExcludeMatcher applies directory and file glob patterns to base names.
type ExcludeMatcher struct {
	dirs  []glob.Glob
	files []glob.Glob
}

func NewExcludeMatcher(dirPatterns, filePatterns []string) (*ExcludeMatcher, error) {
	dirs, err := compileGlobs(dirPatterns)
	if err != nil {
		return nil, err
	}
	files, err := compileGlobs(filePatterns)
	if err != nil {
		return nil, err
	}
	return &ExcludeMatcher{dirs: dirs, files: files}, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (m *ExcludeMatcher) ExcludeDir(path string) bool {
	if m == nil {
		return false
	}
	return matchAny(m.dirs, filepath.Base(path))
}

func (m *ExcludeMatcher) ExcludeFile(path string) bool {
	if m == nil {
		return false
	}
	return matchAny(m.files, filepath.Base(path))
}

func matchAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
