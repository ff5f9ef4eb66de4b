package util

import (
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// HasPathPrefix reports whether path equals prefix or lies inside it. Both are
// compared in cleaned form so "/a/b/../c" is inside "/a".
func HasPathPrefix(path, prefix string) bool {
	path = filepath.Clean(strings.TrimSpace(path))
	prefix = filepath.Clean(strings.TrimSpace(prefix))
	if path == prefix {
		return true
	}
	if prefix == string(filepath.Separator) {
		return strings.HasPrefix(path, prefix)
	}
	return strings.HasPrefix(path, prefix+string(filepath.Separator))
}

// URIToPath converts a file:// document URI to a cleaned local path. Anything
// that is not a file URI is returned cleaned as-is.
func URIToPath(uri string) string {
	if !strings.HasPrefix(uri, "file:") {
		if uri == "" {
			return ""
		}
		return filepath.Clean(uri)
	}
	u, err := url.Parse(uri)
	if err != nil {
		return filepath.Clean(strings.TrimPrefix(uri, "file://"))
	}
	p := u.Path
	if runtime.GOOS == "windows" {
		// file:///C:/x parses to "/C:/x".
		p = strings.TrimPrefix(p, "/")
	}
	return filepath.Clean(filepath.FromSlash(p))
}

// PathToURI is the inverse of URIToPath.
func PathToURI(path string) string {
	p := filepath.ToSlash(filepath.Clean(path))
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}

// SortedStringKeys returns the map's keys in sorted order.
func SortedStringKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// OpenFileWithDirs creates parent directories (0755) and opens path with flag.
func OpenFileWithDirs(path string, flag int, perm fs.FileMode) (*os.File, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, flag, perm)
}
