package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHasPathPrefix(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		path     string
		prefix   string
		expected bool
	}{
		{name: "Exact", path: "/foo/bar", prefix: "/foo/bar", expected: true},
		{name: "Nested", path: "/foo/bar/baz.go", prefix: "/foo/bar", expected: true},
		{name: "Neighbor", path: "/foo/barista", prefix: "/foo/bar", expected: false},
		{name: "Shorter", path: "/foo", prefix: "/foo/bar", expected: false},
		{name: "Unclean", path: "/foo/x/../bar/a.go", prefix: "/foo/bar/", expected: true},
		{name: "Root", path: "/foo", prefix: "/", expected: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := HasPathPrefix(tc.path, tc.prefix); got != tc.expected {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestURIRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		uri  string
		path string
	}{
		{name: "Plain", uri: "file:///tmp/project/main.go", path: "/tmp/project/main.go"},
		{name: "Escaped", uri: "file:///tmp/my%20project/a.go", path: "/tmp/my project/a.go"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := URIToPath(tc.uri); got != tc.path {
				t.Fatalf("URIToPath: expected %q, got %q", tc.path, got)
			}
			if got := PathToURI(tc.path); got != tc.uri {
				t.Fatalf("PathToURI: expected %q, got %q", tc.uri, got)
			}
		})
	}

	if got := URIToPath(""); got != "" {
		t.Fatalf("expected empty path, got %q", got)
	}
	if got := URIToPath("/already/a/path/"); got != "/already/a/path" {
		t.Fatalf("expected cleaned path, got %q", got)
	}
}

func TestSortedStringKeys(t *testing.T) {
	t.Parallel()

	m := map[string]int{"b": 2, "a": 1, "c": 3}
	keys := SortedStringKeys(m)
	expected := []string{"a", "b", "c"}
	if len(keys) != len(expected) {
		t.Fatalf("expected %d keys, got %d", len(expected), len(keys))
	}
	for i, key := range expected {
		if keys[i] != key {
			t.Fatalf("expected %q at %d, got %q", key, i, keys[i])
		}
	}
}

func TestOpenFileWithDirs(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "server.log")
	for i := 0; i < 2; i++ {
		f, err := OpenFileWithDirs(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			t.Fatalf("open failed: %v", err)
		}
		if _, err := f.WriteString("line\n"); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		_ = f.Close()
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != "line\nline\n" {
		t.Fatalf("expected appended content, got %q", string(got))
	}
}

func TestReadRuntimeStats(t *testing.T) {
	stats := ReadRuntimeStats()
	if stats.Goroutines < 1 {
		t.Fatalf("expected at least one goroutine, got %d", stats.Goroutines)
	}
}
