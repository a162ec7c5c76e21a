// Package vfs is the byte-reading indirection used by model resolution.
// The same lookup code runs against a project root on disk (Dir) or against
// the decoded contents of a bundle (Tree).
//
// Names are always slash-separated and relative to the source root.
package vfs

import (
	"errors"
	"path"
	"strings"
)

// ErrNotExist is returned by ReadFile for missing entries.
var ErrNotExist = errors.New("vfs: file does not exist")

// ErrInvalidPath is returned for absolute names or names escaping the root.
var ErrInvalidPath = errors.New("vfs: invalid path")

// Source reads files addressed by slash-relative names.
type Source interface {
	ReadFile(name string) ([]byte, error)
	// Exists reports whether name is a file or a directory prefix.
	Exists(name string) bool
	// List returns every regular file below dir, sorted.
	List(dir string) ([]string, error)
}

// Clean normalises name and rejects anything that is absolute or climbs
// out of the root.
func Clean(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if name == "" || strings.HasPrefix(name, "/") || strings.ContainsRune(name, 0) {
		return "", ErrInvalidPath
	}
	c := path.Clean(name)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", ErrInvalidPath
	}
	return c, nil
}
