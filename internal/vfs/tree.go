package vfs

import (
	"fmt"
	"sort"
	"strings"
)

// Tree is an insertion-ordered in-memory file set. It is the decoded form
// of a bundle payload. Not safe for concurrent mutation.
type Tree struct {
	names []string
	files map[string][]byte
}

func NewTree() *Tree {
	return &Tree{files: make(map[string][]byte)}
}

// Put adds or replaces name. Replacing keeps the original position.
func (t *Tree) Put(name string, data []byte) error {
	c, err := Clean(name)
	if err != nil {
		return fmt.Errorf("%w: %q", err, name)
	}
	if _, ok := t.files[c]; !ok {
		t.names = append(t.names, c)
	}
	t.files[c] = data
	return nil
}

// Names returns entry names in insertion order.
func (t *Tree) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

func (t *Tree) Len() int { return len(t.names) }

func (t *Tree) ReadFile(name string) ([]byte, error) {
	c, err := Clean(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, name)
	}
	b, ok := t.files[c]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, name)
	}
	return b, nil
}

func (t *Tree) Exists(name string) bool {
	c, err := Clean(name)
	if err != nil {
		return false
	}
	if _, ok := t.files[c]; ok {
		return true
	}
	for _, n := range t.names {
		if strings.HasPrefix(n, c+"/") {
			return true
		}
	}
	return false
}

func (t *Tree) List(dir string) ([]string, error) {
	c, err := Clean(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, dir)
	}
	var out []string
	for _, n := range t.names {
		if strings.HasPrefix(n, c+"/") {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, dir)
	}
	sort.Strings(out)
	return out, nil
}
