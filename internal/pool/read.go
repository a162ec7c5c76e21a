package pool

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"

	"solverd/internal/layout"
	"solverd/internal/vault"
	"solverd/internal/vfs"
)

// ContentHash is the deduplication key for raw model bytes.
func ContentHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ReadModel reads the artifact at name through src. Encrypted artifacts are
// opened with key, or the pool default key when key is empty, and the
// inner model entry is returned.
func (p *Pool) ReadModel(name, key string, src vfs.Source) ([]byte, error) {
	raw, err := src.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	if !layout.IsEncrypted(name) {
		return raw, nil
	}
	if key == "" {
		key = p.defKey
	}
	inner, err := vault.Decompress(raw, key)
	if err != nil {
		return nil, fmt.Errorf("decrypt %s: %w", name, err)
	}
	return innerArtifact(inner, name)
}

// innerArtifact picks the model out of a decrypted artifact. Lookup order:
// an entry stored under the artifact's own path, an entry named like the
// plain model file, the only entry.
func innerArtifact(t *vfs.Tree, name string) ([]byte, error) {
	if b, err := t.ReadFile(name); err == nil {
		return b, nil
	}
	names := t.Names()
	for _, n := range names {
		if path.Base(n) == layout.PlainModelFile {
			return t.ReadFile(n)
		}
	}
	if len(names) == 1 {
		return t.ReadFile(names[0])
	}
	return nil, fmt.Errorf("encrypted artifact holds %d entries and no %s", len(names), layout.PlainModelFile)
}
