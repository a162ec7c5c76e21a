// Package vault packs an ordered file tree into a single compressed and
// encrypted blob and back.
//
// Container layout:
//
//	magic "SVT1" | salt (16) | nonce (24) | XChaCha20-Poly1305(zstd(tar))
//
// The AEAD key is derived from the password with Argon2id. The magic is
// bound as additional data.
package vault

import (
	"archive/tar"
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"solverd/internal/vfs"
)

const (
	magic   = "SVT1"
	saltLen = 16

	argonTime    = 1
	argonMemory  = 32 * 1024
	argonThreads = 2

	// maxEntrySize caps a single decoded entry.
	maxEntrySize = 2 << 30
)

// ErrCorrupt is returned for a wrong password or a damaged blob. It
// deliberately carries no further detail.
var ErrCorrupt = errors.New("vault: corrupt or unreadable payload")

func deriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
}

// Compress serialises tree in its insertion order and seals it with password.
func Compress(tree *vfs.Tree, password string) ([]byte, error) {
	var raw bytes.Buffer
	zw, err := zstd.NewWriter(&raw)
	if err != nil {
		return nil, fmt.Errorf("zstd writer: %w", err)
	}
	tw := tar.NewWriter(zw)
	for _, name := range tree.Names() {
		b, err := tree.ReadFile(name)
		if err != nil {
			return nil, err
		}
		hdr := &tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(b)),
			Typeflag: tar.TypeReg,
			Format:   tar.FormatPAX,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("tar header %s: %w", name, err)
		}
		if _, err := tw.Write(b); err != nil {
			return nil, fmt.Errorf("tar write %s: %w", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("tar close: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zstd close: %w", err)
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}
	aead, err := chacha20poly1305.NewX(deriveKey(password, salt))
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	out := make([]byte, 0, len(magic)+saltLen+len(nonce)+raw.Len()+aead.Overhead())
	out = append(out, magic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, raw.Bytes(), []byte(magic)), nil
}

// Decompress opens a blob produced by Compress. Every failure is ErrCorrupt.
func Decompress(data []byte, password string) (*vfs.Tree, error) {
	hdr := len(magic) + saltLen + chacha20poly1305.NonceSizeX
	if len(data) < hdr+chacha20poly1305.Overhead || string(data[:len(magic)]) != magic {
		return nil, ErrCorrupt
	}
	salt := data[len(magic) : len(magic)+saltLen]
	nonce := data[len(magic)+saltLen : hdr]
	aead, err := chacha20poly1305.NewX(deriveKey(password, salt))
	if err != nil {
		return nil, ErrCorrupt
	}
	plain, err := aead.Open(nil, nonce, data[hdr:], []byte(magic))
	if err != nil {
		return nil, ErrCorrupt
	}
	zr, err := zstd.NewReader(bytes.NewReader(plain))
	if err != nil {
		return nil, ErrCorrupt
	}
	defer zr.Close()

	tree := vfs.NewTree()
	tr := tar.NewReader(zr)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ErrCorrupt
		}
		if h.Typeflag != tar.TypeReg || h.Size > maxEntrySize {
			return nil, ErrCorrupt
		}
		b, err := io.ReadAll(io.LimitReader(tr, h.Size))
		if err != nil {
			return nil, ErrCorrupt
		}
		if err := tree.Put(h.Name, b); err != nil {
			return nil, ErrCorrupt
		}
	}
	return tree, nil
}

// Seal wraps a single file. It is the format of encrypted model artifacts.
func Seal(name string, data []byte, password string) ([]byte, error) {
	t := vfs.NewTree()
	if err := t.Put(name, data); err != nil {
		return nil, err
	}
	return Compress(t, password)
}
