package identity

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"galman/internal/faults"
	"galman/internal/fileutil"
)

const hashHexLen = sha256.Size * 2

// Identity is the content-derived identity of a file.
type Identity struct {
	Hash string
	Size int64
}

// String returns the canonical "<hash>_<size>" form.
func (id Identity) String() string {
	if id.IsZero() {
		return ""
	}
	return id.Hash + "_" + strconv.FormatInt(id.Size, 10)
}

// IsZero reports whether id is the zero value.
func (id Identity) IsZero() bool {
	return id.Hash == ""
}

// FileName returns the gallery file name for id with the given original
// extension, lower-cased.
func (id Identity) FileName(ext string) string {
	return id.String() + strings.ToLower(ext)
}

// Parse accepts the canonical string form.
func Parse(s string) (Identity, error) {
	hash, sizeText, ok := strings.Cut(strings.TrimSpace(s), "_")
	if !ok {
		return Identity{}, fmt.Errorf("parse identity %q: missing size separator", s)
	}
	if len(hash) != hashHexLen {
		return Identity{}, fmt.Errorf("parse identity %q: hash must be %d hex characters", s, hashHexLen)
	}
	if _, err := hex.DecodeString(hash); err != nil || strings.ToLower(hash) != hash {
		return Identity{}, fmt.Errorf("parse identity %q: hash must be lowercase hex", s)
	}
	size, err := strconv.ParseInt(sizeText, 10, 64)
	if err != nil || size < 0 {
		return Identity{}, fmt.Errorf("parse identity %q: invalid size", s)
	}
	return Identity{Hash: hash, Size: size}, nil
}

// FromFileName recovers the identity encoded in a gallery file name such as
// "<hash>_<size>.jpg". It reports false for names not produced by FileName.
func FromFileName(name string) (Identity, bool) {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	id, err := Parse(stem)
	if err != nil {
		return Identity{}, false
	}
	return id, true
}

// Hasher computes identities. The zero value is ready to use.
type Hasher struct {
	// BufferSize sets the read buffer; zero selects 1 MiB.
	BufferSize int
}

// Identify reads path once and returns its identity. Failures wrap
// faults.ErrHash and name the path; a cancelled context stops the read.
func (h Hasher) Identify(ctx context.Context, path string) (Identity, error) {
	file, err := os.Open(path)
	if err != nil {
		return Identity{}, faults.Wrap(faults.ErrHash, "open", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Identity{}, faults.Wrap(faults.ErrHash, "stat", path, err)
	}
	if !info.Mode().IsRegular() {
		return Identity{}, faults.Wrap(faults.ErrHash, "identify", path, fmt.Errorf("not a regular file (%s)", info.Mode().Type()))
	}

	return h.identifyReader(ctx, path, file)
}

// IdentifyReader hashes r as if it were the content at path. The path is only
// used for error messages.
func (h Hasher) IdentifyReader(ctx context.Context, path string, r io.Reader) (Identity, error) {
	return h.identifyReader(ctx, path, r)
}

func (h Hasher) identifyReader(ctx context.Context, path string, r io.Reader) (Identity, error) {
	size := h.BufferSize
	if size <= 0 {
		size = 1 << 20
	}
	digest := sha256.New()
	written, err := io.CopyBuffer(digest, fileutil.ContextReader(ctx, bufio.NewReaderSize(r, size)), make([]byte, size))
	if err != nil {
		return Identity{}, faults.Wrap(faults.ErrHash, "read", path, err)
	}
	return Identity{Hash: hex.EncodeToString(digest.Sum(nil)), Size: written}, nil
}
