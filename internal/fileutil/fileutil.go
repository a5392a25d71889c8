package fileutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// PartialSuffix marks files that are still being written. Callers pair it
// with a hidden prefix of their own so a crash sweep never matches a user file
// that merely ends in ".partial".
const PartialSuffix = ".partial"

const movingPrefix = ".moving-"

// rename is swapped in tests to reach the cross-device path.
var rename = os.Rename

// Digest describes the bytes written by a verified copy.
type Digest struct {
	SHA256 string
	Size   int64
}

// ContextReader returns a reader that fails once ctx is done, so long copies
// and hashes stop between chunks when a run is cancelled.
func ContextReader(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// CopyFileVerified streams src to a new file dst, fsyncs it, then re-reads dst
// and checks its size and SHA-256 against what was read from src. dst must not
// exist. On any failure dst is removed.
func CopyFileVerified(ctx context.Context, src, dst string) (Digest, error) {
	in, err := os.Open(src)
	if err != nil {
		return Digest{}, fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	srcInfo, err := in.Stat()
	if err != nil {
		return Digest{}, fmt.Errorf("stat source: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return Digest{}, fmt.Errorf("create destination: %w", err)
	}

	digest, err := copyAndSync(ctx, in, out)
	if err != nil {
		_ = os.Remove(dst)
		return Digest{}, err
	}

	if digest.Size != srcInfo.Size() {
		_ = os.Remove(dst)
		return Digest{}, fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), digest.Size)
	}

	written, err := hashFile(ctx, dst)
	if err != nil {
		_ = os.Remove(dst)
		return Digest{}, fmt.Errorf("verify destination: %w", err)
	}
	if written != digest {
		_ = os.Remove(dst)
		return Digest{}, errors.New("copy hash mismatch: file corrupted during copy")
	}
	return digest, nil
}

func copyAndSync(ctx context.Context, in io.Reader, out *os.File) (Digest, error) {
	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(out, hasher), ContextReader(ctx, in))
	if err != nil {
		_ = out.Close()
		return Digest{}, fmt.Errorf("copy: %w", err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return Digest{}, fmt.Errorf("sync: %w", err)
	}
	if err := out.Close(); err != nil {
		return Digest{}, fmt.Errorf("close: %w", err)
	}
	return Digest{SHA256: hex.EncodeToString(hasher.Sum(nil)), Size: size}, nil
}

func hashFile(ctx context.Context, path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, err
	}
	defer file.Close()
	hasher := sha256.New()
	size, err := io.Copy(hasher, ContextReader(ctx, file))
	if err != nil {
		return Digest{}, err
	}
	return Digest{SHA256: hex.EncodeToString(hasher.Sum(nil)), Size: size}, nil
}

// Move renames src to dst. When they live on different filesystems the bytes
// are copied to MoveTempName(dst), verified, synced, renamed into place, and
// only then is src removed. The destination directory is fsynced in both cases.
func Move(ctx context.Context, src, dst string) error {
	err := rename(src, dst)
	if err == nil {
		return SyncDir(filepath.Dir(dst))
	}
	if !errors.Is(err, unix.EXDEV) {
		return err
	}

	partial := MoveTempName(dst)
	if _, err := CopyFileVerified(ctx, src, partial); err != nil {
		return fmt.Errorf("cross-device copy: %w", err)
	}
	if err := os.Rename(partial, dst); err != nil {
		_ = os.Remove(partial)
		return fmt.Errorf("cross-device rename: %w", err)
	}
	if err := SyncDir(filepath.Dir(dst)); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return SyncDir(filepath.Dir(src))
}

// MoveTempName is the hidden file a cross-device Move writes before renaming
// it to dst.
func MoveTempName(dst string) string {
	return filepath.Join(filepath.Dir(dst), movingPrefix+filepath.Base(dst)+PartialSuffix)
}

// IsMoveTemp reports whether name is a leftover MoveTempName file.
func IsMoveTemp(name string) bool {
	return strings.HasPrefix(name, movingPrefix) && strings.HasSuffix(name, PartialSuffix)
}

// SyncDir fsyncs a directory so renames and unlinks inside it are durable.
func SyncDir(dir string) error {
	fd, err := unix.Open(dir, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("open directory %s: %w", dir, err)
	}
	defer unix.Close(fd)
	if err := unix.Fsync(fd); err != nil && !errors.Is(err, unix.EINVAL) {
		return fmt.Errorf("sync directory %s: %w", dir, err)
	}
	return nil
}

// RemoveDurably unlinks path and fsyncs its parent directory.
func RemoveDurably(path string) error {
	if err := os.Remove(path); err != nil {
		return err
	}
	return SyncDir(filepath.Dir(path))
}

// AvailableBytes reports the free space available to unprivileged users on the
// filesystem holding path.
func AvailableBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
