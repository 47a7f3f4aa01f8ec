// Package fileutil writes output files atomically and reports their digests.
package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Written describes a file produced by CopyStream.
type Written struct {
	Size   int64
	SHA256 string
}

// WriteFileAtomic creates dst through a temporary file in the same directory
// and renames it into place once write succeeds. Parent directories are
// created as needed. On failure dst is left untouched.
func WriteFileAtomic(dst string, mode os.FileMode, write func(f *os.File) error) error {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("rename into %s: %w", dst, err)
	}
	return nil
}

// CopyStream writes everything read from r to dst atomically and returns the
// size and SHA256 digest of the written bytes.
func CopyStream(dst string, r io.Reader) (Written, error) {
	var written Written
	hasher := sha256.New()
	err := WriteFileAtomic(dst, 0o644, func(f *os.File) error {
		n, err := io.Copy(io.MultiWriter(f, hasher), r)
		if err != nil {
			return fmt.Errorf("copy into %s: %w", dst, err)
		}
		written.Size = n
		return nil
	})
	if err != nil {
		return Written{}, err
	}
	written.SHA256 = hex.EncodeToString(hasher.Sum(nil))
	return written, nil
}

// CopyFile copies src to dst atomically, verifying the copied size against
// the source.
func CopyFile(src, dst string) (Written, error) {
	info, err := os.Stat(src)
	if err != nil {
		return Written{}, fmt.Errorf("stat source: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return Written{}, err
	}
	defer in.Close()

	written, err := CopyStream(dst, in)
	if err != nil {
		return Written{}, err
	}
	if written.Size != info.Size() {
		_ = os.Remove(dst)
		return Written{}, fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written.Size)
	}
	return written, nil
}

// HashFile returns the SHA256 digest and size of the file at path.
func HashFile(path string) (Written, error) {
	f, err := os.Open(path)
	if err != nil {
		return Written{}, err
	}
	defer f.Close()
	hasher := sha256.New()
	n, err := io.Copy(hasher, f)
	if err != nil {
		return Written{}, fmt.Errorf("hash %s: %w", path, err)
	}
	return Written{Size: n, SHA256: hex.EncodeToString(hasher.Sum(nil))}, nil
}
