// Package resources copies static files from the source tree into the output tree.
package resources

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/quicksip/internal/foundation/errors"
)

// Selection is the set of resource files under a root.
type Selection interface {
	Root() string
	Match(path string) bool
	Rel(path string) (string, bool)
}

// Stats summarizes a copy.
type Stats struct {
	Files    int
	Bytes    int64
	Duration time.Duration
}

// Copier is the resource copy boundary used by the copy-resources stage and
// by watch reactions.
type Copier interface {
	CopyTree(ctx context.Context, sel Selection, destDir string) (Stats, error)
	CopyOne(ctx context.Context, src, dest string) (Stats, error)
	DeletePath(ctx context.Context, path string) error
}

// FS copies on the local filesystem.
type FS struct{}

var _ Copier = FS{}

// CopyTree copies every selected file under sel.Root() to the same relative
// path under destDir. Hidden files and directories are skipped.
func (FS) CopyTree(ctx context.Context, sel Selection, destDir string) (Stats, error) {
	start := time.Now()
	var stats Stats
	root := sel.Root()
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		stats.Duration = time.Since(start)
		return stats, nil
	}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return ioError(err, "walk resources", path)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !sel.Match(path) {
			return nil
		}
		rel, ok := sel.Rel(path)
		if !ok {
			return nil
		}
		n, err := copyFile(path, filepath.Join(destDir, filepath.FromSlash(rel)))
		if err != nil {
			return err
		}
		stats.Files++
		stats.Bytes += n
		return nil
	})
	stats.Duration = time.Since(start)
	return stats, err
}

// CopyOne copies src to dest, creating parent directories.
func (FS) CopyOne(ctx context.Context, src, dest string) (Stats, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	n, err := copyFile(src, dest)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Files: 1, Bytes: n, Duration: time.Since(start)}, nil
}

// DeletePath removes path and anything below it. A missing path is not an error.
func (FS) DeletePath(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.RemoveAll(path); err != nil {
		return ioError(err, "delete resource", path)
	}
	return nil
}

func copyFile(src, dst string) (int64, error) {
	srcFile, err := os.Open(src)
	if err != nil {
		return 0, ioError(err, "open resource", src)
	}
	defer func() {
		_ = srcFile.Close()
	}()

	info, err := srcFile.Stat()
	if err != nil {
		return 0, ioError(err, "stat resource", src)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, ioError(err, "create resource directory", dst)
	}
	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, ioError(err, "create resource", dst)
	}
	n, err := io.Copy(dstFile, srcFile)
	if cerr := dstFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, ioError(err, "write resource", dst)
	}
	return n, nil
}

func ioError(err error, op, path string) error {
	return ferrors.WrapError(err, ferrors.CategoryFileSystem, op).
		Fatal().
		WithContext("path", path).
		Build()
}
