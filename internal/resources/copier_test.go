package resources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/quicksip/internal/foundation/errors"
	"git.home.luguber.info/inful/quicksip/internal/pathmatch"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestCopyTreeHonorsExcludes(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "app")
	dist := filepath.Join(base, "dist")
	write(t, filepath.Join(src, "logo.png"), "png")
	write(t, filepath.Join(src, "img", "deep", "a.svg"), "svg!")
	write(t, filepath.Join(src, "app.scss"), "body{}")
	write(t, filepath.Join(src, "lib", "x.js"), "js")
	write(t, filepath.Join(src, ".secret", "k.txt"), "k")
	write(t, filepath.Join(src, "LICENSE"), "no extension")

	sel, err := pathmatch.NewResources(src, "scss|js")
	require.NoError(t, err)

	stats, err := FS{}.CopyTree(t.Context(), sel, dist)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)
	assert.Equal(t, int64(7), stats.Bytes)

	assert.FileExists(t, filepath.Join(dist, "logo.png"))
	assert.FileExists(t, filepath.Join(dist, "img", "deep", "a.svg"))
	assert.NoFileExists(t, filepath.Join(dist, "app.scss"))
	assert.NoFileExists(t, filepath.Join(dist, "lib", "x.js"))
	assert.NoDirExists(t, filepath.Join(dist, ".secret"))
	assert.NoFileExists(t, filepath.Join(dist, "LICENSE"))
}

func TestCopyTreeMissingRoot(t *testing.T) {
	sel, err := pathmatch.NewResources(filepath.Join(t.TempDir(), "absent"), "")
	require.NoError(t, err)
	stats, err := FS{}.CopyTree(t.Context(), sel, t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, stats.Files)
}

func TestCopyOneCreatesParents(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "a.txt")
	write(t, src, "hello")
	dst := filepath.Join(base, "out", "x", "a.txt")

	stats, err := FS{}.CopyOne(t.Context(), src, dst)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.Bytes)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestCopyOneMissingSourceIsFilesystemError(t *testing.T) {
	_, err := FS{}.CopyOne(t.Context(), filepath.Join(t.TempDir(), "gone"), filepath.Join(t.TempDir(), "x"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
	assert.True(t, ferrors.HasSeverity(err, ferrors.SeverityFatal))
}

func TestDeletePath(t *testing.T) {
	base := t.TempDir()
	p := filepath.Join(base, "a", "b.png")
	write(t, p, "x")

	require.NoError(t, FS{}.DeletePath(t.Context(), p))
	assert.NoFileExists(t, p)
	require.NoError(t, FS{}.DeletePath(t.Context(), p), "deleting a missing path succeeds")
}
