package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	require.NoError(t, AtomicWriteFile(path, []byte("hello"), 0o600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// Overwrite must not leave temp files behind
	require.NoError(t, AtomicWriteFile(path, []byte("world"), 0o600))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAtomicWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")

	require.NoError(t, AtomicWriteJSON(path, map[string]int{"fragments": 10}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"fragments": 10`)
	assert.Equal(t, byte('\n'), data[len(data)-1], "trailing newline")
}

func TestAtomicRename(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))
	require.NoError(t, AtomicRename(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err), "source should be gone")
}

func TestAtomicRename_Directory(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "extracted")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "f.txt"), []byte("deep"), 0o644))

	dst := filepath.Join(dir, "restored")
	require.NoError(t, AtomicRename(src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "sub", "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "deep", string(data))
}

func TestMoveByCopy_Directory(t *testing.T) {
	// Exercises the fallback used when rename fails across filesystems,
	// e.g. restoring from the cache workdir onto a mounted drive.
	srcRoot := t.TempDir()
	dstRoot := t.TempDir()

	src := filepath.Join(srcRoot, "extracted")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "docs", "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "docs", "readme.txt"), []byte("top"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "docs", "sub", "deep.bin"), []byte("nested"), 0o600))

	dst := filepath.Join(dstRoot, "restored_docs")
	require.NoError(t, moveByCopy(src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "docs", "readme.txt"))
	require.NoError(t, err)
	assert.Equal(t, "top", string(data))

	info, err := os.Stat(filepath.Join(dst, "docs", "sub", "deep.bin"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err), "source tree should be gone")

	// No staging directories left next to the destination.
	entries, err := os.ReadDir(dstRoot)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMoveByCopy_File(t *testing.T) {
	src := filepath.Join(t.TempDir(), "a.bin")
	dst := filepath.Join(t.TempDir(), "b.bin")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o640))

	require.NoError(t, moveByCopy(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a", "b", "c.txt"), []byte("abc"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "top.txt"), []byte("t"), 0o644))

	dst := t.TempDir()
	require.NoError(t, CopyTree(src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "a", "b", "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))

	data, err = os.ReadFile(filepath.Join(dst, "top.txt"))
	require.NoError(t, err)
	assert.Equal(t, "t", string(data))
}

func TestCopyFile_PreservesMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	dst := filepath.Join(dir, "b")

	require.NoError(t, os.WriteFile(src, []byte("x"), 0o755))
	require.NoError(t, CopyFile(src, dst))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}
