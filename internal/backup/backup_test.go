package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmontero/cofre/internal/compress"
	"github.com/rmontero/cofre/internal/errors"
	"github.com/rmontero/cofre/internal/logging"
	"github.com/rmontero/cofre/internal/paths"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	base := t.TempDir()
	m := NewManager(
		WithLogger(logging.ForTest(t)),
		WithOutputBase(base),
		WithWorkDir(filepath.Join(base, "work")),
	)
	return m, base
}

func writeSource(t *testing.T) (string, map[string]string) {
	t.Helper()
	src := filepath.Join(t.TempDir(), "photos")
	files := map[string]string{
		"summer/beach.jpg": "pretend jpeg",
		"summer/hike.jpg":  "pretend jpeg 2",
		"readme.txt":       "vacation pictures",
	}
	for rel, content := range files {
		path := filepath.Join(src, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return src, files
}

func TestCreate_PlainBackup(t *testing.T) {
	m, base := newTestManager(t)
	src, files := writeSource(t)

	res, err := m.Create(context.Background(), CreateRequest{
		Sources:   []string{src},
		Algorithm: compress.Zip,
		Name:      "vacation",
	})
	require.NoError(t, err)

	assert.Equal(t, "vacation", res.Name)
	assert.False(t, res.Encrypted)
	assert.Equal(t, len(files), res.FileCount)

	wantPath := filepath.Join(base, "compressed", "zip", "vacation.zip")
	assert.Equal(t, wantPath, res.ArtifactPath)
	_, err = os.Stat(wantPath)
	assert.NoError(t, err)

	// Scratch space is cleaned up after the run.
	entries, err := os.ReadDir(filepath.Join(base, "work"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreate_EncryptedBackup(t *testing.T) {
	m, base := newTestManager(t)
	src, _ := writeSource(t)

	res, err := m.Create(context.Background(), CreateRequest{
		Sources:   []string{src},
		Algorithm: compress.Gzip,
		Name:      "secret",
		Password:  "hunter2",
	})
	require.NoError(t, err)

	assert.True(t, res.Encrypted)
	wantPath := filepath.Join(base, "encrypted", "secret.tar.gz.encrypted")
	assert.Equal(t, wantPath, res.ArtifactPath)

	// The encrypted directory holds the only copy; no plaintext artifact
	// is left in the compressed tree.
	_, err = os.Stat(filepath.Join(base, "compressed", "gzip", "secret.tar.gz"))
	assert.True(t, os.IsNotExist(err))
}

func TestCreate_DefaultName(t *testing.T) {
	m, _ := newTestManager(t)
	src, _ := writeSource(t)

	res, err := m.Create(context.Background(), CreateRequest{
		Sources:   []string{src},
		Algorithm: compress.Zip,
	})
	require.NoError(t, err)
	assert.Regexp(t, `^backup_\d{8}_\d{6}$`, res.Name)
}

func TestCreate_MissingSource(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Create(context.Background(), CreateRequest{
		Sources:   []string{"/does/not/exist"},
		Algorithm: compress.Zip,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, compress.ErrSourceNotFound))
}

func TestRestore_RoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	src, files := writeSource(t)

	for _, algo := range compress.Algorithms() {
		t.Run(algo.String(), func(t *testing.T) {
			cres, err := m.Create(context.Background(), CreateRequest{
				Sources:   []string{src},
				Algorithm: algo,
				Name:      "rt-" + algo.String(),
			})
			require.NoError(t, err)

			rres, err := m.Restore(context.Background(), RestoreRequest{
				ArtifactPath: cres.ArtifactPath,
			})
			require.NoError(t, err)

			assert.Equal(t, len(files), rres.FileCount)
			assert.Regexp(t, `restored_rt-`+algo.String()+`_\d{8}_\d{6}$`, rres.RestoredDir)

			for rel, content := range files {
				data, err := os.ReadFile(filepath.Join(rres.RestoredDir, "photos", filepath.FromSlash(rel)))
				require.NoError(t, err, rel)
				assert.Equal(t, content, string(data), rel)
			}
		})
	}
}

func TestRestore_Encrypted(t *testing.T) {
	m, _ := newTestManager(t)
	src, files := writeSource(t)

	cres, err := m.Create(context.Background(), CreateRequest{
		Sources:   []string{src},
		Algorithm: compress.Zip,
		Name:      "enc",
		Password:  "open sesame",
	})
	require.NoError(t, err)

	rres, err := m.Restore(context.Background(), RestoreRequest{
		ArtifactPath: cres.ArtifactPath,
		Password:     "open sesame",
	})
	require.NoError(t, err)
	assert.True(t, rres.Decrypted)
	assert.Equal(t, len(files), rres.FileCount)
}

func TestRestore_EncryptedWithoutPassword(t *testing.T) {
	m, _ := newTestManager(t)
	src, _ := writeSource(t)

	cres, err := m.Create(context.Background(), CreateRequest{
		Sources:   []string{src},
		Algorithm: compress.Zip,
		Name:      "enc",
		Password:  "pw",
	})
	require.NoError(t, err)

	_, err = m.Restore(context.Background(), RestoreRequest{ArtifactPath: cres.ArtifactPath})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRestoreFailed))
}

func TestRestore_MissingArtifact(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Restore(context.Background(), RestoreRequest{
		ArtifactPath: filepath.Join(t.TempDir(), "gone.zip"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRestoreFailed))
}

func TestVerifyAndList(t *testing.T) {
	m, _ := newTestManager(t)
	src, files := writeSource(t)

	cres, err := m.Create(context.Background(), CreateRequest{
		Sources:   []string{src},
		Algorithm: compress.Bzip2,
		Name:      "v",
	})
	require.NoError(t, err)

	count, err := m.Verify(cres.ArtifactPath, "")
	require.NoError(t, err)
	assert.Equal(t, len(files), count)

	entries, err := m.ListContents(cres.ArtifactPath, "")
	require.NoError(t, err)
	assert.Len(t, entries, len(files))
}

func TestVerify_EncryptedWrongPassword(t *testing.T) {
	m, _ := newTestManager(t)
	src, _ := writeSource(t)

	cres, err := m.Create(context.Background(), CreateRequest{
		Sources:   []string{src},
		Algorithm: compress.Zip,
		Name:      "v",
		Password:  "right",
	})
	require.NoError(t, err)

	_, err = m.Verify(cres.ArtifactPath, "wrong")
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	m, _ := newTestManager(t)
	src, files := writeSource(t)

	cres, err := m.Create(context.Background(), CreateRequest{
		Sources:   []string{src},
		Algorithm: compress.Gzip,
		Name:      "insp",
	})
	require.NoError(t, err)

	info, err := m.Inspect(cres.ArtifactPath, "")
	require.NoError(t, err)
	assert.Equal(t, "insp", info.Name)
	assert.False(t, info.Encrypted)
	assert.Equal(t, compress.Gzip, info.Algorithm)
	assert.Equal(t, len(files), info.FileCount)
	assert.Positive(t, info.Size)
}

func TestInspect_EncryptedWithoutPassword(t *testing.T) {
	m, _ := newTestManager(t)
	src, _ := writeSource(t)

	cres, err := m.Create(context.Background(), CreateRequest{
		Sources:   []string{src},
		Algorithm: compress.Zip,
		Name:      "insp",
		Password:  "pw",
	})
	require.NoError(t, err)

	// Outer metadata only; format stays unknown without the password.
	info, err := m.Inspect(cres.ArtifactPath, "")
	require.NoError(t, err)
	assert.True(t, info.Encrypted)
	assert.Empty(t, string(info.Algorithm))
	assert.Zero(t, info.FileCount)
	assert.Equal(t, "insp", info.Name)
}

func TestArtifacts(t *testing.T) {
	m, _ := newTestManager(t)
	src, _ := writeSource(t)

	for _, name := range []string{"first", "second"} {
		_, err := m.Create(context.Background(), CreateRequest{
			Sources:   []string{src},
			Algorithm: compress.Zip,
			Name:      name,
		})
		require.NoError(t, err)
	}
	_, err := m.Create(context.Background(), CreateRequest{
		Sources:   []string{src},
		Algorithm: compress.Zip,
		Name:      "third",
		Password:  "pw",
	})
	require.NoError(t, err)

	got, err := m.Artifacts()
	require.NoError(t, err)
	require.Len(t, got, 3)

	var names []string
	for _, p := range got {
		names = append(names, filepath.Base(p))
	}
	assert.ElementsMatch(t, []string{"first.zip", "second.zip", "third.zip.encrypted"}, names)
}

func TestStem(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/x/backup_20260823_120000.zip", "backup_20260823_120000"},
		{"/x/b.tar.gz", "b"},
		{"/x/b.tar.bz2", "b"},
		{"/x/b.tgz", "b"},
		{"/x/b.zip.encrypted", "b"},
		{"/x/b.tar.gz.encrypted", "b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stem(tt.path), tt.path)
	}
}

func TestOutputTreeLayout(t *testing.T) {
	m, base := newTestManager(t)
	require.NoError(t, m.OutputTree().Ensure([]string{"zip"}))

	for _, dir := range []string{
		filepath.Join(base, paths.CompressedDirName, "zip"),
		filepath.Join(base, paths.EncryptedDirName),
		filepath.Join(base, paths.RestoredDirName),
	} {
		fi, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, fi.IsDir())
	}
}
