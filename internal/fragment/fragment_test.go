package fragment

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmontero/cofre/internal/errors"
)

func makeDests(t *testing.T, n int) []string {
	t.Helper()
	dests := make([]string, n)
	for i := range dests {
		dests[i] = t.TempDir()
	}
	return dests
}

func makeArtifact(t *testing.T, name string, size int) (string, []byte) {
	t.Helper()
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path, data
}

func TestSplit_RoundRobinPlacement(t *testing.T) {
	const mb = 1 << 20
	artifact, _ := makeArtifact(t, "backup.zip", 10*mb)
	dests := makeDests(t, 3)

	man, err := Split(artifact, mb, dests)
	require.NoError(t, err)

	assert.Equal(t, 10, man.TotalFragments)
	assert.Equal(t, int64(10*mb), man.ArtifactSize)

	// Fragment i lands in destination i mod 3.
	wantPerDest := [][]string{
		{"backup.zip.part000", "backup.zip.part003", "backup.zip.part006", "backup.zip.part009"},
		{"backup.zip.part001", "backup.zip.part004", "backup.zip.part007"},
		{"backup.zip.part002", "backup.zip.part005", "backup.zip.part008"},
	}
	for d, want := range wantPerDest {
		entries, err := os.ReadDir(dests[d])
		require.NoError(t, err)
		var got []string
		for _, e := range entries {
			got = append(got, e.Name())
		}
		assert.ElementsMatch(t, want, got, "destination %d", d)
	}
}

func TestSplitReassemble_RoundTrip(t *testing.T) {
	tests := []struct {
		name         string
		size         int
		fragmentSize int64
		dests        int
	}{
		{"even split", 9 * 1024, 1024, 3},
		{"trailing short fragment", 10*1024 + 17, 1024, 3},
		{"single fragment", 100, 1 << 20, 2},
		{"single destination", 5 * 1024, 1024, 1},
		{"more destinations than fragments", 2 * 1024, 1024, 5},
		{"empty artifact", 0, 1024, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifact, data := makeArtifact(t, "arch.tar.gz", tt.size)
			dests := makeDests(t, tt.dests)

			man, err := Split(artifact, tt.fragmentSize, dests)
			require.NoError(t, err)
			require.NotZero(t, man.TotalFragments)

			var total int64
			for _, ref := range man.Fragments {
				total += ref.Size
			}
			assert.Equal(t, int64(tt.size), total, "fragment sizes must sum to the artifact size")

			outDir := t.TempDir()
			outPath, err := Reassemble(dests, outDir)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(outDir, "arch.tar.gz"), outPath)

			got, err := os.ReadFile(outPath)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(data, got), "reconstruction must be byte-identical")
		})
	}
}

func TestReassemble_DestinationOrderIrrelevant(t *testing.T) {
	artifact, data := makeArtifact(t, "b.zip", 7*1024)
	dests := makeDests(t, 3)

	_, err := Split(artifact, 1024, dests)
	require.NoError(t, err)

	shuffled := []string{dests[2], dests[0], dests[1]}
	outPath, err := Reassemble(shuffled, t.TempDir())
	require.NoError(t, err)

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))
}

func TestSplit_IdempotentRerun(t *testing.T) {
	dests := makeDests(t, 2)

	// First split with many small fragments.
	artifactA, _ := makeArtifact(t, "same.zip", 8*1024)
	_, err := Split(artifactA, 1024, dests)
	require.NoError(t, err)

	// Second split of a smaller artifact under the same name must not
	// leave stale high-index fragments behind.
	artifactB, dataB := makeArtifact(t, "same.zip", 3*1024)
	man, err := Split(artifactB, 1024, dests)
	require.NoError(t, err)
	assert.Equal(t, 3, man.TotalFragments)

	count := 0
	for _, dest := range dests {
		entries, err := os.ReadDir(dest)
		require.NoError(t, err)
		count += len(entries)
	}
	assert.Equal(t, 3, count, "stale fragments must be cleaned before re-splitting")

	outPath, err := Reassemble(dests, t.TempDir())
	require.NoError(t, err)
	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(dataB, got))
}

func TestReassemble_MissingFragment(t *testing.T) {
	artifact, _ := makeArtifact(t, "gap.zip", 6*1024)
	dests := makeDests(t, 2)

	_, err := Split(artifact, 1024, dests)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dests[1], "gap.zip.part003")))

	_, err = Reassemble(dests, t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingFragment), "got: %v", err)
}

func TestReassemble_NoFragments(t *testing.T) {
	_, err := Reassemble(makeDests(t, 2), t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoFragmentsFound))
}

func TestReassemble_MixedArtifacts(t *testing.T) {
	dests := makeDests(t, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dests[0], "a.zip.part000"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dests[0], "b.zip.part001"), []byte("y"), 0o644))

	_, err := Reassemble(dests, t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMixedArtifacts))
}

func TestSplit_MissingDestination(t *testing.T) {
	artifact, _ := makeArtifact(t, "x.zip", 1024)

	_, err := Split(artifact, 512, []string{filepath.Join(t.TempDir(), "nope")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDestinationUnwritable))
}

func TestSplit_InvalidArguments(t *testing.T) {
	artifact, _ := makeArtifact(t, "x.zip", 1024)
	dests := makeDests(t, 1)

	_, err := Split(artifact, 0, dests)
	assert.Error(t, err)

	_, err = Split(artifact, 1024, nil)
	assert.Error(t, err)
}

func TestSplit_WideIndexNaming(t *testing.T) {
	artifact, data := makeArtifact(t, "tiny.bin", 4)
	dests := makeDests(t, 1)

	// 4 fragments of 1 byte keeps the default 3-digit width.
	man, err := Split(artifact, 1, dests)
	require.NoError(t, err)
	assert.Equal(t, "tiny.bin.part000", man.Fragments[0].Name)
	assert.Equal(t, "tiny.bin.part003", man.Fragments[3].Name)

	outPath, err := Reassemble(dests, t.TempDir())
	require.NoError(t, err)
	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestClean(t *testing.T) {
	dests := makeDests(t, 2)
	require.NoError(t, os.WriteFile(filepath.Join(dests[0], "a.zip.part000"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dests[1], "a.zip.part001"), []byte("y"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dests[1], "unrelated.txt"), []byte("z"), 0o644))

	removed, err := Clean(dests)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	// Non-fragment files survive.
	_, err = os.Stat(filepath.Join(dests[1], "unrelated.txt"))
	assert.NoError(t, err)
}
