package fragment

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// Sentinel errors for fragment operations.
var (
	// ErrNoFragmentsFound indicates no fragment files exist in any of the
	// given destinations.
	ErrNoFragmentsFound = errors.New("no fragments found")

	// ErrMissingFragment indicates the collected fragment sequence has a
	// gap and the artifact cannot be reconstructed completely.
	ErrMissingFragment = errors.New("missing fragment")

	// ErrDestinationUnwritable indicates a destination path does not
	// exist, is not a directory, or rejects writes.
	ErrDestinationUnwritable = errors.New("destination not writable")

	// ErrMixedArtifacts indicates the destinations hold fragments of more
	// than one artifact; reassembly refuses to guess which one is wanted.
	ErrMixedArtifacts = errors.New("fragments belong to different artifacts")
)

// minIndexWidth is the minimum zero padding of the sequence index in
// fragment file names. Wider indices are used when a split needs them;
// ordering is always derived from the parsed number, not the string.
const minIndexWidth = 3

// partRe matches fragment file names: <original name>.part<NNN>.
var partRe = regexp.MustCompile(`^(.+)\.part(\d+)$`)

// Ref locates one fragment of a split artifact.
type Ref struct {
	// Index is the 0-based position of the fragment in the artifact.
	Index int `json:"index"`
	// Destination is the directory holding the fragment.
	Destination string `json:"destination"`
	// Name is the fragment file name.
	Name string `json:"name"`
	// Size is the fragment length in bytes.
	Size int64 `json:"size"`
}

// Manifest describes a completed split. It is informational: reassembly
// never requires it, because order is recoverable from file names alone.
type Manifest struct {
	ArtifactName   string    `json:"artifact_name"`
	ArtifactSize   int64     `json:"artifact_size"`
	FragmentSize   int64     `json:"fragment_size"`
	TotalFragments int       `json:"total_fragments"`
	Destinations   []string  `json:"destinations"`
	Fragments      []Ref     `json:"fragments"`
	CreatedAt      time.Time `json:"created_at"`
}

// Split cuts the artifact into fragments of at most fragmentSize bytes
// and distributes them round-robin across the destinations: fragment i
// goes to destinations[i mod N]. Any fragments already present in the
// destinations are removed first, so re-running a split is idempotent.
//
// Each destination gets its own writer goroutine; the writers own
// disjoint fragment indices, so no two of them ever touch the same file.
func Split(artifactPath string, fragmentSize int64, destinations []string) (*Manifest, error) {
	if fragmentSize <= 0 {
		return nil, errors.Newf("fragment size must be positive, got %d", fragmentSize)
	}
	if len(destinations) == 0 {
		return nil, errors.New("at least one destination is required")
	}
	for _, dest := range destinations {
		info, err := os.Stat(dest)
		if err != nil || !info.IsDir() {
			return nil, errors.Wrapf(ErrDestinationUnwritable, "%s", dest)
		}
	}

	f, err := os.Open(artifactPath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", artifactPath)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", artifactPath)
	}
	size := info.Size()

	// A 0-byte artifact still yields one (empty) fragment so the split
	// remains reconstructible.
	total := int((size + fragmentSize - 1) / fragmentSize)
	if total == 0 {
		total = 1
	}

	if _, err := Clean(destinations); err != nil {
		return nil, err
	}

	width := minIndexWidth
	if w := len(strconv.Itoa(total - 1)); w > width {
		width = w
	}

	base := filepath.Base(artifactPath)
	refs := make([]Ref, total)
	for i := 0; i < total; i++ {
		length := fragmentSize
		if remaining := size - int64(i)*fragmentSize; remaining < length {
			length = remaining
		}
		if length < 0 {
			length = 0
		}
		refs[i] = Ref{
			Index:       i,
			Destination: destinations[i%len(destinations)],
			Name:        fmt.Sprintf("%s.part%0*d", base, width, i),
			Size:        length,
		}
	}

	// One writer per destination over its own fragment indices.
	var wg sync.WaitGroup
	errCh := make(chan error, len(destinations))
	for d := range destinations {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			for i := d; i < total; i += len(destinations) {
				if err := writeFragment(f, refs[i], int64(i)*fragmentSize); err != nil {
					errCh <- err
					return
				}
			}
		}(d)
	}
	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		// A partial split is worse than no split: remove what was written.
		Clean(destinations)
		return nil, err
	}

	return &Manifest{
		ArtifactName:   base,
		ArtifactSize:   size,
		FragmentSize:   fragmentSize,
		TotalFragments: total,
		Destinations:   destinations,
		Fragments:      refs,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// writeFragment copies one slice of the artifact into its fragment file.
// ReadAt-based section readers keep concurrent writers independent of
// the shared file's seek position.
func writeFragment(artifact *os.File, ref Ref, offset int64) error {
	path := filepath.Join(ref.Destination, ref.Name)

	out, err := os.Create(path)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "creating %s", path), ErrDestinationUnwritable)
	}

	section := io.NewSectionReader(artifact, offset, ref.Size)
	if _, err := io.Copy(out, section); err != nil {
		out.Close()
		return errors.Mark(errors.Wrapf(err, "writing %s", path), ErrDestinationUnwritable)
	}
	return errors.Wrapf(out.Close(), "closing %s", path)
}

// Clean removes all fragment files from the destinations, returning how
// many were deleted. Destinations that do not exist are skipped; they
// will fail later with a clearer error if actually needed.
func Clean(destinations []string) (int, error) {
	removed := 0
	for _, dest := range destinations {
		entries, err := os.ReadDir(dest)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, errors.Wrapf(err, "reading %s", dest)
		}
		for _, e := range entries {
			if e.IsDir() || !partRe.MatchString(e.Name()) {
				continue
			}
			path := filepath.Join(dest, e.Name())
			if err := os.Remove(path); err != nil {
				return removed, errors.Wrapf(err, "removing %s", path)
			}
			removed++
		}
	}
	return removed, nil
}

// found is one discovered fragment during a destination scan.
type found struct {
	base  string
	index int
	path  string
}

// Reassemble scans the destinations for fragment files, orders them by
// their sequence index, and concatenates them into outputDir. The order
// of the destinations argument is irrelevant: sequencing is re-derived
// from the file names, never from write-time placement.
//
// It returns the path of the reconstructed artifact.
func Reassemble(destinations []string, outputDir string) (string, error) {
	var parts []found
	for _, dest := range destinations {
		entries, err := os.ReadDir(dest)
		if err != nil {
			return "", errors.Wrapf(err, "reading %s", dest)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			m := partRe.FindStringSubmatch(e.Name())
			if m == nil {
				continue
			}
			idx, err := strconv.Atoi(m[2])
			if err != nil {
				continue
			}
			parts = append(parts, found{
				base:  m[1],
				index: idx,
				path:  filepath.Join(dest, e.Name()),
			})
		}
	}

	if len(parts) == 0 {
		return "", errors.Wrapf(ErrNoFragmentsFound, "searched %d destination(s)", len(destinations))
	}

	for _, p := range parts {
		if p.base != parts[0].base {
			return "", errors.Wrapf(ErrMixedArtifacts, "%q and %q", parts[0].base, p.base)
		}
	}

	sort.Slice(parts, func(i, j int) bool { return parts[i].index < parts[j].index })

	// The sequence must be exactly 0..n-1: a gap means a lost fragment,
	// a duplicate means two destinations claim the same slice.
	for i, p := range parts {
		if p.index != i {
			if i > 0 && p.index == parts[i-1].index {
				return "", errors.Newf("duplicate fragment index %d (%s)", p.index, p.path)
			}
			return "", errors.Wrapf(ErrMissingFragment, "sequence jumps from %d to %d", i-1, p.index)
		}
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating %s", outputDir)
	}

	outPath := filepath.Join(outputDir, parts[0].base)
	out, err := os.Create(outPath)
	if err != nil {
		return "", errors.Wrapf(err, "creating %s", outPath)
	}

	for _, p := range parts {
		if err := appendFile(out, p.path); err != nil {
			out.Close()
			os.Remove(outPath)
			return "", err
		}
	}

	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return "", errors.Wrapf(err, "closing %s", outPath)
	}
	return outPath, nil
}

func appendFile(out *os.File, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	defer in.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrapf(err, "appending %s", path)
	}
	return nil
}
