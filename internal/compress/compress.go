package compress

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
)

// Algorithm identifies a supported compression algorithm. It is a closed
// set; every switch over it handles all three members and rejects anything
// else through ParseAlgorithm.
type Algorithm string

const (
	// Zip produces a .zip container with per-entry deflate.
	Zip Algorithm = "zip"
	// Gzip produces a .tar.gz: a tar container compressed as one stream.
	Gzip Algorithm = "gzip"
	// Bzip2 produces a .tar.bz2: a tar container compressed as one stream.
	Bzip2 Algorithm = "bzip2"
)

// Algorithms lists all supported algorithms in canonical order.
func Algorithms() []Algorithm {
	return []Algorithm{Zip, Gzip, Bzip2}
}

// ParseAlgorithm validates a user-supplied algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case Zip, Gzip, Bzip2:
		return Algorithm(s), nil
	default:
		return "", errors.Newf("unknown compression algorithm %q (valid: zip, gzip, bzip2)", s)
	}
}

// Extension returns the artifact file extension for the algorithm.
func (a Algorithm) Extension() string {
	switch a {
	case Zip:
		return ".zip"
	case Gzip:
		return ".tar.gz"
	case Bzip2:
		return ".tar.bz2"
	}
	return ""
}

// String implements fmt.Stringer.
func (a Algorithm) String() string { return string(a) }

// Sentinel errors for compression operations.
var (
	// ErrSourceNotFound indicates a source path does not exist.
	ErrSourceNotFound = errors.New("source path not found")

	// ErrCompressionFailed indicates an I/O or codec error while building
	// the artifact.
	ErrCompressionFailed = errors.New("compression failed")

	// ErrUnknownFormat indicates the archive format could not be determined.
	ErrUnknownFormat = errors.New("unknown archive format")
)

// Result summarizes a completed compression.
type Result struct {
	// OutputFile is the path of the produced artifact.
	OutputFile string

	// FileCount is the number of files stored in the artifact.
	FileCount int

	// OriginalSize is the sum of all source file sizes in bytes.
	OriginalSize int64

	// CompressedSize is the size of the artifact in bytes.
	CompressedSize int64

	// Ratio is 1 - compressed/original; 0 when the original set is empty.
	Ratio float64

	// Elapsed is the wall time the compression took.
	Elapsed time.Duration
}

// Compressor builds a single artifact from a set of source paths.
// The zero value is not usable; construct with New.
type Compressor struct {
	workers int
}

// Option configures a Compressor.
type Option func(*Compressor)

// WithWorkers sets the size of the worker pool used for parallel zip
// entry compression. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(c *Compressor) {
		if n > 0 {
			c.workers = n
		}
	}
}

// New creates a Compressor. By default the worker pool is sized to the
// number of CPU cores.
func New(opts ...Option) *Compressor {
	c := &Compressor{
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// fileEntry is one file to be stored in the artifact.
type fileEntry struct {
	// path is the absolute location on disk.
	path string
	// name is the entry name inside the artifact (forward slashes).
	name string
	// info is the file's metadata at collection time.
	info fs.FileInfo
}

// Compress traverses the source paths and writes a single artifact to
// outPath using the given algorithm. Each source may be a file or a
// directory; directories are walked recursively and entries are stored
// under the directory's base name so relative structure survives a
// round trip.
func (c *Compressor) Compress(sources []string, algorithm Algorithm, outPath string) (*Result, error) {
	start := time.Now()

	entries, totalSize, err := collectEntries(sources)
	if err != nil {
		return nil, err
	}
	// The sources exist at this point; an empty set is its own condition,
	// not a missing path.
	if len(entries) == 0 {
		return nil, errors.New("sources contain no files to archive")
	}

	switch algorithm {
	case Zip:
		err = c.writeZip(entries, outPath)
	case Gzip, Bzip2:
		err = c.writeTar(entries, algorithm, outPath)
	default:
		return nil, errors.Newf("unknown compression algorithm %q", algorithm)
	}
	if err != nil {
		// Never leave a half-written artifact behind.
		os.Remove(outPath)
		return nil, errors.Mark(errors.Wrapf(err, "writing %s", outPath), ErrCompressionFailed)
	}

	compressedSize, err := fileSize(outPath)
	if err != nil {
		return nil, err
	}

	ratio := 0.0
	if totalSize > 0 {
		ratio = 1 - float64(compressedSize)/float64(totalSize)
	}

	return &Result{
		OutputFile:     outPath,
		FileCount:      len(entries),
		OriginalSize:   totalSize,
		CompressedSize: compressedSize,
		Ratio:          ratio,
		Elapsed:        time.Since(start),
	}, nil
}

// collectEntries walks every source and returns the files to store,
// sorted by archive name so output ordering never depends on traversal
// or scheduling order.
func collectEntries(sources []string) ([]fileEntry, int64, error) {
	var entries []fileEntry
	var totalSize int64

	for _, src := range sources {
		info, err := os.Stat(src)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, 0, errors.Wrapf(ErrSourceNotFound, "%s", src)
			}
			return nil, 0, errors.Wrapf(err, "stat %s", src)
		}

		if !info.IsDir() {
			entries = append(entries, fileEntry{
				path: src,
				name: filepath.Base(src),
				info: info,
			})
			totalSize += info.Size()
			continue
		}

		base := filepath.Base(filepath.Clean(src))
		err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(src, path)
			if err != nil {
				return err
			}
			entries = append(entries, fileEntry{
				path: path,
				name: filepath.ToSlash(filepath.Join(base, rel)),
				info: fi,
			})
			totalSize += fi.Size()
			return nil
		})
		if err != nil {
			return nil, 0, errors.Wrapf(err, "walking %s", src)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	return entries, totalSize, nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, errors.Wrapf(err, "stat %s", path)
	}
	return info.Size(), nil
}
