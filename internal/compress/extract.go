package compress

import (
	"archive/tar"
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
)

// Entry describes one file inside an artifact without extracting it.
type Entry struct {
	// Name is the entry path inside the artifact.
	Name string `json:"name"`
	// Size is the uncompressed size in bytes.
	Size int64 `json:"size"`
}

// Extract unpacks the artifact at archivePath into destDir, restoring
// relative paths and file modes. It returns the number of files written.
// Entry names are confined to destDir; an entry that would escape it is
// an error, not a write.
func Extract(archivePath, destDir string) (int, error) {
	format, err := DetectFormat(archivePath)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return 0, errors.Wrapf(err, "creating %s", destDir)
	}

	switch format {
	case Zip:
		return extractZip(archivePath, destDir)
	case Gzip, Bzip2:
		return extractTar(archivePath, format, destDir)
	}
	return 0, errors.Wrapf(ErrUnknownFormat, "%s", archivePath)
}

func extractZip(archivePath, destDir string) (int, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, errors.Wrapf(err, "opening %s", archivePath)
	}
	defer r.Close()

	count := 0
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		target, err := securePath(destDir, f.Name)
		if err != nil {
			return count, err
		}
		rc, err := f.Open()
		if err != nil {
			return count, errors.Wrapf(err, "opening entry %s", f.Name)
		}
		err = writeExtracted(target, rc, f.Mode())
		rc.Close()
		if err != nil {
			return count, errors.Wrapf(err, "extracting %s", f.Name)
		}
		count++
	}
	return count, nil
}

func extractTar(archivePath string, format Algorithm, destDir string) (int, error) {
	tr, closeStream, err := openTarStream(archivePath, format)
	if err != nil {
		return 0, err
	}
	defer closeStream()

	count := 0
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, errors.Wrapf(err, "reading %s", archivePath)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		target, err := securePath(destDir, hdr.Name)
		if err != nil {
			return count, err
		}
		if err := writeExtracted(target, tr, hdr.FileInfo().Mode()); err != nil {
			return count, errors.Wrapf(err, "extracting %s", hdr.Name)
		}
		count++
	}
}

// openTarStream opens a tar.gz or tar.bz2 artifact and returns a tar
// reader plus a cleanup func for the underlying streams.
func openTarStream(archivePath string, format Algorithm) (*tar.Reader, func(), error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening %s", archivePath)
	}

	var dr io.ReadCloser
	switch format {
	case Gzip:
		dr, err = gzip.NewReader(f)
	case Bzip2:
		dr, err = bzip2.NewReader(f, nil)
	default:
		f.Close()
		return nil, nil, errors.Newf("algorithm %q is not tar-based", format)
	}
	if err != nil {
		f.Close()
		return nil, nil, errors.Wrapf(err, "reading compressed stream of %s", archivePath)
	}

	cleanup := func() {
		dr.Close()
		f.Close()
	}
	return tar.NewReader(dr), cleanup, nil
}

// securePath joins an archive entry name onto destDir, rejecting names
// that would escape it.
func securePath(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", errors.Newf("entry %q escapes the extraction directory", name)
	}
	return target, nil
}

func writeExtracted(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ListContents returns the file entries of an artifact without
// extracting it.
func ListContents(archivePath string) ([]Entry, error) {
	format, err := DetectFormat(archivePath)
	if err != nil {
		return nil, err
	}

	switch format {
	case Zip:
		r, err := zip.OpenReader(archivePath)
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s", archivePath)
		}
		defer r.Close()

		var entries []Entry
		for _, f := range r.File {
			if f.FileInfo().IsDir() {
				continue
			}
			entries = append(entries, Entry{Name: f.Name, Size: int64(f.UncompressedSize64)})
		}
		return entries, nil

	case Gzip, Bzip2:
		tr, closeStream, err := openTarStream(archivePath, format)
		if err != nil {
			return nil, err
		}
		defer closeStream()

		var entries []Entry
		for {
			hdr, err := tr.Next()
			if errors.Is(err, io.EOF) {
				return entries, nil
			}
			if err != nil {
				return nil, errors.Wrapf(err, "reading %s", archivePath)
			}
			if hdr.Typeflag != tar.TypeReg {
				continue
			}
			entries = append(entries, Entry{Name: hdr.Name, Size: hdr.Size})
		}
	}
	return nil, errors.Wrapf(ErrUnknownFormat, "%s", archivePath)
}

// Verify reads the artifact end to end without extracting, returning the
// number of files it holds. For zip this checks every entry's CRC; for
// the tar formats it proves the compressed stream decodes completely.
func Verify(archivePath string) (int, error) {
	format, err := DetectFormat(archivePath)
	if err != nil {
		return 0, err
	}

	switch format {
	case Zip:
		r, err := zip.OpenReader(archivePath)
		if err != nil {
			return 0, errors.Wrapf(err, "opening %s", archivePath)
		}
		defer r.Close()

		count := 0
		for _, f := range r.File {
			if f.FileInfo().IsDir() {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				return count, errors.Wrapf(err, "opening entry %s", f.Name)
			}
			// Full read forces the CRC check in the zip reader.
			_, err = io.Copy(io.Discard, rc)
			rc.Close()
			if err != nil {
				return count, errors.Wrapf(err, "entry %s is corrupted", f.Name)
			}
			count++
		}
		return count, nil

	case Gzip, Bzip2:
		tr, closeStream, err := openTarStream(archivePath, format)
		if err != nil {
			return 0, err
		}
		defer closeStream()

		count := 0
		for {
			hdr, err := tr.Next()
			if errors.Is(err, io.EOF) {
				return count, nil
			}
			if err != nil {
				return count, errors.Wrapf(err, "reading %s", archivePath)
			}
			if hdr.Typeflag != tar.TypeReg {
				continue
			}
			if _, err := io.Copy(io.Discard, tr); err != nil {
				return count, errors.Wrapf(err, "entry %s is corrupted", hdr.Name)
			}
			count++
		}
	}
	return 0, errors.Wrapf(ErrUnknownFormat, "%s", archivePath)
}
