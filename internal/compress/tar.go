package compress

import (
	"archive/tar"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
)

// writeTar builds a tar container and compresses the whole stream with
// gzip or bzip2. Unlike zip there is a single compressed stream, so
// entries are written sequentially in sorted order.
func (c *Compressor) writeTar(entries []fileEntry, algorithm Algorithm, outPath string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return errors.Wrap(err, "creating archive")
	}
	defer out.Close()

	var cw io.WriteCloser
	switch algorithm {
	case Gzip:
		cw = gzip.NewWriter(out)
	case Bzip2:
		cw, err = bzip2.NewWriter(out, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
		if err != nil {
			return errors.Wrap(err, "creating bzip2 writer")
		}
	default:
		return errors.Newf("algorithm %q is not tar-based", algorithm)
	}

	tw := tar.NewWriter(cw)

	for _, e := range entries {
		if err := appendTarEntry(tw, e); err != nil {
			tw.Close()
			cw.Close()
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return errors.Wrap(err, "finalizing tar stream")
	}
	if err := cw.Close(); err != nil {
		return errors.Wrap(err, "finalizing compressed stream")
	}
	return errors.Wrap(out.Close(), "closing archive")
}

func appendTarEntry(tw *tar.Writer, e fileEntry) error {
	hdr, err := tar.FileInfoHeader(e.info, "")
	if err != nil {
		return errors.Wrapf(err, "header for %s", e.name)
	}
	hdr.Name = e.name

	if err := tw.WriteHeader(hdr); err != nil {
		return errors.Wrapf(err, "writing header for %s", e.name)
	}

	f, err := os.Open(e.path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", e.path)
	}
	defer f.Close()

	if _, err := io.Copy(tw, f); err != nil {
		return errors.Wrapf(err, "writing %s", e.name)
	}
	return nil
}
