package compress

import (
	"archive/zip"
	"bytes"
	"hash/crc32"
	"io"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/flate"
)

// zipShard holds one entry's deflate output, produced by a pool worker
// and consumed by the single writer in entry order.
type zipShard struct {
	entry fileEntry
	data  []byte
	crc   uint32
	size  uint64
	err   error
	done  chan struct{}
}

// writeZip builds a zip container. Entries are deflate-compressed by a
// bounded worker pool into indexed shards; the writer appends shards
// strictly in the sorted entry order, so the artifact bytes never depend
// on worker completion order.
func (c *Compressor) writeZip(entries []fileEntry, outPath string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return errors.Wrap(err, "creating archive")
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	shards := make([]*zipShard, len(entries))
	for i, e := range entries {
		shards[i] = &zipShard{entry: e, done: make(chan struct{})}
	}

	// Bound both the pool and the number of completed-but-unwritten
	// shards, so memory stays proportional to the worker count.
	jobs := make(chan *zipShard)
	inflight := make(chan struct{}, c.workers*2)

	var wg sync.WaitGroup
	for w := 0; w < c.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range jobs {
				s.data, s.crc, s.size, s.err = deflateFile(s.entry.path)
				close(s.done)
			}
		}()
	}

	go func() {
		for _, s := range shards {
			inflight <- struct{}{}
			jobs <- s
		}
		close(jobs)
	}()

	var firstErr error
	for _, s := range shards {
		<-s.done
		if s.err != nil {
			if firstErr == nil {
				firstErr = s.err
			}
			<-inflight
			continue
		}
		if firstErr == nil {
			firstErr = appendShard(zw, s)
		}
		s.data = nil
		<-inflight
	}
	wg.Wait()

	if firstErr != nil {
		zw.Close()
		return firstErr
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "finalizing archive")
	}
	return errors.Wrap(out.Close(), "closing archive")
}

// deflateFile compresses a single file into memory and returns the raw
// deflate stream, CRC32, and uncompressed size.
func deflateFile(path string) ([]byte, uint32, uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, "creating deflate writer")
	}

	crc := crc32.NewIEEE()
	n, err := io.Copy(io.MultiWriter(fw, crc), f)
	if err != nil {
		return nil, 0, 0, errors.Wrapf(err, "compressing %s", path)
	}
	if err := fw.Close(); err != nil {
		return nil, 0, 0, errors.Wrap(err, "flushing deflate writer")
	}

	return buf.Bytes(), crc.Sum32(), uint64(n), nil
}

// appendShard writes one precompressed entry into the archive.
func appendShard(zw *zip.Writer, s *zipShard) error {
	hdr := &zip.FileHeader{
		Name:               s.entry.name,
		Method:             zip.Deflate,
		Modified:           s.entry.info.ModTime(),
		CRC32:              s.crc,
		CompressedSize64:   uint64(len(s.data)),
		UncompressedSize64: s.size,
	}
	hdr.SetMode(s.entry.info.Mode())

	w, err := zw.CreateRaw(hdr)
	if err != nil {
		return errors.Wrapf(err, "creating entry %s", s.entry.name)
	}
	if _, err := w.Write(s.data); err != nil {
		return errors.Wrapf(err, "writing entry %s", s.entry.name)
	}
	return nil
}
