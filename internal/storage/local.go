package storage

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/rmontero/cofre/pkg/fileutil"
)

// CopyResult summarizes a local copy batch.
type CopyResult struct {
	Copied  int
	Bytes   int64
	Elapsed time.Duration
}

// CopyLocal copies each file into destDir, which must already exist.
// Used for mounted drives and network shares where plain file copies
// are the transport.
func CopyLocal(paths []string, destDir string) (*CopyResult, error) {
	info, err := os.Stat(destDir)
	if err != nil {
		return nil, errors.Wrapf(err, "destination %s", destDir)
	}
	if !info.IsDir() {
		return nil, errors.Newf("destination %s is not a directory", destDir)
	}

	start := time.Now()
	var res CopyResult
	for _, p := range paths {
		target := filepath.Join(destDir, filepath.Base(p))
		if err := fileutil.CopyFile(p, target); err != nil {
			return nil, errors.Wrapf(err, "copying %s", p)
		}
		n, err := fileutil.FileSize(target)
		if err != nil {
			return nil, err
		}
		res.Copied++
		res.Bytes += n
	}
	res.Elapsed = time.Since(start)
	return &res, nil
}
