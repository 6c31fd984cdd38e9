package fileutil

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rmontero/cofre/internal/errors"
)

// copyContents streams all of r into w.
func copyContents(r io.Reader, w io.Writer) error {
	if _, err := io.Copy(w, r); err != nil {
		return errors.Wrap(err, "copying contents")
	}
	return nil
}

// CopyFile copies a file from src to dst, preserving the source's
// permission bits. The destination is truncated if it already exists.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "opening source file")
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.Wrap(err, "stat source file")
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrap(err, "creating destination file")
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrap(err, "copying file")
	}

	if err := out.Close(); err != nil {
		return errors.Wrap(err, "closing destination file")
	}

	if err := os.Chmod(dst, info.Mode()); err != nil {
		return errors.Wrap(err, "setting permissions")
	}

	return nil
}

// CopyTree recursively copies the contents of the directory src into
// dst, which must already exist. Permission bits of files and
// subdirectories are preserved.
func CopyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, "walking %s", src)
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return errors.Wrapf(err, "resolving %s", path)
		}
		if rel == "." {
			return nil
		}

		target := filepath.Join(dst, rel)
		if d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return errors.Wrapf(err, "stat %s", path)
			}
			return errors.Wrapf(os.MkdirAll(target, info.Mode().Perm()), "creating %s", target)
		}
		return CopyFile(path, target)
	})
}

// FileSize returns the size of the file at path in bytes.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, errors.Wrapf(err, "stat %s", path)
	}
	return info.Size(), nil
}
