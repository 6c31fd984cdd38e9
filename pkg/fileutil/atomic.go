// Package fileutil provides file system utilities including atomic write operations.
package fileutil

import (
	"encoding/json"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rmontero/cofre/internal/errors"
)

// AtomicWriteFile writes data to a file atomically using a temp file + rename pattern.
// This ensures interrupted writes leave the original file intact.
//
// The caller is responsible for ensuring the parent directory exists.
// Permissions are applied to the final file via the perm parameter.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	// Create temp file in same directory for atomic rename (same filesystem required)
	tmp, err := os.CreateTemp(dir, ".cofre-atomic-*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}

	// Track temp file name for cleanup
	tmpName := tmp.Name()
	defer func() {
		// Only remove if rename failed (file still exists)
		if _, statErr := os.Stat(tmpName); statErr == nil {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing temp file")
	}

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return errors.Wrap(err, "setting file permissions")
	}

	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}

	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, "renaming temp file")
	}

	return nil
}

// AtomicWriteJSON writes v as indented JSON to path atomically.
// Uses 2-space indentation and appends a trailing newline for POSIX compliance.
//
// The caller is responsible for ensuring the parent directory exists.
// The file is created with 0644 permissions.
func AtomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling JSON")
	}

	// Add trailing newline for POSIX compliance
	data = append(data, '\n')

	return AtomicWriteFile(path, data, 0644)
}

// AtomicWriteYAML writes v as YAML to path atomically.
// Appends a trailing newline for POSIX compliance.
//
// The caller is responsible for ensuring the parent directory exists.
// The file is created with 0644 permissions.
func AtomicWriteYAML(path string, v any) (err error) {
	// yaml.Marshal panics on unmarshalable types; recover and return error
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("marshaling YAML: %v", r)
		}
	}()

	data, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshaling YAML")
	}

	// yaml.Marshal already includes trailing newline, but ensure it
	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}

	return AtomicWriteFile(path, data, 0644)
}

// AtomicRename moves src to dst, falling back to nothing clever: rename is
// already atomic on POSIX when src and dst share a filesystem. The fallback
// copy path covers cross-device moves (workdir and output tree on
// different mounts) for both files and directories.
func AtomicRename(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	return moveByCopy(src, dst)
}

// moveByCopy replicates src into a temp location next to dst, renames it
// into place, then removes src. The staging keeps the final step a
// same-filesystem rename, so dst still appears all at once.
func moveByCopy(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return errors.Wrap(err, "stat source")
	}

	if info.IsDir() {
		tmpDir, err := os.MkdirTemp(filepath.Dir(dst), ".cofre-move-*")
		if err != nil {
			return errors.Wrap(err, "creating temp directory")
		}
		if err := CopyTree(src, tmpDir); err != nil {
			os.RemoveAll(tmpDir)
			return err
		}
		if err := os.Chmod(tmpDir, info.Mode().Perm()); err != nil {
			os.RemoveAll(tmpDir)
			return errors.Wrap(err, "setting directory permissions")
		}
		if err := os.Rename(tmpDir, dst); err != nil {
			os.RemoveAll(tmpDir)
			return errors.Wrap(err, "renaming temp directory")
		}
		return os.RemoveAll(src)
	}

	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "opening source")
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".cofre-move-*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	tmpName := tmp.Name()
	defer func() {
		if _, statErr := os.Stat(tmpName); statErr == nil {
			os.Remove(tmpName)
		}
	}()

	if err := copyContents(in, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(info.Mode()); err != nil {
		tmp.Close()
		return errors.Wrap(err, "setting file permissions")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return errors.Wrap(err, "renaming temp file")
	}
	return os.Remove(src)
}
