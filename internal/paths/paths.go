package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
)

// AppName is the application name used for XDG directory naming.
const AppName = "cofre"

// Output subdirectories produced under the output base. Compressed
// artifacts are organized by algorithm, encrypted artifacts and restores
// get their own roots.
const (
	CompressedDirName = "compressed"
	EncryptedDirName  = "encrypted"
	RestoredDirName   = "restored"
)

// Sentinel errors for path resolution.
var (
	// ErrHomeDirNotFound indicates the user's home directory could not be determined.
	ErrHomeDirNotFound = errors.New("home directory not found")

	// ErrInvalidPath indicates the provided path is malformed or invalid.
	ErrInvalidPath = errors.New("invalid path")
)

// DefaultDirPerm is the default permission for newly created directories (private).
const DefaultDirPerm = 0o700

// EnsureDir creates the directory and any necessary parents with specified permissions.
// If perm is 0, DefaultDirPerm (0700) is used.
// This function is idempotent; it returns nil if the directory already exists.
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = DefaultDirPerm
	}
	return os.MkdirAll(path, perm)
}

// ConfigHome returns the XDG config home directory.
func ConfigHome() string {
	return xdg.ConfigHome
}

// ConfigDir returns the cofre configuration directory.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultOutputBase returns the default root for backup outputs,
// under the XDG data home.
func DefaultOutputBase() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// DefaultWorkDir returns the default scratch directory for in-flight
// pipeline stages. Partial artifacts live here until a stage completes.
func DefaultWorkDir() string {
	return filepath.Join(xdg.CacheHome, AppName, "work")
}

// OutputTree describes the on-disk layout produced under an output base.
type OutputTree struct {
	Base string
}

// NewOutputTree returns the layout rooted at base.
func NewOutputTree(base string) OutputTree {
	return OutputTree{Base: base}
}

// CompressedDir returns the output directory for artifacts compressed
// with the named algorithm, e.g. <base>/compressed/zip.
func (t OutputTree) CompressedDir(algorithm string) string {
	return filepath.Join(t.Base, CompressedDirName, algorithm)
}

// EncryptedDir returns the output directory for encrypted artifacts.
func (t OutputTree) EncryptedDir() string {
	return filepath.Join(t.Base, EncryptedDirName)
}

// RestoredDir returns the root directory for restore targets.
func (t OutputTree) RestoredDir() string {
	return filepath.Join(t.Base, RestoredDirName)
}

// Ensure creates the full output tree for the given algorithms.
func (t OutputTree) Ensure(algorithms []string) error {
	dirs := []string{
		t.Base,
		t.EncryptedDir(),
		t.RestoredDir(),
	}
	for _, algo := range algorithms {
		dirs = append(dirs, t.CompressedDir(algo))
	}
	for _, dir := range dirs {
		if err := EnsureDir(dir, 0o755); err != nil {
			return errors.Wrapf(err, "creating %s", dir)
		}
	}
	return nil
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return home
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}

	return path
}
