package backup

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/rmontero/cofre/internal/compress"
	"github.com/rmontero/cofre/internal/crypt"
	"github.com/rmontero/cofre/internal/metrics"
	"github.com/rmontero/cofre/internal/paths"
	"github.com/rmontero/cofre/pkg/fileutil"
)

// RestoreRequest describes one restore run.
type RestoreRequest struct {
	// ArtifactPath is the backup artifact to restore.
	ArtifactPath string
	// Password decrypts an encrypted artifact; ignored otherwise.
	Password string
	// OutputDir overrides the default restored/ root when non-empty.
	OutputDir string
}

// RestoreResult describes a finished restore.
type RestoreResult struct {
	ArtifactPath string
	RestoredDir  string
	FileCount    int
	Decrypted    bool
	Stages       []metrics.Stage
	Elapsed      time.Duration
}

// Restore reconstructs a backup's contents into a fresh timestamped
// directory. Decryption and extraction happen in scratch space; the
// target directory appears only once extraction has fully succeeded.
func (m *Manager) Restore(ctx context.Context, req RestoreRequest) (*RestoreResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(req.ArtifactPath); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "artifact %s", req.ArtifactPath), ErrRestoreFailed)
	}

	collector := metrics.NewCollector()

	runDir, err := m.newRunDir("restore")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(runDir)

	m.logger.Info("starting restore", "artifact", req.ArtifactPath)

	workPath := req.ArtifactPath
	decrypted := false
	if compress.IsEncrypted(req.ArtifactPath) {
		if req.Password == "" {
			return nil, errors.Mark(errors.New("artifact is encrypted, password required"), ErrRestoreFailed)
		}
		plainPath := filepath.Join(runDir, filepath.Base(compress.TrimEncrypted(req.ArtifactPath)))
		done := collector.Track("decrypt")
		dres, err := crypt.DecryptFile(req.ArtifactPath, plainPath, req.Password)
		if err != nil {
			return nil, errors.Mark(err, ErrRestoreFailed)
		}
		done(dres.OutputSize)
		workPath = plainPath
		decrypted = true
	}

	extractDir := filepath.Join(runDir, "extract")
	done := collector.Track("extract")
	count, err := compress.Extract(workPath, extractDir)
	if err != nil {
		return nil, errors.Mark(err, ErrRestoreFailed)
	}
	done(0)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root := req.OutputDir
	if root == "" {
		root = m.tree.RestoredDir()
	}
	if err := paths.EnsureDir(root, 0o755); err != nil {
		return nil, errors.Mark(err, ErrRestoreFailed)
	}

	targetName := "restored_" + stem(req.ArtifactPath) + "_" + time.Now().Format(nameTimeLayout)
	target := filepath.Join(root, targetName)
	if err := fileutil.AtomicRename(extractDir, target); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "publishing restored files"), ErrRestoreFailed)
	}

	res := &RestoreResult{
		ArtifactPath: req.ArtifactPath,
		RestoredDir:  target,
		FileCount:    count,
		Decrypted:    decrypted,
		Stages:       collector.Stages(),
		Elapsed:      collector.Total(),
	}
	m.logger.Info("restore complete",
		"target", target,
		"files", count,
		"elapsed", res.Elapsed.Round(time.Millisecond).String(),
	)
	return res, nil
}

// openPlain makes an artifact readable as a plain archive, decrypting
// into scratch space when needed. The returned cleanup removes any
// scratch file; call it even on success.
func (m *Manager) openPlain(artifactPath, password string) (string, func(), error) {
	if !compress.IsEncrypted(artifactPath) {
		return artifactPath, func() {}, nil
	}
	if password == "" {
		return "", nil, errors.New("artifact is encrypted, password required")
	}

	runDir, err := m.newRunDir("inspect")
	if err != nil {
		return "", nil, err
	}
	plainPath := filepath.Join(runDir, filepath.Base(compress.TrimEncrypted(artifactPath)))
	if _, err := crypt.DecryptFile(artifactPath, plainPath, password); err != nil {
		os.RemoveAll(runDir)
		return "", nil, err
	}
	return plainPath, func() { os.RemoveAll(runDir) }, nil
}

// Verify fully reads an artifact and checks its integrity, returning
// the number of verified entries. Encrypted artifacts are decrypted to
// scratch space first, so a wrong password also surfaces here.
func (m *Manager) Verify(artifactPath, password string) (int, error) {
	plain, cleanup, err := m.openPlain(artifactPath, password)
	if err != nil {
		return 0, err
	}
	defer cleanup()
	return compress.Verify(plain)
}

// ListContents returns the entries of an artifact in sorted order.
func (m *Manager) ListContents(artifactPath, password string) ([]compress.Entry, error) {
	plain, cleanup, err := m.openPlain(artifactPath, password)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return compress.ListContents(plain)
}

// Info describes a backup artifact without unpacking it.
type Info struct {
	Name      string
	Path      string
	Size      int64
	Encrypted bool
	// Algorithm is empty when the artifact is encrypted and no password
	// was supplied to look inside.
	Algorithm compress.Algorithm
	FileCount int
	ModTime   time.Time
}

// Inspect reports what is known about an artifact. With an empty
// password on an encrypted artifact it reports only the outer metadata;
// with a password (or for plain artifacts) it also detects the format
// and counts entries.
func (m *Manager) Inspect(artifactPath, password string) (*Info, error) {
	fi, err := os.Stat(artifactPath)
	if err != nil {
		return nil, errors.Wrapf(err, "artifact %s", artifactPath)
	}

	info := &Info{
		Name:      stem(artifactPath),
		Path:      artifactPath,
		Size:      fi.Size(),
		Encrypted: compress.IsEncrypted(artifactPath),
		ModTime:   fi.ModTime(),
	}

	if info.Encrypted && password == "" {
		return info, nil
	}

	plain, cleanup, err := m.openPlain(artifactPath, password)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	algo, err := compress.DetectFormat(plain)
	if err != nil {
		return nil, err
	}
	info.Algorithm = algo

	entries, err := compress.ListContents(plain)
	if err != nil {
		return nil, err
	}
	info.FileCount = len(entries)
	return info, nil
}

// Artifacts lists every backup artifact in the output tree, newest
// first. Used by interactive selection when no artifact is named.
func (m *Manager) Artifacts() ([]string, error) {
	var found []string

	roots := []string{m.tree.EncryptedDir()}
	for _, algo := range compress.Algorithms() {
		roots = append(roots, m.tree.CompressedDir(algo.String()))
	}
	for _, root := range roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "reading %s", root)
		}
		for _, e := range entries {
			if !e.IsDir() {
				found = append(found, filepath.Join(root, e.Name()))
			}
		}
	}

	mod := make(map[string]time.Time, len(found))
	for _, p := range found {
		if fi, err := os.Stat(p); err == nil {
			mod[p] = fi.ModTime()
		}
	}
	sort.Slice(found, func(i, j int) bool { return mod[found[i]].After(mod[found[j]]) })
	return found, nil
}
