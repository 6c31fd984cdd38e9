package backup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/rmontero/cofre/internal/compress"
	"github.com/rmontero/cofre/internal/crypt"
	"github.com/rmontero/cofre/internal/logging"
	"github.com/rmontero/cofre/internal/metrics"
	"github.com/rmontero/cofre/internal/paths"
	"github.com/rmontero/cofre/pkg/fileutil"
)

// ErrRestoreFailed marks any failure while reconstructing a backup's
// contents, whatever the underlying stage.
var ErrRestoreFailed = errors.New("restore failed")

// nameTimeLayout is the timestamp embedded in generated backup and
// restore directory names.
const nameTimeLayout = "20060102_150405"

// DefaultBackupName generates a timestamped backup name.
func DefaultBackupName() string {
	return "backup_" + time.Now().Format(nameTimeLayout)
}

// Manager runs the backup pipeline: compress, optionally encrypt, then
// publish the artifact into the output tree. Intermediate files live in
// a per-run scratch directory that is removed whether the run succeeds
// or fails, so a crash never leaves partial artifacts among finished
// ones.
type Manager struct {
	logger     *slog.Logger
	tree       paths.OutputTree
	workDir    string
	compressor *compress.Compressor
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger for pipeline progress.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithOutputBase sets the root of the output tree.
func WithOutputBase(base string) Option {
	return func(m *Manager) {
		if base != "" {
			m.tree = paths.NewOutputTree(base)
		}
	}
}

// WithWorkDir sets the scratch directory for in-flight stages.
func WithWorkDir(dir string) Option {
	return func(m *Manager) {
		if dir != "" {
			m.workDir = dir
		}
	}
}

// WithCompressWorkers sets the compression worker count.
func WithCompressWorkers(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.compressor = compress.New(compress.WithWorkers(n))
		}
	}
}

// NewManager builds a Manager with XDG-derived defaults.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		logger:     logging.Default(),
		tree:       paths.NewOutputTree(paths.DefaultOutputBase()),
		workDir:    paths.DefaultWorkDir(),
		compressor: compress.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OutputTree exposes the manager's output layout.
func (m *Manager) OutputTree() paths.OutputTree {
	return m.tree
}

// CreateRequest describes one backup run.
type CreateRequest struct {
	// Sources are the folders (or files) to back up.
	Sources []string
	// Algorithm selects the compression format.
	Algorithm compress.Algorithm
	// Name is the backup name; empty means a timestamped default.
	Name string
	// Password enables encryption when non-empty.
	Password string
}

// Result describes a finished backup.
type Result struct {
	Name         string
	ArtifactPath string
	Encrypted    bool
	FileCount    int
	OriginalSize int64
	ArtifactSize int64
	Ratio        float64
	Stages       []metrics.Stage
	Elapsed      time.Duration
}

// Create runs the full pipeline for one backup. All intermediate output
// is staged under the work directory and only the finished artifact is
// moved into the output tree, atomically.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*Result, error) {
	if len(req.Sources) == 0 {
		return nil, errors.New("no sources to back up")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = DefaultBackupName()
	}
	encrypt := req.Password != ""

	collector := metrics.NewCollector()

	if err := m.tree.Ensure([]string{req.Algorithm.String()}); err != nil {
		return nil, err
	}
	runDir, err := m.newRunDir(name)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(runDir)

	m.logger.Info("starting backup",
		"name", name,
		"algorithm", req.Algorithm.String(),
		"sources", len(req.Sources),
		"encrypted", encrypt,
	)

	stagePath := filepath.Join(runDir, name+req.Algorithm.Extension())
	done := collector.Track("compress")
	cres, err := m.compressor.Compress(req.Sources, req.Algorithm, stagePath)
	if err != nil {
		return nil, errors.Wrap(err, "compress stage")
	}
	done(cres.CompressedSize)
	m.logger.Debug("compressed",
		"files", cres.FileCount,
		"original", cres.OriginalSize,
		"compressed", cres.CompressedSize,
	)

	finalDir := m.tree.CompressedDir(req.Algorithm.String())
	artifactSize := cres.CompressedSize

	if encrypt {
		encPath := stagePath + compress.EncryptedExtension
		done := collector.Track("encrypt")
		eres, err := crypt.EncryptFile(stagePath, encPath, req.Password)
		if err != nil {
			return nil, errors.Wrap(err, "encrypt stage")
		}
		done(eres.OutputSize)
		os.Remove(stagePath)
		stagePath = encPath
		finalDir = m.tree.EncryptedDir()
		artifactSize = eres.OutputSize
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	finalPath := filepath.Join(finalDir, filepath.Base(stagePath))
	if err := fileutil.AtomicRename(stagePath, finalPath); err != nil {
		return nil, errors.Wrap(err, "publishing artifact")
	}

	res := &Result{
		Name:         name,
		ArtifactPath: finalPath,
		Encrypted:    encrypt,
		FileCount:    cres.FileCount,
		OriginalSize: cres.OriginalSize,
		ArtifactSize: artifactSize,
		Ratio:        cres.Ratio,
		Stages:       collector.Stages(),
		Elapsed:      collector.Total(),
	}
	m.logger.Info("backup complete",
		"artifact", finalPath,
		"size", artifactSize,
		"elapsed", res.Elapsed.Round(time.Millisecond).String(),
	)
	return res, nil
}

// newRunDir creates a fresh scratch directory for one pipeline run.
func (m *Manager) newRunDir(name string) (string, error) {
	if err := paths.EnsureDir(m.workDir, 0); err != nil {
		return "", errors.Wrapf(err, "creating %s", m.workDir)
	}
	dir, err := os.MkdirTemp(m.workDir, name+"-*")
	if err != nil {
		return "", errors.Wrap(err, "creating scratch directory")
	}
	return dir, nil
}

// stem strips the encryption suffix and the archive extension from an
// artifact file name, recovering the backup name.
func stem(artifactPath string) string {
	base := filepath.Base(compress.TrimEncrypted(artifactPath))
	for _, ext := range []string{".tar.gz", ".tar.bz2", ".tgz", ".zip"} {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
