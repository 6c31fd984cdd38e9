package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmontero/cofre/internal/backup"
	"github.com/rmontero/cofre/internal/compress"
	"github.com/rmontero/cofre/internal/errors"
	"github.com/rmontero/cofre/internal/metrics"
	"github.com/rmontero/cofre/internal/paths"
)

var (
	createAlgorithm string
	createName      string
	createEncrypt   bool
	createWorkers   int
)

func init() {
	createCmd.Flags().StringVarP(&createAlgorithm, "algorithm", "a", "",
		"compression algorithm: zip, gzip, bzip2 (default from config)")
	createCmd.Flags().StringVarP(&createName, "name", "n", "",
		"backup name (default: backup_<timestamp>)")
	createCmd.Flags().BoolVarP(&createEncrypt, "encrypt", "e", false,
		"encrypt the artifact with a password")
	createCmd.Flags().IntVar(&createWorkers, "workers", 0,
		"compression worker count (default: number of CPUs)")
	rootCmd.AddCommand(createCmd)
}

var createCmd = &cobra.Command{
	Use:   "create <folder>...",
	Short: "Create a backup of one or more folders",
	Long: `Compress one or more folders into a single archive and place it in
the output tree. With --encrypt the archive is additionally sealed with
AES-256 under a password-derived key; the plaintext archive never
reaches the output tree in that case.`,
	Example: `  # Plain zip backup with a generated name
  cofre create ~/docs

  # Named, encrypted gzip backup of two folders
  cofre create ~/docs ~/photos -a gzip -n taxes-2026 --encrypt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCreate,
}

func runCreate(cmd *cobra.Command, args []string) error {
	algoName := createAlgorithm
	if algoName == "" {
		algoName = cfg.Algorithm
	}
	algo, err := compress.ParseAlgorithm(algoName)
	if err != nil {
		return errors.NewUserError(err, "Valid algorithms: zip, gzip, bzip2")
	}

	sources := make([]string, len(args))
	for i, a := range args {
		sources[i] = paths.ExpandHome(a)
	}

	password := ""
	if createEncrypt {
		password, err = readPassword("Password: ", true)
		if err != nil {
			return err
		}
	}

	opts := []backup.Option{
		backup.WithOutputBase(paths.ExpandHome(cfg.OutputBase)),
		backup.WithWorkDir(paths.ExpandHome(cfg.WorkDir)),
	}
	if createWorkers > 0 {
		opts = append(opts, backup.WithCompressWorkers(createWorkers))
	}
	m := backup.NewManager(opts...)

	res, err := m.Create(cmd.Context(), backup.CreateRequest{
		Sources:   sources,
		Algorithm: algo,
		Name:      createName,
		Password:  password,
	})
	if err != nil {
		if errors.Is(err, compress.ErrSourceNotFound) {
			return errors.NewUserError(err, "Check that every source folder exists")
		}
		return errors.NewSystemError(err, "")
	}

	if !quiet {
		fmt.Printf("%s✓%s Backup created: %s%s%s\n", colorGreen, colorReset, colorBold, res.ArtifactPath, colorReset)
		fmt.Printf("  %d files, %s -> %s (%.1f%% saved)\n",
			res.FileCount,
			metrics.FormatBytes(res.OriginalSize),
			metrics.FormatBytes(res.ArtifactSize),
			res.Ratio*100,
		)
		if res.Encrypted {
			fmt.Printf("  %sencrypted%s\n", colorYellow, colorReset)
		}
		printStages(res.Stages)
	}
	return nil
}
