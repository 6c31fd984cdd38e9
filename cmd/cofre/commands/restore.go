package commands

import (
	"fmt"

	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/rmontero/cofre/internal/backup"
	"github.com/rmontero/cofre/internal/compress"
	"github.com/rmontero/cofre/internal/crypt"
	"github.com/rmontero/cofre/internal/errors"
	"github.com/rmontero/cofre/internal/paths"
)

var restoreOutputDir string

func init() {
	restoreCmd.Flags().StringVarP(&restoreOutputDir, "output", "o", "",
		"restore into this directory (default: <output base>/restored)")
	rootCmd.AddCommand(restoreCmd)
}

var restoreCmd = &cobra.Command{
	Use:   "restore [artifact]",
	Short: "Restore a backup's contents",
	Long: `Unpack a backup artifact into a fresh timestamped directory. An
encrypted artifact prompts for its password first. With no artifact
argument, known backups are offered in an interactive picker.`,
	Example: `  # Restore a specific artifact
  cofre restore ~/.local/share/cofre/encrypted/taxes-2026.tar.gz.encrypted

  # Pick interactively from the output tree
  cofre restore`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func runRestore(cmd *cobra.Command, args []string) error {
	m := newManager()

	var artifact string
	if len(args) == 1 {
		artifact = paths.ExpandHome(args[0])
	} else {
		picked, err := pickArtifact(m)
		if err != nil {
			return err
		}
		artifact = picked
	}

	password := ""
	if compress.IsEncrypted(artifact) {
		var err error
		password, err = readPassword("Password: ", false)
		if err != nil {
			return err
		}
	}

	res, err := m.Restore(cmd.Context(), backup.RestoreRequest{
		ArtifactPath: artifact,
		Password:     password,
		OutputDir:    paths.ExpandHome(restoreOutputDir),
	})
	if err != nil {
		if errors.Is(err, crypt.ErrInvalidPassword) {
			return errors.NewUserError(err, "Check the password and try again")
		}
		if errors.Is(err, crypt.ErrCorruptedArtifact) {
			return errors.NewUserError(err, "The artifact is damaged; try reassembling it again")
		}
		return errors.NewSystemError(err, "")
	}

	if !quiet {
		fmt.Printf("%s✓%s Restored %d files to %s%s%s\n",
			colorGreen, colorReset, res.FileCount, colorBold, res.RestoredDir, colorReset)
		printStages(res.Stages)
	}
	return nil
}

// pickArtifact offers the output tree's artifacts in a fuzzy picker,
// newest first.
func pickArtifact(m *backup.Manager) (string, error) {
	artifacts, err := m.Artifacts()
	if err != nil {
		return "", errors.NewSystemError(err, "")
	}
	if len(artifacts) == 0 {
		return "", errors.NewUserError(errors.New("no backups found"), "Create one with: cofre create <folder>")
	}

	idx, err := fuzzyfinder.Find(artifacts, func(i int) string {
		return truncate(artifacts[i], 80)
	})
	if err != nil {
		return "", errors.NewUserError(errors.Wrap(err, "selection cancelled"), "")
	}
	return artifacts[idx], nil
}
