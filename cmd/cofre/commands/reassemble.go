package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rmontero/cofre/internal/errors"
	"github.com/rmontero/cofre/internal/fragment"
	"github.com/rmontero/cofre/internal/paths"
)

var reassembleOutputDir string

func init() {
	reassembleCmd.Flags().StringVarP(&reassembleOutputDir, "output", "o", ".",
		"directory to write the reconstructed artifact into")
	rootCmd.AddCommand(reassembleCmd)
}

var reassembleCmd = &cobra.Command{
	Use:   "reassemble [destination]...",
	Short: "Reconstruct an artifact from its fragments",
	Long: `Collect fragments from the destination directories and concatenate
them back into the original artifact. The destinations may be given in
any order; sequencing comes from the fragment file names. A missing
fragment aborts the reconstruction rather than producing a silently
truncated artifact.`,
	Example: `  cofre reassemble /mnt/a /mnt/b /mnt/c -o ~/backups`,
	RunE:    runReassemble,
}

func runReassemble(_ *cobra.Command, args []string) error {
	dests := resolveDestinations(args)
	if len(dests) == 0 {
		return errors.NewUserError(errors.New("no destinations given"),
			"Pass destinations as arguments or set them in the config file")
	}

	outPath, err := fragment.Reassemble(dests, paths.ExpandHome(reassembleOutputDir))
	switch {
	case err == nil:
	case errors.Is(err, fragment.ErrNoFragmentsFound):
		return errors.NewUserError(err, "Check the destination paths")
	case errors.Is(err, fragment.ErrMissingFragment):
		return errors.NewUserError(err, "A destination may be missing or not mounted")
	default:
		return errors.NewSystemError(err, "")
	}

	if !quiet {
		info, statErr := os.Stat(outPath)
		size := int64(0)
		if statErr == nil {
			size = info.Size()
		}
		fmt.Printf("%s✓%s Reassembled %s%s%s (%d bytes)\n",
			colorGreen, colorReset, colorBold, outPath, colorReset, size)
	}
	return nil
}
