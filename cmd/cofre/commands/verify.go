package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmontero/cofre/internal/compress"
	"github.com/rmontero/cofre/internal/crypt"
	"github.com/rmontero/cofre/internal/errors"
	"github.com/rmontero/cofre/internal/paths"
)

func init() {
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify <artifact>",
	Short: "Check the integrity of a backup artifact",
	Long: `Fully read a backup artifact and validate its internal checksums.
An encrypted artifact is decrypted into scratch space first, so this
also proves the password is correct. Nothing is written to the output
tree.`,
	Example: `  cofre verify backup_20260823_020000.zip`,
	Args:    cobra.ExactArgs(1),
	RunE:    runVerify,
}

func runVerify(_ *cobra.Command, args []string) error {
	artifact := paths.ExpandHome(args[0])

	password := ""
	if compress.IsEncrypted(artifact) {
		var err error
		password, err = readPassword("Password: ", false)
		if err != nil {
			return err
		}
	}

	count, err := newManager().Verify(artifact, password)
	if err != nil {
		if errors.Is(err, crypt.ErrInvalidPassword) {
			return errors.NewUserError(err, "Check the password and try again")
		}
		return errors.NewUserError(errors.Wrap(err, "verification failed"),
			"The artifact may be corrupted; try reassembling from fragments again")
	}

	if !quiet {
		fmt.Printf("%s✓%s %s OK (%d entries verified)\n", colorGreen, colorReset, artifact, count)
	}
	return nil
}
