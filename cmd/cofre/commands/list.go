package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmontero/cofre/internal/compress"
	"github.com/rmontero/cofre/internal/errors"
	"github.com/rmontero/cofre/internal/metrics"
	"github.com/rmontero/cofre/internal/paths"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list <artifact>",
	Short: "List the contents of a backup artifact",
	Example: `  cofre list backup_20260823_020000.tar.gz
  cofre list secret.zip.encrypted`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func runList(_ *cobra.Command, args []string) error {
	artifact := paths.ExpandHome(args[0])

	password := ""
	if compress.IsEncrypted(artifact) {
		var err error
		password, err = readPassword("Password: ", false)
		if err != nil {
			return err
		}
	}

	entries, err := newManager().ListContents(artifact, password)
	if err != nil {
		return errors.NewUserError(err, "")
	}

	var total int64
	for _, e := range entries {
		fmt.Printf("%10s  %s\n", metrics.FormatBytes(e.Size), e.Name)
		total += e.Size
	}
	if !quiet {
		fmt.Printf("%s%d entries, %s%s\n", colorGray, len(entries), metrics.FormatBytes(total), colorReset)
	}
	return nil
}
