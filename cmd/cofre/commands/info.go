package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmontero/cofre/internal/compress"
	"github.com/rmontero/cofre/internal/errors"
	"github.com/rmontero/cofre/internal/metrics"
	"github.com/rmontero/cofre/internal/paths"
)

var infoPassword bool

func init() {
	infoCmd.Flags().BoolVar(&infoPassword, "unlock", false,
		"prompt for the password to inspect inside an encrypted artifact")
	rootCmd.AddCommand(infoCmd)
}

var infoCmd = &cobra.Command{
	Use:   "info <artifact>",
	Short: "Show metadata about a backup artifact",
	Long: `Print what is known about an artifact: name, size, encryption state,
and, when readable, the compression format and entry count. For an
encrypted artifact only the outer metadata is shown unless --unlock is
given.`,
	Example: `  cofre info backup_20260823_020000.zip
  cofre info secret.zip.encrypted --unlock`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func runInfo(_ *cobra.Command, args []string) error {
	artifact := paths.ExpandHome(args[0])

	password := ""
	if infoPassword && compress.IsEncrypted(artifact) {
		var err error
		password, err = readPassword("Password: ", false)
		if err != nil {
			return err
		}
	}

	info, err := newManager().Inspect(artifact, password)
	if err != nil {
		return errors.NewUserError(err, "")
	}

	fmt.Printf("%sName:%s      %s\n", colorBold, colorReset, info.Name)
	fmt.Printf("%sPath:%s      %s\n", colorBold, colorReset, info.Path)
	fmt.Printf("%sSize:%s      %s\n", colorBold, colorReset, metrics.FormatBytes(info.Size))
	fmt.Printf("%sModified:%s  %s\n", colorBold, colorReset, info.ModTime.Format("2006-01-02 15:04:05"))
	if info.Encrypted {
		fmt.Printf("%sEncrypted:%s %syes%s\n", colorBold, colorReset, colorYellow, colorReset)
	} else {
		fmt.Printf("%sEncrypted:%s no\n", colorBold, colorReset)
	}
	if info.Algorithm != "" {
		fmt.Printf("%sFormat:%s    %s\n", colorBold, colorReset, info.Algorithm)
		fmt.Printf("%sEntries:%s   %d\n", colorBold, colorReset, info.FileCount)
	} else if info.Encrypted {
		fmt.Printf("%s(contents locked; use --unlock to inspect)%s\n", colorGray, colorReset)
	}
	return nil
}
