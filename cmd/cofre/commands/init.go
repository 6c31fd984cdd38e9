package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rmontero/cofre/internal/config"
	"github.com/rmontero/cofre/internal/errors"
	"github.com/rmontero/cofre/internal/paths"
	"github.com/rmontero/cofre/pkg/fileutil"
)

var (
	initYes   bool
	initForce bool
)

func init() {
	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "Non-interactive mode, accept all defaults")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing configuration")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize cofre configuration",
	Long: `Write a starter config file with the default output layout,
compression algorithm, and fragment size. Edit it afterwards to add
split destinations and upload settings.`,
	Example: `  # Initialize with interactive confirmation
  cofre init

  # Initialize non-interactively
  cofre init --yes

  # Overwrite an existing configuration
  cofre init --force`,
	RunE: runInit,
}

func runInit(_ *cobra.Command, _ []string) error {
	configFile := filepath.Join(paths.ConfigDir(), "config.yaml")

	if _, err := os.Stat(configFile); err == nil && !initForce {
		fmt.Printf("Configuration already exists at %s\n", configFile)
		fmt.Println("Use --force to overwrite")
		return nil
	}

	if !initYes {
		fmt.Println("This will create:")
		fmt.Printf("  %s\n", configFile)
		fmt.Println()
		if !confirm("Proceed?") {
			fmt.Println("Aborted")
			return nil
		}
	}

	if err := paths.EnsureDir(paths.ConfigDir(), 0); err != nil {
		return errors.NewSystemError(err, "")
	}
	if err := fileutil.AtomicWriteYAML(configFile, config.Default()); err != nil {
		return errors.NewSystemError(errors.Wrap(err, "writing config"), "")
	}

	fmt.Printf("%s✓%s Created %s\n", colorGreen, colorReset, configFile)
	fmt.Println("Edit it to set split destinations and upload settings.")
	return nil
}
