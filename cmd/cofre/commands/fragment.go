package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rmontero/cofre/internal/errors"
	"github.com/rmontero/cofre/internal/fragment"
	"github.com/rmontero/cofre/internal/metrics"
	"github.com/rmontero/cofre/internal/paths"
	"github.com/rmontero/cofre/pkg/fileutil"
)

var (
	fragmentSizeMB   int
	fragmentManifest string
)

func init() {
	fragmentCmd.Flags().IntVarP(&fragmentSizeMB, "size", "s", 0,
		"fragment size in MiB (default from config)")
	fragmentCmd.Flags().StringVar(&fragmentManifest, "manifest", "",
		"also write a JSON manifest of the split to this path")
	rootCmd.AddCommand(fragmentCmd)
}

var fragmentCmd = &cobra.Command{
	Use:   "fragment <artifact> [destination]...",
	Short: "Split an artifact across destinations",
	Long: `Cut a backup artifact into fixed-size fragments and distribute them
round-robin across the destination directories. Destinations default to
the configured list when none are given on the command line.

Fragments already present in the destinations are removed first, so
splitting the same artifact twice never mixes runs.`,
	Example: `  # 64 MiB fragments across three mounted drives
  cofre fragment taxes.tar.gz.encrypted /mnt/a /mnt/b /mnt/c

  # Use configured destinations, custom fragment size
  cofre fragment taxes.tar.gz.encrypted --size 128`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFragment,
}

func runFragment(_ *cobra.Command, args []string) error {
	artifact := paths.ExpandHome(args[0])

	dests := resolveDestinations(args[1:])
	if len(dests) == 0 {
		return errors.NewUserError(errors.New("no destinations given"),
			"Pass destinations as arguments or set them in the config file")
	}

	sizeMB := fragmentSizeMB
	if sizeMB == 0 {
		sizeMB = cfg.FragmentSizeMB
	}
	if sizeMB <= 0 {
		return errors.NewUserError(errors.Newf("invalid fragment size %d MiB", sizeMB), "")
	}

	man, err := fragment.Split(artifact, int64(sizeMB)<<20, dests)
	if err != nil {
		if errors.Is(err, fragment.ErrDestinationUnwritable) {
			return errors.NewUserError(err, "Check that every destination exists and is writable")
		}
		return errors.NewSystemError(err, "")
	}

	if fragmentManifest != "" {
		if err := fileutil.AtomicWriteJSON(paths.ExpandHome(fragmentManifest), man); err != nil {
			return errors.NewSystemError(err, "")
		}
	}

	if !quiet {
		fmt.Printf("%s✓%s Split %s (%s) into %d fragments across %d destination(s)\n",
			colorGreen, colorReset,
			man.ArtifactName,
			metrics.FormatBytes(man.ArtifactSize),
			man.TotalFragments,
			len(dests),
		)
		for _, ref := range man.Fragments {
			fmt.Printf("  %s%s%s -> %s\n", colorCyan, ref.Name, colorReset, ref.Destination)
		}
	}
	return nil
}

// resolveDestinations prefers the command line, falling back to config.
func resolveDestinations(args []string) []string {
	raw := args
	if len(raw) == 0 {
		raw = cfg.Destinations
	}
	dests := make([]string, len(raw))
	for i, d := range raw {
		dests[i] = paths.ExpandHome(d)
	}
	return dests
}
