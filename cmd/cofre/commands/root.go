// Package commands implements the CLI commands for cofre.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rmontero/cofre/cmd"
	"github.com/rmontero/cofre/internal/config"
	"github.com/rmontero/cofre/internal/errors"
	"github.com/rmontero/cofre/internal/logging"
)

// verbosity holds the count of -v flags.
var verbosity int

// quiet holds the value of the -q/--quiet flag.
var quiet bool

// logFormat holds the value of the --log-format flag.
var logFormat string

// logFile holds the path to the log file.
var logFile string

// configPath holds the value of the --config flag.
var configPath string

// cfg is the loaded configuration, available to all commands.
var cfg *config.Config

// configLoadErr holds any error that occurred during config loading.
var configLoadErr error

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"increase verbosity level (e.g., -v, -vv)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"log format: text, json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"write logs to file in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default: ~/.config/cofre/config.yaml)")

	rootCmd.Version = cmd.BuildInfo()
	rootCmd.SetVersionTemplate("cofre version {{.Version}}\n")

	// Silence errors and usage so we can control error output
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

func initConfig() {
	config.Init()
	cfg, configLoadErr = config.Load(configPath)
	if configLoadErr == nil {
		configLoadErr = cfg.Validate()
	}
}

var rootCmd = &cobra.Command{
	Use:   "cofre",
	Short: "Compress, encrypt, and scatter folder backups",
	Long: `cofre backs up folders into compressed archives (zip, gzip, bzip2),
optionally encrypts them with a password, and splits the result into
fixed-size fragments spread across multiple destinations such as
external drives or network mounts.

The reverse path collects the fragments back from the destinations,
reassembles the artifact, decrypts it, and restores the original
folder contents byte for byte.`,
	Example: `  # Create an encrypted backup of two folders
  cofre create ~/docs ~/photos --algorithm gzip --encrypt

  # Split an artifact across three drives in 64 MiB fragments
  cofre fragment backup.tar.gz.encrypted /mnt/a /mnt/b /mnt/c

  # Put it all back together
  cofre reassemble /mnt/a /mnt/b /mnt/c
  cofre restore backup.tar.gz.encrypted

  See Also: cofre init, cofre verify, cofre info`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(cmd); err != nil {
			return err
		}
		return checkConfig(cmd)
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// setupLogging configures the default logger based on verbosity flags.
func setupLogging(cmd *cobra.Command) error {
	if quiet && verbosity > 0 {
		return errors.NewUserError(errors.New("cannot use --quiet and --verbose together"), "")
	}

	var level slog.Level
	if quiet {
		level = slog.LevelError
	} else {
		v := verbosity
		if v == 0 {
			if val, ok := os.LookupEnv("COFRE_DEBUG"); ok && (val == "1" || val == "true") {
				v = 1
			}
		}
		level = logging.LevelFromVerbosity(v)
	}

	opts := &slog.HandlerOptions{Level: level}

	var primaryHandler slog.Handler
	switch logging.Format(logFormat) {
	case logging.FormatJSON:
		primaryHandler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	default:
		primaryHandler = logging.NewHandler(cmd.ErrOrStderr(), opts)
	}

	handlers := []slog.Handler{primaryHandler}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return errors.NewUserError(err, "failed to open log file")
		}
		// File output uses JSON format
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	}

	var handler slog.Handler
	if len(handlers) > 1 {
		handler = logging.NewMultiHandler(handlers...)
	} else {
		handler = handlers[0]
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.NewContext(ctx, logger))

	return nil
}

// checkConfig surfaces config load errors before any command runs.
func checkConfig(cmd *cobra.Command) error {
	if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "init" {
		return nil
	}
	if configLoadErr != nil {
		return errors.NewConfigError(configLoadErr)
	}
	return nil
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *errors.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "%sError:%s %v\n", colorBold, colorReset, exitErr)
			if exitErr.Suggestion != "" {
				fmt.Fprintf(os.Stderr, "%s%s%s\n", colorGray, exitErr.Suggestion, colorReset)
			}
			return exitErr.Code
		}
		fmt.Fprintf(os.Stderr, "%sError:%s %v\n", colorBold, colorReset, err)
		return errors.ExitSystem
	}
	return errors.ExitSuccess
}
