// Package config provides configuration management for cofre using Viper.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/rmontero/cofre/internal/paths"
)

// AppName is the application name used for config file naming.
const AppName = "cofre"

// Config represents the top-level configuration structure.
type Config struct {
	Version int `mapstructure:"version" yaml:"version"`

	// OutputBase is the root directory for the organized output tree
	// (compressed/, encrypted/, restored/).
	OutputBase string `mapstructure:"output_base" yaml:"output_base"`

	// WorkDir is the scratch directory for in-flight pipeline stages.
	WorkDir string `mapstructure:"work_dir" yaml:"work_dir"`

	// Algorithm is the default compression algorithm (zip, gzip, bzip2).
	Algorithm string `mapstructure:"algorithm" yaml:"algorithm"`

	// FragmentSizeMB is the default fragment size for splitting, in MiB.
	FragmentSizeMB int `mapstructure:"fragment_size_mb" yaml:"fragment_size_mb"`

	// Destinations are the default split destinations (mount points).
	Destinations []string `mapstructure:"destinations" yaml:"destinations"`

	// Upload configures the optional cloud upload collaborator.
	Upload UploadConfig `mapstructure:"upload" yaml:"upload"`
}

// UploadConfig holds object-store settings for the upload command.
type UploadConfig struct {
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
	Region string `mapstructure:"region" yaml:"region"`
}

// Init initializes Viper with default configuration.
// Call this once at application startup before accessing config values.
func Init() {
	// Config file settings
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Search paths (in order of precedence)
	viper.AddConfigPath(".") // Current directory
	viper.AddConfigPath(filepath.Join(paths.ConfigHome(), AppName))

	// Environment variable support
	viper.SetEnvPrefix("COFRE")
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("version", 1)
	viper.SetDefault("output_base", paths.DefaultOutputBase())
	viper.SetDefault("work_dir", paths.DefaultWorkDir())
	viper.SetDefault("algorithm", "zip")
	viper.SetDefault("fragment_size_mb", 64)
}

// Load reads the configuration file.
// If path is provided, it reads from that specific file.
// If path is empty, it searches in the default locations.
// Returns the loaded configuration or default values if no file is found (when path is empty).
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		// If config file not found...
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// If user specified a path, this is an error
			if path != "" {
				return nil, fmt.Errorf("config file not found at %s: %w", path, err)
			}
			// Otherwise (implicit load), it's fine to use defaults
		} else {
			// Real read error (parsing, permissions, etc)
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Default returns the built-in configuration, used by `cofre init` to
// seed a config file.
func Default() *Config {
	return &Config{
		Version:        1,
		OutputBase:     paths.DefaultOutputBase(),
		WorkDir:        paths.DefaultWorkDir(),
		Algorithm:      "zip",
		FragmentSizeMB: 64,
	}
}
