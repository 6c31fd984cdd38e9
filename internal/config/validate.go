package config

import (
	"github.com/cockroachdb/errors"
)

// validAlgorithms are the compression algorithms cofre can produce.
var validAlgorithms = map[string]bool{
	"zip":   true,
	"gzip":  true,
	"bzip2": true,
}

// Validate checks the configuration for values that would fail later in
// the pipeline. It returns the first problem found.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return errors.Newf("unsupported config version %d", c.Version)
	}
	if !validAlgorithms[c.Algorithm] {
		return errors.Newf("unknown algorithm %q (valid: zip, gzip, bzip2)", c.Algorithm)
	}
	if c.FragmentSizeMB <= 0 {
		return errors.Newf("fragment_size_mb must be positive, got %d", c.FragmentSizeMB)
	}
	if c.OutputBase == "" {
		return errors.New("output_base must not be empty")
	}
	if c.WorkDir == "" {
		return errors.New("work_dir must not be empty")
	}
	return nil
}
