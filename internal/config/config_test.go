package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	Init()

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "zip", cfg.Algorithm)
	assert.Equal(t, 64, cfg.FragmentSizeMB)
	assert.NotEmpty(t, cfg.OutputBase)
	assert.NotEmpty(t, cfg.WorkDir)
}

func TestLoad_FromFile(t *testing.T) {
	viper.Reset()
	Init()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `version: 1
algorithm: bzip2
fragment_size_mb: 16
destinations:
  - /mnt/usb1
  - /mnt/usb2
upload:
  bucket: my-backups
  region: eu-west-1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bzip2", cfg.Algorithm)
	assert.Equal(t, 16, cfg.FragmentSizeMB)
	assert.Equal(t, []string{"/mnt/usb1", "/mnt/usb2"}, cfg.Destinations)
	assert.Equal(t, "my-backups", cfg.Upload.Bucket)
	assert.Equal(t, "eu-west-1", cfg.Upload.Region)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	viper.Reset()
	Init()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default is valid", func(c *Config) {}, false},
		{"bad algorithm", func(c *Config) { c.Algorithm = "rar" }, true},
		{"zero fragment size", func(c *Config) { c.FragmentSizeMB = 0 }, true},
		{"negative fragment size", func(c *Config) { c.FragmentSizeMB = -4 }, true},
		{"empty output base", func(c *Config) { c.OutputBase = "" }, true},
		{"bad version", func(c *Config) { c.Version = 9 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
