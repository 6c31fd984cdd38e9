package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rmontero/cofre/internal/config"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"a very long artifact path", 10, "a very ..."},
		{"abc", 2, "ab"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncate(tt.in, tt.maxLen), tt.in)
	}
}

func TestResolveDestinations(t *testing.T) {
	orig := cfg
	defer func() { cfg = orig }()
	cfg = &config.Config{Destinations: []string{"/mnt/a", "/mnt/b"}}

	// Command-line arguments win over config.
	assert.Equal(t, []string{"/tmp/x"}, resolveDestinations([]string{"/tmp/x"}))

	// Empty arguments fall back to the configured list.
	assert.Equal(t, []string{"/mnt/a", "/mnt/b"}, resolveDestinations(nil))
}
