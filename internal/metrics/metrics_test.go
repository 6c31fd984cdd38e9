package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Track(t *testing.T) {
	c := NewCollector()

	done := c.Track("compress")
	time.Sleep(5 * time.Millisecond)
	done(2048)

	stages := c.Stages()
	require.Len(t, stages, 1)
	assert.Equal(t, "compress", stages[0].Name)
	assert.Equal(t, int64(2048), stages[0].Bytes)
	assert.GreaterOrEqual(t, stages[0].Elapsed, 5*time.Millisecond)
}

func TestCollector_Order(t *testing.T) {
	c := NewCollector()
	c.Track("compress")(1)
	c.Track("encrypt")(2)
	c.Add(Stage{Name: "split", Elapsed: time.Second, Bytes: 3})

	var names []string
	for _, s := range c.Stages() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"compress", "encrypt", "split"}, names)
}

func TestCollector_Summary(t *testing.T) {
	c := NewCollector()
	c.Add(Stage{Name: "compress", Elapsed: 1500 * time.Millisecond, Bytes: 4096})
	c.Add(Stage{Name: "verify", Elapsed: 80 * time.Millisecond})

	out := c.Summary()
	assert.Contains(t, out, "compress")
	assert.Contains(t, out, "1.50s")
	assert.Contains(t, out, "4.0 KiB")
	assert.Contains(t, out, "verify")
	assert.Contains(t, out, "80ms")
	assert.Contains(t, out, "total")

	// Stage with no byte count gets no throughput column.
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "verify") {
			assert.NotContains(t, line, "/s")
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{10 << 20, "10.0 MiB"},
		{3 << 30, "3.0 GiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.n), "n=%d", tt.n)
	}
}
