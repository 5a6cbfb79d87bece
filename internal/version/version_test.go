package version

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"", time.Time{}},
		{"unknown", time.Time{}},
		{"2026-01-02T03:04:05Z", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"2026-01-02 03:04:05", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"yesterday", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.True(t, tt.want.Equal(parseTime(tt.in)))
		})
	}
}

func TestInfoFormatting(t *testing.T) {
	info := &Info{
		Version:   "v1.2.0",
		GitCommit: "0123456789abcdef",
		GoVersion: "go1.24.4",
		Platform:  "linux/amd64",
		Dirty:     true,
	}

	assert.True(t, info.IsRelease())
	assert.Equal(t, "v1.2.0 (0123456)", info.Short())
	assert.Contains(t, info.String(), "Commit: 0123456789abcdef (dirty)")
	assert.NotContains(t, info.String(), "Built:")

	dev := &Info{Version: "dev-0123456", GitCommit: "0123456789abcdef"}
	assert.False(t, dev.IsRelease())
	assert.Equal(t, "dev-0123456", dev.Short())
}

func TestGet(t *testing.T) {
	info := Get()
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}
