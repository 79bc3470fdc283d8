package app

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := NewConfig(Config{GraphPaths: []string{"g.hcl"}})
		require.NoError(t, err)
		assert.Equal(t, DeviceCPU, cfg.Device)
		assert.Equal(t, DefaultWorkers, cfg.WorkerCount)
		assert.Equal(t, DefaultMaxPasses, cfg.MaxPasses)
		assert.Equal(t, DefaultRendererSize, cfg.RendererSize)
		assert.Equal(t, DefaultThumbnailDir, cfg.ThumbnailDir)
	})

	testCases := []struct {
		name string
		cfg  Config
		want string
	}{
		{"no graph", Config{}, "GraphPaths is a required"},
		{"negative workers", Config{GraphPaths: []string{"g"}, WorkerCount: -1}, "must not be negative"},
		{"unknown device", Config{GraphPaths: []string{"g"}, Device: "vulkan"}, "unknown device"},
		{"ebiten headless", Config{GraphPaths: []string{"g"}, Device: DeviceEbiten}, "requires the preview window"},
		{"ebiten exports", Config{GraphPaths: []string{"g"}, Device: DeviceEbiten, Preview: true, Exports: []Export{{"a", "a.png"}}}, "not supported"},
		{"preview node without preview", Config{GraphPaths: []string{"g"}, PreviewNode: "a"}, "requires the preview window"},
		{"duplicate export", Config{GraphPaths: []string{"g"}, Exports: []Export{{"a", "x.png"}, {"b", "x.png"}}}, "used twice"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig(tc.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseExport(t *testing.T) {
	e, err := ParseExport("crop=out/crop.png")
	require.NoError(t, err)
	assert.Equal(t, Export{Node: "crop", Path: "out/crop.png"}, e)

	for _, bad := range []string{"crop", "=x.png", "crop="} {
		_, err := ParseExport(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)

	_, err = ParseLevel("loud")
	require.Error(t, err)
}
