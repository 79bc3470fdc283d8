package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/evalgraph/internal/app"
)

func TestParse(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, exit, err := Parse([]string{
		"--log-level", "DEBUG", "--log-format", "text",
		"--workers", "2", "--passes", "50", "--frame-rate", "30",
		"--export", "crop=out/crop.png", "--export", "sky=out/sky.jpg",
		"-g", "extra", "graph.hcl", "more.yaml",
	}, out)
	require.NoError(t, err)
	require.False(t, exit)

	assert.Equal(t, []string{"extra", "graph.hcl", "more.yaml"}, cfg.GraphPaths)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 2, cfg.WorkerCount)
	assert.Equal(t, 50, cfg.MaxPasses)
	assert.Equal(t, 30, cfg.FrameRate)
	assert.Equal(t, app.DeviceCPU, cfg.Device)
	assert.Equal(t, []app.Export{
		{Node: "crop", Path: "out/crop.png"},
		{Node: "sky", Path: "out/sky.jpg"},
	}, cfg.Exports)
}

func TestParse_HelpAndNoPath(t *testing.T) {
	for _, args := range [][]string{{"-h"}, {}} {
		out := &bytes.Buffer{}
		cfg, exit, err := Parse(args, out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	}
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"--nope"}, "flag provided but not defined"},
		{"bad export", []string{"--export", "crop", "g.hcl"}, "expected node=path"},
		{"bad log format", []string{"--log-format", "xml", "g.hcl"}, "invalid log-format"},
		{"bad log level", []string{"--log-level", "loud", "g.hcl"}, "invalid log-level"},
		{"zero workers", []string{"--workers", "0", "g.hcl"}, "must be positive"},
		{"ebiten headless", []string{"--device", "ebiten", "g.hcl"}, "requires the preview window"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Parse(tc.args, &bytes.Buffer{})
			require.Error(t, err)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.want)
		})
	}
}
