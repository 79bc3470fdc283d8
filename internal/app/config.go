package app

import (
	"errors"
	"fmt"
	"strings"
)

// Devices accepted by Config.Device.
const (
	DeviceCPU    = "cpu"
	DeviceEbiten = "ebiten"
)

// Defaults applied by NewConfig to zero fields.
const (
	DefaultWorkers      = 4
	DefaultMaxPasses    = 1000
	DefaultRendererSize = 1024
	DefaultThumbnailDir = "thumbnails"
)

// Export writes the settled target of Node to Path. The format follows the
// file extension.
type Export struct {
	Node string
	Path string
}

// ParseExport parses the `node=path` form used on the command line.
func ParseExport(s string) (Export, error) {
	name, path, ok := strings.Cut(s, "=")
	if !ok || name == "" || path == "" {
		return Export{}, fmt.Errorf("invalid export %q: expected node=path", s)
	}
	return Export{Node: name, Path: path}, nil
}

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GraphPaths []string // hcl and yaml files or directories

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int

	// MaxPasses bounds the passes (or frames) spent settling the graph.
	MaxPasses int
	// FrameRate paces passes in passes per second. Zero runs headless
	// passes back to back.
	FrameRate int
	Device    string
	// RendererSize is the side of path-traced targets that have no size.
	RendererSize int
	ThumbnailDir string

	Preview     bool
	PreviewNode string
	Exports     []Export
	StatusURL   string
}

// NewConfig validates cfg and fills defaults.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.GraphPaths) == 0 {
		return nil, errors.New("GraphPaths is a required configuration field and cannot be empty")
	}
	if cfg.WorkerCount < 0 || cfg.MaxPasses < 0 || cfg.FrameRate < 0 || cfg.RendererSize < 0 || cfg.HealthcheckPort < 0 {
		return nil, errors.New("workers, passes, frame rate, renderer size and healthcheck port must not be negative")
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = DefaultWorkers
	}
	if cfg.MaxPasses == 0 {
		cfg.MaxPasses = DefaultMaxPasses
	}
	if cfg.RendererSize == 0 {
		cfg.RendererSize = DefaultRendererSize
	}
	if cfg.ThumbnailDir == "" {
		cfg.ThumbnailDir = DefaultThumbnailDir
	}

	switch cfg.Device {
	case "":
		cfg.Device = DeviceCPU
	case DeviceCPU:
	case DeviceEbiten:
		// ebiten images can only be read back while the game loop runs.
		if !cfg.Preview {
			return nil, errors.New("the ebiten device requires the preview window")
		}
		if len(cfg.Exports) > 0 {
			return nil, errors.New("exports are not supported on the ebiten device")
		}
	default:
		return nil, fmt.Errorf("unknown device %q: must be '%s' or '%s'", cfg.Device, DeviceCPU, DeviceEbiten)
	}

	if cfg.PreviewNode != "" && !cfg.Preview {
		return nil, errors.New("a preview node requires the preview window")
	}
	seen := make(map[string]struct{}, len(cfg.Exports))
	for _, e := range cfg.Exports {
		if _, dup := seen[e.Path]; dup {
			return nil, fmt.Errorf("export path %q is used twice", e.Path)
		}
		seen[e.Path] = struct{}{}
	}
	return &cfg, nil
}
