package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/evalgraph/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("evalgraph", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
evalgraph - Evaluates a node graph of image targets until it settles.

Usage:
  evalgraph [options] [GRAPH_PATH...]

Arguments:
  GRAPH_PATH
    Path to a .hcl or .yaml graph file, or a directory containing them.

Options:
`)
		flagSet.PrintDefaults()
	}

	var exports []app.Export
	graphFlag := flagSet.String("graph", "", "Path to the graph file or directory.")
	gFlag := flagSet.String("g", "", "Path to the graph file or directory (shorthand).")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", app.LogFormatJSON, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", app.DefaultWorkers, "Number of background workers for file and render jobs.")
	passesFlag := flagSet.Int("passes", app.DefaultMaxPasses, "Maximum number of passes spent settling the graph.")
	frameRateFlag := flagSet.Int("frame-rate", 0, "Passes per second. 0 runs headless passes back to back.")
	previewFlag := flagSet.Bool("preview", false, "Open a window previewing a node while passes run.")
	previewNodeFlag := flagSet.String("preview-node", "", "Name of the node to preview. Defaults to the last node in evaluation order.")
	statusURLFlag := flagSet.String("status-url", "", "socket.io server that receives pass status events.")
	deviceFlag := flagSet.String("device", app.DeviceCPU, "Render device. Options: 'cpu' or 'ebiten'.")
	sizeFlag := flagSet.Int("default-size", app.DefaultRendererSize, "Side of path-traced targets that have no size.")
	thumbnailsFlag := flagSet.String("thumbnails", app.DefaultThumbnailDir, "Directory that receives node thumbnails.")
	flagSet.Func("export", "Write a settled node to a file, as node=path. May be repeated.", func(s string) error {
		e, err := app.ParseExport(s)
		if err != nil {
			return err
		}
		exports = append(exports, e)
		return nil
	})

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, usageError("%s", err.Error())
	}
	slog.Debug("Arguments parsed successfully.")

	var paths []string
	if *graphFlag != "" {
		paths = append(paths, *graphFlag)
	}
	if *gFlag != "" {
		paths = append(paths, *gFlag)
	}
	paths = append(paths, flagSet.Args()...)
	slog.Debug("Graph paths determined.", "paths", paths)

	if len(paths) == 0 {
		slog.Debug("No graph path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != app.LogFormatText && logFormat != app.LogFormatJSON {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}
	if _, err := app.ParseLevel(*logLevelFlag); err != nil {
		return nil, false, usageError("%s", err.Error())
	}
	if *workersFlag <= 0 || *passesFlag <= 0 || *sizeFlag <= 0 {
		return nil, false, usageError("workers, passes and default-size must be positive")
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		GraphPaths:      paths,
		LogFormat:       logFormat,
		LogLevel:        strings.ToLower(*logLevelFlag),
		HealthcheckPort: *healthPortFlag,
		WorkerCount:     *workersFlag,
		MaxPasses:       *passesFlag,
		FrameRate:       *frameRateFlag,
		Device:          strings.ToLower(*deviceFlag),
		RendererSize:    *sizeFlag,
		ThumbnailDir:    *thumbnailsFlag,
		Preview:         *previewFlag,
		PreviewNode:     *previewNodeFlag,
		Exports:         exports,
		StatusURL:       *statusURLFlag,
	})
	if err != nil {
		return nil, false, usageError("%s", err.Error())
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
