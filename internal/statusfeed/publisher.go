package statusfeed

import (
	"context"
	"log/slog"
)

// Publisher delivers pass events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// LogPublisher writes events to a logger. Settled passes and passes with
// errors are logged at info, the rest at debug.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a publisher that logs to logger.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish implements Publisher.
func (p *LogPublisher) Publish(ctx context.Context, ev Event) error {
	level := slog.LevelDebug
	if ev.Settled || ev.Errors > 0 {
		level = slog.LevelInfo
	}
	p.logger.Log(ctx, level, "Pass finished.",
		"pass", ev.Pass,
		"settled", ev.Settled,
		"kernels", ev.Kernels,
		"processing", ev.Processing,
		"errors", ev.Errors,
	)
	for _, n := range ev.Nodes {
		p.logger.Log(ctx, slog.LevelDebug, "Node status.",
			"node", n.Index, "name", n.Name, "kind", n.Kind,
			"dirty", n.Dirty, "processing", n.Processing, "shape", n.Shape)
	}
	return nil
}

// Close implements Publisher.
func (p *LogPublisher) Close() error { return nil }

// Multi fans events out to several publishers, returning the first error.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, ev Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close implements Publisher.
func (m Multi) Close() error {
	var first error
	for _, p := range m {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
