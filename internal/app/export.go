package app

import (
	"bytes"
	"context"
	"fmt"

	"github.com/vk/evalgraph/internal/codec"
	"github.com/vk/evalgraph/internal/evaluator"
	"github.com/vk/evalgraph/internal/graph"
	"github.com/vk/evalgraph/internal/upload"
)

// exportQuality is the jpg quality of exported targets.
const exportQuality = 90

// export reads back every configured node at its native size and writes
// it to disk, or PUTs it when the destination is a pre-signed URL.
func (a *App) export(ctx context.Context, ev *evaluator.Evaluator) error {
	files := codec.NewFiles()
	uploader := upload.New(nil)

	for _, e := range a.config.Exports {
		n, ok := ev.Graph().Lookup(e.Node)
		if !ok {
			return fmt.Errorf("export '%s': %w", e.Node, graph.ErrUnknownNode)
		}

		formatPath := e.Path
		remote := upload.IsRemote(e.Path)
		if remote {
			p, err := upload.ObjectPath(e.Path)
			if err != nil {
				return fmt.Errorf("export '%s': %w", e.Node, err)
			}
			formatPath = p
		}
		format, err := codec.FormatFromPath(formatPath)
		if err != nil {
			return fmt.Errorf("export '%s': %w", e.Node, err)
		}

		img, err := ev.Evaluate(ctx, n.Index, 0, 0)
		if err != nil {
			return fmt.Errorf("export '%s': %w", e.Node, err)
		}

		if remote {
			var buf bytes.Buffer
			if err := codec.Encode(&buf, img, format, exportQuality); err != nil {
				return fmt.Errorf("export '%s': %w", e.Node, err)
			}
			if err := uploader.Put(ctx, e.Path, buf.Bytes()); err != nil {
				return fmt.Errorf("export '%s': %w", e.Node, err)
			}
		} else if err := files.WriteImage(ctx, e.Path, img, format, exportQuality); err != nil {
			return fmt.Errorf("export '%s': %w", e.Node, err)
		}
		a.logger.Info("Target exported.", "node", n.String(), "destination", formatPath, "format", format.String())
	}
	return nil
}
