package app

import (
	"context"
	"fmt"

	"github.com/vk/evalgraph/internal/statusfeed"
)

// publisher builds the per-pass status feed: always the log, plus the
// socket.io server when StatusURL is set.
func (a *App) publisher(ctx context.Context) (statusfeed.Publisher, error) {
	pubs := statusfeed.Multi{statusfeed.NewLogPublisher(a.logger)}
	if a.config.StatusURL == "" {
		return pubs, nil
	}
	sock, err := statusfeed.Dial(ctx, statusfeed.SocketOptions{URL: a.config.StatusURL})
	if err != nil {
		return nil, fmt.Errorf("failed to connect status feed: %w", err)
	}
	a.logger.Info("Status feed connected.", "url", a.config.StatusURL)
	return append(pubs, sock), nil
}
