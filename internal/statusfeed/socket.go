package statusfeed

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/vk/evalgraph/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultEvent is the socket.io event name used for pass events.
const DefaultEvent = "evalgraph:pass"

// ErrNotConnected is returned when publishing on a dropped connection.
var ErrNotConnected = errors.New("status feed is not connected")

// SocketOptions configure a socket.io status feed.
type SocketOptions struct {
	URL                string
	Namespace          string
	Event              string
	InsecureSkipVerify bool
	// ConnectTimeout bounds Dial. Zero means 15 seconds.
	ConnectTimeout time.Duration
}

// SocketPublisher emits events to a socket.io server.
type SocketPublisher struct {
	io     *socket.Socket
	event  string
	logger *slog.Logger
}

// Dial connects to the server and waits for the connection to be accepted.
func Dial(ctx context.Context, opts SocketOptions) (*SocketPublisher, error) {
	logger := ctxlog.FromContext(ctx).With("component", "statusfeed", "url", opts.URL)

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse status feed URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("status feed URL %q needs a scheme and host", opts.URL)
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	event := opts.Event
	if event == "" {
		event = DefaultEvent
	}

	sopts := socket.DefaultOptions()
	sopts.SetPath(parsedURL.Path)
	if opts.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification.")
		sopts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	sopts.SetTransports(types.NewSet(transports.WebSocket))

	connected := make(chan error, 1)
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, sopts)
	io := manager.Socket(opts.Namespace, sopts)

	io.Once(types.EventName("connect"), func(...any) {
		connected <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connected <- err
	})

	logger.Debug("Connecting status feed.")
	io.Connect()

	select {
	case err := <-connected:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("status feed connection failed: %w", err)
		}
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("connecting status feed: %w", ctx.Err())
	case <-time.After(timeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for status feed connection", timeout)
	}
	logger.Info("Status feed connected.", "sid", io.Id())
	return &SocketPublisher{io: io, event: event, logger: logger}, nil
}

// Publish implements Publisher.
func (p *SocketPublisher) Publish(_ context.Context, ev Event) error {
	if !p.io.Connected() {
		return ErrNotConnected
	}
	p.io.Emit(p.event, ev)
	return nil
}

// Close implements Publisher.
func (p *SocketPublisher) Close() error {
	p.logger.Debug("Disconnecting status feed.", "sid", p.io.Id())
	p.io.Disconnect()
	return nil
}
