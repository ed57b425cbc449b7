package nats

import (
	"log/slog"
	"os"
	"time"

	natsgo "github.com/nats-io/nats.go"
)

type closeFunc = func()

// Connector opens a NATS connection and returns a func that closes it.
type Connector func() (nc *natsgo.Conn, close closeFunc, err error)

// ConnectURL connects to natsURL. The connection keeps reconnecting while
// the server is away; opts are applied after the defaults.
func ConnectURL(natsURL string, opts ...natsgo.Option) Connector {
	return func() (*natsgo.Conn, closeFunc, error) {
		all := append([]natsgo.Option{
			natsgo.Name("bookstock"),
			natsgo.MaxReconnects(-1),
			natsgo.ReconnectWait(500 * time.Millisecond),
		}, opts...)
		nc, err := natsgo.Connect(natsURL, all...)
		if err != nil {
			return nil, nil, err
		}
		return nc, func() { nc.Close() }, nil
	}
}

// ConnectDefault connects to $NATS_URL, falling back to nats.DefaultURL.
func ConnectDefault(opts ...natsgo.Option) Connector {
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		return ConnectURL(natsURL, opts...)
	}
	return ConnectURL(natsgo.DefaultURL, opts...)
}

// LogEvents reports connection state changes to log.
func LogEvents(log *slog.Logger) natsgo.Option {
	return func(o *natsgo.Options) error {
		o.DisconnectedErrCB = func(_ *natsgo.Conn, err error) {
			log.Warn("nats disconnected", slog.Any("error", err))
		}
		o.ReconnectedCB = func(nc *natsgo.Conn) {
			log.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}
		o.ClosedCB = func(*natsgo.Conn) {
			log.Debug("nats connection closed")
		}
		return nil
	}
}
