package natsclient

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/FlexQR/config"
	"go.uber.org/zap"
)

const (
	clientName       = "flexqr"
	connectTimeout   = 5 * time.Second
	reconnectWait    = 2 * time.Second
	maxPendingPublish = 256
)

// Connect dials NATS and opens the JetStream context the scan stream runs on.
func Connect(cfg config.NATSConfig, log *zap.Logger) (*nats.Conn, nats.JetStreamContext, error) {
	conn, err := nats.Connect(BuildURL(cfg), Options(cfg, log)...)
	if err != nil {
		return nil, nil, fmt.Errorf("nats: connect %s: %w", BuildURL(cfg), err)
	}

	js, err := conn.JetStream(nats.PublishAsyncMaxPending(maxPendingPublish))
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("nats: init jetstream: %w", err)
	}
	return conn, js, nil
}

// Options reconnects forever and reports connection state changes on log.
func Options(cfg config.NATSConfig, log *zap.Logger) []nats.Option {
	opts := []nats.Option{
		nats.Name(clientName),
		nats.Timeout(connectTimeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Info("nats connection closed")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			fields := []zap.Field{zap.Error(err)}
			if sub != nil {
				fields = append(fields, zap.String("subject", sub.Subject))
			}
			log.Error("nats async error", fields...)
		}),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}
	return opts
}

// BuildURL returns the client URL for cfg, filling in local defaults.
// Credentials travel as options, never in the URL.
func BuildURL(cfg config.NATSConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 4222
	}
	u := url.URL{Scheme: "nats", Host: net.JoinHostPort(host, strconv.Itoa(port))}
	return u.String()
}
