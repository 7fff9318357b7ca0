package nats

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Config holds NATS connection settings.
type Config struct {
	URL           string
	ClientID      string
	SubjectPrefix string
	MaxReconnect  int
	ReconnectWait time.Duration
}

// Client wraps a NATS connection
type Client struct {
	nc     *nats.Conn
	logger *zap.Logger
	prefix string
}

// NewClient connects to NATS. The returned cleanup drains and closes the
// connection.
func NewClient(cfg Config, logger *zap.Logger) (*Client, func(), error) {
	if cfg.ClientID == "" {
		cfg.ClientID = "anime-library"
	}
	if cfg.MaxReconnect == 0 {
		cfg.MaxReconnect = 5
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 2 * time.Second
	}

	opts := []nats.Option{
		nats.Name(cfg.ClientID),
		nats.MaxReconnects(cfg.MaxReconnect),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Debug("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	client := &Client{
		nc:     nc,
		logger: logger.Named("nats"),
		prefix: cfg.SubjectPrefix,
	}

	cleanup := func() {
		if err := nc.Drain(); err != nil {
			logger.Error("failed to drain NATS connection", zap.Error(err))
		}
		nc.Close()
	}

	logger.Info("NATS client initialized",
		zap.String("url", cfg.URL),
		zap.String("client_id", cfg.ClientID),
	)

	return client, cleanup, nil
}

// Connection returns the underlying NATS connection
func (c *Client) Connection() *nats.Conn {
	return c.nc
}

// IsConnected checks if the client is connected
func (c *Client) IsConnected() bool {
	return c.nc.IsConnected()
}

// Publish sends raw data on a subject.
func (c *Client) Publish(subject string, data []byte) error {
	if err := c.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Prefix returns the subject prefix events are published under.
func (c *Client) Prefix() string {
	return c.prefix
}
