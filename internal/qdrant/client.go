// Package qdrant stores and scrolls screening documents in a Qdrant
// collection, for use as a corpus and retrieval source.
package qdrant

import (
	"context"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/screenlab/screensim/internal/config"
	"github.com/screenlab/screensim/internal/pkg/errors"
)

const (
	// DefaultHost is the default Qdrant host.
	DefaultHost = "localhost"

	// DefaultPort is the default Qdrant gRPC port.
	DefaultPort = 6334

	// DefaultTimeout is the default operation timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultPageSize is the default scroll page size.
	DefaultPageSize = 256
)

// ClientConfig holds configuration for the Qdrant client.
type ClientConfig struct {
	// Host is the Qdrant server host.
	Host string

	// Port is the Qdrant gRPC port.
	Port int

	// APIKey for authentication (optional).
	APIKey string

	// UseTLS enables TLS connection.
	UseTLS bool

	// Timeout for each operation.
	Timeout time.Duration

	// PageSize is the number of points fetched per scroll request.
	PageSize int
}

// DefaultClientConfig returns sensible defaults for local development.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Host:     DefaultHost,
		Port:     DefaultPort,
		Timeout:  DefaultTimeout,
		PageSize: DefaultPageSize,
	}
}

// ClientConfigFrom converts the application configuration.
func ClientConfigFrom(cfg config.QdrantConfig) ClientConfig {
	return ClientConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		APIKey:   cfg.APIKey,
		UseTLS:   cfg.UseTLS,
		PageSize: cfg.PageSize,
	}
}

func (cfg ClientConfig) withDefaults() ClientConfig {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	return cfg
}

// Client wraps the Qdrant Go client with document operations.
type Client struct {
	client *qdrant.Client
	config ClientConfig
	mu     sync.RWMutex
	closed bool
}

// NewClient creates a new Qdrant client wrapper. The connection is lazy;
// use HealthCheck to verify the server is reachable.
func NewClient(cfg ClientConfig) (*Client, error) {
	cfg = cfg.withDefaults()

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, errors.QdrantError("failed to create qdrant client", err)
	}

	return &Client{
		client: client,
		config: cfg,
	}, nil
}

// Config returns the effective configuration.
func (c *Client) Config() ClientConfig {
	return c.config
}

// Close closes the client connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	return c.client.Close()
}

// acquire read-locks the client for one operation and applies the
// operation timeout. The returned release must be called.
func (c *Client) acquire(ctx context.Context) (context.Context, func(), error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, nil, errors.New(errors.CodeUnavailable, "qdrant client is closed")
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	return ctx, func() {
		cancel()
		c.mu.RUnlock()
	}, nil
}

// HealthCheck verifies the Qdrant server is reachable and returns its
// version.
func (c *Client) HealthCheck(ctx context.Context) (string, error) {
	ctx, release, err := c.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	reply, err := c.client.HealthCheck(ctx)
	if err != nil {
		return "", mapError("health check", err)
	}
	if reply.GetTitle() == "" {
		return "", errors.New(errors.CodeQdrant, "unexpected health check response")
	}

	return reply.GetVersion(), nil
}
