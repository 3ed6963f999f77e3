package docker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docker/docker/client"
)

// Config sisältää Docker client konfiguraation
type Config struct {
	Host      string
	TLSVerify bool
	CertPath  string
	Timeout   time.Duration
	// StopTimeout is how long the engine waits before killing the server
	StopTimeout time.Duration
	Container   string
}

func DefaultConfig() Config {
	return Config{
		Host:        "unix:///var/run/docker.sock",
		Timeout:     30 * time.Second,
		StopTimeout: 30 * time.Second,
	}
}

// Client wrappaa Docker API clientin ja sitoo sen yhteen pelipalvelimen
// containeriin.
type Client struct {
	cli         *client.Client
	container   string
	timeout     time.Duration
	stopTimeout time.Duration
}

// NewClient luo uuden Docker clientin
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Container == "" {
		return nil, errors.New("container name is required")
	}

	opts := []client.Opt{
		client.WithHost(cfg.Host),
		client.WithAPIVersionNegotiation(),
	}

	if cfg.TLSVerify {
		opts = append(opts, client.WithTLSClientConfig(
			cfg.CertPath+"/ca.pem",
			cfg.CertPath+"/cert.pem",
			cfg.CertPath+"/key.pem",
		))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if _, err := cli.Ping(pingCtx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("failed to reach docker daemon at %s: %w", cfg.Host, err)
	}

	return &Client{
		cli:         cli,
		container:   cfg.Container,
		timeout:     cfg.Timeout,
		stopTimeout: cfg.StopTimeout,
	}, nil
}

// Container returns the name of the controlled container
func (c *Client) Container() string {
	return c.container
}

// Close sulkee yhteyden
func (c *Client) Close() error {
	if c.cli != nil {
		return c.cli.Close()
	}
	return nil
}
