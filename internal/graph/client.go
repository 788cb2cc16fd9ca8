// Package graph is the thin client over the NebulaGraph query protocol:
// vertex/edge existence probes and insert statements built from typed,
// escape-safe property lists. It owns no upsert policy; that lives in the
// engine.
package graph

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"

	nebula "github.com/vesoft-inc/nebula-go/v3"
)

// Config holds graph store connection settings.
type Config struct {
	Addrs    []string // host:port graphd endpoints
	User     string
	Password string
	Space    string
}

// Client wraps the NebulaGraph connection pool with error handling and
// session management. Sessions are not safe for concurrent use, so each
// worker opens its own Store via NewStore.
type Client struct {
	pool   *nebula.ConnectionPool
	cfg    Config
	logger *slog.Logger
}

// NewClient connects the pool and verifies the target space is reachable.
// Fails fast on startup rather than on the first record.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Space == "" {
		return nil, fmt.Errorf("nebula config incomplete: space is required")
	}

	client, err := newPoolClient(cfg)
	if err != nil {
		return nil, err
	}

	// Verify connectivity and the space before any work starts.
	store, err := client.NewStore()
	if err != nil {
		client.pool.Close()
		return nil, fmt.Errorf("failed to connect to nebula at %v: %w", cfg.Addrs, err)
	}
	store.Close()

	client.logger.Info("nebula client connected",
		"addrs", cfg.Addrs,
		"space", cfg.Space)

	return client, nil
}

// NewBootstrapClient connects without requiring the space to exist. Used
// by schema provisioning, which creates the space itself.
func NewBootstrapClient(cfg Config) (*Client, error) {
	client, err := newPoolClient(cfg)
	if err != nil {
		return nil, err
	}

	store, err := client.NewRawStore()
	if err != nil {
		client.pool.Close()
		return nil, fmt.Errorf("failed to connect to nebula at %v: %w", cfg.Addrs, err)
	}
	store.Close()

	client.logger.Info("nebula client connected", "addrs", cfg.Addrs)
	return client, nil
}

func newPoolClient(cfg Config) (*Client, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("nebula config incomplete: no graphd addresses")
	}

	hosts := make([]nebula.HostAddress, 0, len(cfg.Addrs))
	for _, addr := range cfg.Addrs {
		host, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid nebula address %q: %w", addr, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid nebula port in %q: %w", addr, err)
		}
		hosts = append(hosts, nebula.HostAddress{Host: host, Port: port})
	}

	logger := slog.Default().With("component", "nebula")

	poolConf := nebula.GetDefaultConf()
	poolConf.MaxConnPoolSize = 10 // one session per worker, small backlog headroom

	pool, err := nebula.NewConnectionPool(hosts, poolConf, poolLogger{logger})
	if err != nil {
		return nil, fmt.Errorf("failed to create nebula connection pool: %w", err)
	}

	return &Client{pool: pool, cfg: cfg, logger: logger}, nil
}

// NewRawStore opens a session with no space bound. Statements must name
// or switch to a space themselves.
func (c *Client) NewRawStore() (*Store, error) {
	session, err := c.pool.GetSession(c.cfg.User, c.cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire nebula session: %w", err)
	}
	return &Store{session: session, logger: c.logger}, nil
}

// NewStore opens a dedicated session bound to the configured space.
// The caller owns the Store and must Close it; it must not be shared
// across goroutines.
func (c *Client) NewStore() (*Store, error) {
	session, err := c.pool.GetSession(c.cfg.User, c.cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire nebula session: %w", err)
	}

	rs, err := session.Execute("USE " + c.cfg.Space)
	if err != nil {
		session.Release()
		return nil, fmt.Errorf("failed to use space %s: %w", c.cfg.Space, err)
	}
	if !rs.IsSucceed() {
		session.Release()
		return nil, fmt.Errorf("failed to use space %s: %s", c.cfg.Space, rs.GetErrorMsg())
	}

	return &Store{
		session: session,
		logger:  c.logger,
	}, nil
}

// HealthCheck verifies connectivity by opening and releasing a session.
func (c *Client) HealthCheck() error {
	store, err := c.NewStore()
	if err != nil {
		return fmt.Errorf("nebula health check failed: %w", err)
	}
	store.Close()
	return nil
}

// Close closes the underlying connection pool.
func (c *Client) Close() {
	c.pool.Close()
	c.logger.Info("nebula client closed")
}

// poolLogger adapts slog to the nebula driver's logger interface.
type poolLogger struct {
	logger *slog.Logger
}

func (l poolLogger) Info(msg string)  { l.logger.Debug(msg) }
func (l poolLogger) Warn(msg string)  { l.logger.Warn(msg) }
func (l poolLogger) Error(msg string) { l.logger.Error(msg) }
func (l poolLogger) Fatal(msg string) { l.logger.Error(msg) }
