package server

import (
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the server configuration. The lifecycle-critical fields
// (host, port, refresh interval, trigger directory) are validated eagerly
// on assignment: an invalid value fails the setter with a *ValidationError
// and leaves the previous value intact. The remaining fields configure the
// transport and follow the usual fill-on-construction pattern.
type Config struct {
	host            string
	port            int
	refreshInterval time.Duration
	triggerDir      string

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// CheckOrigin is called to validate a WebSocket request origin.
	// Default: allow all origins (this layer performs no HTTP semantics).
	CheckOrigin func(r *http.Request) bool

	// ShutdownTimeout bounds graceful transport shutdown.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration

	// Logger is the structured logger for the server and its components.
	// Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with the framework defaults: host
// 0.0.0.0, port 80, a 1ms refresh interval, and no trigger directory.
func DefaultConfig() *Config {
	return &Config{
		host:            "0.0.0.0",
		port:            80,
		refreshInterval: time.Millisecond,
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Host returns the configured listen host.
func (c *Config) Host() string { return c.host }

// SetHost sets the listen host. The host must be a single non-empty token.
func (c *Config) SetHost(host string) error {
	if host == "" || strings.ContainsAny(host, " \t\n") {
		return newValidationError("host", host, "must be a single non-empty string")
	}
	c.host = host
	return nil
}

// Port returns the configured listen port.
func (c *Config) Port() int { return c.port }

// SetPort sets the listen port. The port must be in [0, 65535].
func (c *Config) SetPort(port int) error {
	if port < 0 || port > 65535 {
		return newValidationError("port", port, "must be a non-negative integer below 65536")
	}
	c.port = port
	return nil
}

// RefreshInterval returns the blocking-loop sleep interval.
func (c *Config) RefreshInterval() time.Duration { return c.refreshInterval }

// SetRefreshInterval sets the blocking-loop sleep interval. The interval
// must be positive.
func (c *Config) SetRefreshInterval(d time.Duration) error {
	if d <= 0 {
		return newValidationError("refresh interval", d, "must be positive")
	}
	c.refreshInterval = d
	return nil
}

// TriggerDir returns the trigger directory, or "" when none is set.
func (c *Config) TriggerDir() string { return c.triggerDir }

// SetTriggerDir sets the directory scanned for trigger files. The
// directory must already exist.
func (c *Config) SetTriggerDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return newValidationError("trigger dir", dir, "does not exist")
	}
	if !info.IsDir() {
		return newValidationError("trigger dir", dir, "is not a directory")
	}
	c.triggerDir = dir
	return nil
}

// Addr returns the host:port pair the transport listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// WithShutdownTimeout sets the shutdown timeout and returns the config for
// chaining.
func (c *Config) WithShutdownTimeout(d time.Duration) *Config {
	c.ShutdownTimeout = d
	return c
}

// WithLogger sets the logger and returns the config for chaining.
func (c *Config) WithLogger(logger *slog.Logger) *Config {
	c.Logger = logger
	return c
}

// WithCheckOrigin sets the WebSocket origin check and returns the config
// for chaining.
func (c *Config) WithCheckOrigin(fn func(r *http.Request) bool) *Config {
	c.CheckOrigin = fn
	return c
}
