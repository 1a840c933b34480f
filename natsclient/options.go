package natsclient

import (
	"log/slog"
	"time"

	"github.com/c360/alarmstreams/metric"
)

// Option is a functional option for configuring the Client.
type Option func(*Client) error

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger.With("component", "natsclient")
		}
		return nil
	}
}

// WithName sets the client name reported to the server.
func WithName(name string) Option {
	return func(c *Client) error {
		c.clientName = name
		return nil
	}
}

// WithMaxReconnects sets the reconnection attempt limit (-1 for infinite).
func WithMaxReconnects(n int) Option {
	return func(c *Client) error {
		c.maxReconnects = n
		return nil
	}
}

// WithReconnectWait sets the wait between reconnection attempts.
func WithReconnectWait(d time.Duration) Option {
	return func(c *Client) error {
		c.reconnectWait = d
		return nil
	}
}

// WithTimeout sets the connection timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.timeout = d
		return nil
	}
}

// WithDrainTimeout sets the timeout for draining on close.
func WithDrainTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.drainTimeout = d
		return nil
	}
}

// WithHealthInterval sets the health monitoring interval. Zero disables
// monitoring.
func WithHealthInterval(d time.Duration) Option {
	return func(c *Client) error {
		c.healthInterval = d
		return nil
	}
}

// WithCircuitBreakerThreshold sets the failures before the circuit opens.
func WithCircuitBreakerThreshold(threshold int32) Option {
	return func(c *Client) error {
		if threshold < 1 {
			threshold = 5
		}
		c.circuitThreshold = threshold
		return nil
	}
}

// WithMaxBackoff caps the circuit breaker backoff.
func WithMaxBackoff(d time.Duration) Option {
	return func(c *Client) error {
		if d < time.Second {
			d = time.Minute
		}
		c.maxBackoff = d
		return nil
	}
}

// WithHealthChangeCallback sets a callback for health status changes.
func WithHealthChangeCallback(fn func(healthy bool)) Option {
	return func(c *Client) error {
		c.onHealthChange = fn
		return nil
	}
}

// WithMetrics wires connection state into the platform metrics.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(c *Client) error {
		if registry != nil {
			c.metrics = registry.CoreMetrics()
		}
		return nil
	}
}
