package bridge

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries the transport address and the loop/transport timing knobs.
// Host and port are configuration, never protocol constants.
type Config struct {
	Host string
	Port int

	// Interval throttles the poll loop.
	Interval time.Duration

	// ConnectTimeout bounds connection establishment (fail fast, the peer
	// is commonly absent). IOTimeout bounds steady-state reads and writes
	// (tolerate peer-side thinking time).
	ConnectTimeout time.Duration
	IOTimeout      time.Duration
}

func DefaultConfig() Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           12345,
		Interval:       250 * time.Millisecond,
		ConnectTimeout: 2 * time.Second,
		IOTimeout:      4 * time.Second,
	}
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("Host must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid Port %d", c.Port)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("Interval must be > 0")
	}
	if c.ConnectTimeout <= 0 || c.IOTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0")
	}
	if c.ConnectTimeout > c.IOTimeout {
		return fmt.Errorf("ConnectTimeout %v should not exceed IOTimeout %v", c.ConnectTimeout, c.IOTimeout)
	}
	return nil
}

// ConfigFromEnv builds a Config from the environment, starting from the
// defaults. BRIDGE_HOST, BRIDGE_PORT, BRIDGE_INTERVAL_MS,
// BRIDGE_CONNECT_TIMEOUT_MS and BRIDGE_IO_TIMEOUT_MS are recognized.
func ConfigFromEnv() (Config, error) {
	c := DefaultConfig()
	if v := strings.TrimSpace(os.Getenv("BRIDGE_HOST")); v != "" {
		c.Host = v
	}
	if v := strings.TrimSpace(os.Getenv("BRIDGE_PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return c, fmt.Errorf("invalid BRIDGE_PORT %q", v)
		}
		c.Port = port
	}
	var err error
	if c.Interval, err = envMillis("BRIDGE_INTERVAL_MS", c.Interval); err != nil {
		return c, err
	}
	if c.ConnectTimeout, err = envMillis("BRIDGE_CONNECT_TIMEOUT_MS", c.ConnectTimeout); err != nil {
		return c, err
	}
	if c.IOTimeout, err = envMillis("BRIDGE_IO_TIMEOUT_MS", c.IOTimeout); err != nil {
		return c, err
	}
	return c, c.validate()
}

func envMillis(name string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return def, fmt.Errorf("invalid %s %q", name, v)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
