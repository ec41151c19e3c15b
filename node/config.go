package node

import (
	"fmt"
	"net"
)

const (
	// MaxEvents is the default number of epoll events fetched per wait.
	MaxEvents = 1024

	DefaultAddr           = "127.0.0.1:9999"
	DefaultNetwork        = "udp"
	DefaultReadBufferSize = 64 * 1024 // largest UDP payload
)

// Config holds the settings of a Server.
type Config struct {
	Network        string // udp, udp4 or udp6
	Addr           string // host:port to bind
	MaxEvents      int    // epoll events per wait
	ReadBufferSize int    // per-read scratch buffer for the echo handler

	LogLevel    string
	Development bool
}

func DefaultConfig() Config {
	return Config{
		Network:        DefaultNetwork,
		Addr:           DefaultAddr,
		MaxEvents:      MaxEvents,
		ReadBufferSize: DefaultReadBufferSize,
		LogLevel:       "info",
	}
}

// Validate checks c and resolves its listen address.
func (c Config) Validate() (*net.UDPAddr, error) {
	if c.MaxEvents <= 0 {
		return nil, fmt.Errorf("max events must be positive, got %d", c.MaxEvents)
	}
	if c.ReadBufferSize <= 0 {
		return nil, fmt.Errorf("read buffer size must be positive, got %d", c.ReadBufferSize)
	}
	laddr, err := net.ResolveUDPAddr(c.Network, c.Addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s address %q: %w", c.Network, c.Addr, err)
	}
	return laddr, nil
}
