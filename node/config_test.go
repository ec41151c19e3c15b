package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	laddr, err := DefaultConfig().Validate()
	require.NoError(t, err)
	assert.Equal(t, 9999, laddr.Port)

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero max events", func(c *Config) { c.MaxEvents = 0 }},
		{"negative buffer", func(c *Config) { c.ReadBufferSize = -1 }},
		{"bad network", func(c *Config) { c.Network = "tcp" }},
		{"bad address", func(c *Config) { c.Addr = "127.0.0.1:notaport" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := cfg.Validate()
			assert.Error(t, err)
		})
	}
}
