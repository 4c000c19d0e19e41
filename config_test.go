package ifft

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 512, cfg.Length)
	assert.Equal(t, 2500, cfg.Blocks)
	assert.Equal(t, 5*time.Second, cfg.FenceTimeout)
	assert.False(t, cfg.NormalizeInPlace)
	assert.Equal(t, 1280000, cfg.Samples())
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"length 0", func(c *Config) { c.Length = 0 }, ErrInvalidLength},
		{"length 1", func(c *Config) { c.Length = 1 }, ErrInvalidLength},
		{"length 500", func(c *Config) { c.Length = 500 }, ErrNotPowerOfTwo},
		{"no blocks", func(c *Config) { c.Blocks = 0 }, ErrInvalidBufferSize},
		{"negative blocks", func(c *Config) { c.Blocks = -3 }, ErrInvalidBufferSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}

	cfg := DefaultConfig()
	cfg.FenceTimeout = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Length = 2
	assert.NoError(t, cfg.Validate())
}
