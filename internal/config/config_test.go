package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigRedis(t *testing.T) {
	t.Run("DisabledByDefault", func(t *testing.T) {
		t.Setenv("REDIS_ADDR", "")
		os.Unsetenv("REDIS_ADDR")

		cfg, err := LoadConfig()
		assert.NoError(t, err)
		assert.Empty(t, cfg.Redis.Addr, "redis must be opt-in")
	})

	t.Run("AddrFromEnvironment", func(t *testing.T) {
		t.Setenv("REDIS_ADDR", "redis:6379")

		cfg, err := LoadConfig()
		assert.NoError(t, err)
		assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	})
}
