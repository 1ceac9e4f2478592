package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/config"
)

type testConfig struct {
	Addr    string        `env:"TEST_ADDR" envDefault:":8080"`
	Timeout time.Duration `env:"TEST_TIMEOUT" envDefault:"5s"`
	Secret  string        `env:"TEST_SECRET,required"`
}

func TestLoad(t *testing.T) {
	t.Run("reads environment with defaults", func(t *testing.T) {
		t.Setenv("TEST_SECRET", "shh")

		var cfg testConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, 5*time.Second, cfg.Timeout)
		assert.Equal(t, "shh", cfg.Secret)
	})

	t.Run("overrides defaults", func(t *testing.T) {
		t.Setenv("TEST_SECRET", "shh")
		t.Setenv("TEST_ADDR", ":9090")
		t.Setenv("TEST_TIMEOUT", "250ms")

		var cfg testConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, ":9090", cfg.Addr)
		assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
	})

	t.Run("missing required variable fails", func(t *testing.T) {
		var cfg testConfig
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		err := config.Load[testConfig](nil)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})
}
