// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "humanoid", cfg.Logger.ServiceName)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 1366, cfg.Browser.ViewportWidth)
	assert.Equal(t, 768, cfg.Browser.ViewportHeight)
	assert.Equal(t, 90*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, 2*time.Second, cfg.Browser.PostLoadWait)

	assert.True(t, cfg.Browser.Humanoid.Enabled)
	assert.Equal(t, int64(0), cfg.Browser.Humanoid.Seed)
	assert.Equal(t, 240.0, cfg.Browser.Humanoid.MaxEventsPerSecond)
	assert.Equal(t, 12.0, cfg.Browser.Humanoid.PointDensity)
	assert.Equal(t, 72.0, cfg.Browser.Humanoid.PressHoldMs)
	assert.Equal(t, 5*time.Second, cfg.Browser.Humanoid.ActivatableTimeout)
	assert.Equal(t, 1200*time.Millisecond, cfg.Browser.Humanoid.StabilityTimeout)

	assert.NoError(t, cfg.Validate(), "default configuration must validate")
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Core Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()
		assert.NoError(t, cfg.Validate())

		cfgBadViewport := *cfg
		cfgBadViewport.Browser.ViewportWidth = 0
		err := cfgBadViewport.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "browser.viewport_width")

		cfgBadTimeout := *cfg
		cfgBadTimeout.Browser.NavigationTimeout = 0
		err = cfgBadTimeout.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "browser.navigation_timeout")
	})

	t.Run("Humanoid Validation", func(t *testing.T) {
		valid := NewDefaultConfig().Browser.Humanoid
		assert.NoError(t, valid.Validate())

		negativeRate := valid
		negativeRate.MaxEventsPerSecond = -1
		err := negativeRate.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "max_events_per_second")

		badOvershoot := valid
		badOvershoot.OvershootProbability = 1.4
		err = badOvershoot.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "overshoot_probability must be between 0.0 and 1.0")

		badScrollProb := valid
		badScrollProb.IncidentalScrollProbability = -0.2
		err = badScrollProb.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "incidental_scroll_probability")

		negativeHold := valid
		negativeHold.PressHoldMs = -5
		err = negativeHold.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "press_hold_ms")

		negativeTimeout := valid
		negativeTimeout.StabilityTimeout = -time.Second
		err = negativeTimeout.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "timeouts must not be negative")
	})
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
logger:
  level: "debug"
browser:
  headless: false
  viewport_width: 1920
  viewport_height: 1080
  humanoid:
    seed: 42
    point_density: 16.5
    activatable_timeout: "9s"
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		err := v.ReadConfig(bytes.NewBuffer(yamlBytes))
		require.NoError(t, err)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "debug", cfg.Logger.Level)
		assert.False(t, cfg.Browser.Headless)
		assert.Equal(t, 1920, cfg.Browser.ViewportWidth)
		assert.Equal(t, int64(42), cfg.Browser.Humanoid.Seed)
		assert.Equal(t, 16.5, cfg.Browser.Humanoid.PointDensity)
		assert.Equal(t, 9*time.Second, cfg.Browser.Humanoid.ActivatableTimeout)
		// Check a default value survived the overlay.
		assert.Equal(t, "console", cfg.Logger.Format)
		assert.Equal(t, 240.0, cfg.Browser.Humanoid.MaxEventsPerSecond)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("browser.humanoid.overshoot_probability", 3.0) // Intentionally invalid

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "overshoot_probability")
	})

	t.Run("Environment Variable Override", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetEnvPrefix("HUMANOID")
		v.SetEnvKeyReplacer(EnvKeyReplacer())
		v.AutomaticEnv()

		t.Setenv("HUMANOID_BROWSER_HEADLESS", "false")
		t.Setenv("HUMANOID_BROWSER_HUMANOID_SEED", "7")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.False(t, cfg.Browser.Headless)
		assert.Equal(t, int64(7), cfg.Browser.Humanoid.Seed)
	})
}
