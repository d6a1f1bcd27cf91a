// internal/browser/engine_config_test.go
package browser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/humanoid/internal/config"
	"github.com/xkilldash9x/humanoid/internal/humanoid"
)

func TestEngineConfigAppliesOverrides(t *testing.T) {
	t.Parallel()

	bc := config.BrowserConfig{
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		Humanoid: config.HumanoidConfig{
			Enabled:                     true,
			Seed:                        99,
			MaxEventsPerSecond:          120,
			PointDensity:                18.0,
			TremorAmplitude:             0.02,
			PerlinAmplitude:             2.4,
			OvershootProbability:        0.33,
			SpatialNoise:                3.1,
			DriftMagnitude:              4.0,
			PressHoldMs:                 90.0,
			DestinationDrift:            true,
			IncidentalScrollProbability: 0.25,
			ActivatableTimeout:          9 * time.Second,
			StabilityTimeout:            2 * time.Second,
		},
	}

	cfg := engineConfig(bc)

	require.NotNil(t, cfg.Rng, "non-zero seed must install a seeded source")
	assert.Equal(t, 120.0, cfg.MaxEventsPerSecond)
	assert.Equal(t, 18.0, cfg.PointDensityMean)
	assert.Equal(t, 0.02, cfg.TremorAmplitudeMean)
	assert.Equal(t, 2.4, cfg.PerlinAmplitudeMean)
	assert.Equal(t, 0.33, cfg.OvershootProbMean)
	assert.Equal(t, 3.1, cfg.SpatialNoiseMean)
	assert.Equal(t, 4.0, cfg.DriftMagnitudeMean)
	assert.Equal(t, 90.0, cfg.PressHoldMeanMs)
	assert.True(t, cfg.DestinationDrift)
	assert.Equal(t, 0.25, cfg.IncidentalScrollProbability)
	assert.Equal(t, 9*time.Second, cfg.ActivatableTimeout)
	assert.Equal(t, 2*time.Second, cfg.StabilityTimeout)

	assert.Equal(t, 1920.0, cfg.FallbackViewport.Width)
	assert.Equal(t, 1080.0, cfg.FallbackViewport.Height)
}

func TestEngineConfigZeroKnobsKeepDefaults(t *testing.T) {
	t.Parallel()

	defaults := humanoid.DefaultConfig()
	cfg := engineConfig(config.BrowserConfig{Humanoid: config.HumanoidConfig{Enabled: true}})

	assert.Nil(t, cfg.Rng, "zero seed must leave the engine to seed from the clock")
	assert.Equal(t, defaults.PointDensityMean, cfg.PointDensityMean)
	assert.Equal(t, defaults.TremorAmplitudeMean, cfg.TremorAmplitudeMean)
	assert.Equal(t, defaults.OvershootProbMean, cfg.OvershootProbMean)
	assert.Equal(t, defaults.PressHoldMeanMs, cfg.PressHoldMeanMs)
	assert.Equal(t, defaults.ActivatableTimeout, cfg.ActivatableTimeout)
	assert.Equal(t, defaults.StabilityTimeout, cfg.StabilityTimeout)
	assert.Equal(t, defaults.IncidentalScrollProbability, cfg.IncidentalScrollProbability)

	// Without window dimensions the engine fallback viewport stands.
	assert.Equal(t, defaults.FallbackViewport, cfg.FallbackViewport)

	// An explicit zero rate disables the dispatch cap.
	assert.Equal(t, 0.0, cfg.MaxEventsPerSecond)
}

func TestEngineConfigSeedIsReproducible(t *testing.T) {
	t.Parallel()

	bc := config.BrowserConfig{Humanoid: config.HumanoidConfig{Seed: 1234}}

	a := engineConfig(bc)
	b := engineConfig(bc)
	require.NotNil(t, a.Rng)
	require.NotNil(t, b.Rng)

	// Two configs built from the same seed draw identical streams.
	for i := 0; i < 16; i++ {
		assert.Equal(t, a.Rng.Int63(), b.Rng.Int63())
	}
}
