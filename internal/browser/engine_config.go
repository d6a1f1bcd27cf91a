// internal/browser/engine_config.go
package browser

import (
	"math/rand"

	"github.com/xkilldash9x/humanoid/internal/config"
	"github.com/xkilldash9x/humanoid/internal/humanoid"
)

// engineConfig maps the user-facing humanoid settings onto the engine's full
// parameter table. Only the exposed knobs are overridden; everything else
// keeps the engine defaults. Zero-valued persona knobs mean "engine default"
// so a sparse YAML file does not flatten the persona.
func engineConfig(bc config.BrowserConfig) humanoid.Config {
	hc := bc.Humanoid
	cfg := humanoid.DefaultConfig()

	if hc.Seed != 0 {
		cfg.Rng = rand.New(rand.NewSource(hc.Seed))
	}
	cfg.MaxEventsPerSecond = hc.MaxEventsPerSecond

	if hc.PointDensity > 0 {
		cfg.PointDensityMean = hc.PointDensity
	}
	if hc.TremorAmplitude > 0 {
		cfg.TremorAmplitudeMean = hc.TremorAmplitude
	}
	if hc.PerlinAmplitude > 0 {
		cfg.PerlinAmplitudeMean = hc.PerlinAmplitude
	}
	if hc.OvershootProbability > 0 {
		cfg.OvershootProbMean = hc.OvershootProbability
	}
	if hc.SpatialNoise > 0 {
		cfg.SpatialNoiseMean = hc.SpatialNoise
	}
	if hc.DriftMagnitude > 0 {
		cfg.DriftMagnitudeMean = hc.DriftMagnitude
	}
	if hc.PressHoldMs > 0 {
		cfg.PressHoldMeanMs = hc.PressHoldMs
	}

	cfg.DestinationDrift = hc.DestinationDrift
	if hc.IncidentalScrollProbability > 0 {
		cfg.IncidentalScrollProbability = hc.IncidentalScrollProbability
	}
	if hc.ActivatableTimeout > 0 {
		cfg.ActivatableTimeout = hc.ActivatableTimeout
	}
	if hc.StabilityTimeout > 0 {
		cfg.StabilityTimeout = hc.StabilityTimeout
	}

	// The configured window doubles as the degraded-mode viewport when page
	// metrics are unreadable.
	if bc.ViewportWidth > 0 && bc.ViewportHeight > 0 {
		cfg.FallbackViewport = humanoid.Viewport{
			Width:          float64(bc.ViewportWidth),
			Height:         float64(bc.ViewportHeight),
			DocumentWidth:  float64(bc.ViewportWidth),
			DocumentHeight: float64(bc.ViewportHeight),
		}
	}

	return cfg
}
