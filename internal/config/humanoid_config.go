// File: internal/config/humanoid_config.go
// This file defines the HumanoidConfig struct, which contains the tunable
// parameters for the humanized pointer-control engine. These settings shape
// the session persona (movement physics, timing, error simulation) without
// changing the core code; the engine's remaining knobs keep their built-in
// defaults.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// HumanoidConfig holds the user-facing knobs of the pointer engine. Each
// persona value seeds the session-level Gaussian draw; zero means "use the
// engine default".
type HumanoidConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Seed fixes the session RNG for reproducible trajectories. Zero seeds
	// from the clock.
	Seed int64 `mapstructure:"seed" yaml:"seed"`

	// MaxEventsPerSecond caps pointer-event dispatch frequency. Zero
	// disables the cap.
	MaxEventsPerSecond float64 `mapstructure:"max_events_per_second" yaml:"max_events_per_second"`

	// Persona means. The per-session standard deviations stay at the
	// engine defaults.
	PointDensity         float64 `mapstructure:"point_density" yaml:"point_density"`
	TremorAmplitude      float64 `mapstructure:"tremor_amplitude" yaml:"tremor_amplitude"`
	PerlinAmplitude      float64 `mapstructure:"perlin_amplitude" yaml:"perlin_amplitude"`
	OvershootProbability float64 `mapstructure:"overshoot_probability" yaml:"overshoot_probability"`
	SpatialNoise         float64 `mapstructure:"spatial_noise" yaml:"spatial_noise"`
	DriftMagnitude       float64 `mapstructure:"drift_magnitude" yaml:"drift_magnitude"`
	PressHoldMs          float64 `mapstructure:"press_hold_ms" yaml:"press_hold_ms"`

	DestinationDrift            bool    `mapstructure:"destination_drift" yaml:"destination_drift"`
	IncidentalScrollProbability float64 `mapstructure:"incidental_scroll_probability" yaml:"incidental_scroll_probability"`

	ActivatableTimeout time.Duration `mapstructure:"activatable_timeout" yaml:"activatable_timeout"`
	StabilityTimeout   time.Duration `mapstructure:"stability_timeout" yaml:"stability_timeout"`
}

// setHumanoidDefaults registers the humanoid defaults under the browser key.
func setHumanoidDefaults(v *viper.Viper) {
	v.SetDefault("browser.humanoid.enabled", true)
	v.SetDefault("browser.humanoid.seed", 0)
	v.SetDefault("browser.humanoid.max_events_per_second", 240.0)
	v.SetDefault("browser.humanoid.point_density", 12.0)
	v.SetDefault("browser.humanoid.tremor_amplitude", 0.012)
	v.SetDefault("browser.humanoid.perlin_amplitude", 1.6)
	v.SetDefault("browser.humanoid.overshoot_probability", 0.18)
	v.SetDefault("browser.humanoid.spatial_noise", 2.2)
	v.SetDefault("browser.humanoid.drift_magnitude", 2.5)
	v.SetDefault("browser.humanoid.press_hold_ms", 72.0)
	v.SetDefault("browser.humanoid.destination_drift", true)
	v.SetDefault("browser.humanoid.incidental_scroll_probability", 0.12)
	v.SetDefault("browser.humanoid.activatable_timeout", "5s")
	v.SetDefault("browser.humanoid.stability_timeout", "1200ms")
}

// Validate checks the humanoid knobs for obviously broken values.
func (h *HumanoidConfig) Validate() error {
	if h.MaxEventsPerSecond < 0 {
		return fmt.Errorf("browser.humanoid.max_events_per_second must not be negative")
	}
	if h.OvershootProbability < 0 || h.OvershootProbability > 1 {
		return fmt.Errorf("browser.humanoid.overshoot_probability must be between 0.0 and 1.0")
	}
	if h.IncidentalScrollProbability < 0 || h.IncidentalScrollProbability > 1 {
		return fmt.Errorf("browser.humanoid.incidental_scroll_probability must be between 0.0 and 1.0")
	}
	if h.PressHoldMs < 0 {
		return fmt.Errorf("browser.humanoid.press_hold_ms must not be negative")
	}
	if h.ActivatableTimeout < 0 || h.StabilityTimeout < 0 {
		return fmt.Errorf("browser.humanoid timeouts must not be negative")
	}
	return nil
}
