// internal/humanoid/config.go
package humanoid

import (
	"math"
	"math/rand"
	"time"
)

// Config holds the parameters defining the behavior of the simulation.
//
// Fields ending in Mean/StdDev are persona distributions: FinalizeSessionPersona
// samples them once per session into the corresponding instance parameter, so
// two sessions with different seeds behave like two different operators.
type Config struct {
	// Rng drives every uniform and Gaussian draw in the engine. Inject a
	// seeded source for reproducible trajectories; nil means a time-seeded
	// source is created at construction.
	Rng *rand.Rand

	// Trajectory shape personas.
	PointDensityMean, PointDensityStdDev       float64
	TremorAmplitudeMean, TremorAmplitudeStdDev float64
	PerlinAmplitudeMean, PerlinAmplitudeStdDev float64
	OvershootProbMean, OvershootProbStdDev     float64
	SpatialNoiseMean, SpatialNoiseStdDev       float64
	DriftMagnitudeMean, DriftMagnitudeStdDev   float64
	PressHoldMeanMs, PressHoldStdDevMs         float64

	// Instance parameters, fixed per session by FinalizeSessionPersona.
	PointDensity         float64
	TremorAmplitude      float64
	PerlinAmplitude      float64
	OvershootProbability float64
	SpatialNoiseCap      float64
	DriftMagnitude       float64
	PressHoldMean        float64

	// Fitts's law scaling.
	MinPoints          int
	DefaultTargetWidth float64
	ComplexityFactor   float64

	// Curve construction. Control points sit at these fractions of the
	// start->end segment, displaced perpendicularly by a fraction of the
	// total distance.
	CurveDeviationMin      float64
	CurveDeviationMax      float64
	ControlPoint1Min       float64
	ControlPoint1Max       float64
	ControlPoint2Min       float64
	ControlPoint2Max       float64
	ApproachCurvatureScale float64

	// Progress easing perturbations.
	ProgressJitter         float64
	TremorFrequency        float64
	LapseProbabilityScale  float64
	HesitationProbability  float64
	HesitationMinDistance  float64
	HesitationHoldFactor   float64

	// Spatial noise.
	SpatialNoiseDenominator     float64
	AttentionErrorProbability   float64
	AttentionErrorStdDev        float64
	DirectionPerturbProbability float64
	DirectionPerturbStdDev      float64

	// Overshoot and correction.
	OvershootMinDistance   float64
	OvershootMagnitudeMin  float64
	OvershootMagnitudeMax  float64
	ViewportEdgeMargin     float64
	CorrectionJitterScale  float64

	// Inter-sample delay model (milliseconds unless noted).
	SampleDelayTypicalMs float64
	SampleDelayFastMs    float64
	SampleDelaySlowMs    float64
	SampleDelayFastProb  float64
	SampleDelaySlowProb  float64
	SampleDelayNoiseMs   float64
	SampleDelayMinMs     float64
	SampleDelayMaxMs     float64
	AccelPhaseFactor     float64
	PrecisionPhaseFactor float64
	PinkNoiseDelayFactor float64

	// Destination drift.
	DestinationDrift bool

	// Scrolling behavior.
	ScrollStepFactor            float64
	ScrollChunkBase             float64
	ScrollJitter                float64
	ScrollDelayMinMs            float64
	ScrollDelayMaxMs            float64
	ScrollOvershootProbability  float64
	ScrollOvershootMinDistance  float64
	ScrollMicroAdjustMax        int
	ScrollMicroAdjustCap        float64
	IncidentalScrollProbability float64
	VisibilityBuffer            float64
	ScrollLandingMin            float64
	ScrollLandingMax            float64

	// Fatigue and attention modeling.
	FatigueActionThreshold    int
	FatigueSlope              float64
	FatigueCap                float64
	AttentionFloor            float64
	AttentionCap              float64
	AttentionInitMin          float64
	AttentionInitMax          float64
	AttentionDecayPerAction   float64
	AttentionRecoveryInterval int
	AttentionRecoveryBump     float64
	AutoResetThreshold        int

	// Activation state machine.
	ActivatableTimeout   time.Duration
	ActivatablePollMinMs float64
	ActivatablePollMaxMs float64
	StabilityTimeout     time.Duration
	StabilityReads       int
	StabilityTolerance   float64
	StabilityPollMinMs   float64
	StabilityPollMaxMs   float64
	ApproachDistanceMin  float64
	ApproachDistanceMax  float64
	HoverMinMs           float64
	HoverMaxMs           float64
	FinalAdjustMinPoints int
	FinalAdjustMaxPoints int
	PressHoldFloorMs     float64
	ClickSpreadDivisor   float64
	ClickBiasFactor      float64
	ClickInteriorMargin  float64

	// Post-activation drift behavior weights (normalized to sum to 1).
	DriftStayWeight   float64
	DriftJitterWeight float64
	DriftAwayWeight   float64

	// Geometry provider.
	ViewportCacheTTL   time.Duration
	GeometryRetries    int
	GeometryRetryBase  time.Duration
	FallbackViewport   Viewport

	// Dispatch rate cap for the production executor (events per second).
	MaxEventsPerSecond float64
}

// DefaultConfig returns a configuration representing an average user.
func DefaultConfig() Config {
	c := Config{
		Rng:                 nil,
		PointDensityMean:    12.0, PointDensityStdDev: 1.2,
		TremorAmplitudeMean: 0.012, TremorAmplitudeStdDev: 0.004,
		PerlinAmplitudeMean: 1.6, PerlinAmplitudeStdDev: 0.4,
		OvershootProbMean:   0.18, OvershootProbStdDev: 0.05,
		SpatialNoiseMean:    2.2, SpatialNoiseStdDev: 0.5,
		DriftMagnitudeMean:  2.5, DriftMagnitudeStdDev: 0.8,
		PressHoldMeanMs:     72.0, PressHoldStdDevMs: 12.0,

		MinPoints:          15,
		DefaultTargetWidth: 100.0,
		ComplexityFactor:   1.0,

		CurveDeviationMin:      0.10,
		CurveDeviationMax:      0.40,
		ControlPoint1Min:       0.15,
		ControlPoint1Max:       0.48,
		ControlPoint2Min:       0.50,
		ControlPoint2Max:       0.88,
		ApproachCurvatureScale: 0.5,

		ProgressJitter:        0.35,
		TremorFrequency:       7.0,
		LapseProbabilityScale: 0.6,
		HesitationProbability: 0.10,
		HesitationMinDistance: 420.0,
		HesitationHoldFactor:  0.35,

		SpatialNoiseDenominator:     60.0,
		AttentionErrorProbability:   0.08,
		AttentionErrorStdDev:        3.5,
		DirectionPerturbProbability: 0.06,
		DirectionPerturbStdDev:      0.07,

		OvershootMinDistance:  140.0,
		OvershootMagnitudeMin: 0.08,
		OvershootMagnitudeMax: 0.30,
		ViewportEdgeMargin:    12.0,
		CorrectionJitterScale: 0.5,

		SampleDelayTypicalMs: 8.0,
		SampleDelayFastMs:    5.0,
		SampleDelaySlowMs:    12.0,
		SampleDelayFastProb:  0.15,
		SampleDelaySlowProb:  0.15,
		SampleDelayNoiseMs:   1.2,
		SampleDelayMinMs:     2.0,
		SampleDelayMaxMs:     45.0,
		AccelPhaseFactor:     0.85,
		PrecisionPhaseFactor: 1.35,
		PinkNoiseDelayFactor: 0.18,

		DestinationDrift: true,

		ScrollStepFactor:            5.0,
		ScrollChunkBase:             0.45,
		ScrollJitter:                0.35,
		ScrollDelayMinMs:            60.0,
		ScrollDelayMaxMs:            140.0,
		ScrollOvershootProbability:  0.22,
		ScrollOvershootMinDistance:  400.0,
		ScrollMicroAdjustMax:        3,
		ScrollMicroAdjustCap:        50.0,
		IncidentalScrollProbability: 0.12,
		VisibilityBuffer:            50.0,
		ScrollLandingMin:            0.20,
		ScrollLandingMax:            0.80,

		FatigueActionThreshold:    25,
		FatigueSlope:              0.01,
		FatigueCap:                1.5,
		AttentionFloor:            0.80,
		AttentionCap:              0.98,
		AttentionInitMin:          0.88,
		AttentionInitMax:          0.98,
		AttentionDecayPerAction:   0.0035,
		AttentionRecoveryInterval: 47,
		AttentionRecoveryBump:     0.03,
		AutoResetThreshold:        100,

		ActivatableTimeout:   5 * time.Second,
		ActivatablePollMinMs: 120.0,
		ActivatablePollMaxMs: 250.0,
		StabilityTimeout:     1200 * time.Millisecond,
		StabilityReads:       3,
		StabilityTolerance:   1.0,
		StabilityPollMinMs:   50.0,
		StabilityPollMaxMs:   110.0,
		ApproachDistanceMin:  20.0,
		ApproachDistanceMax:  60.0,
		HoverMinMs:           100.0,
		HoverMaxMs:           450.0,
		FinalAdjustMinPoints: 3,
		FinalAdjustMaxPoints: 8,
		PressHoldFloorMs:     35.0,
		ClickSpreadDivisor:   6.0,
		ClickBiasFactor:      0.35,
		ClickInteriorMargin:  2.0,

		DriftStayWeight:   0.40,
		DriftJitterWeight: 0.35,
		DriftAwayWeight:   0.25,

		ViewportCacheTTL:  2 * time.Second,
		GeometryRetries:   3,
		GeometryRetryBase: 50 * time.Millisecond,
		FallbackViewport: Viewport{
			Width:          1366,
			Height:         768,
			DocumentWidth:  1366,
			DocumentHeight: 768,
		},

		MaxEventsPerSecond: 240.0,
	}
	c.NormalizeDriftWeights()
	return c
}

// FinalizeSessionPersona generates the fixed instance parameters for a session.
func (c *Config) FinalizeSessionPersona(rng *rand.Rand) {
	c.Rng = rng
	c.PointDensity = sampleGaussian(rng, c.PointDensityMean, c.PointDensityStdDev)
	c.TremorAmplitude = sampleGaussian(rng, c.TremorAmplitudeMean, c.TremorAmplitudeStdDev)
	c.PerlinAmplitude = sampleGaussian(rng, c.PerlinAmplitudeMean, c.PerlinAmplitudeStdDev)
	c.OvershootProbability = sampleGaussian(rng, c.OvershootProbMean, c.OvershootProbStdDev)
	c.SpatialNoiseCap = sampleGaussian(rng, c.SpatialNoiseMean, c.SpatialNoiseStdDev)
	c.DriftMagnitude = sampleGaussian(rng, c.DriftMagnitudeMean, c.DriftMagnitudeStdDev)
	c.PressHoldMean = sampleGaussian(rng, c.PressHoldMeanMs, c.PressHoldStdDevMs)

	// Ensure parameters are within reasonable bounds.
	c.PointDensity = math.Max(6.0, c.PointDensity)
	c.TremorAmplitude = math.Max(0.0, c.TremorAmplitude)
	c.PerlinAmplitude = math.Max(0.0, c.PerlinAmplitude)
	c.OvershootProbability = clampFloat(c.OvershootProbability, 0.0, 0.9)
	c.SpatialNoiseCap = math.Max(0.2, c.SpatialNoiseCap)
	c.DriftMagnitude = math.Max(0.0, c.DriftMagnitude)
	c.PressHoldMean = math.Max(c.PressHoldFloorMs, c.PressHoldMean)

	if c.ApproachDistanceMax <= c.ApproachDistanceMin {
		c.ApproachDistanceMax = c.ApproachDistanceMin + 1
	}
	if c.FinalAdjustMaxPoints <= c.FinalAdjustMinPoints {
		c.FinalAdjustMaxPoints = c.FinalAdjustMinPoints + 1
	}
}

// NormalizeDriftWeights ensures the post-activation behavior weights sum to 1.
func (c *Config) NormalizeDriftWeights() {
	total := c.DriftStayWeight + c.DriftJitterWeight + c.DriftAwayWeight
	if total <= 1e-9 {
		c.DriftStayWeight = 1.0
		c.DriftJitterWeight = 0.0
		c.DriftAwayWeight = 0.0
		return
	}
	c.DriftStayWeight /= total
	c.DriftJitterWeight /= total
	c.DriftAwayWeight /= total
}

// sampleGaussian samples a value from a Gaussian distribution.
func sampleGaussian(rng *rand.Rand, mean, stdDev float64) float64 {
	if rng == nil {
		return mean
	}
	return mean + rng.NormFloat64()*stdDev
}
