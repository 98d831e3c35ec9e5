package ranking

import "time"

// Config of the scoring.
type Config struct {
	RateWeight     float64
	LivenessWeight float64
	LaplaceWeight  float64

	// HalfLife of the liveness decay.
	HalfLife time.Duration
	// ColdStartLiveness is the liveness of a mech that never received a request.
	ColdStartLiveness float64

	// Alpha and Beta are the prior successes and failures of the delivered ratio.
	Alpha float64
	Beta  float64

	// Epsilon below which two scores are equal.
	Epsilon float64

	// MaxDeliveryRateCap excludes the mechs asking more. Zero means no cap.
	MaxDeliveryRateCap uint64
}

// DefaultConfig for livenet.
func DefaultConfig() Config {
	return Config{
		RateWeight:        0.10,
		LivenessWeight:    0.45,
		LaplaceWeight:     0.45,
		HalfLife:          24 * time.Hour,
		ColdStartLiveness: 1.0,
		Alpha:             8,
		Beta:              2,
		Epsilon:           1e-9,
	}
}
