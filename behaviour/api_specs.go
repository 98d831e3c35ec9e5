package behaviour

import (
	"math"
	"time"
)

// RetriesConfig bounds the retries of one external api.
type RetriesConfig struct {
	MaxRetries    int
	BackoffFactor float64
}

// DefaultRetriesConfig for livenet.
func DefaultRetriesConfig() RetriesConfig {
	return RetriesConfig{
		MaxRetries:    5,
		BackoffFactor: 2,
	}
}

// ApiSpecs describes an external api and owns its retry budget.
type ApiSpecs struct {
	URL     string
	Method  string
	Headers map[string]string

	cfg      RetriesConfig
	attempts int
}

// NewApiSpecs constructor.
func NewApiSpecs(url, method string, headers map[string]string, cfg RetriesConfig) *ApiSpecs {
	return &ApiSpecs{
		URL:     url,
		Method:  method,
		Headers: headers,
		cfg:     cfg,
	}
}

// IncrementRetries records a failed attempt.
func (s *ApiSpecs) IncrementRetries() {
	s.attempts++
}

// ResetRetries clears the failed attempts.
func (s *ApiSpecs) ResetRetries() {
	s.attempts = 0
}

// Retries returns the failed attempts so far.
func (s *ApiSpecs) Retries() int {
	return s.attempts
}

// IsRetriesExceeded reports whether the budget is spent.
func (s *ApiSpecs) IsRetriesExceeded() bool {
	return s.attempts > s.cfg.MaxRetries
}

// SuggestedSleepTime is BackoffFactor^attempts seconds.
func (s *ApiSpecs) SuggestedSleepTime() time.Duration {
	return time.Duration(math.Pow(s.cfg.BackoffFactor, float64(s.attempts)) * float64(time.Second))
}
