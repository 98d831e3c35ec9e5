package iomock

import (
	"context"
	"time"
)

// Sleeper records the pauses instead of sleeping.
type Sleeper struct {
	Slept []time.Duration
}

// Sleep records d, failing only if ctx is done.
func (s *Sleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Slept = append(s.Slept, d)
	return nil
}
