package domain

import "time"

// RetryPolicy controls the delay between attempts of the same job.
type RetryPolicy struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// RetryDelay returns the backoff before attempt+1 may run: BaseDelay doubled
// per completed attempt, capped at MaxDelay. attempt is the number of
// attempts already consumed (>= 1).
func (p RetryPolicy) RetryDelay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
