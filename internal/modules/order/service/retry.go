package service

import (
	"time"

	"exec_bot/internal/models"
)

// RetryPolicy: сколько и как долго повторять отправку по классу ошибки.
type RetryPolicy struct {
	RateLimitBase     time.Duration
	RateLimitMax      time.Duration
	RateLimitAttempts int
	TransientBase     time.Duration
	TransientAttempts int
}

type action int

const (
	actGiveUp action = iota
	actResync
	actWait
)

// RetryContext: состояние ретраев одной отправки.
type RetryContext struct {
	Attempts int
	LastKind models.ErrorKind
	NextAt   time.Time
	// суммарная пауза
	Backoff time.Duration

	resynced   bool
	rateLimits int
	transients int
}

// next решает, что делать после ошибки err:
// drift: один resync и один повтор, rate limit: base, 2*base, 4*base... до max,
// transient: экспонента от TransientBase, остальное не повторяем.
func (p RetryPolicy) next(rc *RetryContext, err error, now time.Time) (action, time.Duration) {
	kind := models.KindOf(err)
	rc.LastKind = kind

	var delay time.Duration
	switch kind {
	case models.KindClockDrift:
		if rc.resynced {
			return actGiveUp, 0
		}
		rc.resynced = true
		return actResync, 0

	case models.KindRateLimit:
		rc.rateLimits++
		if rc.rateLimits > p.RateLimitAttempts {
			return actGiveUp, 0
		}
		delay = backoff(p.RateLimitBase, rc.rateLimits, p.RateLimitMax)

	case models.KindTransient:
		rc.transients++
		if rc.transients > p.TransientAttempts {
			return actGiveUp, 0
		}
		delay = backoff(p.TransientBase, rc.transients, p.RateLimitMax)

	default:
		return actGiveUp, 0
	}

	rc.NextAt = now.Add(delay)
	rc.Backoff += delay
	return actWait, delay
}

// backoff: base * 2^(n-1), не больше max (max <= 0: без потолка).
func backoff(base time.Duration, n int, max time.Duration) time.Duration {
	if n < 1 {
		n = 1
	}
	shift := n - 1
	if shift > 30 {
		shift = 30
	}
	d := base << uint(shift)
	if max > 0 && (d > max || d <= 0) {
		return max
	}
	return d
}
