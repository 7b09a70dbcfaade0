package service

import (
	"testing"
	"time"

	"exec_bot/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicyRateLimitCapped(t *testing.T) {
	p := RetryPolicy{RateLimitBase: time.Second, RateLimitMax: 5 * time.Second, RateLimitAttempts: 10}
	rc := &RetryContext{}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	err := models.NewError(models.KindRateLimit, "429")

	var delays []time.Duration
	for i := 0; i < 5; i++ {
		act, delay := p.next(rc, err, now)
		assert.Equal(t, actWait, act)
		delays = append(delays, delay)
	}
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}, delays)
	assert.Equal(t, 17*time.Second, rc.Backoff)
	assert.Equal(t, now.Add(5*time.Second), rc.NextAt)
	assert.Equal(t, models.KindRateLimit, rc.LastKind)
}

func TestRetryPolicyDriftOnce(t *testing.T) {
	p := RetryPolicy{}
	rc := &RetryContext{}
	err := models.NewError(models.KindClockDrift, "-1021")

	act, _ := p.next(rc, err, time.Time{})
	assert.Equal(t, actResync, act)
	act, _ = p.next(rc, err, time.Time{})
	assert.Equal(t, actGiveUp, act)
}

func TestRetryPolicyGivesUpOnOtherKinds(t *testing.T) {
	p := RetryPolicy{RateLimitAttempts: 3, TransientAttempts: 3}
	for _, kind := range []models.ErrorKind{models.KindRejection, models.KindValidation, models.KindNotFound, models.KindUnknown} {
		act, delay := p.next(&RetryContext{}, models.NewError(kind, "x"), time.Time{})
		assert.Equal(t, actGiveUp, act, kind)
		assert.Zero(t, delay)
	}
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, backoff(100*time.Millisecond, 0, 0))
	assert.Equal(t, 800*time.Millisecond, backoff(100*time.Millisecond, 4, 0))
	assert.Equal(t, time.Minute, backoff(time.Second, 40, time.Minute))
}
