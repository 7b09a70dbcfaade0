package models

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOfThroughWraps(t *testing.T) {
	base := NewError(KindRateLimit, "too many requests")
	base.Code = -1003
	wrapped := errors.Wrap(errors.Wrap(base, "submit"), "order")

	assert.Equal(t, KindRateLimit, KindOf(wrapped))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Contains(t, wrapped.Error(), "rate_limit: too many requests (code=-1003)")
}

func TestSentinelsMatchByIs(t *testing.T) {
	err := errors.Wrap(ErrStrategyNotFound, "toggle")
	assert.True(t, errors.Is(err, ErrStrategyNotFound))
	assert.False(t, errors.Is(err, ErrOrderNotFound))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestWrapKindKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := WrapKind(KindTransient, cause, "http")
	assert.Same(t, cause, errors.Cause(err.Err))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "transient: http: connection reset", err.Error())
}

func TestRetryable(t *testing.T) {
	for _, k := range []ErrorKind{KindClockDrift, KindRateLimit, KindTransient} {
		assert.True(t, Retryable(k), k.String())
	}
	for _, k := range []ErrorKind{KindUnknown, KindValidation, KindRejection, KindNotFound, KindDuplicate} {
		assert.False(t, Retryable(k), k.String())
	}
}
