package service

import (
	"context"

	"exec_bot/internal/models"

	"golang.org/x/time/rate"
)

// Throttle: общий бюджет запросов к бирже для всех раннеров.
type Throttle struct {
	lim *rate.Limiter
}

func NewThrottle(perSec float64, burst int) *Throttle {
	if perSec <= 0 {
		return &Throttle{lim: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttle{lim: rate.NewLimiter(rate.Limit(perSec), burst)}
}

// Wait блокируется до свободного токена или отмены контекста.
func (t *Throttle) Wait(ctx context.Context) error {
	if err := t.lim.Wait(ctx); err != nil {
		return models.WrapKind(models.KindRateLimit, err, "local throttle")
	}
	return nil
}

// Allow: неблокирующая проверка, для тестов и health.
func (t *Throttle) Allow() bool {
	return t.lim.Allow()
}
