package service

import (
	"context"
	"strings"

	"exec_bot/internal/helper"
	"exec_bot/internal/models"
	"exec_bot/pkg/logger"
)

// ApplyFutures применяет настройки по символам по очереди.
// Ошибка одного символа не останавливает остальные.
func ApplyFutures(ctx context.Context, a Adapter, settings []models.FuturesSettings) []models.FuturesResult {
	out := make([]models.FuturesResult, 0, len(settings))
	for _, s := range settings {
		s.Symbol = helper.NormSymbol(s.Symbol)
		s.MarginMode = models.MarginMode(strings.ToUpper(string(s.MarginMode)))
		if s.MarginMode == "CROSS" {
			s.MarginMode = models.MarginCross
		}
		s.PositionMode = models.PositionMode(strings.ToUpper(string(s.PositionMode)))

		res := models.FuturesResult{Symbol: s.Symbol, OK: true}
		if err := validFutures(s); err != nil {
			res.OK, res.Error = false, err.Error()
		} else if err := a.ApplyFuturesSettings(ctx, s); err != nil {
			res.OK, res.Error = false, err.Error()
		}
		if !res.OK {
			logger.Warn("[EXCHANGE] futures settings %s: %s", s.Symbol, res.Error)
		}
		out = append(out, res)
	}
	return out
}

func validFutures(s models.FuturesSettings) error {
	if s.Symbol == "" {
		return models.NewError(models.KindValidation, "symbol is required")
	}
	if s.Leverage < 0 || s.Leverage > 125 {
		return models.NewError(models.KindValidation, "leverage %d out of range 1..125", s.Leverage)
	}
	switch s.MarginMode {
	case "", models.MarginCross, models.MarginIsolated:
	default:
		return models.NewError(models.KindValidation, "unknown margin mode %q", s.MarginMode)
	}
	switch s.PositionMode {
	case "", models.PositionModeOneWay, models.PositionModeHedge:
	default:
		return models.NewError(models.KindValidation, "unknown position mode %q", s.PositionMode)
	}
	return nil
}
