package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"exec_bot/internal/models"
	"exec_bot/pkg/logger"

	"github.com/pkg/errors"
)

// ApplyFuturesSettings выставляет плечо, режим маржи и режим позиции.
// Ответы «ничего не изменилось» (-4046, -4059, -4028) ошибкой не считаются.
func (l *Live) ApplyFuturesSettings(ctx context.Context, s models.FuturesSettings) error {
	if s.Symbol == "" {
		return models.NewError(models.KindValidation, "futures settings: empty symbol")
	}

	if s.Leverage > 0 {
		p := url.Values{}
		p.Set("symbol", s.Symbol)
		p.Set("leverage", strconv.Itoa(s.Leverage))
		if err := ignoreNoop(l.do(ctx, http.MethodPost, "/fapi/v1/leverage", p, true, nil), codeNoLevChange); err != nil {
			return errors.Wrapf(err, "leverage %s", s.Symbol)
		}
	}

	if s.MarginMode != "" {
		p := url.Values{}
		p.Set("symbol", s.Symbol)
		p.Set("marginType", string(s.MarginMode))
		if err := ignoreNoop(l.do(ctx, http.MethodPost, "/fapi/v1/marginType", p, true, nil), codeNoMarginChange); err != nil {
			return errors.Wrapf(err, "margin type %s", s.Symbol)
		}
	}

	if s.PositionMode != "" {
		p := url.Values{}
		p.Set("dualSidePosition", strconv.FormatBool(s.PositionMode == models.PositionModeHedge))
		if err := ignoreNoop(l.do(ctx, http.MethodPost, "/fapi/v1/positionSide/dual", p, true, nil), codeNoDualChange); err != nil {
			return errors.Wrap(err, "position mode")
		}
	}

	logger.Info("[EXCHANGE] futures settings applied: %s lev=%d margin=%s mode=%s",
		s.Symbol, s.Leverage, s.MarginMode, s.PositionMode)
	return nil
}

func ignoreNoop(err error, code int) error {
	if err == nil {
		return nil
	}
	var e *models.Error
	if errors.As(err, &e) && e.Code == code {
		return nil
	}
	return err
}
