package service

import (
	"net/http"

	"exec_bot/internal/models"
)

// Коды ошибок Binance Futures, которые влияют на политику ретраев.
const (
	codeDisconnected   = -1001
	codeTooManyReqs    = -1003
	codeTimestamp      = -1021
	codeInvalidQty     = -1013
	codeBadPrecision   = -1111
	codeRejected       = -2010
	codeUnknownOrder   = -2011
	codeNoSuchOrder    = -2013
	codeMinNotional    = -4164
	codeDupClientID    = -4116
	codeNoMarginChange = -4046
	codeNoDualChange   = -4059
	codeNoLevChange    = -4028
)

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// classify переводит ответ биржи в *models.Error с нужным Kind.
func classify(status int, body apiError) *models.Error {
	code := body.Code
	if code == 0 {
		code = status
	}
	e := &models.Error{Code: code, Msg: body.Msg}
	if e.Msg == "" {
		e.Msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusTooManyRequests || status == http.StatusTeapot || body.Code == codeTooManyReqs:
		e.Kind = models.KindRateLimit
	case body.Code == codeTimestamp:
		e.Kind = models.KindClockDrift
	case status >= 500 || body.Code == codeDisconnected:
		e.Kind = models.KindTransient
	case body.Code == codeUnknownOrder || body.Code == codeNoSuchOrder:
		e.Kind = models.KindNotFound
	case body.Code == codeDupClientID:
		// ордер с этим client id уже на бирже, скорее всего прошлая попытка дошла
		e.Kind = models.KindDuplicate
	default:
		// -1013, -1111, -2010, -4164 и прочие 4xx
		e.Kind = models.KindRejection
	}
	return e
}

// transportError: сеть, таймаут, обрыв соединения.
func transportError(err error) *models.Error {
	return models.WrapKind(models.KindTransient, err, "transport")
}
