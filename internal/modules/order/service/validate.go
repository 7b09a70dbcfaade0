package service

import (
	"exec_bot/internal/helper"
	"exec_bot/internal/models"

	"github.com/shopspring/decimal"
)

// Validator: локальные проверки до сети: фильтры инструмента и риск-лимиты.
type Validator struct {
	MaxQty      decimal.Decimal // 0 = без лимита
	MaxNotional decimal.Decimal // 0 = без лимита
}

// Validate округляет объём вниз до шага, цену к тику (buy вниз, sell вверх)
// и проверяет минимумы. last: цена для оценки notional у market ордеров.
func (v Validator) Validate(req models.OrderRequest, inst models.Instrument, last decimal.Decimal) (models.OrderRequest, error) {
	if req.Symbol == "" {
		return req, models.NewError(models.KindValidation, "symbol is required")
	}
	if req.Side != models.SideBuy && req.Side != models.SideSell {
		return req, models.NewError(models.KindValidation, "bad side %q", req.Side)
	}
	switch req.Type {
	case models.OrderTypeMarket, models.OrderTypeLimit, models.OrderTypeStopMarket, models.OrderTypeStopLimit:
	default:
		return req, models.NewError(models.KindValidation, "bad order type %q", req.Type)
	}

	req.Quantity = helper.RoundDownToStep(req.Quantity, inst.StepSize)
	if !req.Quantity.IsPositive() {
		return req, models.NewError(models.KindValidation, "quantity is zero after rounding to step %s", inst.StepSize)
	}
	if inst.MinQty.IsPositive() && req.Quantity.LessThan(inst.MinQty) {
		return req, models.NewError(models.KindValidation, "quantity %s below min %s", req.Quantity, inst.MinQty)
	}

	if req.Type.NeedsPrice() {
		if !req.Price.IsPositive() {
			return req, models.NewError(models.KindValidation, "%s order requires price", req.Type)
		}
		req.Price = roundPrice(req.Price, inst.TickSize, req.Side)
	} else {
		req.Price = decimal.Zero
	}
	if req.Type == models.OrderTypeStopMarket || req.Type == models.OrderTypeStopLimit {
		if !req.StopPrice.IsPositive() {
			return req, models.NewError(models.KindValidation, "%s order requires stop price", req.Type)
		}
		req.StopPrice = roundPrice(req.StopPrice, inst.TickSize, req.Side)
	}

	ref := req.Price
	if !ref.IsPositive() {
		ref = last
	}
	notional := req.Quantity.Mul(ref)
	// reduce-only закрывает позицию, минимальный notional к нему не применяется
	if !req.ReduceOnly && inst.MinNotional.IsPositive() && ref.IsPositive() && notional.LessThan(inst.MinNotional) {
		return req, models.NewError(models.KindValidation, "notional %s below min %s", notional, inst.MinNotional)
	}

	if v.MaxQty.IsPositive() && req.Quantity.GreaterThan(v.MaxQty) {
		return req, models.NewError(models.KindValidation, "quantity %s exceeds risk limit %s", req.Quantity, v.MaxQty)
	}
	if v.MaxNotional.IsPositive() && ref.IsPositive() && notional.GreaterThan(v.MaxNotional) {
		return req, models.NewError(models.KindValidation, "notional %s exceeds risk limit %s", notional, v.MaxNotional)
	}
	return req, nil
}

func roundPrice(px, tick decimal.Decimal, side models.Side) decimal.Decimal {
	if side == models.SideBuy {
		return helper.RoundDownToTick(px, tick)
	}
	return helper.RoundUpToTick(px, tick)
}
