package service

import (
	"sort"

	"exec_bot/internal/models"

	"github.com/shopspring/decimal"
)

// buildPositions сворачивает исполнения в нетто-позиции по символам.
// Средняя цена входа взвешенная; при сокращении фиксируется realized PnL,
// при развороте вход переносится на цену разворота.
func buildPositions(orders []models.Order, mark func(symbol string) (decimal.Decimal, bool)) []models.Position {
	bySymbol := make(map[string]*models.Position)
	for _, o := range orders {
		if !o.FilledQty.IsPositive() {
			continue
		}
		p, ok := bySymbol[o.Symbol]
		if !ok {
			p = &models.Position{Symbol: o.Symbol}
			bySymbol[o.Symbol] = p
		}
		applyFill(p, o.Side, o.FilledQty, o.AvgPrice)
	}

	out := make([]models.Position, 0, len(bySymbol))
	for sym, p := range bySymbol {
		if px, ok := mark(sym); ok {
			p.Mark(px)
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func applyFill(p *models.Position, side models.Side, qty, px decimal.Decimal) {
	signed := qty
	if side == models.SideSell {
		signed = qty.Neg()
	}

	switch {
	case p.Quantity.IsZero() || p.Quantity.Sign() == signed.Sign():
		// набор позиции
		total := p.Quantity.Add(signed)
		p.EntryPrice = p.EntryPrice.Mul(p.Quantity.Abs()).Add(px.Mul(qty)).Div(total.Abs())
		p.Quantity = total

	default:
		closing := decimal.Min(qty, p.Quantity.Abs())
		dir := decimal.NewFromInt(int64(p.Quantity.Sign()))
		p.RealizedPnL = p.RealizedPnL.Add(px.Sub(p.EntryPrice).Mul(closing).Mul(dir))
		p.Quantity = p.Quantity.Add(signed)
		switch {
		case p.Quantity.IsZero():
			p.EntryPrice = decimal.Zero
		case p.Quantity.Sign() == signed.Sign():
			p.EntryPrice = px
		}
	}
}
