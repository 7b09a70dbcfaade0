package service

import (
	"exec_bot/internal/models"

	"github.com/shopspring/decimal"
)

// signal отдаёт событие на текущем тике: SideBuy, SideSell или "".
type signal interface {
	update(price float64) models.Side
}

type maCross struct {
	fast, slow *sma
	prevDiff   float64
	hasPrev    bool
}

func (m *maCross) update(price float64) models.Side {
	m.fast.Update(price)
	m.slow.Update(price)
	if !m.slow.Ready() || !m.fast.Ready() {
		return ""
	}
	diff := m.fast.Value() - m.slow.Value()
	defer func() { m.prevDiff, m.hasPrev = diff, true }()
	return crossed(m.hasPrev, m.prevDiff, diff)
}

type rsiSignal struct {
	rsi                  *rsiState
	oversold, overbought float64
	prev                 float64
	hasPrev              bool
}

// выход вверх из зоны перепроданности даёт покупку, вниз из перекупленности продажу
func (r *rsiSignal) update(price float64) models.Side {
	r.rsi.Update(price)
	if !r.rsi.Ready() {
		return ""
	}
	v := r.rsi.Value()
	defer func() { r.prev, r.hasPrev = v, true }()
	if !r.hasPrev {
		return ""
	}
	switch {
	case r.prev < r.oversold && v >= r.oversold:
		return models.SideBuy
	case r.prev > r.overbought && v <= r.overbought:
		return models.SideSell
	}
	return ""
}

type macdSignal struct {
	macd     *macdState
	prevDiff float64
	hasPrev  bool
}

func (m *macdSignal) update(price float64) models.Side {
	m.macd.Update(price)
	if !m.macd.Ready() {
		return ""
	}
	diff := m.macd.Line() - m.macd.Signal()
	defer func() { m.prevDiff, m.hasPrev = diff, true }()
	return crossed(m.hasPrev, m.prevDiff, diff)
}

// multiSignal: MA, RSI и MACD голосуют, каждый своим последним событием.
// Событие выдаётся, когда за одну сторону набирается minAgree голосов и эта
// сторона отличается от прошлого консенсуса.
type multiSignal struct {
	gens     []signal
	votes    []models.Side
	minAgree int
	agreed   models.Side
}

func (m *multiSignal) update(price float64) models.Side {
	for i, g := range m.gens {
		if ev := g.update(price); ev != "" {
			m.votes[i] = ev
		}
	}
	cur := m.consensus()
	if cur == m.agreed {
		return ""
	}
	m.agreed = cur
	return cur
}

func (m *multiSignal) consensus() models.Side {
	var buy, sell int
	for _, v := range m.votes {
		switch v {
		case models.SideBuy:
			buy++
		case models.SideSell:
			sell++
		}
	}
	switch {
	case buy >= m.minAgree:
		return models.SideBuy
	case sell >= m.minAgree:
		return models.SideSell
	}
	return ""
}

func crossed(hasPrev bool, prev, cur float64) models.Side {
	if !hasPrev {
		return ""
	}
	if prev <= 0 && cur > 0 {
		return models.SideBuy
	}
	if prev >= 0 && cur < 0 {
		return models.SideSell
	}
	return ""
}

// signalAlgo: индикаторная стратегия: один MARKET на каждую смену стороны.
type signalAlgo struct {
	gen  signal
	qty  decimal.Decimal
	last models.Side
}

// edge: сторона нового сигнала или "". Подавляется только повтор той же
// стороны на следующем тике подряд; тик без сигнала сбрасывает память, так что
// повторный выход RSI из той же зоны снова даёт ордер.
func (a *signalAlgo) edge(price float64) models.Side {
	ev := a.gen.update(price)
	if ev == "" {
		a.last = ""
		return ""
	}
	if ev == a.last {
		return ""
	}
	a.last = ev
	return ev
}

func (a *signalAlgo) step(s models.Snapshot) []models.OrderRequest {
	side := a.edge(s.Last())
	if side == "" {
		return nil
	}
	return []models.OrderRequest{marketOrder(side, a.qty)}
}

func (a *signalAlgo) done() bool { return false }

func newSignal(kind models.StrategyType, p models.Params) (signal, error) {
	switch kind {
	case models.StrategyMACrossover:
		fast, err := p.Int("fast", 10)
		if err != nil {
			return nil, err
		}
		slow, err := p.Int("slow", 30)
		if err != nil {
			return nil, err
		}
		if fast < 1 || slow <= fast {
			return nil, models.NewError(models.KindValidation, "ma_crossover: need 1 <= fast < slow, got %d/%d", fast, slow)
		}
		return &maCross{fast: newSMA(fast), slow: newSMA(slow)}, nil

	case models.StrategyRSI:
		period, err := p.Int("period", 14)
		if err != nil {
			return nil, err
		}
		oversold, err := p.Float("oversold", 30)
		if err != nil {
			return nil, err
		}
		overbought, err := p.Float("overbought", 70)
		if err != nil {
			return nil, err
		}
		if period < 2 || oversold <= 0 || overbought >= 100 || oversold >= overbought {
			return nil, models.NewError(models.KindValidation, "rsi: bad params period=%d oversold=%v overbought=%v", period, oversold, overbought)
		}
		return &rsiSignal{rsi: newRSI(period), oversold: oversold, overbought: overbought}, nil

	case models.StrategyMACD:
		fast, err := p.Int("fast", 12)
		if err != nil {
			return nil, err
		}
		slow, err := p.Int("slow", 26)
		if err != nil {
			return nil, err
		}
		sig, err := p.Int("signal", 9)
		if err != nil {
			return nil, err
		}
		if fast < 1 || slow <= fast || sig < 1 {
			return nil, models.NewError(models.KindValidation, "macd: need 1 <= fast < slow and signal >= 1")
		}
		return &macdSignal{macd: newMACD(fast, slow, sig)}, nil

	case models.StrategyMulti:
		return newMultiSignal(p)
	}
	return nil, models.NewError(models.KindValidation, "%s is not an indicator strategy", kind)
}

func newSignalAlgo(kind models.StrategyType, p models.Params) (*signalAlgo, error) {
	gen, err := newSignal(kind, p)
	if err != nil {
		return nil, err
	}
	qty, err := p.Decimal("quantity", decimal.NewFromInt(1))
	if err != nil {
		return nil, err
	}
	if !qty.IsPositive() {
		return nil, models.NewError(models.KindValidation, "%s: quantity must be positive", kind)
	}
	return &signalAlgo{gen: gen, qty: qty}, nil
}

// newMultiSignal: параметры с префиксами ma_, rsi_, macd_; по умолчанию
// 12/26, 14 30/70, 12/26/9 и два голоса из трёх.
func newMultiSignal(p models.Params) (signal, error) {
	sub := func(prefix string, keys ...string) models.Params {
		out := models.Params{}
		for _, k := range keys {
			if v, ok := p[prefix+k]; ok {
				out[k] = v
			}
		}
		return out
	}

	maP := sub("ma_", "fast", "slow")
	if !maP.Has("fast") {
		maP["fast"] = 12
	}
	if !maP.Has("slow") {
		maP["slow"] = 26
	}
	ma, err := newSignal(models.StrategyMACrossover, maP)
	if err != nil {
		return nil, err
	}
	rsi, err := newSignal(models.StrategyRSI, sub("rsi_", "period", "oversold", "overbought"))
	if err != nil {
		return nil, err
	}
	macd, err := newSignal(models.StrategyMACD, sub("macd_", "fast", "slow", "signal"))
	if err != nil {
		return nil, err
	}

	minAgree, err := p.Int("min_agree", 2)
	if err != nil {
		return nil, err
	}
	if minAgree < 2 || minAgree > 3 {
		return nil, models.NewError(models.KindValidation, "multi_indicator: min_agree must be 2 or 3, got %d", minAgree)
	}
	return &multiSignal{
		gens:     []signal{ma, rsi, macd},
		votes:    make([]models.Side, 3),
		minAgree: minAgree,
	}, nil
}
