package service

import (
	"exec_bot/internal/models"

	"github.com/shopspring/decimal"
)

// compositeAlgo: индикатор даёт сторону, исполнение идёт через twap/vwap/iceberg.
// Пока подсостояние не исчерпано, новые сигналы игнорируются.
type compositeAlgo struct {
	signal     *signalAlgo
	execKind   models.StrategyType
	execParams models.Params
	lookup     OrderLookup
	step       decimal.Decimal

	running algo
	runs    int
}

func newComposite(p models.Params, lookup OrderLookup, step decimal.Decimal) (*compositeAlgo, error) {
	sigP := p.Sub("signal")
	execP := p.Sub("exec")
	if sigP == nil || execP == nil {
		return nil, models.NewError(models.KindValidation, "composite: signal and exec are required")
	}

	sigKind := models.StrategyType(sigP.String("type", ""))
	gen, err := newSignal(sigKind, sigP)
	if err != nil {
		return nil, err
	}

	execKind := models.StrategyType(execP.String("type", ""))
	c := &compositeAlgo{
		signal:     &signalAlgo{gen: gen},
		execKind:   execKind,
		execParams: execP,
		lookup:     lookup,
		step:       step,
	}
	// проверяем параметры исполнения сразу, а не на первом сигнале
	if _, err := c.buildExec(models.SideBuy, 1); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *compositeAlgo) buildExec(side models.Side, last float64) (algo, error) {
	p := make(models.Params, len(c.execParams)+1)
	for k, v := range c.execParams {
		p[k] = v
	}
	p["side"] = string(side)

	switch c.execKind {
	case models.StrategyTWAP:
		return newTWAP(p, c.step)
	case models.StrategyVWAP:
		return newVWAP(p, c.step)
	case models.StrategyIceberg:
		if !p.Has("price") {
			p["price"] = decimal.NewFromFloat(last)
		}
		return newIceberg(p, c.lookup, c.step)
	}
	return nil, models.NewError(models.KindValidation, "composite: exec type must be twap, vwap or iceberg, got %q", c.execKind)
}

func (c *compositeAlgo) done() bool { return false }

// Runs: сколько раз запускалось исполнение.
func (c *compositeAlgo) Runs() int { return c.runs }

func (c *compositeAlgo) step(s models.Snapshot) []models.OrderRequest {
	last := s.Last()
	if c.running != nil && !c.running.done() {
		// сигнал считаем и во время исполнения, чтобы память сторон не устаревала
		c.signal.edge(last)
		return c.running.step(s)
	}
	c.running = nil

	side := c.signal.edge(last)
	if side == "" {
		return nil
	}
	exec, err := c.buildExec(side, last)
	if err != nil {
		return nil
	}
	c.running = exec
	c.runs++
	return exec.step(s)
}
