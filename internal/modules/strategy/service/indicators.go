package service

import "math"

// sma: скользящее среднее по кольцевому буферу.
type sma struct {
	period int
	buf    []float64
	pos    int
	sum    float64
	n      int
}

func newSMA(period int) *sma {
	if period < 1 {
		period = 1
	}
	return &sma{period: period, buf: make([]float64, period)}
}

func (m *sma) Update(v float64) {
	if m.n == m.period {
		m.sum -= m.buf[m.pos]
	} else {
		m.n++
	}
	m.buf[m.pos] = v
	m.sum += v
	m.pos = (m.pos + 1) % m.period
}

func (m *sma) Ready() bool    { return m.n == m.period }
func (m *sma) Value() float64 { return m.sum / float64(m.n) }

type emaState struct {
	period int
	alpha  float64
	value  float64
	warmup int
}

func newEMA(period int) emaState {
	if period <= 1 {
		period = 1
	}
	return emaState{
		period: period,
		alpha:  2.0 / (float64(period) + 1),
	}
}

func (e *emaState) Update(price float64) {
	if e.warmup == 0 {
		e.value = price
		e.warmup = 1
		return
	}
	e.value = e.alpha*price + (1-e.alpha)*e.value
	if e.warmup < e.period {
		e.warmup++
	}
}

func (e *emaState) Ready() bool    { return e.warmup >= e.period }
func (e *emaState) Value() float64 { return e.value }

// rsiState: RSI Уайлдера: первые period изменений усредняются просто, дальше сглаживание 1/period.
type rsiState struct {
	period  int
	prev    float64
	avgGain float64
	avgLoss float64
	changes int
	started bool
}

func newRSI(period int) *rsiState {
	if period < 1 {
		period = 1
	}
	return &rsiState{period: period}
}

func (r *rsiState) Update(price float64) {
	if !r.started {
		r.prev = price
		r.started = true
		return
	}
	change := price - r.prev
	r.prev = price
	gain, loss := math.Max(change, 0), math.Max(-change, 0)

	r.changes++
	if r.changes <= r.period {
		r.avgGain += gain / float64(r.period)
		r.avgLoss += loss / float64(r.period)
		return
	}
	n := float64(r.period)
	r.avgGain = (r.avgGain*(n-1) + gain) / n
	r.avgLoss = (r.avgLoss*(n-1) + loss) / n
}

func (r *rsiState) Ready() bool { return r.changes >= r.period }

func (r *rsiState) Value() float64 {
	if r.avgLoss == 0 {
		if r.avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := r.avgGain / r.avgLoss
	return 100 - 100/(1+rs)
}

// macdState: линия MACD (EMA fast - EMA slow) и её сигнальная EMA.
type macdState struct {
	fast, slow, signal emaState
}

func newMACD(fast, slow, signal int) *macdState {
	return &macdState{fast: newEMA(fast), slow: newEMA(slow), signal: newEMA(signal)}
}

func (m *macdState) Update(price float64) {
	m.fast.Update(price)
	m.slow.Update(price)
	if m.slow.Ready() {
		m.signal.Update(m.Line())
	}
}

func (m *macdState) Line() float64   { return m.fast.Value() - m.slow.Value() }
func (m *macdState) Signal() float64 { return m.signal.Value() }
func (m *macdState) Ready() bool     { return m.slow.Ready() && m.signal.Ready() }
