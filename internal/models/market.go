package models

import "time"

// Snapshot: один срез рынка по символу за цикл опроса.
type Snapshot struct {
	Symbol string    `json:"symbol"`
	Time   time.Time `json:"time"`
	Price  float64   `json:"price"`

	Open   float64 `json:"open,omitempty"`
	High   float64 `json:"high,omitempty"`
	Low    float64 `json:"low,omitempty"`
	Close  float64 `json:"close,omitempty"`
	Volume float64 `json:"volume,omitempty"` // накопленный объём источника
}

// Last цена для расчётов: Price, а без него Close.
func (s Snapshot) Last() float64 {
	if s.Price > 0 {
		return s.Price
	}
	return s.Close
}
