package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"exec_bot/internal/models"
)

type binanceOrder struct {
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Symbol        string `json:"symbol"`
	Status        string `json:"status"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	TimeInForce   string `json:"timeInForce"`
	PositionSide  string `json:"positionSide"`
	ReduceOnly    bool   `json:"reduceOnly"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
	Price         string `json:"price"`
	AvgPrice      string `json:"avgPrice"`
	StopPrice     string `json:"stopPrice"`
	Time          int64  `json:"time"`
	UpdateTime    int64  `json:"updateTime"`
}

func mapStatus(s string) models.OrderStatus {
	switch s {
	case "NEW":
		return models.StatusAccepted
	case "PARTIALLY_FILLED":
		return models.StatusPartiallyFilled
	case "FILLED":
		return models.StatusFilled
	case "CANCELED", "EXPIRED", "EXPIRED_IN_MATCH":
		return models.StatusCancelled
	case "REJECTED":
		return models.StatusRejected
	default:
		return models.StatusPending
	}
}

// exchangeType: у Binance стоп-лимит называется STOP.
func exchangeType(t models.OrderType) string {
	if t == models.OrderTypeStopLimit {
		return "STOP"
	}
	return string(t)
}

func localType(t string) models.OrderType {
	if t == "STOP" {
		return models.OrderTypeStopLimit
	}
	return models.OrderType(t)
}

func (b binanceOrder) toModel() models.Order {
	dec := decOrZero
	o := models.Order{
		ID:            strconv.FormatInt(b.OrderID, 10),
		ClientOrderID: b.ClientOrderID,
		Symbol:        b.Symbol,
		Side:          models.Side(b.Side),
		Type:          localType(b.Type),
		Quantity:      dec(b.OrigQty),
		Price:         dec(b.Price),
		StopPrice:     dec(b.StopPrice),
		TimeInForce:   models.TimeInForce(b.TimeInForce),
		ReduceOnly:    b.ReduceOnly,
		PositionSide:  models.PositionSide(b.PositionSide),
		Status:        mapStatus(b.Status),
		FilledQty:     dec(b.ExecutedQty),
		AvgPrice:      dec(b.AvgPrice),
	}
	if b.Time > 0 {
		o.CreatedAt = time.UnixMilli(b.Time)
	}
	if b.UpdateTime > 0 {
		o.UpdatedAt = time.UnixMilli(b.UpdateTime)
	}
	return o
}

func orderParams(o models.Order) url.Values {
	p := url.Values{}
	p.Set("symbol", o.Symbol)
	p.Set("side", string(o.Side))
	p.Set("type", exchangeType(o.Type))
	p.Set("quantity", o.Quantity.String())
	if o.Type.NeedsPrice() {
		p.Set("price", o.Price.String())
		tif := o.TimeInForce
		if tif == "" {
			tif = models.GTC
		}
		p.Set("timeInForce", string(tif))
	}
	if o.Type == models.OrderTypeStopMarket || o.Type == models.OrderTypeStopLimit {
		p.Set("stopPrice", o.StopPrice.String())
	}
	if o.ReduceOnly {
		p.Set("reduceOnly", "true")
	}
	if o.PositionSide != "" && o.PositionSide != models.PositionBoth {
		p.Set("positionSide", string(o.PositionSide))
	}
	if o.ClientOrderID != "" {
		p.Set("newClientOrderId", o.ClientOrderID)
	}
	p.Set("newOrderRespType", "RESULT")
	return p
}

func (l *Live) SubmitOrder(ctx context.Context, o models.Order) (models.Order, error) {
	var resp binanceOrder
	if err := l.do(ctx, http.MethodPost, "/fapi/v1/order", orderParams(o), true, &resp); err != nil {
		return models.Order{}, err
	}
	out := resp.toModel()
	out.Strategy = o.Strategy
	if out.CreatedAt.IsZero() {
		out.CreatedAt = o.CreatedAt
	}
	return out, nil
}

func (l *Live) CancelOrder(ctx context.Context, symbol, id string) error {
	p := url.Values{}
	p.Set("symbol", symbol)
	p.Set("orderId", id)
	return l.do(ctx, http.MethodDelete, "/fapi/v1/order", p, true, nil)
}

func (l *Live) QueryOrder(ctx context.Context, symbol, id string) (models.Order, error) {
	p := url.Values{}
	p.Set("symbol", symbol)
	p.Set("orderId", id)
	var resp binanceOrder
	if err := l.do(ctx, http.MethodGet, "/fapi/v1/order", p, true, &resp); err != nil {
		return models.Order{}, err
	}
	return resp.toModel(), nil
}

func (l *Live) QueryByClientID(ctx context.Context, symbol, clientID string) (models.Order, error) {
	p := url.Values{}
	p.Set("symbol", symbol)
	p.Set("origClientOrderId", clientID)
	var resp binanceOrder
	if err := l.do(ctx, http.MethodGet, "/fapi/v1/order", p, true, &resp); err != nil {
		return models.Order{}, err
	}
	return resp.toModel(), nil
}

func (l *Live) OpenOrders(ctx context.Context, symbol string) ([]models.Order, error) {
	p := url.Values{}
	if symbol != "" {
		p.Set("symbol", symbol)
	}
	var resp []binanceOrder
	if err := l.do(ctx, http.MethodGet, "/fapi/v1/openOrders", p, true, &resp); err != nil {
		return nil, err
	}
	out := make([]models.Order, 0, len(resp))
	for _, b := range resp {
		out = append(out, b.toModel())
	}
	return out, nil
}
