package service

import (
	"net/http"
	"strings"

	"exec_bot/internal/helper"
	"exec_bot/internal/models"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type orderRequest struct {
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side"`
	Type          string          `json:"type"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	StopPrice     decimal.Decimal `json:"stop_price"`
	TimeInForce   string          `json:"time_in_force"`
	ClientOrderID string          `json:"client_order_id"`
	ReduceOnly    bool            `json:"reduce_only"`
	PositionSide  string          `json:"position_side"`
}

type orderResponse struct {
	ID            string             `json:"id"`
	ClientOrderID string             `json:"client_order_id"`
	Status        models.OrderStatus `json:"status"`
}

func (r orderRequest) toModel() (models.OrderRequest, error) {
	side, ok := models.ParseSide(r.Side)
	if !ok {
		return models.OrderRequest{}, models.NewError(models.KindValidation, "bad side %q", r.Side)
	}
	typ := models.OrderType(strings.ToUpper(strings.TrimSpace(r.Type)))
	if typ == "" {
		typ = models.OrderTypeMarket
	}
	return models.OrderRequest{
		ClientOrderID: r.ClientOrderID,
		Symbol:        helper.NormSymbol(r.Symbol),
		Side:          side,
		Type:          typ,
		Quantity:      r.Quantity,
		Price:         r.Price,
		StopPrice:     r.StopPrice,
		TimeInForce:   models.TimeInForce(strings.ToUpper(r.TimeInForce)),
		ReduceOnly:    r.ReduceOnly,
		PositionSide:  models.PositionSide(strings.ToUpper(r.PositionSide)),
	}, nil
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var body orderRequest
	if err := decode(r, &body); err != nil {
		respondError(w, err)
		return
	}
	req, err := body.toModel()
	if err != nil {
		respondError(w, err)
		return
	}
	o, err := s.deps.Orders.Submit(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, orderResponse{ID: o.ID, ClientOrderID: o.ClientOrderID, Status: o.Status})
}

func (s *Server) handleOpenOrders(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Orders.OpenOrders())
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.deps.Orders.Get(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.deps.Orders.Cancel(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (s *Server) handlePositions(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Orders.Positions())
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	symbol := helper.NormSymbol(mux.Vars(r)["symbol"])
	snap, ok := s.deps.Market.Last(symbol)
	if !ok {
		respondError(w, models.NewError(models.KindNotFound, "no snapshot for %s", symbol))
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// futuresRequest: один объект или пакет: symbols + общие настройки.
type futuresRequest struct {
	models.FuturesSettings
	Symbols []string `json:"symbols"`
}

func (s *Server) handleFuturesSettings(w http.ResponseWriter, r *http.Request) {
	var req futuresRequest
	if err := decode(r, &req); err != nil {
		respondError(w, err)
		return
	}
	symbols := req.Symbols
	if len(symbols) == 0 {
		if req.Symbol == "" {
			respondError(w, models.NewError(models.KindValidation, "symbol or symbols is required"))
			return
		}
		symbols = []string{req.Symbol}
	}
	settings := make([]models.FuturesSettings, 0, len(symbols))
	for _, sym := range symbols {
		one := req.FuturesSettings
		one.Symbol = sym
		settings = append(settings, one)
	}

	results := s.deps.Futures(r.Context(), settings)
	status := http.StatusOK
	for _, res := range results {
		if !res.OK {
			status = http.StatusMultiStatus
			break
		}
	}
	respondJSON(w, status, results)
}
