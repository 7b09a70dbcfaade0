package service

import (
	"context"
	"net/http"

	"exec_bot/internal/models"
	strategy "exec_bot/internal/modules/strategy/service"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

type Strategies interface {
	Register(s strategy.Strategy) error
	Remove(name string) error
	Toggle(name string, active bool) error
	List() []models.StrategyInfo
}

type Builder interface {
	Build(cfg models.StrategyConfig) (strategy.Strategy, error)
}

type Orders interface {
	Submit(ctx context.Context, req models.OrderRequest) (models.Order, error)
	Cancel(ctx context.Context, id string) (models.Order, error)
	Get(id string) (models.Order, error)
	OpenOrders() []models.Order
	Positions() []models.Position
}

type Market interface {
	Last(symbol string) (models.Snapshot, bool)
}

// Futures применяет настройки по списку символов.
type Futures func(ctx context.Context, settings []models.FuturesSettings) []models.FuturesResult

type Deps struct {
	Strategies Strategies
	Builder    Builder
	Orders     Orders
	Market     Market
	Futures    Futures
}

type Server struct {
	deps   Deps
	router *mux.Router
}

func NewServer(deps Deps) *Server {
	s := &Server{deps: deps, router: mux.NewRouter()}
	s.setupRoutes()
	return s
}

// Router: корень; сюда же вешаются пробы health.
func (s *Server) Router() *mux.Router { return s.router }

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/strategies", s.handleListStrategies).Methods(http.MethodGet)
	api.HandleFunc("/strategies", s.handleCreateStrategy).Methods(http.MethodPost)
	api.HandleFunc("/strategies/{name}/toggle", s.handleToggleStrategy).Methods(http.MethodPost)
	api.HandleFunc("/strategies/{name}", s.handleDeleteStrategy).Methods(http.MethodDelete)

	api.HandleFunc("/orders", s.handleSubmitOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders", s.handleOpenOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.handleCancelOrder).Methods(http.MethodDelete)

	api.HandleFunc("/futures/settings", s.handleFuturesSettings).Methods(http.MethodPost)
	api.HandleFunc("/market/{symbol}", s.handleMarket).Methods(http.MethodGet)
	api.HandleFunc("/positions", s.handlePositions).Methods(http.MethodGet)
}

// Handler: роутер под CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.router)
}
