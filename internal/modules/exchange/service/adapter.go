package service

import (
	"context"

	"exec_bot/internal/models"
)

// Adapter: единая поверхность над реальной или симулированной биржей.
// Все ошибки наружу уже классифицированы (*models.Error с Kind).
type Adapter interface {
	SubmitOrder(ctx context.Context, o models.Order) (models.Order, error)
	CancelOrder(ctx context.Context, symbol, id string) error
	QueryOrder(ctx context.Context, symbol, id string) (models.Order, error)
	// QueryByClientID ищет ордер по client id: ответ на отправку мог потеряться.
	QueryByClientID(ctx context.Context, symbol, clientID string) (models.Order, error)
	OpenOrders(ctx context.Context, symbol string) ([]models.Order, error)

	Snapshot(ctx context.Context, symbol string) (models.Snapshot, error)
	Instrument(ctx context.Context, symbol string) (models.Instrument, error)

	ApplyFuturesSettings(ctx context.Context, s models.FuturesSettings) error
	SyncTime(ctx context.Context) error

	Name() string
}
