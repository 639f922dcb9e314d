// internal/core/domain/backfill/deriv_fetcher.go
package backfill

import (
	"context"

	"deriv-streak-monitor/internal/infrastructure/api/deriv"
	"deriv-streak-monitor/internal/types"
)

// DerivFetcher загружает чанк истории через короткоживущее
// соединение: подключение → авторизация → один запрос → закрытие.
// Пул воркеров держит не больше соединений, чем своя ширина.
type DerivFetcher struct {
	wsURL string
	appID string
	token string
}

// NewDerivFetcher создает фетчер истории Deriv
func NewDerivFetcher(wsURL, appID, token string) *DerivFetcher {
	return &DerivFetcher{wsURL: wsURL, appID: appID, token: token}
}

// FetchRange загружает тики полуинтервала [start, end)
func (f *DerivFetcher) FetchRange(ctx context.Context, symbol string, start, end int64) ([]types.Tick, error) {
	client := deriv.NewClient(f.wsURL, f.appID)
	if err := client.Dial(ctx); err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.Authorize(ctx, f.token); err != nil {
		return nil, err
	}

	return client.TicksHistory(ctx, symbol, start, end)
}
