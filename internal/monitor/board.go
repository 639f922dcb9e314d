// internal/monitor/board.go
package monitor

import (
	"sync"
	"time"

	"deriv-streak-monitor/internal/types"
)

// Board - явный синхронизированный "последний снапшот" вместо
// разделяемого глобального состояния. Пишут планировщик (снапшот,
// статус) и live-подписчик (цена); читает HTTP-дашборд.
type Board struct {
	mu       sync.RWMutex
	status   string
	price    float64
	snapshot types.Snapshot
}

// NewBoard создает доску с начальным статусом
func NewBoard(status string) *Board {
	return &Board{
		status: status,
		snapshot: types.Snapshot{
			Status: status,
			Kings:  []types.King{},
		},
	}
}

// SetPrice обновляет последнюю цену (вызывается на каждом live-тике)
func (b *Board) SetPrice(price float64) {
	b.mu.Lock()
	b.price = price
	b.mu.Unlock()
}

// SetStatus обновляет строку статуса ("Backfilling...", "Active")
func (b *Board) SetStatus(status string) {
	b.mu.Lock()
	b.status = status
	b.mu.Unlock()
}

// Price возвращает последнюю цену
func (b *Board) Price() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.price
}

// Status возвращает текущий статус
func (b *Board) Status() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// Publish сохраняет результат прохода анализа
func (b *Board) Publish(kings []types.King, cfg types.AnalysisConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if kings == nil {
		kings = []types.King{}
	}
	b.snapshot = types.Snapshot{
		Status:     b.status,
		LastUpdate: time.Now().UTC().Format("2006-01-02 15:04:05"),
		Price:      b.price,
		Kings:      kings,
		Config:     cfg,
	}
}

// Snapshot возвращает последний опубликованный снапшот
// с актуальными статусом и ценой
func (b *Board) Snapshot() types.Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := b.snapshot
	snap.Status = b.status
	snap.Price = b.price
	return snap
}
