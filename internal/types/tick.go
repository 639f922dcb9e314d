// internal/types/tick.go
package types

// SortKeyFactor — множитель для ключа сортировки тика.
// Оставляет место для 100000 тиков внутри одной секунды.
const SortKeyFactor = 100000

// Tick - один тик цены от фида
type Tick struct {
	Epoch   int64   `json:"epoch"`    // Время в секундах UTC
	Price   float64 `json:"price"`    // Цена (quote)
	SortKey int64   `json:"sort_key"` // Уникальный ключ: epoch*100000 + seq
}

// NewBatchTick создает тик из исторической пачки.
// seq — порядковый номер тика внутри секунды, чтобы тики с одинаковым
// epoch сохраняли стабильный относительный порядок.
func NewBatchTick(epoch int64, price float64, seq int) Tick {
	return Tick{
		Epoch:   epoch,
		Price:   price,
		SortKey: epoch*SortKeyFactor + int64(seq),
	}
}

// NewLiveTick создает тик из live-подписки (seq всегда 0,
// поэтому пересечение с backfill-диапазоном дедуплицируется само)
func NewLiveTick(epoch int64, price float64) Tick {
	return Tick{
		Epoch:   epoch,
		Price:   price,
		SortKey: epoch * SortKeyFactor,
	}
}
