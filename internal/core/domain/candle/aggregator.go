// internal/core/domain/candle/aggregator.go
package candle

import (
	"deriv-streak-monitor/internal/types"
)

// Aggregate строит свечи open/close из тиков для пары (cycle, offset).
// Тики должны быть уже упорядочены по SortKey (так их отдает хранилище),
// поэтому open — первый тик бакета, close — последний.
//
// Бакет из одного тика дает open == close (серая свеча).
// Пустые бакеты в выводе отсутствуют — разрывы по времени
// детектирует скоринг серий, а не агрегатор.
func Aggregate(ticks []types.Tick, cycle, offset int64) []types.Candle {
	if len(ticks) == 0 || cycle <= 0 {
		return nil
	}

	candles := make([]types.Candle, 0, len(ticks)/8+1)

	curBucket := types.BucketStart(ticks[0].Epoch, cycle, offset)
	open := ticks[0].Price
	close := ticks[0].Price

	for _, tick := range ticks[1:] {
		bucket := types.BucketStart(tick.Epoch, cycle, offset)
		if bucket != curBucket {
			candles = append(candles, types.Candle{
				BucketStart: curBucket,
				Open:        open,
				Close:       close,
				Color:       types.CandleColor(open, close),
			})
			curBucket = bucket
			open = tick.Price
		}
		close = tick.Price
	}

	candles = append(candles, types.Candle{
		BucketStart: curBucket,
		Open:        open,
		Close:       close,
		Color:       types.CandleColor(open, close),
	})

	return candles
}
