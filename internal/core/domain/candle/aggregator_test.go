// internal/core/domain/candle/aggregator_test.go
package candle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deriv-streak-monitor/internal/types"
)

func ticksAt(pairs ...[2]float64) []types.Tick {
	ticks := make([]types.Tick, 0, len(pairs))
	var prevEpoch int64 = -1
	seq := 0
	for _, p := range pairs {
		epoch := int64(p[0])
		if epoch == prevEpoch {
			seq++
		} else {
			prevEpoch = epoch
			seq = 0
		}
		ticks = append(ticks, types.NewBatchTick(epoch, p[1], seq))
	}
	return ticks
}

func TestBucketStart(t *testing.T) {
	// Тик на 125-й секунде: cycle=60 offset=0 → бакет 120
	assert.Equal(t, int64(120), types.BucketStart(125, 60, 0))
	// Со сдвигом фазы 30 → бакет 90
	assert.Equal(t, int64(90), types.BucketStart(125, 60, 30))
	// Граница бакета принадлежит новому бакету
	assert.Equal(t, int64(120), types.BucketStart(120, 60, 0))
}

func TestAggregateOpenCloseBySortKey(t *testing.T) {
	// Два тика в одну секунду: open — первый по SortKey, close — второй
	ticks := ticksAt([2]float64{10, 1.0}, [2]float64{10, 2.0}, [2]float64{30, 3.0})

	candles := Aggregate(ticks, 60, 0)
	require.Len(t, candles, 1)
	assert.Equal(t, int64(0), candles[0].BucketStart)
	assert.Equal(t, 1.0, candles[0].Open)
	assert.Equal(t, 3.0, candles[0].Close)
	assert.Equal(t, types.ColorGreen, candles[0].Color)
}

func TestAggregateSingleTickBucket(t *testing.T) {
	candles := Aggregate(ticksAt([2]float64{125, 5.0}), 60, 0)

	require.Len(t, candles, 1)
	assert.Equal(t, candles[0].Open, candles[0].Close)
	assert.Equal(t, types.ColorGray, candles[0].Color)
}

func TestAggregateSkipsEmptyBuckets(t *testing.T) {
	// Тики в бакетах 0 и 180, бакеты 60 и 120 пустые
	ticks := ticksAt([2]float64{10, 1.0}, [2]float64{190, 2.0})

	candles := Aggregate(ticks, 60, 0)
	require.Len(t, candles, 2, "пустые бакеты не материализуются")
	assert.Equal(t, int64(0), candles[0].BucketStart)
	assert.Equal(t, int64(180), candles[1].BucketStart)
}

func TestAggregateColors(t *testing.T) {
	ticks := ticksAt(
		[2]float64{5, 2.0}, [2]float64{15, 1.0}, // бакет 0: красная
		[2]float64{65, 1.0}, [2]float64{75, 2.0}, // бакет 60: зеленая
		[2]float64{125, 1.5}, [2]float64{135, 1.5}, // бакет 120: серая
	)

	candles := Aggregate(ticks, 60, 0)
	require.Len(t, candles, 3)
	assert.Equal(t, types.ColorRed, candles[0].Color)
	assert.Equal(t, types.ColorGreen, candles[1].Color)
	assert.Equal(t, types.ColorGray, candles[2].Color)
}

func TestAggregateOffsetShiftsBuckets(t *testing.T) {
	ticks := ticksAt([2]float64{125, 1.0})

	atZero := Aggregate(ticks, 60, 0)
	atThirty := Aggregate(ticks, 60, 30)

	require.Len(t, atZero, 1)
	require.Len(t, atThirty, 1)
	assert.Equal(t, int64(120), atZero[0].BucketStart)
	assert.Equal(t, int64(90), atThirty[0].BucketStart)
}

func TestAggregateDeterministic(t *testing.T) {
	ticks := ticksAt(
		[2]float64{5, 2.0}, [2]float64{65, 1.0}, [2]float64{66, 1.2},
		[2]float64{130, 3.0}, [2]float64{250, 2.2},
	)

	first := Aggregate(ticks, 60, 0)
	second := Aggregate(ticks, 60, 0)
	assert.Equal(t, first, second)
}

func TestAggregateEmpty(t *testing.T) {
	assert.Nil(t, Aggregate(nil, 60, 0))
}
