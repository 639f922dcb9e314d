// internal/core/domain/streak/scorer.go
package streak

import (
	"deriv-streak-monitor/internal/types"
)

// Histogram - по каждому цвету: длина серии → сколько серий
// ровно такой длины встретилось за один скан (cycle, offset)
type Histogram map[types.Color]map[int]int

// add закрывает серию длины length цвета color
func (h Histogram) add(color types.Color, length int) {
	if length <= 0 {
		return
	}
	if h[color] == nil {
		h[color] = make(map[int]int)
	}
	h[color][length]++
}

// BuildHistogram сканирует свечи по порядку и собирает гистограмму
// длин серий одноцветных, непрерывных по времени свечей.
//
// Правила закрытия серии:
//   - серая свеча закрывает текущую серию и не открывает новую;
//   - разрыв по времени (следующий бакет дальше, чем на один cycle)
//     закрывает серию; сама свеча за разрывом, если она цветная,
//     открывает новую серию длины 1;
//   - смена цвета без разрыва закрывает старую серию и сразу
//     открывает новую длины 1;
//   - в конце скана открытая серия тоже закрывается.
func BuildHistogram(candles []types.Candle, cycle int64) Histogram {
	hist := make(Histogram)

	var runColor types.Color
	runLen := 0
	var prevBucket int64

	for i, c := range candles {
		if i > 0 && c.BucketStart-prevBucket > cycle {
			hist.add(runColor, runLen)
			runLen = 0
		}
		prevBucket = c.BucketStart

		if c.Color == types.ColorGray {
			hist.add(runColor, runLen)
			runLen = 0
			continue
		}

		if runLen > 0 && c.Color == runColor {
			runLen++
			continue
		}

		hist.add(runColor, runLen)
		runColor = c.Color
		runLen = 1
	}

	hist.add(runColor, runLen)
	return hist
}

// Strength - (1 - next/count) * 100: доля серий длины L, которые
// НЕ продлились до L+1. Чем выше, тем надежнее серия этой длины
// обрывается. Определена только при count > 0.
func Strength(count, next int) float64 {
	return (1 - float64(next)/float64(count)) * 100
}

// Score считает кандидатов в короли для одной пары (cycle, offset).
// Свечей меньше minCandles — скоринг не проводится (nil).
// Пара (цвет, длина) попадает в результат, только если её сила
// лежит в [minStrength, maxStrength].
func Score(candles []types.Candle, cycle, offset int64, minStrength, maxStrength float64, minCandles int) map[types.StreakKey]types.King {
	if len(candles) < minCandles {
		return nil
	}

	hist := BuildHistogram(candles, cycle)
	if len(hist) == 0 {
		return nil
	}

	tf := types.TFLabel(cycle, offset)
	kings := make(map[types.StreakKey]types.King)

	for color, lengths := range hist {
		for level, count := range lengths {
			if count <= 0 {
				continue
			}
			next := lengths[level+1]
			strength := Strength(count, next)
			if strength < minStrength || strength > maxStrength {
				continue
			}
			kings[types.StreakKey{Color: color, Level: level}] = types.King{
				TF:        tf,
				Color:     color,
				Level:     level,
				CurrCount: count,
				NextCount: next,
				Strength:  strength,
			}
		}
	}
	return kings
}

// MergeKings вливает кандидатов одного скана в общую карту прохода.
// Для каждой пары (цвет, длина) выживает строго большая сила;
// при точном равенстве остается ранее найденный кандидат —
// сетка сканируется по возрастанию cycle, затем offset,
// поэтому выигрывает первый по порядку обхода.
func MergeKings(dst, src map[types.StreakKey]types.King) {
	for key, cand := range src {
		if cur, ok := dst[key]; !ok || cand.Strength > cur.Strength {
			dst[key] = cand
		}
	}
}
