// internal/types/candle.go
package types

// Color - цвет свечи
type Color string

const (
	ColorRed   Color = "Red"   // close < open
	ColorGreen Color = "Green" // close > open
	ColorGray  Color = "Gray"  // close == open
)

// Candle - свеча open/close, производная от тиков.
// Не хранится — пересчитывается на каждом проходе анализа.
type Candle struct {
	BucketStart int64   `json:"bucket_start"` // floor((epoch-offset)/cycle)*cycle + offset
	Open        float64 `json:"open"`         // цена тика с минимальным SortKey в бакете
	Close       float64 `json:"close"`        // цена тика с максимальным SortKey в бакете
	Color       Color   `json:"color"`
}

// BucketStart вычисляет начало бакета для тика
func BucketStart(epoch, cycle, offset int64) int64 {
	return ((epoch-offset)/cycle)*cycle + offset
}

// CandleColor определяет цвет по open/close
func CandleColor(open, close float64) Color {
	switch {
	case close < open:
		return ColorRed
	case close > open:
		return ColorGreen
	default:
		return ColorGray
	}
}
