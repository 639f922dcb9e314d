// internal/types/king.go
package types

import "fmt"

// StreakKey - ключ короля: цвет + длина серии
type StreakKey struct {
	Color Color
	Level int
}

// King - сильнейший результат для пары (цвет, длина серии)
// по всей сетке разрешений одного прохода анализа
type King struct {
	TF        string  `json:"tf"`    // Метка таймфрейма: "C<cycle>_<offset:02d>"
	Color     Color   `json:"color"` // Red | Green
	Level     int     `json:"level"` // Длина серии
	CurrCount int     `json:"curr"`  // Сколько серий ровно такой длины
	NextCount int     `json:"next"`  // Сколько серий длины level+1
	Strength  float64 `json:"strength"`
}

// TFLabel форматирует метку таймфрейма для пары (cycle, offset)
func TFLabel(cycle, offset int64) string {
	return fmt.Sprintf("C%d_%02d", cycle, offset)
}

// AnalysisConfig - параметры анализа, изменяемые на лету.
// Обновление вступает в силу со следующего прохода.
type AnalysisConfig struct {
	Symbol      string  `json:"symbol"`
	MinCycle    int64   `json:"min_cycle"`
	MaxCycle    int64   `json:"max_cycle"`
	MinStrength float64 `json:"min_strength"`
	MaxStrength float64 `json:"max_strength"`
}

// Snapshot - публикуемый результат одного прохода анализа.
// Потребляется внешним дашбордом (HTTP-поллинг или зеркало в Redis).
type Snapshot struct {
	Status     string         `json:"status"`
	LastUpdate string         `json:"last_update"`
	Price      float64        `json:"price"`
	Kings      []King         `json:"kings"`
	Config     AnalysisConfig `json:"config"`
}
