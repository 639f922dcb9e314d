// internal/infrastructure/api/deriv/messages.go
package deriv

// Запросы к Deriv WebSocket API

type authorizeRequest struct {
	Authorize string `json:"authorize"`
}

type ticksHistoryRequest struct {
	TicksHistory    string `json:"ticks_history"`
	Start           int64  `json:"start"`
	End             int64  `json:"end"`
	Count           int    `json:"count"`
	Style           string `json:"style"`
	AdjustStartTime int    `json:"adjust_start_time"`
}

type ticksSubscribeRequest struct {
	Ticks     string `json:"ticks"`
	Subscribe int    `json:"subscribe"`
}

// Ответы Deriv WebSocket API

// APIError - ошибка протокола в теле ответа
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// serverMessage - обобщенное входящее сообщение.
// Фид шлет разнотипные сообщения в одном потоке, различаем по msg_type.
type serverMessage struct {
	MsgType string       `json:"msg_type"`
	Error   *APIError    `json:"error,omitempty"`
	History *historyData `json:"history,omitempty"`
	Tick    *tickData    `json:"tick,omitempty"`
}

// historyData - параллельные массивы времени и цен из ticks_history
type historyData struct {
	Times  []int64   `json:"times"`
	Prices []float64 `json:"prices"`
}

// tickData - один live-тик из подписки
type tickData struct {
	Epoch int64   `json:"epoch"`
	Quote float64 `json:"quote"`
}
