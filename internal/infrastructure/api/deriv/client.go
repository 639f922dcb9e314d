// internal/infrastructure/api/deriv/client.go
package deriv

import (
	"context"
	"fmt"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"deriv-streak-monitor/internal/types"
	"deriv-streak-monitor/pkg/logger"
)

const (
	// historyPageLimit — максимум тиков в одном ответе ticks_history
	historyPageLimit = 5000
)

// Client - клиент Deriv WebSocket API.
// Одно соединение: короткоживущее для backfill-чанков,
// долгоживущее для live-подписки.
type Client struct {
	url  string
	conn *websocket.Conn
}

// NewClient создает клиент для заданного endpoint и app_id
func NewClient(wsURL, appID string) *Client {
	return &Client{
		url: fmt.Sprintf("%s?app_id=%s", wsURL, appID),
	}
}

// Dial устанавливает WebSocket-соединение
func (c *Client) Dial(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("ошибка подключения к фиду: %w", err)
	}
	// Ответ ticks_history на полном чанке не влезает в дефолтные 32KB
	conn.SetReadLimit(1 << 22)
	c.conn = conn
	return nil
}

// Close закрывает соединение без рукопожатия
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.CloseNow()
		c.conn = nil
	}
}

// Authorize отправляет токен и ждет подтверждения.
// Тело ответа не используется — важен только факт успеха.
func (c *Client) Authorize(ctx context.Context, token string) error {
	if err := wsjson.Write(ctx, c.conn, authorizeRequest{Authorize: token}); err != nil {
		return fmt.Errorf("ошибка отправки authorize: %w", err)
	}

	msg, err := c.readUntil(ctx, "authorize")
	if err != nil {
		return err
	}
	if msg.Error != nil {
		return fmt.Errorf("авторизация отклонена: %s (%s)", msg.Error.Message, msg.Error.Code)
	}
	return nil
}

// TicksHistory запрашивает исторические тики за полуинтервал [start, end).
// Возвращает тики с SortKey epoch*100000+seq, где seq — порядковый номер
// внутри секунды, чтобы тики одной секунды сохраняли стабильный порядок.
// Отсутствие ключа history или ошибка протокола — это error, а не паника:
// вызывающий сам решает, деградировать ли до пустого чанка.
func (c *Client) TicksHistory(ctx context.Context, symbol string, start, end int64) ([]types.Tick, error) {
	req := ticksHistoryRequest{
		TicksHistory:    symbol,
		Start:           start,
		End:             end,
		Count:           historyPageLimit,
		Style:           "ticks",
		AdjustStartTime: 1,
	}
	if err := wsjson.Write(ctx, c.conn, req); err != nil {
		return nil, fmt.Errorf("ошибка отправки ticks_history: %w", err)
	}

	msg, err := c.readUntil(ctx, "history")
	if err != nil {
		return nil, err
	}
	if msg.Error != nil {
		return nil, fmt.Errorf("фид отклонил ticks_history: %s (%s)", msg.Error.Message, msg.Error.Code)
	}
	if msg.History == nil {
		return nil, fmt.Errorf("ответ без ключа history")
	}
	return parseHistory(msg.History, start, end)
}

// SubscribeTicks подписывается на live-тики символа
func (c *Client) SubscribeTicks(ctx context.Context, symbol string) error {
	if err := wsjson.Write(ctx, c.conn, ticksSubscribeRequest{Ticks: symbol, Subscribe: 1}); err != nil {
		return fmt.Errorf("ошибка отправки подписки: %w", err)
	}
	return nil
}

// ReadTick читает следующий live-тик, пропуская все прочие сообщения.
// Блокируется до тика, ошибки соединения или отмены ctx.
func (c *Client) ReadTick(ctx context.Context) (types.Tick, error) {
	for {
		var msg serverMessage
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			return types.Tick{}, fmt.Errorf("ошибка чтения: %w", err)
		}

		if msg.Error != nil {
			return types.Tick{}, fmt.Errorf("ошибка фида: %s (%s)", msg.Error.Message, msg.Error.Code)
		}

		// Подтверждения подписки и прочие сообщения игнорируем
		if msg.MsgType != "tick" || msg.Tick == nil {
			logger.Debug("🔇 Deriv: пропущено сообщение msg_type=%q", msg.MsgType)
			continue
		}

		return types.NewLiveTick(msg.Tick.Epoch, msg.Tick.Quote), nil
	}
}

// readUntil читает сообщения до нужного msg_type (или error-ответа).
// Фид может прислать служебные сообщения раньше ответа на запрос.
func (c *Client) readUntil(ctx context.Context, msgType string) (*serverMessage, error) {
	for {
		var msg serverMessage
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			return nil, fmt.Errorf("ошибка чтения ответа %s: %w", msgType, err)
		}
		if msg.MsgType == msgType || msg.Error != nil {
			return &msg, nil
		}
		logger.Debug("🔇 Deriv: пропущено сообщение msg_type=%q (ждем %s)", msg.MsgType, msgType)
	}
}

// parseHistory собирает тики из параллельных массивов времени и цен.
// Фид при adjust_start_time может вернуть тики за границами чанка —
// отфильтровываем, чтобы соседние чанки не пересекались.
func parseHistory(h *historyData, start, end int64) ([]types.Tick, error) {
	if len(h.Times) != len(h.Prices) {
		return nil, fmt.Errorf("история рассинхронизирована: %d времен против %d цен", len(h.Times), len(h.Prices))
	}

	ticks := make([]types.Tick, 0, len(h.Times))
	var prevEpoch int64 = -1
	seq := 0
	for i, epoch := range h.Times {
		if epoch < start || epoch >= end {
			continue
		}
		if epoch == prevEpoch {
			seq++
		} else {
			prevEpoch = epoch
			seq = 0
		}
		ticks = append(ticks, types.NewBatchTick(epoch, h.Prices[i], seq))
	}
	return ticks, nil
}
