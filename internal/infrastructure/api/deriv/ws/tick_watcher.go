// internal/infrastructure/api/deriv/ws/tick_watcher.go
package ws

import (
	"context"
	"sync"
	"time"

	"deriv-streak-monitor/internal/infrastructure/api/deriv"
	"deriv-streak-monitor/internal/types"
	"deriv-streak-monitor/pkg/logger"
)

// TickSink узкий интерфейс для записи live-тиков.
// Реализуется storage.TickStorage.
type TickSink interface {
	// InsertOne вставляет тик; false — дубликат SortKey (no-op)
	InsertOne(tick types.Tick) bool
}

// PriceBoard узкий интерфейс для обновления последней цены.
// Реализуется monitor.Board.
type PriceBoard interface {
	SetPrice(price float64)
}

// TickWatcher держит постоянную подписку на live-тики Deriv
// и дописывает каждый тик в хранилище. При любой ошибке соединения
// ждет фиксированный backoff и переподключается с авторизации.
// Терминального успешного состояния нет — работает до остановки.
type TickWatcher struct {
	wsURL   string
	appID   string
	token   string
	symbol  string // фиксируется на старте, вместе с backfill и хранилищем
	backoff time.Duration

	sink  TickSink
	board PriceBoard

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewTickWatcher создает наблюдатель live-тиков
func NewTickWatcher(wsURL, appID, token, symbol string, backoff time.Duration, sink TickSink, board PriceBoard) *TickWatcher {
	return &TickWatcher{
		wsURL:   wsURL,
		appID:   appID,
		token:   token,
		symbol:  symbol,
		backoff: backoff,
		sink:    sink,
		board:   board,
		stopCh:  make(chan struct{}),
	}
}

// Start запускает горутину подписки с авто-переподключением
func (w *TickWatcher) Start() {
	w.wg.Add(1)
	go w.connectLoop()
	logger.Info("🌊 TickWatcher: запущен")
}

// Stop останавливает горутину и ждёт её завершения
func (w *TickWatcher) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	logger.Info("🛑 TickWatcher: остановлен")
}

// connectLoop — цикл Disconnected → Authorizing → Subscribed.
// Backoff фиксированный: фид сам ограничивает частоту подключений.
func (w *TickWatcher) connectLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		logger.Info("🔌 TickWatcher: подключение к фиду (%s)", w.symbol)

		err := w.runConnection(w.symbol)
		if err != nil {
			// Проверяем остановку
			select {
			case <-w.stopCh:
				return
			default:
			}
			logger.Warn("⚠️ TickWatcher: соединение прервано: %v, повтор через %v", err, w.backoff)
		}

		select {
		case <-time.After(w.backoff):
		case <-w.stopCh:
			return
		}
	}
}

// runConnection устанавливает одно соединение, авторизуется,
// подписывается и читает тики до ошибки или остановки
func (w *TickWatcher) runConnection(symbol string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Закрываем ctx при получении stopCh
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	client := deriv.NewClient(w.wsURL, w.appID)
	if err := client.Dial(ctx); err != nil {
		return err
	}
	defer client.Close()

	if err := client.Authorize(ctx, w.token); err != nil {
		return err
	}

	if err := client.SubscribeTicks(ctx, symbol); err != nil {
		return err
	}
	logger.Info("✅ TickWatcher: подписка на %s активна", symbol)

	// Читаем тики. Явного таймаута нет — блокируемся до данных или ошибки.
	for {
		tick, err := client.ReadTick(ctx)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil // нормальная остановка
			default:
				return err
			}
		}

		w.sink.InsertOne(tick)
		w.board.SetPrice(tick.Price)
		logger.Debug("📥 TickWatcher: %s %d @ %.5f", symbol, tick.Epoch, tick.Price)
	}
}
