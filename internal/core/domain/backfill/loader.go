// internal/core/domain/backfill/loader.go
package backfill

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"deriv-streak-monitor/internal/types"
	"deriv-streak-monitor/pkg/logger"
)

// TickFetcher узкий интерфейс загрузки исторических тиков.
// Возвращает явную ошибку вместо молчаливо пустого списка, чтобы
// вызывающий мог отличить "нет данных" от "запрос не удался" —
// хотя текущая политика деградации трактует оба случая одинаково.
type TickFetcher interface {
	FetchRange(ctx context.Context, symbol string, start, end int64) ([]types.Tick, error)
}

// BatchSink узкий интерфейс для слива пачек тиков.
// Реализуется storage.TickStorage.
type BatchSink interface {
	InsertBatch(ticks []types.Tick) int
}

// Chunk - полуинтервал истории [Start, End)
type Chunk struct {
	Start int64
	End   int64
}

// SplitChunks разбивает [start, end) на непрерывные чанки не длиннее size.
// Полуоткрытые границы гарантируют, что чанки не пересекаются и тик
// на стыке не попадет в оба. start >= end дает пустой список.
func SplitChunks(start, end, size int64) []Chunk {
	if start >= end || size <= 0 {
		return nil
	}

	chunks := make([]Chunk, 0, (end-start+size-1)/size)
	for cur := start; cur < end; cur += size {
		chunkEnd := cur + size
		if chunkEnd > end {
			chunkEnd = end
		}
		chunks = append(chunks, Chunk{Start: cur, End: chunkEnd})
	}
	return chunks
}

// Loader - параллельная дозагрузка истории тиков при старте.
// Делит диапазон на чанки по лимиту страницы фида и раздает их
// ограниченному пулу воркеров. Ошибка чанка деградирует до пустого
// результата: без ретраев, без влияния на остальные чанки.
type Loader struct {
	fetcher TickFetcher
	sink    BatchSink

	symbol       string
	chunkSeconds int64
	workers      int
	fetchTimeout time.Duration
}

// NewLoader создает загрузчик истории
func NewLoader(fetcher TickFetcher, sink BatchSink, symbol string, chunkSeconds int64, workers int, fetchTimeout time.Duration) *Loader {
	return &Loader{
		fetcher:      fetcher,
		sink:         sink,
		symbol:       symbol,
		chunkSeconds: chunkSeconds,
		workers:      workers,
		fetchTimeout: fetchTimeout,
	}
}

// Run загружает историю [start, end) и возвращает число принятых тиков.
// Завершается детерминированно, когда разрешены все чанки:
// каждый из них ограничен собственным таймаутом запроса.
// Отмена ctx прекращает раздачу чанков; уже начатые запросы
// дорабатывают в пределах своего таймаута.
func (l *Loader) Run(ctx context.Context, start, end int64) int {
	chunks := SplitChunks(start, end, l.chunkSeconds)
	if len(chunks) == 0 {
		logger.Info("📭 Backfill: пустой диапазон [%d, %d), загружать нечего", start, end)
		return 0
	}

	logger.Info("📦 Backfill: %d чанков по %d сек, пул %d воркеров", len(chunks), l.chunkSeconds, l.workers)

	jobs := make(chan Chunk)
	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0

	for i := 0; i < l.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chunk := range jobs {
				// После отмены оставшиеся чанки не загружаем
				if ctx.Err() != nil {
					continue
				}
				n := l.fetchChunk(ctx, chunk)
				mu.Lock()
				inserted += n
				mu.Unlock()
			}
		}()
	}

dispatch:
	for _, chunk := range chunks {
		select {
		case jobs <- chunk:
		case <-ctx.Done():
			logger.Warn("🛑 Backfill: остановка, раздача чанков прервана")
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	logger.Info("✅ Backfill: завершен, принято %d тиков", inserted)
	return inserted
}

// fetchChunk загружает один чанк и сливает его в хранилище.
// Любая ошибка (таймаут, обрыв, кривой ответ) — это просто
// "нет данных для чанка": логируем и идем дальше.
func (l *Loader) fetchChunk(ctx context.Context, chunk Chunk) int {
	jobID := uuid.New().String()[:8]

	fetchCtx, cancel := context.WithTimeout(ctx, l.fetchTimeout)
	defer cancel()

	ticks, err := l.fetcher.FetchRange(fetchCtx, l.symbol, chunk.Start, chunk.End)
	if err != nil {
		logger.Warn("⚠️ Backfill[%s]: чанк [%d, %d) потерян: %v", jobID, chunk.Start, chunk.End, err)
		return 0
	}

	n := l.sink.InsertBatch(ticks)
	logger.Debug("💾 Backfill[%s]: чанк [%d, %d) — %d тиков (принято %d)", jobID, chunk.Start, chunk.End, len(ticks), n)
	return n
}
