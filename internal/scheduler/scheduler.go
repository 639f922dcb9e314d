// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"deriv-streak-monitor/internal/core/domain/candle"
	"deriv-streak-monitor/internal/core/domain/streak"
	"deriv-streak-monitor/internal/monitor"
	"deriv-streak-monitor/internal/types"
	"deriv-streak-monitor/pkg/logger"
)

const (
	// mirrorTTL — срок жизни зеркала снапшота в Redis
	mirrorTTL = 5 * time.Minute
	// mirrorKey — ключ зеркала снапшота
	mirrorKey = "snapshot"
)

// ConfigSource отдает актуальные параметры анализа.
// Читается заново на каждом проходе, чтобы обновления оператора
// вступали в силу без рестарта.
type ConfigSource interface {
	Analysis() types.AnalysisConfig
}

// TickSource узкий интерфейс чтения тиков для анализа.
// Реализуется storage.TickStorage.
type TickSource interface {
	RangeSince(minEpoch int64) []types.Tick
	Count() int
}

// Backfiller - однократная дозагрузка истории при старте
type Backfiller interface {
	Run(ctx context.Context, start, end int64) int
}

// LiveFeed - долгоживущая live-подписка
type LiveFeed interface {
	Start()
	Stop()
}

// SnapshotMirror - опциональное зеркало снапшота (Redis)
type SnapshotMirror interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Scheduler гоняет проходы анализа по всей сетке разрешений
// с целевой периодичностью: время сна уменьшается на длительность
// самого прохода, чтобы проходы шли по wall-clock, а не
// "период + время вычислений".
type Scheduler struct {
	cfg        ConfigSource
	store      TickSource
	board      *monitor.Board
	backfiller Backfiller
	live       LiveFeed
	mirror     SnapshotMirror // может быть nil

	interval   time.Duration
	lookback   time.Duration
	backfill   time.Duration
	minCandles int

	stopCh chan struct{}
	wg     sync.WaitGroup
	now    func() time.Time
}

// New создает планировщик анализа
func New(cfg ConfigSource, store TickSource, board *monitor.Board, backfiller Backfiller, live LiveFeed, mirror SnapshotMirror, interval, lookback, backfill time.Duration, minCandles int) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		store:      store,
		board:      board,
		backfiller: backfiller,
		live:       live,
		mirror:     mirror,
		interval:   interval,
		lookback:   lookback,
		backfill:   backfill,
		minCandles: minCandles,
		stopCh:     make(chan struct{}),
		now:        time.Now,
	}
}

// Start запускает последовательность: backfill → live-подписка →
// цикл анализа. Все — в одной фоновой горутине.
// Stop во время backfill отменяет ctx загрузчика: раздача чанков
// прерывается, дорабатывают только уже начатые запросы.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Закрываем ctx при получении stopCh
		go func() {
			select {
			case <-s.stopCh:
				cancel()
			case <-ctx.Done():
			}
		}()

		now := s.now().UTC()
		start := now.Add(-s.backfill).Unix()

		s.board.SetStatus("Backfilling...")
		n := s.backfiller.Run(ctx, start, now.Unix())

		// Остановка пришла во время backfill — live-фаза не нужна
		select {
		case <-s.stopCh:
			return
		default:
		}
		logger.Info("📊 Scheduler: история загружена (%d тиков), запускаем live-фид", n)

		s.live.Start()
		s.board.SetStatus("Active")

		s.loop()
	}()
	logger.Info("✅ Scheduler: запущен")
}

// Stop останавливает цикл анализа и live-подписку
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.live.Stop()
	logger.Info("🛑 Scheduler: остановлен")
}

// loop - цикл проходов с компенсацией времени вычислений
func (s *Scheduler) loop() {
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		started := s.now()
		s.RunPass()

		sleep := s.interval - time.Since(started)
		if sleep < 0 {
			sleep = 0
		}

		select {
		case <-time.After(sleep):
		case <-s.stopCh:
			return
		}
	}
}

// RunPass выполняет один полный проход по сетке разрешений
// и публикует результат. Ошибка прохода не фатальна:
// публикуется пустой список королей, цикл продолжается.
func (s *Scheduler) RunPass() {
	passID := uuid.New().String()[:8]
	cfg := s.cfg.Analysis()

	started := s.now()
	kings, err := s.analyze(cfg)
	if err != nil {
		logger.Error("❌ Scheduler[%s]: проход не удался: %v", passID, err)
		kings = nil
	}

	sorted := SortKings(kings)
	s.board.Publish(sorted, cfg)
	s.mirrorSnapshot()

	logger.Info("👑 Scheduler[%s]: проход за %v — королей: %d (тиков в базе: %d)",
		passID, time.Since(started).Round(time.Millisecond), len(sorted), s.store.Count())
	for _, k := range sorted {
		logger.King(k.TF, string(k.Color), k.Level, k.Strength)
	}
}

// analyze сканирует всю сетку (cycle, offset) по скользящему окну.
// Паника внутри прохода перехватывается на его границе.
func (s *Scheduler) analyze(cfg types.AnalysisConfig) (kings map[types.StreakKey]types.King, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника в проходе анализа: %v", r)
		}
	}()

	minEpoch := s.now().UTC().Add(-s.lookback).Unix()
	ticks := s.store.RangeSince(minEpoch)
	if len(ticks) == 0 {
		logger.Warn("⚠️ Scheduler: нет тиков в окне анализа")
		return nil, nil
	}

	kings = make(map[types.StreakKey]types.King)
	for cycle := cfg.MinCycle; cycle <= cfg.MaxCycle; cycle++ {
		for offset := int64(0); offset < cycle; offset++ {
			candles := candle.Aggregate(ticks, cycle, offset)
			streak.MergeKings(kings, streak.Score(candles, cycle, offset, cfg.MinStrength, cfg.MaxStrength, s.minCandles))
		}
	}
	return kings, nil
}

// mirrorSnapshot зеркалит снапшот в Redis, если зеркало настроено.
// Ошибка зеркалирования только логируется.
func (s *Scheduler) mirrorSnapshot() {
	if s.mirror == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.mirror.Set(ctx, mirrorKey, s.board.Snapshot(), mirrorTTL); err != nil {
		logger.Warn("⚠️ Scheduler: зеркало снапшота недоступно: %v", err)
	}
}

// SortKings сортирует королей: длина серии по возрастанию, затем цвет
func SortKings(kings map[types.StreakKey]types.King) []types.King {
	result := make([]types.King, 0, len(kings))
	for _, k := range kings {
		result = append(result, k)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Level != result[j].Level {
			return result[i].Level < result[j].Level
		}
		return result[i].Color < result[j].Color
	})
	return result
}
